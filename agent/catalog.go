package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"

	"datachat/dataset"
)

// Operation describes one entry of the closed analysis catalog: its
// planner-facing schema and the handler that runs it against the active
// dataset. The planner can only pick operations from this table; it never
// supplies code.
type Operation struct {
	Name    string
	Desc    string
	Params  map[string]*schema.ParameterInfo
	Handler func(ctx context.Context, ds *dataset.Dataset, args string) (any, *OpError)
}

// Catalog is the dispatch table for analysis operations. Operations keep
// registration order, which is also the order they are advertised to the
// planner.
type Catalog struct {
	ops   []*Operation
	index map[string]*Operation
	log   func(string)
}

// NewCatalog returns an empty catalog. The log callback may be nil.
func NewCatalog(log func(string)) *Catalog {
	return &Catalog{
		index: make(map[string]*Operation),
		log:   log,
	}
}

// SetLogger sets the log callback used for execution tracing.
func (c *Catalog) SetLogger(log func(string)) {
	c.log = log
}

func (c *Catalog) logf(format string, args ...any) {
	if c.log != nil {
		c.log(fmt.Sprintf(format, args...))
	}
}

// Register adds an operation to the catalog.
func (c *Catalog) Register(op *Operation) error {
	if op == nil || op.Name == "" {
		return fmt.Errorf("operation has no name")
	}
	if op.Handler == nil {
		return fmt.Errorf("operation %q has no handler", op.Name)
	}
	if _, exists := c.index[op.Name]; exists {
		return fmt.Errorf("operation %q is already registered", op.Name)
	}
	c.ops = append(c.ops, op)
	c.index[op.Name] = op
	return nil
}

// Operations returns the registered operations in registration order.
func (c *Catalog) Operations() []*Operation {
	return c.ops
}

// Lookup finds an operation by name.
func (c *Catalog) Lookup(name string) (*Operation, bool) {
	op, ok := c.index[name]
	return op, ok
}

// ToolInfos converts the catalog into the tool declarations bound to the
// chat model.
func (c *Catalog) ToolInfos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(c.ops))
	for _, op := range c.ops {
		params := op.Params
		if params == nil {
			params = map[string]*schema.ParameterInfo{}
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        op.Name,
			Desc:        op.Desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

// OperationResult is the typed outcome of one tool call. Exactly one of
// Value and Err is set.
type OperationResult struct {
	Name   string
	CallID string
	Args   string
	Value  any
	Err    *OpError
}

// Observation renders the result as the JSON observation fed back to the
// planner.
func (r OperationResult) Observation() string {
	if r.Err != nil {
		b, _ := json.Marshal(map[string]any{"error": r.Err})
		return string(b)
	}
	b, err := json.Marshal(map[string]any{"result": r.Value})
	if err != nil {
		b, _ = json.Marshal(map[string]any{
			"error": &OpError{Kind: KindInvalidArgument, Message: "result is not JSON-encodable"},
		})
	}
	return string(b)
}

// Execute runs one planner tool call against the session's active dataset.
// The dataset is fetched per call, so every call sees one consistent table
// even while an upload swaps it out.
func (c *Catalog) Execute(ctx context.Context, store *dataset.Store, call schema.ToolCall) OperationResult {
	res := OperationResult{
		Name:   call.Function.Name,
		CallID: call.ID,
		Args:   call.Function.Arguments,
	}

	op, ok := c.Lookup(call.Function.Name)
	if !ok {
		res.Err = opErrorf(KindToolParse, "unknown operation %q", call.Function.Name)
		c.logf("tool call rejected: %s", res.Err.Message)
		return res
	}

	ds, err := store.Current()
	if err != nil {
		res.Err = opErrorf(KindNoDataset, "No dataset loaded. Upload a CSV first.")
		return res
	}

	c.logf("executing operation %s args=%s", op.Name, call.Function.Arguments)
	res.Value, res.Err = op.Handler(ctx, ds, call.Function.Arguments)
	if res.Err != nil {
		c.logf("operation %s failed: kind=%s %s", op.Name, res.Err.Kind, res.Err.Message)
	}
	return res
}

// decodeArgs parses the raw tool call arguments into the operation's input
// struct. Blank arguments mean all defaults.
func decodeArgs(raw string, v any) *OpError {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return opErrorf(KindToolParse, "invalid tool arguments: %v", err)
	}
	return nil
}

// flexInt accepts a JSON number or a numeric string, truncating fractions.
// Planners are loose about integer parameters, so the decoder is too.
type flexInt struct {
	value int
	set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
	case float64:
		f.value = int(v)
		f.set = true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		fv, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("expected a number, got %q", v)
		}
		f.value = int(fv)
		f.set = true
	default:
		return fmt.Errorf("expected a number, got %T", raw)
	}
	return nil
}

// or returns the decoded value, or def when the parameter was absent.
func (f flexInt) or(def int) int {
	if !f.set {
		return def
	}
	return f.value
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
