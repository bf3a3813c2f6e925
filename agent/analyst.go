package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"datachat/dataset"
)

// systemPrompt steers the planner toward tool calls. The planner never sees
// the dataset itself, only tool observations, so the prompt forbids answering
// from memory.
const systemPrompt = `You are a data analysis assistant with access to tools for analyzing datasets.

CRITICAL RULES:
1. ALWAYS use the summary tool FIRST when a user asks ANY question about their data
2. You MUST use tools to answer questions - you cannot answer from memory
3. You do NOT write or execute code yourself
4. When asked about columns, use the find_columns tool
5. When asked about statistics, use the describe or missing_values tools
6. When asked to create visualizations, use the chart tool
7. ALWAYS call tools to get information - never assume the dataset structure

Available tools:
- summary: Get overview (shape, columns, types) - USE THIS FIRST
- sample: View sample data rows
- find_columns: Search for columns by keyword
- describe: Get statistical summaries
- missing_values: Check for missing data
- value_counts: Count unique values in a column
- correlation: Compute correlations between numeric columns
- chart: Create visualizations (hist, box, scatter, bar)

Your workflow:
1. User asks a question
2. Call summary to understand the dataset
3. Use appropriate tools to gather the needed information
4. Present findings clearly and concisely

Be helpful, precise, and always rely on the tools provided.`

// loopState tracks where a planning turn is in its lifecycle.
type loopState int

const (
	statePlanning loopState = iota
	stateExecuting
	stateObserving
	stateDone
	stateFailed
)

// TurnResult is the outcome of one completed question.
type TurnResult struct {
	// Text is the display answer with chart references stripped.
	Text string
	// Artifacts lists chart file paths in production order, structured
	// results first, then any extra paths mentioned only in the answer text.
	Artifacts []string
	// Iterations counts how many planner rounds issued tool calls.
	Iterations int
}

// Analyst runs the bounded tool-calling loop: the chat model plans, the
// catalog executes, observations flow back, until the model answers in plain
// text or the iteration cap trips.
type Analyst struct {
	model         model.ChatModel
	catalog       *Catalog
	extractor     *ArtifactExtractor
	maxIterations int
	log           func(string)
}

// NewAnalyst wires the planner to the catalog and binds the tool
// declarations once. The log callback may be nil.
func NewAnalyst(chatModel model.ChatModel, catalog *Catalog, extractor *ArtifactExtractor, maxIterations int, log func(string)) (*Analyst, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("artifact extractor is required")
	}
	if maxIterations <= 0 {
		maxIterations = 10
	}
	if err := chatModel.BindTools(catalog.ToolInfos()); err != nil {
		return nil, fmt.Errorf("failed to bind tools: %v", err)
	}
	return &Analyst{
		model:         chatModel,
		catalog:       catalog,
		extractor:     extractor,
		maxIterations: maxIterations,
		log:           log,
	}, nil
}

func (a *Analyst) logf(format string, args ...any) {
	if a.log != nil {
		a.log(fmt.Sprintf(format, args...))
	}
}

// Run answers one question against the session's dataset store. Prior turns
// arrive as normalized history and are replayed ahead of the question. The
// returned error is non-nil only for terminal failures; operation errors are
// fed back to the planner as observations instead.
func (a *Analyst) Run(ctx context.Context, store *dataset.Store, history []Message, question string) (*TurnResult, error) {
	transcript := make([]*schema.Message, 0, len(history)+2)
	transcript = append(transcript, schema.SystemMessage(systemPrompt))
	transcript = append(transcript, SchemaMessages(history)...)
	transcript = append(transcript, schema.UserMessage(question))

	var (
		state      = statePlanning
		iterations int
		lastText   string
		finalText  string
		failure    error
		artifacts  []string
		seen       = make(map[string]bool)
		reply      *schema.Message
		pending    []OperationResult
	)

	for state != stateDone && state != stateFailed {
		switch state {
		case statePlanning:
			if iterations >= a.maxIterations {
				// Out of budget. Fall back to the last text the planner
				// produced; with nothing to show, the turn fails.
				a.logf("iteration limit reached after %d rounds", iterations)
				if lastText != "" {
					finalText = lastText
					state = stateDone
				} else {
					failure = ErrIterationLimit
					state = stateFailed
				}
				continue
			}
			resp, err := a.model.Generate(ctx, transcript)
			if err != nil {
				failure = fmt.Errorf("%w: %v", ErrPlannerTransport, err)
				state = stateFailed
				continue
			}
			reply = resp
			transcript = append(transcript, resp)
			if resp.Content != "" {
				lastText = resp.Content
			}
			if len(resp.ToolCalls) == 0 {
				finalText = resp.Content
				state = stateDone
				continue
			}
			iterations++
			state = stateExecuting
		case stateExecuting:
			pending = pending[:0]
			for _, call := range reply.ToolCalls {
				pending = append(pending, a.catalog.Execute(ctx, store, call))
			}
			state = stateObserving
		case stateObserving:
			state = statePlanning
			for _, res := range pending {
				if res.Err != nil && !res.Err.Recoverable() {
					failure = fmt.Errorf("%w: %s", ErrArtifactWrite, res.Err.Message)
					state = stateFailed
					break
				}
				if chart, ok := res.Value.(*ChartResult); ok && !seen[chart.Path] {
					seen[chart.Path] = true
					artifacts = append(artifacts, chart.Path)
				}
				transcript = append(transcript, schema.ToolMessage(res.Observation(), res.CallID))
			}
		}
	}

	if state == stateFailed {
		return nil, failure
	}

	// Collect chart paths the planner only mentioned in prose, then strip
	// the references from the display text.
	for _, p := range a.extractor.All(finalText) {
		if !seen[p] {
			seen[p] = true
			artifacts = append(artifacts, p)
		}
	}
	return &TurnResult{
		Text:       a.extractor.Strip(finalText),
		Artifacts:  artifacts,
		Iterations: iterations,
	}, nil
}
