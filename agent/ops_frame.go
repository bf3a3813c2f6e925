package agent

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"datachat/dataset"
)

// summaryOperation reports dataset shape and column metadata, never cell
// values. The planner is told to call it first to orient itself.
func summaryOperation() *Operation {
	return &Operation{
		Name: "summary",
		Desc: "Get a high-level overview of the loaded dataset: row and column counts, column names, and data types. Returns metadata only, no row values. Call this first to understand the dataset.",
		Handler: func(ctx context.Context, ds *dataset.Dataset, args string) (any, *OpError) {
			dtypes := orderedmap.New[string, any]()
			for _, col := range ds.Columns {
				dtypes.Set(col.Name, col.Dtype())
			}
			out := orderedmap.New[string, any]()
			out.Set("rows", ds.Rows())
			out.Set("columns", len(ds.Columns))
			out.Set("column_names", ds.ColumnNames())
			out.Set("dtypes", dtypes)
			out.Set("dataset_name", ds.Name)
			return out, nil
		},
	}
}

type sampleInput struct {
	N flexInt `json:"n"`
}

func sampleOperation() *Operation {
	return &Operation{
		Name: "sample",
		Desc: "Return the first N rows of the dataset as records. N is clamped between 1 and 20, default 5. Use this to inspect actual values.",
		Params: map[string]*schema.ParameterInfo{
			"n": {
				Type: schema.Integer,
				Desc: "Number of rows from the top of the dataset, between 1 and 20.",
			},
		},
		Handler: func(ctx context.Context, ds *dataset.Dataset, args string) (any, *OpError) {
			var in sampleInput
			if opErr := decodeArgs(args, &in); opErr != nil {
				return nil, opErr
			}
			n := clampInt(in.N.or(5), 1, 20)
			if n > ds.Rows() {
				n = ds.Rows()
			}
			rows := make([]*orderedmap.OrderedMap[string, any], 0, n)
			for i := 0; i < n; i++ {
				row := orderedmap.New[string, any]()
				for _, col := range ds.Columns {
					row.Set(col.Name, col.Value(i))
				}
				rows = append(rows, row)
			}
			return rows, nil
		},
	}
}

type findColumnsInput struct {
	Keyword string `json:"keyword"`
}

func findColumnsOperation() *Operation {
	return &Operation{
		Name: "find_columns",
		Desc: "Find column names containing a keyword, case-insensitive. Returns matching names in dataset order. Use this when the user mentions a concept like 'price' or 'date'.",
		Params: map[string]*schema.ParameterInfo{
			"keyword": {
				Type:     schema.String,
				Desc:     "Text to search for in column names. Case-insensitive, surrounding spaces ignored.",
				Required: true,
			},
		},
		Handler: func(ctx context.Context, ds *dataset.Dataset, args string) (any, *OpError) {
			var in findColumnsInput
			if opErr := decodeArgs(args, &in); opErr != nil {
				return nil, opErr
			}
			matches := make([]string, 0)
			kw := strings.ToLower(strings.TrimSpace(in.Keyword))
			if kw == "" {
				return matches, nil
			}
			for _, name := range ds.ColumnNames() {
				if strings.Contains(strings.ToLower(name), kw) {
					matches = append(matches, name)
				}
			}
			return matches, nil
		},
	}
}

func missingValuesOperation() *Operation {
	return &Operation{
		Name: "missing_values",
		Desc: "Count missing cells per column. Returns a map of column name to missing count.",
		Handler: func(ctx context.Context, ds *dataset.Dataset, args string) (any, *OpError) {
			out := orderedmap.New[string, any]()
			for _, col := range ds.Columns {
				out.Set(col.Name, col.MissingCount())
			}
			return out, nil
		},
	}
}
