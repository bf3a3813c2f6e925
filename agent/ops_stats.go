package agent

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"datachat/dataset"
)

type describeInput struct {
	Columns []string `json:"columns"`
}

func describeOperation() *Operation {
	return &Operation{
		Name: "describe",
		Desc: "Compute descriptive statistics for all or selected columns. Numeric columns get count/mean/std/min/25%/50%/75%/max; other columns get count/unique/top/freq. Inapplicable stats are empty strings.",
		Params: map[string]*schema.ParameterInfo{
			"columns": {
				Type:     schema.Array,
				Desc:     "Columns to describe. Omit to describe every column.",
				ElemInfo: &schema.ParameterInfo{Type: schema.String},
			},
		},
		Handler: func(ctx context.Context, ds *dataset.Dataset, args string) (any, *OpError) {
			var in describeInput
			if opErr := decodeArgs(args, &in); opErr != nil {
				return nil, opErr
			}

			selected := ds.Columns
			if len(in.Columns) > 0 {
				var invalid []string
				selected = make([]*dataset.Column, 0, len(in.Columns))
				for _, name := range in.Columns {
					col, ok := ds.Column(name)
					if !ok {
						invalid = append(invalid, name)
						continue
					}
					selected = append(selected, col)
				}
				if len(invalid) > 0 {
					return nil, opErrorf(KindUnknownColumn, "Invalid columns: %v", invalid)
				}
			}

			keys := statKeys(selected)
			out := orderedmap.New[string, any]()
			for _, col := range selected {
				out.Set(col.Name, describeColumn(col, keys))
			}
			return out, nil
		},
	}
}

// statKeys returns the union of stat names for the selected columns, in the
// order dataframe tooling conventionally prints them. Every described column
// reports every key; inapplicable cells hold "".
func statKeys(cols []*dataset.Column) []string {
	hasNumeric, hasOther := false, false
	for _, c := range cols {
		if c.Type == dataset.Numeric {
			hasNumeric = true
		} else {
			hasOther = true
		}
	}
	keys := []string{"count"}
	if hasOther {
		keys = append(keys, "unique", "top", "freq")
	}
	if hasNumeric {
		keys = append(keys, "mean", "std", "min", "25%", "50%", "75%", "max")
	}
	return keys
}

func describeColumn(col *dataset.Column, keys []string) *orderedmap.OrderedMap[string, any] {
	stats := make(map[string]any, len(keys))
	for _, k := range keys {
		stats[k] = ""
	}

	if col.Type == dataset.Numeric {
		nums := col.Numbers()
		stats["count"] = float64(len(nums))
		if len(nums) > 0 {
			sorted := append([]float64(nil), nums...)
			sort.Float64s(sorted)
			stats["mean"] = stat.Mean(nums, nil)
			if len(nums) > 1 {
				stats["std"] = stat.StdDev(nums, nil)
			}
			stats["min"] = floats.Min(sorted)
			stats["25%"] = quantile(sorted, 0.25)
			stats["50%"] = quantile(sorted, 0.5)
			stats["75%"] = quantile(sorted, 0.75)
			stats["max"] = floats.Max(sorted)
		}
	} else {
		top, freq, unique, count := topValue(col)
		stats["count"] = count
		stats["unique"] = unique
		if count > 0 {
			stats["top"] = top
			stats["freq"] = freq
		}
	}

	out := orderedmap.New[string, any]()
	for _, k := range keys {
		out.Set(k, stats[k])
	}
	return out
}

// quantile interpolates the p-quantile over a sorted slice the way dataframe
// libraries do (linear interpolation over n-1 intervals). The gonum
// estimators use a different empirical definition, so this stays hand-rolled.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// topValue returns the most frequent non-missing display value of a column,
// its count, the number of distinct values, and the non-missing total.
// Ties resolve to the value seen first.
func topValue(col *dataset.Column) (top string, freq, unique, count int) {
	for _, vc := range countValues(col) {
		if vc.missing {
			continue
		}
		unique++
		count += vc.count
		if freq == 0 {
			top, freq = vc.label, vc.count
		}
	}
	return top, freq, unique, count
}

type valueCountsInput struct {
	Column string  `json:"column"`
	Limit  flexInt `json:"limit"`
}

func valueCountsOperation() *Operation {
	return &Operation{
		Name: "value_counts",
		Desc: "Count the most frequent values of one column. Limit is clamped between 1 and 20, default 10. Missing cells are counted under the key 'NaN'. Best for categorical columns.",
		Params: map[string]*schema.ParameterInfo{
			"column": {
				Type:     schema.String,
				Desc:     "Column name to count values for.",
				Required: true,
			},
			"limit": {
				Type: schema.Integer,
				Desc: "Maximum number of values to return, between 1 and 20.",
			},
		},
		Handler: func(ctx context.Context, ds *dataset.Dataset, args string) (any, *OpError) {
			var in valueCountsInput
			if opErr := decodeArgs(args, &in); opErr != nil {
				return nil, opErr
			}
			col, ok := ds.Column(in.Column)
			if !ok {
				return nil, opErrorf(KindUnknownColumn, "Column '%s' does not exist", in.Column)
			}
			limit := clampInt(in.Limit.or(10), 1, 20)

			counts := countValues(col)
			if len(counts) > limit {
				counts = counts[:limit]
			}
			out := orderedmap.New[string, any]()
			for _, vc := range counts {
				out.Set(vc.label, vc.count)
			}
			return out, nil
		},
	}
}

// missingLabel is the bucket key for missing cells in value counts.
const missingLabel = "NaN"

type valueCount struct {
	label   string
	count   int
	missing bool
}

// countValues tallies stringified cell values, bucketing missing cells under
// missingLabel. The result is sorted by count descending; ties keep
// first-seen order.
func countValues(col *dataset.Column) []valueCount {
	counts := make(map[string]*valueCount)
	var order []*valueCount
	for i := 0; i < col.Len(); i++ {
		label := missingLabel
		miss := col.IsMissing(i)
		if !miss {
			label = col.Display(i)
		}
		vc, seen := counts[label]
		if !seen {
			vc = &valueCount{label: label, missing: miss}
			counts[label] = vc
			order = append(order, vc)
		}
		vc.count++
	}
	out := make([]valueCount, len(order))
	for i, vc := range order {
		out[i] = *vc
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].count > out[j].count
	})
	return out
}

type correlationInput struct {
	Method string `json:"method"`
}

func correlationOperation() *Operation {
	return &Operation{
		Name: "correlation",
		Desc: "Compute the correlation matrix over numeric columns only. Method is pearson, spearman or kendall, default pearson. Values are rounded to 4 decimals; pairs without enough overlapping data are null.",
		Params: map[string]*schema.ParameterInfo{
			"method": {
				Type: schema.String,
				Desc: "Correlation method: pearson, spearman or kendall.",
			},
		},
		Handler: func(ctx context.Context, ds *dataset.Dataset, args string) (any, *OpError) {
			var in correlationInput
			if opErr := decodeArgs(args, &in); opErr != nil {
				return nil, opErr
			}
			method := strings.ToLower(strings.TrimSpace(in.Method))
			if method == "" {
				method = "pearson"
			}
			switch method {
			case "pearson", "spearman", "kendall":
			default:
				return nil, opErrorf(KindUnsupportedMethod, "method must be one of: pearson, spearman, kendall")
			}

			numeric := ds.NumericColumns()
			if len(numeric) < 2 {
				return nil, opErrorf(KindInsufficientNumeric, "Not enough numeric columns for correlation (need at least 2).")
			}

			out := orderedmap.New[string, any]()
			for _, a := range numeric {
				row := orderedmap.New[string, any]()
				for _, b := range numeric {
					r := pairCorrelation(a, b, method)
					if math.IsNaN(r) {
						row.Set(b.Name, nil)
					} else {
						row.Set(b.Name, round4(r))
					}
				}
				out.Set(a.Name, row)
			}
			return out, nil
		},
	}
}

// pairedNumbers collects the rows where both columns have a numeric value.
func pairedNumbers(a, b *dataset.Column) (xs, ys []float64) {
	for i := 0; i < a.Len(); i++ {
		x, okA := a.Float(i)
		y, okB := b.Float(i)
		if okA && okB {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

// pairCorrelation correlates two columns over rows where both are present.
// It returns NaN when fewer than two complete pairs exist.
func pairCorrelation(a, b *dataset.Column, method string) float64 {
	xs, ys := pairedNumbers(a, b)
	if len(xs) < 2 {
		return math.NaN()
	}
	switch method {
	case "spearman":
		return stat.Correlation(avgRanks(xs), avgRanks(ys), nil)
	case "kendall":
		return stat.Kendall(xs, ys, nil)
	default:
		return stat.Correlation(xs, ys, nil)
	}
}

// avgRanks maps values to 1-based ranks, averaging ties, which turns a
// Pearson correlation into Spearman's rho.
func avgRanks(vals []float64) []float64 {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return vals[idx[i]] < vals[idx[j]] })

	ranks := make([]float64, len(vals))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && vals[idx[j+1]] == vals[idx[i]] {
			j++
		}
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
