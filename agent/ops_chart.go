package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"datachat/charts"
	"datachat/dataset"
)

// ChartResult is the structured outcome of the chart operation. Path is the
// artifact reference the loop collects directly, so artifacts never depend
// on the planner echoing file names back in prose.
type ChartResult struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	ColumnX string `json:"column_x"`
	ColumnY string `json:"column_y,omitempty"`
}

var allowedPlots = map[string]bool{
	"hist":    true,
	"box":     true,
	"scatter": true,
	"bar":     true,
}

// Bar charts keep only the most frequent categories so labels stay readable.
const maxBarCategories = 10

func plotKinds() []string {
	kinds := make([]string, 0, len(allowedPlots))
	for k := range allowedPlots {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

type chartInput struct {
	Kind    string `json:"kind"`
	ColumnX string `json:"column_x"`
	ColumnY string `json:"column_y"`
}

func chartOperation(dir string) *Operation {
	return &Operation{
		Name: "chart",
		Desc: "Render a chart as a PNG file and return its path. kind is one of: bar, box, hist, scatter. column_x is the primary column; column_y is required for scatter. Bar charts keep the top 10 categories.",
		Params: map[string]*schema.ParameterInfo{
			"kind": {
				Type:     schema.String,
				Desc:     "Plot type: bar, box, hist or scatter.",
				Required: true,
			},
			"column_x": {
				Type:     schema.String,
				Desc:     "Primary column for the plot.",
				Required: true,
			},
			"column_y": {
				Type: schema.String,
				Desc: "Second column, required for scatter plots.",
			},
		},
		Handler: func(ctx context.Context, ds *dataset.Dataset, args string) (any, *OpError) {
			var in chartInput
			if opErr := decodeArgs(args, &in); opErr != nil {
				return nil, opErr
			}

			kind := strings.ToLower(strings.TrimSpace(in.Kind))
			if !allowedPlots[kind] {
				return nil, opErrorf(KindUnsupportedKind, "Plot type must be one of: %s", strings.Join(plotKinds(), ", "))
			}
			colX, ok := ds.Column(in.ColumnX)
			if !ok {
				return nil, opErrorf(KindUnknownColumn, "Column '%s' does not exist", in.ColumnX)
			}
			var colY *dataset.Column
			if kind == "scatter" {
				if in.ColumnY == "" {
					return nil, opErrorf(KindMissingSecondary, "column_y is required for scatter plots")
				}
				colY, ok = ds.Column(in.ColumnY)
				if !ok {
					return nil, opErrorf(KindUnknownColumn, "Column '%s' does not exist", in.ColumnY)
				}
			}

			id := uuid.New()
			path := filepath.Join(dir, fmt.Sprintf("plot_%x.png", id[:]))

			var renderErr error
			switch kind {
			case "hist", "box":
				if colX.Type != dataset.Numeric {
					return nil, opErrorf(KindInvalidArgument, "Column '%s' is not numeric", colX.Name)
				}
				nums := colX.Numbers()
				if len(nums) == 0 {
					return nil, opErrorf(KindInvalidArgument, "Column '%s' has no values to plot", colX.Name)
				}
				if kind == "hist" {
					renderErr = charts.Hist(nums, colX.Name, path)
				} else {
					renderErr = charts.Box(nums, colX.Name, path)
				}

			case "scatter":
				if colX.Type != dataset.Numeric {
					return nil, opErrorf(KindInvalidArgument, "Column '%s' is not numeric", colX.Name)
				}
				if colY.Type != dataset.Numeric {
					return nil, opErrorf(KindInvalidArgument, "Column '%s' is not numeric", colY.Name)
				}
				xs, ys := pairedNumbers(colX, colY)
				if len(xs) == 0 {
					return nil, opErrorf(KindInvalidArgument, "No paired values to plot for '%s' and '%s'", colX.Name, colY.Name)
				}
				renderErr = charts.Scatter(xs, ys, colX.Name, colY.Name, path)

			case "bar":
				counts := countValues(colX)
				if len(counts) > maxBarCategories {
					counts = counts[:maxBarCategories]
				}
				if len(counts) == 0 {
					return nil, opErrorf(KindInvalidArgument, "Column '%s' has no values to plot", colX.Name)
				}
				labels := make([]string, len(counts))
				heights := make([]float64, len(counts))
				for i, vc := range counts {
					labels[i] = vc.label
					heights[i] = float64(vc.count)
				}
				renderErr = charts.Bar(labels, heights, colX.Name, path)
			}

			if renderErr != nil {
				return nil, opErrorf(KindArtifactWrite, "failed to write chart: %v", renderErr)
			}

			result := &ChartResult{Path: path, Kind: kind, ColumnX: colX.Name}
			if colY != nil {
				result.ColumnY = colY.Name
			}
			return result, nil
		},
	}
}
