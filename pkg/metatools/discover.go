package metatools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/theapemachine/metamcp/pkg/metrics"
	"github.com/theapemachine/metamcp/pkg/registry"
)

type serverSnapshot struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Status      registry.Status `json:"status"`
	ToolCount   int             `json:"toolCount"`
	Command     []string        `json:"command"`
	ConnectedAt int64           `json:"connectedAt,omitempty"`
	Metrics     metricsSummary  `json:"metrics"`
}

type metricsSummary struct {
	TotalCalls     int64   `json:"totalCalls"`
	TotalFailures  int64   `json:"totalFailures"`
	AvgSuccessRate float64 `json:"avgSuccessRate"`
	AvgResponseMs  float64 `json:"avgResponseTimeMs"`
}

func handleDiscoverServers(core Core) Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		providers := core.Registry().Providers()

		snapshots := make([]serverSnapshot, 0, len(providers))
		for _, info := range providers {
			snapshots = append(snapshots, serverSnapshot{
				ID:          info.Config.ID,
				Name:        info.Config.Name,
				Description: info.Config.Description,
				Status:      info.Status,
				ToolCount:   len(info.Tools),
				Command:     info.Config.Command,
				ConnectedAt: info.ConnectedAt,
				Metrics:     summarize(core.Metrics().Provider(info.Config.ID)),
			})
		}

		return jsonResult(map[string]any{
			"servers": snapshots,
			"total":   len(snapshots),
		}), nil
	}
}

// summarize folds the per-tool metrics of one provider into totals.
func summarize(toolMetrics map[string]metrics.PerformanceMetrics) metricsSummary {
	summary := metricsSummary{}

	if len(toolMetrics) == 0 {
		summary.AvgSuccessRate = 1.0
		return summary
	}

	var rateSum, responseSum float64
	for _, m := range toolMetrics {
		summary.TotalCalls += m.TotalCalls
		summary.TotalFailures += m.FailureCount
		rateSum += m.SuccessRate
		responseSum += m.AvgResponseTimeMillis
	}

	summary.AvgSuccessRate = rateSum / float64(len(toolMetrics))
	summary.AvgResponseMs = responseSum / float64(len(toolMetrics))

	return summary
}
