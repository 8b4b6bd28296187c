package metatools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/theapemachine/metamcp/pkg/cache"
	"github.com/theapemachine/metamcp/pkg/metrics"
)

var timeframeWindows = map[string]time.Duration{
	"hour": time.Hour,
	"day":  24 * time.Hour,
	"week": 7 * 24 * time.Hour,
}

func handleAnalyzeUsage(core Core) Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		timeframe, ok := stringArg(args, "timeframe")
		if !ok {
			timeframe = "day"
		}

		window, known := timeframeWindows[timeframe]
		if !known {
			return usageError(fmt.Sprintf("unknown timeframe %q, expected hour, day or week", timeframe)), nil
		}

		cutoff := time.Now().Add(-window)
		snapshot := core.Metrics().Snapshot()

		report := map[string]any{
			"timeframe":  timeframe,
			"cacheStats": cacheStatsPayload(core.ResultCache().GetStats()),
		}

		if serverID, ok := stringArg(args, "serverId"); ok {
			toolMetrics, found := snapshot[serverID]
			if !found {
				return usageError(fmt.Sprintf("no metrics recorded for provider %q", serverID)), nil
			}

			report["serverId"] = serverID
			report["tools"] = filterByRecency(toolMetrics, cutoff)
			return jsonResult(report), nil
		}

		overview := make(map[string]metricsSummary, len(snapshot))
		var totalCalls, totalFailures int64

		for providerID, toolMetrics := range snapshot {
			active := filterByRecency(toolMetrics, cutoff)
			if len(active) == 0 {
				continue
			}

			summary := summarize(active)
			overview[providerID] = summary
			totalCalls += summary.TotalCalls
			totalFailures += summary.TotalFailures
		}

		report["providers"] = overview
		report["totalCalls"] = totalCalls
		report["totalFailures"] = totalFailures

		return jsonResult(report), nil
	}
}

func filterByRecency(toolMetrics map[string]metrics.PerformanceMetrics, cutoff time.Time) map[string]metrics.PerformanceMetrics {
	active := make(map[string]metrics.PerformanceMetrics)
	for toolName, m := range toolMetrics {
		if m.LastUsed.After(cutoff) {
			active[toolName] = m
		}
	}
	return active
}

func handleGetCacheStats(core Core) Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		return jsonResult(cacheStatsPayload(core.ResultCache().GetStats())), nil
	}
}

// cacheStatsPayload converts the TTL durations into milliseconds so the
// payload reads naturally on the wire.
func cacheStatsPayload(stats cache.Stats) map[string]any {
	ttls := make(map[string]int64, len(stats.TypeTTLs))
	for toolType, ttl := range stats.TypeTTLs {
		ttls[toolType] = ttl.Milliseconds()
	}

	payload := map[string]any{
		"size":             stats.Size,
		"hitRate":          stats.HitRate,
		"totalRequests":    stats.TotalRequests,
		"totalHits":        stats.TotalHits,
		"avgHitCount":      stats.AvgHitCount,
		"toolTypeRequests": stats.TypeRequests,
		"toolTypeTTLsMs":   ttls,
		"recommendations":  stats.Recommendations,
	}

	if !stats.OldestEntry.IsZero() {
		payload["oldestEntry"] = stats.OldestEntry
		payload["newestEntry"] = stats.NewestEntry
	}

	return payload
}

const (
	warnSuccessRateBelow = 0.8
	warnResponseAboveMs  = 5000
)

func handleOptimizeRouting(core Core) Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		toolFilter, _ := stringArg(args, "tool")

		var warnings []string
		for providerID, toolMetrics := range core.Metrics().Snapshot() {
			for toolName, m := range toolMetrics {
				if toolFilter != "" && toolName != toolFilter {
					continue
				}
				if m.TotalCalls == 0 {
					continue
				}

				if m.SuccessRate < warnSuccessRateBelow {
					warnings = append(warnings, fmt.Sprintf(
						"%s:%s success rate %.2f is below %.2f",
						providerID, toolName, m.SuccessRate, warnSuccessRateBelow))
				}
				if m.AvgResponseTimeMillis > warnResponseAboveMs {
					warnings = append(warnings, fmt.Sprintf(
						"%s:%s average response time %.0fms exceeds %dms",
						providerID, toolName, m.AvgResponseTimeMillis, warnResponseAboveMs))
				}
			}
		}

		return jsonResult(map[string]any{
			"warnings":   warnings,
			"cacheStats": cacheStatsPayload(core.ResultCache().GetStats()),
		}), nil
	}
}
