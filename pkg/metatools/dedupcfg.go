package metatools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func handleConfigureDeduplication(core Core) Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		cfg := core.DedupConfig()
		applied := map[string]any{}

		if enabled, ok := boolArg(args, "enabled"); ok {
			cfg.Enabled = enabled
			applied["enabled"] = enabled
		}

		if threshold, ok := floatArg(args, "similarityThreshold"); ok {
			if threshold < 0 || threshold > 1 {
				return usageError("similarityThreshold must be between 0 and 1"), nil
			}
			cfg.SimilarityThreshold = threshold
			applied["similarityThreshold"] = threshold
		}

		if autoMerge, ok := boolArg(args, "autoMerge"); ok {
			cfg.AutoMerge = autoMerge
			applied["autoMerge"] = autoMerge
		}

		if len(applied) > 0 {
			core.ApplyDedupConfig(cfg)
		}

		payload := map[string]any{
			"applied": applied,
			"config":  core.DedupConfig(),
		}

		if getStats, ok := boolArg(args, "getStats"); ok && getStats {
			namespaced, merged, exposed := core.Counts()
			payload["stats"] = core.DedupStats()
			payload["toolCounts"] = map[string]int{
				"namespaced": namespaced,
				"merged":     merged,
				"exposed":    exposed,
			}
		}

		return jsonResult(payload), nil
	}
}
