/*
Package metatools implements the eight built-in tools the meta-server
exposes alongside the aggregated provider tools: introspection over the
registry, metrics and cache, tool suggestion, batch execution, and
runtime deduplication control.
*/
package metatools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/theapemachine/metamcp/pkg/cache"
	"github.com/theapemachine/metamcp/pkg/dedup"
	"github.com/theapemachine/metamcp/pkg/metrics"
	"github.com/theapemachine/metamcp/pkg/registry"
)

// Core is the aggregator surface the meta-tools operate on. Keeping it an
// interface lets the handlers be driven by a fake in tests.
type Core interface {
	Registry() *registry.Registry
	Metrics() *metrics.Store
	ResultCache() *cache.Cache
	DedupConfig() dedup.Config
	ApplyDedupConfig(cfg dedup.Config)
	DedupStats() dedup.Stats
	MergedTools() []dedup.MergedTool
	Counts() (namespaced, merged, exposed int)
	Dispatch(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// Handler executes one meta-tool against the core.
type Handler func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)

// Surface bundles the tool definitions with their handlers, in listing
// order.
type Surface struct {
	Tools    []mcp.Tool
	Handlers map[string]Handler
}

// New builds the complete meta-tool surface over the given core.
func New(core Core) *Surface {
	surface := &Surface{
		Handlers: make(map[string]Handler),
	}

	add := func(tool mcp.Tool, handler Handler) {
		surface.Tools = append(surface.Tools, tool)
		surface.Handlers[tool.Name] = handler
	}

	add(discoverServersTool(), handleDiscoverServers(core))
	add(analyzeUsageTool(), handleAnalyzeUsage(core))
	add(getCacheStatsTool(), handleGetCacheStats(core))
	add(suggestToolsTool(), handleSuggestTools(core))
	add(batchExecuteTool(), handleBatchExecute(core))
	add(optimizeRoutingTool(), handleOptimizeRouting(core))
	add(configureDeduplicationTool(), handleConfigureDeduplication(core))
	add(analyzeToolSimilarityTool(), handleAnalyzeToolSimilarity(core))

	return surface
}

// jsonResult marshals a payload into an indented text result.
func jsonResult(payload any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to serialize result: " + err.Error())
	}
	return mcp.NewToolResultText(string(data))
}

// usageError reports bad meta-tool arguments as a tool-level error.
func usageError(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

func stringArg(args map[string]any, key string) (string, bool) {
	value, ok := args[key].(string)
	return value, ok
}

func boolArg(args map[string]any, key string) (bool, bool) {
	value, ok := args[key].(bool)
	return value, ok
}

func floatArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
