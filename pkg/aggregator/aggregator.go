/*
Package aggregator is the heart of the meta-server: it consolidates every
provider's tools behind one MCP surface, routes each invocation to the
best candidate with failover, and keeps the metrics and cache honest
along the way.
*/
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/theapemachine/metamcp/pkg/cache"
	"github.com/theapemachine/metamcp/pkg/dedup"
	"github.com/theapemachine/metamcp/pkg/errors"
	"github.com/theapemachine/metamcp/pkg/metrics"
	"github.com/theapemachine/metamcp/pkg/registry"
	"github.com/theapemachine/metamcp/pkg/router"
)

// ServerName is advertised to the upstream client during the handshake.
const ServerName = "mcp-meta-server"

const serverInstructions = `This server aggregates multiple MCP tool servers behind a single
endpoint. Call discover_servers to inspect the providers, suggest_tools to
find a tool for a task, and batch_execute to run several tools at once.`

// MetaHandler executes one built-in meta-tool.
type MetaHandler func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)

// ToolCounts reports the size of the tool surface.
type ToolCounts struct {
	Namespaced int `json:"namespacedTools"`
	Merged     int `json:"mergedTools"`
	Exposed    int `json:"exposedTools"`
}

// Aggregator owns the four hot structures (registry, metrics, cache,
// merged map) and the upstream MCP server.
type Aggregator struct {
	mu       sync.RWMutex
	registry *registry.Registry
	metrics  *metrics.Store
	cache    *cache.Cache
	router   *router.Router
	version  string

	dedupConfig dedup.Config
	merged      map[string]dedup.MergedTool
	dedupStats  dedup.Stats

	srv          *server.MCPServer
	exposedNames []string

	metaTools    []mcp.Tool
	metaHandlers map[string]MetaHandler
}

func New(reg *registry.Registry, store *metrics.Store, resultCache *cache.Cache, cfg dedup.Config, version string) *Aggregator {
	return &Aggregator{
		registry:     reg,
		metrics:      store,
		cache:        resultCache,
		router:       router.New(store, reg),
		version:      version,
		dedupConfig:  cfg,
		merged:       make(map[string]dedup.MergedTool),
		metaHandlers: make(map[string]MetaHandler),
	}
}

// Registry exposes the provider registry to the meta-tools.
func (agg *Aggregator) Registry() *registry.Registry { return agg.registry }

// Metrics exposes the metrics store to the meta-tools.
func (agg *Aggregator) Metrics() *metrics.Store { return agg.metrics }

// ResultCache exposes the cache to the meta-tools.
func (agg *Aggregator) ResultCache() *cache.Cache { return agg.cache }

// DedupConfig returns the current deduplication settings.
func (agg *Aggregator) DedupConfig() dedup.Config {
	agg.mu.RLock()
	defer agg.mu.RUnlock()
	return agg.dedupConfig
}

// DedupStats returns the statistics of the last merge rebuild.
func (agg *Aggregator) DedupStats() dedup.Stats {
	agg.mu.RLock()
	defer agg.mu.RUnlock()
	return agg.dedupStats
}

// MergedTools returns the current merged tool set.
func (agg *Aggregator) MergedTools() []dedup.MergedTool {
	agg.mu.RLock()
	defer agg.mu.RUnlock()

	tools := make([]dedup.MergedTool, 0, len(agg.merged))
	for _, merged := range agg.merged {
		tools = append(tools, merged)
	}
	return tools
}

// ToolCounts reports the current inventory sizes.
func (agg *Aggregator) ToolCounts() ToolCounts {
	namespaced := len(agg.registry.NamespacedTools())

	agg.mu.RLock()
	defer agg.mu.RUnlock()

	exposed := len(agg.exposedNames)
	if exposed == 0 {
		// Before the server is wired up, report what listing would expose.
		exposed = namespaced
		if agg.dedupConfig.Enabled && len(agg.merged) > 0 {
			exposed = len(agg.merged)
		}
	}

	return ToolCounts{
		Namespaced: namespaced,
		Merged:     len(agg.merged),
		Exposed:    exposed,
	}
}

// Counts reports the inventory sizes as plain numbers.
func (agg *Aggregator) Counts() (namespaced, merged, exposed int) {
	counts := agg.ToolCounts()
	return counts.Namespaced, counts.Merged, counts.Exposed
}

// RegisterMetaTools installs the built-in tool surface. Must be called
// before Serve; the meta-tools always precede provider tools in listings.
func (agg *Aggregator) RegisterMetaTools(tools []mcp.Tool, handlers map[string]MetaHandler) {
	agg.mu.Lock()
	defer agg.mu.Unlock()

	agg.metaTools = tools
	agg.metaHandlers = handlers
}

// ApplyDedupConfig swaps the deduplication settings and rebuilds the
// exposed tool inventory. The rebuild re-registers tools on the upstream
// server, which emits a tools/list_changed notification to the client.
func (agg *Aggregator) ApplyDedupConfig(cfg dedup.Config) {
	agg.mu.Lock()
	agg.dedupConfig = cfg
	agg.mu.Unlock()

	agg.RebuildTools()
}

// RebuildTools recomputes the merged map from a consistent snapshot of
// the provider tool lists and swaps the exposed tool set on the server.
// In-flight calls keep resolving against the snapshot they started with.
func (agg *Aggregator) RebuildTools() {
	agg.rebuildMerged()

	agg.mu.Lock()
	defer agg.mu.Unlock()

	if agg.srv == nil {
		return
	}

	if len(agg.exposedNames) > 0 {
		agg.srv.DeleteTools(agg.exposedNames...)
		agg.exposedNames = nil
	}

	for _, tool := range agg.exposedToolsLocked() {
		agg.srv.AddTool(tool, agg.handleToolCall)
		agg.exposedNames = append(agg.exposedNames, tool.Name)
	}

	log.Info("tool inventory rebuilt",
		"exposed", len(agg.exposedNames),
		"merged", len(agg.merged),
		"dedupEnabled", agg.dedupConfig.Enabled,
	)
}

func (agg *Aggregator) rebuildMerged() {
	namespaced := agg.registry.NamespacedTools()

	agg.mu.Lock()
	defer agg.mu.Unlock()

	agg.merged = make(map[string]dedup.MergedTool)

	if !agg.dedupConfig.Enabled {
		agg.dedupStats = dedup.Stats{}
		return
	}

	members := make([]dedup.Member, 0, len(namespaced))
	for _, tool := range namespaced {
		members = append(members, dedup.Member{ProviderID: tool.ProviderID, Tool: tool.Tool})
	}

	mergedTools, stats := dedup.NewEngine(agg.dedupConfig).Deduplicate(members)
	agg.dedupStats = stats

	for _, merged := range mergedTools {
		name := merged.Name
		if _, taken := agg.merged[name]; taken {
			// Two distinct groups surfaced the same name; qualify the
			// later one by its primary provider to keep the map unique.
			name = registry.QualifiedName(merged.PrimaryProviderID, merged.Name)
		}
		agg.merged[name] = merged
	}
}

// Serve wires the upstream MCP server and blocks on stdio until the
// client disconnects.
func (agg *Aggregator) Serve() error {
	srv := server.NewMCPServer(
		ServerName,
		agg.version,
		server.WithToolCapabilities(true),
		server.WithInstructions(serverInstructions),
		server.WithLogging(),
	)

	agg.mu.Lock()
	agg.srv = srv
	metaTools := agg.metaTools
	agg.mu.Unlock()

	for _, tool := range metaTools {
		srv.AddTool(tool, agg.handleToolCall)
	}

	agg.RebuildTools()

	log.Info("serving upstream MCP on stdio", "name", ServerName, "version", agg.version)

	return server.ServeStdio(srv)
}

// handleToolCall adapts the MCP handler signature onto Dispatch.
func (agg *Aggregator) handleToolCall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return agg.Dispatch(ctx, req.Params.Name, req.GetArguments())
}

// Dispatch routes one invocation: meta-tools run in-process; provider
// tools go through cache probe, routing, and sequential failover. Every
// outcome is a structured tool result; errors never escape as protocol
// failures.
func (agg *Aggregator) Dispatch(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	agg.mu.RLock()
	metaHandler, isMeta := agg.metaHandlers[name]
	agg.mu.RUnlock()

	if isMeta {
		// Meta-tools bypass cache and metrics entirely.
		return metaHandler(ctx, args)
	}

	candidates, err := agg.resolve(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	canonicalArgs, err := CanonicalJSON(args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	callID := uuid.NewString()

	primaryKey := cache.Key(candidates[0].providerID, candidates[0].toolName, canonicalArgs)
	if value, hit := agg.cache.Get(primaryKey); hit {
		log.Debug("cache hit", "call", callID, "tool", name, "provider", candidates[0].providerID)
		return mcp.NewToolResultText(value), nil
	}

	var lastErr error
	for _, candidate := range candidates {
		started := time.Now()
		value, callErr := agg.registry.Call(ctx, candidate.providerID, candidate.toolName, args)
		elapsed := float64(time.Since(started)) / float64(time.Millisecond)

		if callErr == nil {
			agg.metrics.Record(candidate.providerID, candidate.toolName, true, elapsed)
			key := cache.Key(candidate.providerID, candidate.toolName, canonicalArgs)
			agg.cache.Set(key, value, candidate.toolName, canonicalArgs)

			log.Debug("tool call served",
				"call", callID,
				"tool", name,
				"provider", candidate.providerID,
				"elapsedMs", elapsed,
			)

			return mcp.NewToolResultText(value), nil
		}

		if errors.IsKind(callErr, errors.KindShutdown) {
			// Canceled mid-flight: surfaced, never booked as a failure.
			return mcp.NewToolResultError(callErr.Error()), nil
		}

		if !errors.IsKind(callErr, errors.KindProviderUnavailable) {
			agg.metrics.Record(candidate.providerID, candidate.toolName, false, elapsed)
		}

		log.Warn("tool call failed, trying next candidate",
			"call", callID,
			"tool", name,
			"provider", candidate.providerID,
			"error", callErr,
		)

		lastErr = callErr
	}

	return mcp.NewToolResultError(fmt.Sprintf(
		"all providers failed for %s: %v", name, lastErr)), nil
}

type candidate struct {
	providerID string
	toolName   string
}

// resolve turns an exposed tool name into the ordered candidate list.
func (agg *Aggregator) resolve(name string) ([]candidate, error) {
	if providerID, toolName, ok := strings.Cut(name, ":"); ok {
		decision, err := agg.router.RouteNamespaced(providerID, toolName)
		if err != nil {
			return nil, err
		}
		return []candidate{{providerID: decision.Primary, toolName: toolName}}, nil
	}

	agg.mu.RLock()
	merged, found := agg.merged[name]
	agg.mu.RUnlock()

	if !found {
		return nil, errors.New(errors.KindToolInvocation,
			fmt.Errorf("unknown tool %q", name))
	}

	decision, err := agg.router.RouteMerged(merged)
	if err != nil {
		return nil, err
	}

	toolNames := make(map[string]string, len(merged.Members))
	for _, member := range merged.Members {
		if _, seen := toolNames[member.ProviderID]; !seen {
			toolNames[member.ProviderID] = member.Tool.Name
		}
	}

	ordered := append([]string{decision.Primary}, decision.Fallbacks...)
	candidates := make([]candidate, 0, len(ordered))
	for _, providerID := range ordered {
		candidates = append(candidates, candidate{
			providerID: providerID,
			toolName:   toolNames[providerID],
		})
	}

	return candidates, nil
}

// exposedToolsLocked builds the provider-tool listing: merged tools when
// deduplication is on and produced anything, the full namespaced set
// otherwise. Caller must hold the lock.
func (agg *Aggregator) exposedToolsLocked() []mcp.Tool {
	if agg.dedupConfig.Enabled && len(agg.merged) > 0 {
		tools := make([]mcp.Tool, 0, len(agg.merged))
		for name, merged := range agg.merged {
			tools = append(tools, mergedAsTool(name, merged))
		}
		return tools
	}

	namespaced := agg.registry.NamespacedTools()
	tools := make([]mcp.Tool, 0, len(namespaced))
	for _, nt := range namespaced {
		tool := nt.Tool
		tool.Name = nt.QualifiedName
		tools = append(tools, tool)
	}
	return tools
}

func mergedAsTool(name string, merged dedup.MergedTool) mcp.Tool {
	schema, err := json.Marshal(merged.InputSchema)
	if err != nil || merged.InputSchema == nil {
		schema = []byte(`{"type":"object"}`)
	}

	return mcp.NewToolWithRawSchema(name, merged.Description, schema)
}
