package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/theapemachine/metamcp/pkg/errors"
	"github.com/theapemachine/metamcp/pkg/metrics"
)

// clientName identifies this process to downstream servers during the
// MCP handshake.
const clientName = "mcp-meta-server"

// Dialer spawns a downstream server and returns a live session to it.
// The default dialer launches the sanitized command over stdio.
type Dialer func(ctx context.Context, config ProviderConfig) (Session, error)

// Registry tracks every configured provider, connected or not.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*provider
	order     []string
	metrics   *metrics.Store
	dial      Dialer
	version   string
}

func New(store *metrics.Store, version string) *Registry {
	return &Registry{
		providers: make(map[string]*provider),
		metrics:   store,
		dial:      stdioDialer,
		version:   version,
	}
}

// NewWithDialer builds a registry whose connections are made by the given
// dialer instead of spawning real child processes.
func NewWithDialer(store *metrics.Store, version string, dial Dialer) *Registry {
	registry := New(store, version)
	registry.dial = dial
	return registry
}

// Register adds a provider config without connecting it. Duplicate ids
// are rejected.
func (registry *Registry) Register(config ProviderConfig) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, exists := registry.providers[config.ID]; exists {
		return errors.New(errors.KindConfig,
			fmt.Errorf("duplicate provider id %q", config.ID))
	}

	registry.providers[config.ID] = &provider{
		config: config,
		status: StatusConnecting,
	}
	registry.order = append(registry.order, config.ID)

	return nil
}

// ConnectAll attempts a session to every registered provider
// concurrently. Individual failures leave that provider disconnected and
// never abort startup.
func (registry *Registry) ConnectAll(ctx context.Context) {
	registry.mu.RLock()
	ids := make([]string, len(registry.order))
	copy(ids, registry.order)
	registry.mu.RUnlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			registry.connect(ctx, id)
		}(id)
	}
	wg.Wait()
}

func (registry *Registry) connect(ctx context.Context, id string) {
	registry.mu.RLock()
	p, ok := registry.providers[id]
	registry.mu.RUnlock()

	if !ok {
		return
	}

	config := p.config

	if err := ValidateCommand(config.Command); err != nil {
		log.Warn("provider command rejected", "provider", id, "error", err)
		registry.markDisconnected(id)
		return
	}

	log.Info("connecting provider", "provider", id, "command", config.Command[0])

	session, err := registry.dial(ctx, config)
	if err != nil {
		log.Error("failed to spawn provider", "provider", id, "error", err)
		registry.markDisconnected(id)
		return
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: registry.version,
	}

	if _, err := session.Initialize(ctx, initRequest); err != nil {
		log.Error("provider handshake failed", "provider", id, "error", err)
		session.Close()
		registry.markDisconnected(id)
		return
	}

	toolList, err := session.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		log.Error("provider tool listing failed", "provider", id, "error", err)
		session.Close()
		registry.markDisconnected(id)
		return
	}

	registry.mu.Lock()
	p.session = session
	p.tools = toolList.Tools
	p.status = StatusConnected
	p.connectedAt = time.Now().Unix()
	registry.mu.Unlock()

	log.Info("provider connected", "provider", id, "tools", len(toolList.Tools))
}

// markDisconnected parks the provider entry with a failure on its record
// so the router skips it but its metrics survive.
func (registry *Registry) markDisconnected(id string) {
	registry.mu.Lock()
	if p, ok := registry.providers[id]; ok {
		p.session = nil
		p.status = StatusDisconnected
	}
	registry.mu.Unlock()

	registry.metrics.Record(id, "connection", false, 0)
}

// Call invokes a tool on a connected provider and returns the textual
// result, mirroring how the provider's own clients would read it.
func (registry *Registry) Call(ctx context.Context, providerID, toolName string, args map[string]any) (string, error) {
	registry.mu.RLock()
	p, ok := registry.providers[providerID]
	var session Session
	if ok {
		session = p.session
	}
	registry.mu.RUnlock()

	if !ok {
		return "", errors.New(errors.KindProviderUnavailable,
			fmt.Errorf("unknown provider %q", providerID))
	}

	if session == nil {
		return "", errors.New(errors.KindProviderUnavailable,
			fmt.Errorf("provider %q is not connected", providerID))
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = toolName
	request.Params.Arguments = args

	result, err := session.CallTool(ctx, request)
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.New(errors.KindShutdown, err)
		}
		return "", errors.New(errors.KindToolInvocation, err)
	}

	text := resultText(result)
	if result.IsError {
		return "", errors.New(errors.KindToolInvocation,
			fmt.Errorf("tool %s failed: %s", toolName, text))
	}

	return text, nil
}

// resultText flattens a tool result into a string: the first text content
// verbatim, anything else marshalled.
func resultText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}

	if textContent, ok := result.Content[0].(mcp.TextContent); ok {
		return textContent.Text
	}

	data, err := json.Marshal(result.Content[0])
	if err != nil {
		return ""
	}

	return string(data)
}

// Provider returns a snapshot of one provider.
func (registry *Registry) Provider(id string) (Info, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	p, ok := registry.providers[id]
	if !ok {
		return Info{}, false
	}

	return registry.snapshot(p), true
}

// Providers returns snapshots of every provider in registration order.
func (registry *Registry) Providers() []Info {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	infos := make([]Info, 0, len(registry.order))
	for _, id := range registry.order {
		infos = append(infos, registry.snapshot(registry.providers[id]))
	}

	return infos
}

// Connected reports whether the provider currently holds a live session.
func (registry *Registry) Connected(id string) bool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	p, ok := registry.providers[id]
	return ok && p.status == StatusConnected
}

// NamespacedTools returns the ground-truth inventory: every advertised
// tool qualified by its provider id, in registration order.
func (registry *Registry) NamespacedTools() []NamespacedTool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	var tools []NamespacedTool
	for _, id := range registry.order {
		p := registry.providers[id]
		for _, tool := range p.tools {
			tools = append(tools, NamespacedTool{
				QualifiedName: QualifiedName(id, tool.Name),
				ProviderID:    id,
				Tool:          tool,
			})
		}
	}

	return tools
}

// Shutdown closes every live session. Safe to call more than once.
func (registry *Registry) Shutdown() {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	for id, p := range registry.providers {
		if p.session == nil {
			continue
		}

		if err := p.session.Close(); err != nil {
			log.Warn("error closing provider session", "provider", id, "error", err)
		}

		p.session = nil
		p.status = StatusDisconnected
	}
}

func (registry *Registry) snapshot(p *provider) Info {
	tools := make([]mcp.Tool, len(p.tools))
	copy(tools, p.tools)

	return Info{
		Config:      p.config,
		Status:      p.status,
		Tools:       tools,
		ConnectedAt: p.connectedAt,
	}
}

// stdioDialer launches the provider's sanitized command as a child
// process speaking MCP over its stdio.
func stdioDialer(_ context.Context, config ProviderConfig) (Session, error) {
	command := SanitizeCommand(config.Command)

	c, err := client.NewStdioMCPClient(command[0], nil, command[1:]...)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn %s: %w", command[0], err)
	}

	return c, nil
}
