/*
Package registry owns the lifecycle of downstream MCP providers: spawning
them as child processes, performing the handshake, keeping their advertised
tool lists, and invoking tools on their behalf.
*/
package registry

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ProviderConfig describes how to launch one downstream MCP server. The
// first command element is the executable, the rest are its arguments.
// Immutable once registered.
type ProviderConfig struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Command     []string `json:"command"`
	Description string   `json:"description,omitempty"`
}

// Status is the lifecycle state of a provider.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Session is the subset of the MCP client a provider connection needs.
// The stdio client from mcp-go satisfies it; tests substitute fakes.
type Session interface {
	Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// provider is the registry's mutable record for one downstream server.
type provider struct {
	config      ProviderConfig
	session     Session
	tools       []mcp.Tool
	status      Status
	connectedAt int64
}

// Info is an immutable snapshot of a provider handed to callers.
type Info struct {
	Config      ProviderConfig `json:"config"`
	Status      Status         `json:"status"`
	Tools       []mcp.Tool     `json:"tools"`
	ConnectedAt int64          `json:"connectedAt,omitempty"`
}

// NamespacedTool qualifies a provider's tool with the provider id. The
// mapping from qualified name to NamespacedTool is the ground-truth tool
// inventory.
type NamespacedTool struct {
	QualifiedName string   `json:"qualifiedName"`
	ProviderID    string   `json:"providerId"`
	Tool          mcp.Tool `json:"tool"`
}

// QualifiedName builds the namespaced tool name "<providerID>:<toolName>".
func QualifiedName(providerID, toolName string) string {
	return providerID + ":" + toolName
}
