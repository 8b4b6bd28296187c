package discovery

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultDirectories lists the per-platform locations MCP-aware editors
// drop provider configs into.
func DefaultDirectories() []string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return nil
		}
		return []string{
			filepath.Join(appData, "Claude Desktop", "mcp"),
			filepath.Join(appData, "Cursor", "mcp"),
			filepath.Join(appData, "Code", "User", "mcp"),
		}

	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		support := filepath.Join(home, "Library", "Application Support")
		return []string{
			filepath.Join(support, "Claude Desktop", "mcp"),
			filepath.Join(support, "Cursor", "mcp"),
			filepath.Join(support, "Code", "User", "mcp"),
		}

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		config := filepath.Join(home, ".config")
		return []string{
			filepath.Join(config, "Claude Desktop", "mcp"),
			filepath.Join(config, "Cursor", "mcp"),
			filepath.Join(config, "Code", "User", "mcp"),
		}
	}
}
