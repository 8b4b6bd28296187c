/*
Package discovery finds provider configurations: a JSON array in the
MCP_SERVER_CONFIG environment variable, plus well-known per-platform
directories dropped by MCP-aware editors. The union is returned with
first-seen-wins semantics on duplicate ids.
*/
package discovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/theapemachine/metamcp/pkg/registry"
)

// EnvVar holds a JSON array of provider configs.
const EnvVar = "MCP_SERVER_CONFIG"

// configFileName is picked up in addition to *.mcp.json files.
const configFileName = "mcp-config.json"

// Discover returns every valid provider config from the environment and
// the platform directories, deduplicated by id.
func Discover() []registry.ProviderConfig {
	return merge(FromEnv(), FromDirectories(DefaultDirectories()))
}

// FromEnv parses MCP_SERVER_CONFIG. Parse errors are logged and ignored.
func FromEnv() []registry.ProviderConfig {
	raw := os.Getenv(EnvVar)
	if raw == "" {
		return nil
	}

	configs, err := ParseConfigs([]byte(raw))
	if err != nil {
		log.Warn("ignoring malformed MCP_SERVER_CONFIG", "error", err)
		return nil
	}

	return configs
}

// FromDirectories scans each directory for *.mcp.json files and the
// exact mcp-config.json, collecting every valid config found.
func FromDirectories(dirs []string) []registry.ProviderConfig {
	var configs []registry.ProviderConfig

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			// Missing directories are the normal case.
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !isConfigFile(entry.Name()) {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				log.Warn("failed to read config file", "path", path, "error", err)
				continue
			}

			parsed, err := ParseConfigs(data)
			if err != nil {
				log.Warn("ignoring malformed config file", "path", path, "error", err)
				continue
			}

			log.Info("discovered provider configs", "path", path, "count", len(parsed))
			configs = append(configs, parsed...)
		}
	}

	return configs
}

// ParseConfigs decodes a JSON array (or single object) of provider
// configs, dropping entries that fail validation.
func ParseConfigs(data []byte) ([]registry.ProviderConfig, error) {
	var raw []registry.ProviderConfig

	if err := json.Unmarshal(data, &raw); err != nil {
		var single registry.ProviderConfig
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return nil, err
		}
		raw = []registry.ProviderConfig{single}
	}

	var valid []registry.ProviderConfig
	for _, config := range raw {
		if config.ID == "" || config.Name == "" || len(config.Command) == 0 {
			log.Warn("dropping invalid provider config",
				"id", config.ID, "name", config.Name)
			continue
		}
		valid = append(valid, config)
	}

	return valid, nil
}

func isConfigFile(name string) bool {
	return name == configFileName || strings.HasSuffix(name, ".mcp.json")
}

// merge unions config lists, keeping the first config seen per id.
func merge(lists ...[]registry.ProviderConfig) []registry.ProviderConfig {
	seen := make(map[string]bool)
	var merged []registry.ProviderConfig

	for _, list := range lists {
		for _, config := range list {
			if seen[config.ID] {
				log.Warn("duplicate provider id, keeping first", "id", config.ID)
				continue
			}
			seen[config.ID] = true
			merged = append(merged, config)
		}
	}

	return merged
}
