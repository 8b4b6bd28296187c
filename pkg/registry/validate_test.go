package registry

import (
	"testing"

	"github.com/tj/assert"
)

func TestValidateCommand(t *testing.T) {
	valid := [][]string{
		{"node", "server.js"},
		{"python3", "-m", "my_mcp_server"},
		{"npx", "-y", "@example/mcp-server"},
		{"uv", "run", "server.py"},
		{"deno", "run", "server.ts"},
		{"bun", "server.ts"},
	}

	for _, command := range valid {
		assert.NoError(t, ValidateCommand(command), "command %v", command)
	}

	invalid := [][]string{
		{},
		{"bash", "-c", "echo hi"},
		{"ruby", "server.rb"},
		{"node", "server.js; rm -rf /"},
		{"node", "$(whoami)"},
		{"node", "../../etc/passwd"},
		{"node", "/dev/null"},
		{"python", "rm -rf", "x"},
		{"node", "sudo-helper"},
		{"node", "a|b"},
		{"node", "`id`"},
	}

	for _, command := range invalid {
		assert.Error(t, ValidateCommand(command), "command %v", command)
	}
}

func TestValidateCommandUsesBasename(t *testing.T) {
	// Absolute interpreter paths are resolved to their basename before the
	// whitelist check.
	assert.NoError(t, ValidateCommand([]string{"/usr/bin/python3", "server.py"}))
	assert.Error(t, ValidateCommand([]string{"/usr/bin/bash", "server.sh"}))
}

func TestSanitizeCommand(t *testing.T) {
	sanitized := SanitizeCommand([]string{"node", "server;.js", "a..b", "plain"})

	assert.Equal(t, []string{"node", "server.js", "ab", "plain"}, sanitized)
}
