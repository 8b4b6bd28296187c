package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tj/assert"
)

func TestParseConfigs(t *testing.T) {
	configs, err := ParseConfigs([]byte(`[
		{"id": "fs", "name": "Filesystem", "command": ["node", "fs-server.js"]},
		{"id": "db", "name": "Database", "command": ["python3", "-m", "db_server"], "description": "SQL tools"}
	]`))

	assert.NoError(t, err)
	assert.Len(t, configs, 2)
	assert.Equal(t, "fs", configs[0].ID)
	assert.Equal(t, []string{"python3", "-m", "db_server"}, configs[1].Command)
	assert.Equal(t, "SQL tools", configs[1].Description)
}

func TestParseConfigsSingleObject(t *testing.T) {
	configs, err := ParseConfigs([]byte(`{"id": "fs", "name": "Filesystem", "command": ["node", "x.js"]}`))

	assert.NoError(t, err)
	assert.Len(t, configs, 1)
}

func TestParseConfigsDropsInvalid(t *testing.T) {
	configs, err := ParseConfigs([]byte(`[
		{"id": "", "name": "no id", "command": ["node"]},
		{"id": "x", "name": "", "command": ["node"]},
		{"id": "y", "name": "no command", "command": []},
		{"id": "ok", "name": "fine", "command": ["node", "x.js"]}
	]`))

	assert.NoError(t, err)
	assert.Len(t, configs, 1)
	assert.Equal(t, "ok", configs[0].ID)
}

func TestParseConfigsMalformed(t *testing.T) {
	_, err := ParseConfigs([]byte(`{not json`))
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvVar, `[{"id": "env", "name": "From Env", "command": ["node", "s.js"]}]`)

	configs := FromEnv()
	assert.Len(t, configs, 1)
	assert.Equal(t, "env", configs[0].ID)
}

func TestFromEnvMalformed(t *testing.T) {
	t.Setenv(EnvVar, `not json`)
	assert.Empty(t, FromEnv())
}

func TestFromDirectories(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) {
		assert.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	write("servers.mcp.json", `[{"id": "a", "name": "A", "command": ["node", "a.js"]}]`)
	write("mcp-config.json", `[{"id": "b", "name": "B", "command": ["node", "b.js"]}]`)
	write("ignored.json", `[{"id": "c", "name": "C", "command": ["node", "c.js"]}]`)
	write("broken.mcp.json", `{{{`)

	configs := FromDirectories([]string{dir, filepath.Join(dir, "does-not-exist")})

	assert.Len(t, configs, 2)

	ids := map[string]bool{}
	for _, config := range configs {
		ids[config.ID] = true
	}
	assert.True(t, ids["a"])
	assert.True(t, ids["b"])
	assert.False(t, ids["c"])
}

func TestDiscoverFirstSeenWins(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(
		filepath.Join(dir, "dup.mcp.json"),
		[]byte(`[{"id": "env", "name": "From File", "command": ["node", "f.js"]}]`),
		0644,
	))

	t.Setenv(EnvVar, `[{"id": "env", "name": "From Env", "command": ["node", "s.js"]}]`)

	merged := merge(FromEnv(), FromDirectories([]string{dir}))

	assert.Len(t, merged, 1)
	assert.Equal(t, "From Env", merged[0].Name)
}
