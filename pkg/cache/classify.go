package cache

import (
	"strings"
	"time"
)

// Tool type names used by the TTL map and the per-type counters.
const (
	TypeFilesystem  = "filesystem"
	TypeDatabase    = "database"
	TypeNetwork     = "network"
	TypeComputation = "computation"
	TypeStatic      = "static"
	TypeDefault     = "default"
)

// classification rules, checked in order; the first fragment match wins.
var classifications = []struct {
	toolType  string
	fragments []string
}{
	{TypeFilesystem, []string{"file", "read", "write"}},
	{TypeDatabase, []string{"db", "sql", "query"}},
	{TypeNetwork, []string{"http", "api", "request"}},
	{TypeComputation, []string{"compute", "calculate", "process"}},
	{TypeStatic, []string{"static", "const", "reference"}},
}

// ClassifyToolType buckets a tool name into one of the cache's tool
// types based on name fragments.
func ClassifyToolType(toolName string) string {
	name := strings.ToLower(toolName)

	for _, rule := range classifications {
		for _, fragment := range rule.fragments {
			if strings.Contains(name, fragment) {
				return rule.toolType
			}
		}
	}

	return TypeDefault
}

func defaultTTLs() map[string]time.Duration {
	return map[string]time.Duration{
		TypeFilesystem:  60 * time.Second,
		TypeDatabase:    180 * time.Second,
		TypeNetwork:     120 * time.Second,
		TypeComputation: 600 * time.Second,
		TypeStatic:      time.Hour,
		TypeDefault:     300 * time.Second,
	}
}
