package metatools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/theapemachine/metamcp/pkg/dedup"
	"github.com/theapemachine/metamcp/pkg/registry"
)

const listSimilarCutoff = 0.5

type similarityMatch struct {
	Tool       string  `json:"tool"`
	ProviderID string  `json:"providerId"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason"`
}

func handleAnalyzeToolSimilarity(core Core) Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		listSimilar, _ := boolArg(args, "listSimilar")

		if listSimilar {
			target, ok := stringArg(args, "toolName")
			if !ok || target == "" {
				return usageError("toolName is required when listSimilar is set"), nil
			}
			return listSimilarTools(core, target), nil
		}

		name1, ok1 := stringArg(args, "tool1")
		name2, ok2 := stringArg(args, "tool2")
		if !ok1 || !ok2 {
			return usageError("either tool1 and tool2, or listSimilar with toolName, must be provided"), nil
		}

		tool1, found1 := findTool(core, name1)
		tool2, found2 := findTool(core, name2)

		if !found1 {
			return usageError(fmt.Sprintf("tool %q not found", name1)), nil
		}
		if !found2 {
			return usageError(fmt.Sprintf("tool %q not found", name2)), nil
		}

		engine := dedup.NewEngine(core.DedupConfig())

		return jsonResult(map[string]any{
			"tool1":      tool1.QualifiedName,
			"tool2":      tool2.QualifiedName,
			"similarity": engine.Compare(tool1.Tool, tool2.Tool),
		}), nil
	}
}

func listSimilarTools(core Core, target string) *mcp.CallToolResult {
	targetTool, found := findTool(core, target)
	if !found {
		return usageError(fmt.Sprintf("tool %q not found", target))
	}

	engine := dedup.NewEngine(core.DedupConfig())

	var matches []similarityMatch
	for _, nt := range core.Registry().NamespacedTools() {
		if nt.QualifiedName == targetTool.QualifiedName {
			continue
		}

		sim := engine.Compare(targetTool.Tool, nt.Tool)
		if sim.Score > listSimilarCutoff {
			matches = append(matches, similarityMatch{
				Tool:       nt.QualifiedName,
				ProviderID: nt.ProviderID,
				Score:      sim.Score,
				Reason:     sim.Reason,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return jsonResult(map[string]any{
		"tool":    targetTool.QualifiedName,
		"similar": matches,
	})
}

// findTool resolves a tool by qualified name, or by plain name when no
// namespace was given (first advertised wins).
func findTool(core Core, name string) (registry.NamespacedTool, bool) {
	tools := core.Registry().NamespacedTools()

	if strings.Contains(name, ":") {
		for _, nt := range tools {
			if nt.QualifiedName == name {
				return nt, true
			}
		}
		return registry.NamespacedTool{}, false
	}

	for _, nt := range tools {
		if nt.Tool.Name == name {
			return nt, true
		}
	}

	return registry.NamespacedTool{}, false
}
