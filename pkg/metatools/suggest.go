package metatools

import (
	"context"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/theapemachine/metamcp/pkg/metrics"
)

const maxSuggestions = 10

type suggestion struct {
	Tool        string  `json:"tool"`
	ProviderID  string  `json:"providerId"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"relevanceScore"`
}

func handleSuggestTools(core Core) Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		task, ok := stringArg(args, "task")
		if !ok || strings.TrimSpace(task) == "" {
			return usageError("task is required"), nil
		}

		reg := core.Registry()
		store := core.Metrics()

		var suggestions []suggestion
		for _, nt := range reg.NamespacedTools() {
			if !reg.Connected(nt.ProviderID) {
				continue
			}

			// Metrics are indexed by the unqualified tool name.
			m, tracked := store.Get(nt.ProviderID, nt.Tool.Name)

			suggestions = append(suggestions, suggestion{
				Tool:        nt.QualifiedName,
				ProviderID:  nt.ProviderID,
				Description: nt.Tool.Description,
				Score:       relevanceScore(task, nt.QualifiedName, nt.Tool.Description, m, tracked),
			})
		}

		sort.SliceStable(suggestions, func(i, j int) bool {
			return suggestions[i].Score > suggestions[j].Score
		})

		if len(suggestions) > maxSuggestions {
			suggestions = suggestions[:maxSuggestions]
		}

		return jsonResult(map[string]any{
			"task":        task,
			"suggestions": suggestions,
		}), nil
	}
}

// relevanceScore blends name containment (0.5), task/description word
// overlap (0.3) and observed performance (0.2 + 0.1), clipped to 1.
func relevanceScore(task, qualifiedName, description string, m metrics.PerformanceMetrics, tracked bool) float64 {
	taskLower := strings.ToLower(task)
	nameLower := strings.ToLower(qualifiedName)
	descLower := strings.ToLower(description)

	score := 0.0

	if strings.Contains(taskLower, nameLower) || strings.Contains(nameLower, taskLower) {
		score += 0.5
	}

	taskWords := strings.Fields(taskLower)
	descWords := make(map[string]bool)
	for _, word := range strings.Fields(descLower) {
		descWords[word] = true
	}

	if len(taskWords) > 0 {
		overlap := 0
		for _, word := range taskWords {
			if descWords[word] {
				overlap++
			}
		}
		score += 0.3 * float64(overlap) / float64(len(taskWords))
	}

	if tracked {
		score += 0.2*m.SuccessRate + 0.1*metrics.ResponseScore(m.AvgResponseTimeMillis)
	}

	if score > 1 {
		score = 1
	}

	return score
}
