package metatools

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	defaultConcurrency = 5
	maxConcurrency     = 20
)

type batchItem struct {
	ID     string `json:"id"`
	Tool   string `json:"tool"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func handleBatchExecute(core Core) Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		rawOperations, ok := args["operations"].([]any)
		if !ok || len(rawOperations) == 0 {
			return usageError("operations must be a non-empty array"), nil
		}

		concurrency := defaultConcurrency
		if value, present := floatArg(args, "concurrency"); present {
			concurrency = int(value)
			if concurrency < 1 || concurrency > maxConcurrency {
				return usageError(fmt.Sprintf(
					"concurrency must be between 1 and %d", maxConcurrency)), nil
			}
		}

		type operation struct {
			tool string
			args map[string]any
		}

		operations := make([]operation, 0, len(rawOperations))
		for i, raw := range rawOperations {
			entry, ok := raw.(map[string]any)
			if !ok {
				return usageError(fmt.Sprintf("operation %d is not an object", i)), nil
			}

			toolName, ok := stringArg(entry, "tool")
			if !ok || toolName == "" {
				return usageError(fmt.Sprintf("operation %d is missing its tool name", i)), nil
			}

			toolArgs, _ := entry["arguments"].(map[string]any)
			if toolArgs == nil {
				toolArgs = map[string]any{}
			}

			operations = append(operations, operation{tool: toolName, args: toolArgs})
		}

		// Waves of at most `concurrency` run concurrently; waves are
		// strictly sequential and results keep submission order.
		results := make([]batchItem, len(operations))

		for start := 0; start < len(operations); start += concurrency {
			end := start + concurrency
			if end > len(operations) {
				end = len(operations)
			}

			var wg sync.WaitGroup
			for i := start; i < end; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()

					item := batchItem{ID: uuid.NewString(), Tool: operations[i].tool}

					result, err := core.Dispatch(ctx, operations[i].tool, operations[i].args)
					switch {
					case err != nil:
						item.Status = "error"
						item.Error = err.Error()
					case result.IsError:
						item.Status = "error"
						item.Error = firstText(result)
					default:
						item.Status = "success"
						item.Result = firstText(result)
					}

					results[i] = item
				}(i)
			}
			wg.Wait()
		}

		succeeded := 0
		for _, item := range results {
			if item.Status == "success" {
				succeeded++
			}
		}

		return jsonResult(map[string]any{
			"total":     len(results),
			"succeeded": succeeded,
			"failed":    len(results) - succeeded,
			"results":   results,
		}), nil
	}
}

func firstText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if text, ok := result.Content[0].(mcp.TextContent); ok {
		return text.Text
	}
	return ""
}
