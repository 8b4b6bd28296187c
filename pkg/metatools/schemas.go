package metatools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// The meta-tools declare their input contracts as raw schemas so that
// every one of them can carry additionalProperties: false.

func discoverServersTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"discover_servers",
		"List all downstream MCP servers with their status, tools and performance summary",
		json.RawMessage(`{
			"type": "object",
			"properties": {},
			"additionalProperties": false
		}`),
	)
}

func analyzeUsageTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"analyze_usage",
		"Analyze tool usage patterns, per-provider metrics and cache effectiveness",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"timeframe": {
					"type": "string",
					"enum": ["hour", "day", "week"],
					"description": "Window of activity to analyze"
				},
				"serverId": {
					"type": "string",
					"description": "Restrict the analysis to one provider"
				}
			},
			"additionalProperties": false
		}`),
	)
}

func getCacheStatsTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"get_cache_stats",
		"Return result cache statistics and tuning recommendations",
		json.RawMessage(`{
			"type": "object",
			"properties": {},
			"additionalProperties": false
		}`),
	)
}

func suggestToolsTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"suggest_tools",
		"Rank available tools by their relevance to a task description",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"task": {
					"type": "string",
					"description": "What you are trying to accomplish"
				},
				"context": {
					"type": "object",
					"description": "Optional extra context for the suggestion"
				}
			},
			"required": ["task"],
			"additionalProperties": false
		}`),
	)
}

func batchExecuteTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"batch_execute",
		"Execute multiple tool calls concurrently in bounded waves",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"operations": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"tool": {"type": "string"},
							"arguments": {"type": "object"}
						},
						"required": ["tool"],
						"additionalProperties": false
					},
					"description": "Tool calls to execute"
				},
				"concurrency": {
					"type": "integer",
					"minimum": 1,
					"maximum": 20,
					"description": "Maximum calls in flight at once (default 5)"
				}
			},
			"required": ["operations"],
			"additionalProperties": false
		}`),
	)
}

func optimizeRoutingTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"optimize_routing",
		"Report providers whose success rate or latency needs attention",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"tool": {
					"type": "string",
					"description": "Restrict the report to one tool name"
				}
			},
			"additionalProperties": false
		}`),
	)
}

func configureDeduplicationTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"configure_deduplication",
		"Adjust tool deduplication settings at runtime",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"enabled": {"type": "boolean"},
				"similarityThreshold": {
					"type": "number",
					"minimum": 0,
					"maximum": 1
				},
				"autoMerge": {"type": "boolean"},
				"getStats": {"type": "boolean"}
			},
			"additionalProperties": false
		}`),
	)
}

func analyzeToolSimilarityTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"analyze_tool_similarity",
		"Compare two tools, or list every tool similar to a target",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"tool1": {"type": "string"},
				"tool2": {"type": "string"},
				"listSimilar": {"type": "boolean"},
				"toolName": {"type": "string"}
			},
			"additionalProperties": false
		}`),
	)
}
