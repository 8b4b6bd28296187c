/*
Package dedup clusters near-identical tools exposed by different providers
into merged groups so that the upstream client sees one tool where five
providers each advertise their own flavor of it.
*/
package dedup

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/theapemachine/metamcp/pkg/similarity"
)

// Tools in sets up to this size are clustered with the exact O(n^2) greedy
// pass; larger sets are pre-grouped by name first.
const smallSetLimit = 100

// Name pre-grouping cutoff for large sets. A pair whose name similarity
// falls below this can never merge, even with identical schemas.
const pregroupNameThreshold = 0.6

// PlaceholderDescription is exposed on a merged tool when no member
// carries a description of its own.
const PlaceholderDescription = "No description available"

// Strategy names which similarity signal drove a comparison.
type Strategy string

const (
	StrategyName        Strategy = "name"
	StrategyDescription Strategy = "description"
	StrategySchema      Strategy = "schema"
	StrategyHybrid      Strategy = "hybrid"
)

// ToolSimilarity is the outcome of comparing two tools.
type ToolSimilarity struct {
	Score    float64  `json:"score"`
	Reason   string   `json:"reason"`
	Strategy Strategy `json:"strategy"`
}

// Member ties a tool to the provider that advertises it.
type Member struct {
	ProviderID string   `json:"providerId"`
	Tool       mcp.Tool `json:"tool"`
}

// MergedTool is a single exposed tool backed by one or more members.
type MergedTool struct {
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	InputSchema       map[string]any `json:"inputSchema"`
	Members           []Member       `json:"members"`
	Confidence        float64        `json:"confidence"`
	PrimaryProviderID string         `json:"primaryProviderId"`
}

// Stats summarizes one deduplication run.
type Stats struct {
	TotalInputTools     int     `json:"totalInputTools"`
	MergedGroups        int     `json:"mergedGroups"`
	ReductionPercentage float64 `json:"reductionPercentage"`
	AvgConfidence       float64 `json:"avgConfidence"`
}

// Engine runs similarity scoring and clustering under a fixed Config.
type Engine struct {
	config Config
}

func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

func (engine *Engine) Config() Config {
	return engine.config
}

// Compare scores two tools using the configured weights and derives the
// human-readable reason and the dominant strategy.
func (engine *Engine) Compare(a, b mcp.Tool) ToolSimilarity {
	nameSim := similarity.JaroWinkler(a.Name, b.Name)

	// An absent description carries no signal, so it never counts as
	// similar to anything, including another absent description.
	descSim := 0.0
	if a.Description != "" && b.Description != "" {
		descSim = similarity.JaroWinkler(a.Description, b.Description)
	}

	schemaSim := similarity.Schema(ToolSchema(a), ToolSchema(b))

	score := engine.config.NameWeight*nameSim +
		engine.config.DescriptionWeight*descSim +
		engine.config.SchemaWeight*schemaSim

	var reasons []string
	if nameSim > 0.8 {
		reasons = append(reasons, "similar names")
	}
	if descSim > 0.7 {
		reasons = append(reasons, "similar descriptions")
	}
	if schemaSim > 0.8 {
		reasons = append(reasons, "similar schemas")
	}

	reason := "no significant similarities"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, ", ")
	}

	var strategy Strategy
	switch {
	case nameSim > 0.9 && schemaSim > 0.8:
		strategy = StrategyName
	case descSim > 0.8 && schemaSim > 0.7:
		strategy = StrategyDescription
	case schemaSim > 0.9:
		strategy = StrategySchema
	default:
		strategy = StrategyHybrid
	}

	return ToolSimilarity{Score: score, Reason: reason, Strategy: strategy}
}

// Deduplicate clusters the members into merged groups. When auto-merge is
// off no clustering runs: every member becomes a singleton, so the caller
// still gets a uniform shape, and the statistics describe that unmerged set.
func (engine *Engine) Deduplicate(members []Member) ([]MergedTool, Stats) {
	var groups []group

	switch {
	case !engine.config.AutoMerge:
		for i := range members {
			groups = append(groups, group{indexes: []int{i}})
		}
	case len(members) <= smallSetLimit:
		groups = engine.cluster(members, allIndexes(len(members)))
	default:
		for _, pre := range pregroupByName(members) {
			groups = append(groups, engine.cluster(members, pre)...)
		}
	}

	merged := make([]MergedTool, 0, len(groups))
	for _, g := range groups {
		merged = append(merged, buildMerged(members, g))
	}

	stats := summarize(len(members), merged)

	log.Debug("deduplication complete",
		"input", stats.TotalInputTools,
		"output", len(merged),
		"mergedGroups", stats.MergedGroups,
	)

	return merged, stats
}

// group is a cluster of member indexes plus the pairwise scores that
// caused each attachment.
type group struct {
	indexes []int
	scores  []float64
}

// cluster runs the greedy single pass over the given candidate indexes:
// each unprocessed entry opens a group, and every later candidate scoring
// at or above the threshold joins it.
func (engine *Engine) cluster(members []Member, candidates []int) []group {
	processed := make(map[int]bool, len(candidates))
	var groups []group

	for _, i := range candidates {
		if processed[i] {
			continue
		}
		processed[i] = true

		g := group{indexes: []int{i}}

		for _, j := range candidates {
			if j <= i || processed[j] {
				continue
			}

			sim := engine.Compare(members[i].Tool, members[j].Tool)
			if sim.Score >= engine.config.SimilarityThreshold {
				g.indexes = append(g.indexes, j)
				g.scores = append(g.scores, sim.Score)
				processed[j] = true
			}
		}

		groups = append(groups, g)
	}

	return groups
}

// pregroupByName partitions a large member set by cheap name similarity
// before the expensive greedy pass runs inside each partition.
func pregroupByName(members []Member) [][]int {
	processed := make([]bool, len(members))
	var pregroups [][]int

	for i := range members {
		if processed[i] {
			continue
		}
		processed[i] = true

		pre := []int{i}
		for j := i + 1; j < len(members); j++ {
			if processed[j] {
				continue
			}
			if similarity.JaroWinkler(members[i].Tool.Name, members[j].Tool.Name) >= pregroupNameThreshold {
				pre = append(pre, j)
				processed[j] = true
			}
		}

		pregroups = append(pregroups, pre)
	}

	return pregroups
}

func buildMerged(members []Member, g group) MergedTool {
	groupMembers := make([]Member, 0, len(g.indexes))
	for _, idx := range g.indexes {
		groupMembers = append(groupMembers, members[idx])
	}

	representative := pickRepresentative(groupMembers)

	confidence := 1.0
	if len(g.scores) > 0 {
		sum := 0.0
		for _, s := range g.scores {
			sum += s
		}
		confidence = sum / float64(len(g.scores))
	}

	return MergedTool{
		Name:              mostFrequentName(groupMembers),
		Description:       longestDescription(groupMembers),
		InputSchema:       ToolSchema(representative.Tool),
		Members:           groupMembers,
		Confidence:        confidence,
		PrimaryProviderID: representative.ProviderID,
	}
}

// pickRepresentative selects the member with the longest non-empty
// description; ties keep the first encountered.
func pickRepresentative(members []Member) Member {
	best := members[0]
	for _, m := range members[1:] {
		if len(m.Tool.Description) > len(best.Tool.Description) {
			best = m
		}
	}
	return best
}

// mostFrequentName returns the name shared by the most members, first
// encountered winning ties.
func mostFrequentName(members []Member) string {
	counts := make(map[string]int, len(members))
	for _, m := range members {
		counts[m.Tool.Name]++
	}

	best := members[0].Tool.Name
	for _, m := range members {
		if counts[m.Tool.Name] > counts[best] {
			best = m.Tool.Name
		}
	}

	return best
}

func longestDescription(members []Member) string {
	best := ""
	for _, m := range members {
		if len(m.Tool.Description) > len(best) {
			best = m.Tool.Description
		}
	}

	if best == "" {
		return PlaceholderDescription
	}

	return best
}

func summarize(input int, merged []MergedTool) Stats {
	stats := Stats{TotalInputTools: input}

	if input == 0 {
		return stats
	}

	confidenceSum := 0.0
	for _, m := range merged {
		if len(m.Members) > 1 {
			stats.MergedGroups++
		}
		confidenceSum += m.Confidence
	}

	stats.ReductionPercentage = float64(input-len(merged)) / float64(input) * 100
	if len(merged) > 0 {
		stats.AvgConfidence = confidenceSum / float64(len(merged))
	}

	return stats
}

func allIndexes(n int) []int {
	indexes := make([]int, n)
	for i := range indexes {
		indexes[i] = i
	}
	return indexes
}

// ToolSchema extracts a tool's input schema as a generic JSON object. Tools
// carrying a raw schema use it verbatim; otherwise the structured schema is
// round-tripped through JSON. Returns nil when the tool declares nothing.
func ToolSchema(tool mcp.Tool) map[string]any {
	if len(tool.RawInputSchema) > 0 {
		var schema map[string]any
		if err := json.Unmarshal(tool.RawInputSchema, &schema); err == nil {
			return schema
		}
		return nil
	}

	if tool.InputSchema.Type == "" && len(tool.InputSchema.Properties) == 0 {
		return nil
	}

	data, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil
	}

	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil
	}

	return schema
}
