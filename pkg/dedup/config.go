package dedup

// Config controls how aggressively tools from different providers are
// merged. The weights are data rather than constants so that callers (and
// tests) can rebalance which similarity signal dominates.
type Config struct {
	Enabled             bool    `json:"enabled"`
	SimilarityThreshold float64 `json:"similarityThreshold"`
	AutoMerge           bool    `json:"autoMerge"`
	NameWeight          float64 `json:"nameWeight"`
	DescriptionWeight   float64 `json:"descriptionWeight"`
	SchemaWeight        float64 `json:"schemaWeight"`
}

// DefaultConfig returns the standard deduplication settings.
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		SimilarityThreshold: 0.8,
		AutoMerge:           true,
		NameWeight:          0.40,
		DescriptionWeight:   0.35,
		SchemaWeight:        0.25,
	}
}
