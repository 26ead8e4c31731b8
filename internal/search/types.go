package search

// #region scored-doc
// ScoredDoc is one raw hit from the search service. Sparse and dense scores
// arrive unfused; ranking them is this side's job.
type ScoredDoc struct {
	DocID       string  `json:"doc_id"`
	SparseScore float32 `json:"sparse_score"`
	DenseScore  float32 `json:"dense_score"`
	Snippet     string  `json:"snippet"`
	Source      string  `json:"source,omitempty"`
}

// RetrievedDoc is a hit after score fusion.
type RetrievedDoc struct {
	ScoredDoc
	FusedScore float32 `json:"fused_score"`
}

// #endregion scored-doc

// #region config
// FusionConfig holds the weights and floor for hybrid score fusion.
type FusionConfig struct {
	SparseWeight  float32 // weight of the lexical score
	DenseWeight   float32 // weight of the embedding score
	MinFusedScore float32 // hits below this are dropped after fusion
	TopK          int     // max hits requested from the search service
}

// DefaultFusionConfig returns sensible defaults for hybrid fusion.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		SparseWeight:  0.4,
		DenseWeight:   0.6,
		MinFusedScore: 0.3,
		TopK:          5,
	}
}

// #endregion config
