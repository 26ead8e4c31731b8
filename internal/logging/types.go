package logging

import "time"

// #region trace-entry
// TraceEntry is a single row in the decision_log table.
type TraceEntry struct {
	RequestID  string
	UserText   string
	Intent     string
	Confidence float32
	Terminal   string
	Source     string
	RecordJSON string
	ReplyLen   int
	ElapsedMs  int64
	CreatedAt  time.Time
}

// #endregion trace-entry

// #region trace-record
// TraceRecord captures the complete pipeline inputs and decisions for a
// single request. Serialized as JSON into decision_log.record_json so a
// request can be replayed without the live nlu/search services.
type TraceRecord struct {
	RequestID string `json:"request_id"`
	UserText  string `json:"user_text"`

	// Exact collaborator outputs as observed at runtime
	IntentCandidates []RecordIntent `json:"intent_candidates,omitempty"`
	ClassifierFailed bool           `json:"classifier_failed,omitempty"`
	Entities         []RecordEntity `json:"entities,omitempty"`
	ExtractorFailed  bool           `json:"extractor_failed,omitempty"`
	Docs             []RecordDoc    `json:"docs,omitempty"`
	RetrieverFailed  bool           `json:"retriever_failed,omitempty"`

	// Thresholds active at decision time
	Thresholds RecordThresholds `json:"thresholds"`

	// Branch decisions in the order they were taken
	Steps []RecordStep `json:"steps"`

	// Final outcome
	Terminal   string  `json:"terminal"`
	Source     string  `json:"source"`
	Confidence float32 `json:"confidence"`
	ReplyText  string  `json:"reply_text"`
}

// RecordIntent is one ranked intent candidate as returned by the classifier.
type RecordIntent struct {
	Intent     string  `json:"intent"`
	Confidence float32 `json:"confidence"`
}

// RecordEntity is one extracted span as returned by the extractor.
type RecordEntity struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float32 `json:"confidence"`
}

// RecordDoc is one retrieved document with both raw and fused scores.
type RecordDoc struct {
	DocID       string  `json:"doc_id"`
	SparseScore float32 `json:"sparse_score"`
	DenseScore  float32 `json:"dense_score"`
	FusedScore  float32 `json:"fused_score"`
	Snippet     string  `json:"snippet,omitempty"`
	Source      string  `json:"source,omitempty"`
}

// RecordStep mirrors one pipeline stage decision.
type RecordStep struct {
	Stage      string  `json:"stage"`
	Outcome    string  `json:"outcome"`
	Confidence float32 `json:"confidence,omitempty"`
	Detail     string  `json:"detail,omitempty"`
}

// RecordThresholds captures the routing config active at decision time.
// The fusion weights ride along so an exported fixture replays the exact
// ranking the service computed.
type RecordThresholds struct {
	IntentThreshold    float32 `json:"intent_threshold"`
	RetrievalThreshold float32 `json:"retrieval_threshold"`
	ClarifyConfidence  float32 `json:"clarify_confidence"`
	MinFusedScore      float32 `json:"min_fused_score"`
	SparseWeight       float32 `json:"sparse_weight"`
	DenseWeight        float32 `json:"dense_weight"`
	TopK               int     `json:"top_k"`
}

// #endregion trace-record
