package replay

// #region imports
import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/filkom-ub/chatbot/go-orchestrator/internal/kb"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/logging"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/nlu"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/pipeline"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/search"
)

// #endregion

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a
// knowledge base, the cascade tuning, recorded requests with their
// collaborator outputs, and the terminals each request must reach.
type Fixture struct {
	Description  string               `json:"description"`
	Config       FixtureConfig        `json:"config"`
	KB           kb.ImportData        `json:"kb"`
	Interactions []FixtureInteraction `json:"interactions"`
	Expected     []FixtureExpected    `json:"expected_results"`
}

// FixtureConfig mirrors the cascade tuning with JSON tags. Fixtures
// carry the full set so a replay never depends on ambient defaults.
type FixtureConfig struct {
	IntentThreshold    float32 `json:"intent_threshold"`
	RetrievalThreshold float32 `json:"retrieval_threshold"`
	ClarifyConfidence  float32 `json:"clarify_confidence"`
	SparseWeight       float32 `json:"sparse_weight"`
	DenseWeight        float32 `json:"dense_weight"`
	MinFusedScore      float32 `json:"min_fused_score"`
	TopK               int     `json:"top_k"`
}

// FixtureInteraction is one recorded request plus the collaborator
// outputs observed for it. The failure flags replay a collaborator
// erroring instead of answering.
type FixtureInteraction struct {
	RequestID        string          `json:"request_id"`
	UserText         string          `json:"user_text"`
	Intents          []FixtureIntent `json:"intents,omitempty"`
	ClassifierFailed bool            `json:"classifier_failed,omitempty"`
	Entities         []FixtureEntity `json:"entities,omitempty"`
	ExtractorFailed  bool            `json:"extractor_failed,omitempty"`
	Docs             []FixtureDoc    `json:"docs,omitempty"`
	RetrieverFailed  bool            `json:"retriever_failed,omitempty"`
}

// FixtureIntent mirrors nlu.IntentCandidate with JSON tags.
type FixtureIntent struct {
	Intent     string  `json:"intent"`
	Confidence float32 `json:"confidence"`
}

// FixtureEntity mirrors nlu.EntityMatch with JSON tags.
type FixtureEntity struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float32 `json:"confidence"`
}

// FixtureDoc mirrors search.ScoredDoc with JSON tags. Scores are the
// raw unfused collaborator outputs; replay re-applies the fusion law.
type FixtureDoc struct {
	DocID       string  `json:"doc_id"`
	SparseScore float32 `json:"sparse_score"`
	DenseScore  float32 `json:"dense_score"`
	Snippet     string  `json:"snippet"`
	Source      string  `json:"source,omitempty"`
}

// FixtureExpected names the terminal and source a request must reach.
type FixtureExpected struct {
	RequestID string `json:"request_id"`
	Terminal  string `json:"terminal"`
	Source    string `json:"source,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// FixtureFromRecords builds a fixture from persisted decision records.
// The cascade tuning comes from the first record; every record becomes
// one interaction with its observed terminal as the expectation.
func FixtureFromRecords(description string, kbData kb.ImportData, records []logging.TraceRecord) (*Fixture, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no decision records to build a fixture from")
	}

	th := records[0].Thresholds
	topK := th.TopK
	if topK <= 0 {
		topK = 5
	}
	f := &Fixture{
		Description: description,
		Config: FixtureConfig{
			IntentThreshold:    th.IntentThreshold,
			RetrievalThreshold: th.RetrievalThreshold,
			ClarifyConfidence:  th.ClarifyConfidence,
			SparseWeight:       th.SparseWeight,
			DenseWeight:        th.DenseWeight,
			MinFusedScore:      th.MinFusedScore,
			TopK:               topK,
		},
		KB: kbData,
	}

	for _, r := range records {
		in := FixtureInteraction{
			RequestID:        r.RequestID,
			UserText:         r.UserText,
			ClassifierFailed: r.ClassifierFailed,
			ExtractorFailed:  r.ExtractorFailed,
			RetrieverFailed:  r.RetrieverFailed,
		}
		for _, c := range r.IntentCandidates {
			in.Intents = append(in.Intents, FixtureIntent{Intent: c.Intent, Confidence: c.Confidence})
		}
		for _, e := range r.Entities {
			in.Entities = append(in.Entities, FixtureEntity{
				Type:       e.Type,
				Text:       e.Text,
				Start:      e.Start,
				End:        e.End,
				Confidence: e.Confidence,
			})
		}
		for _, d := range r.Docs {
			in.Docs = append(in.Docs, FixtureDoc{
				DocID:       d.DocID,
				SparseScore: d.SparseScore,
				DenseScore:  d.DenseScore,
				Snippet:     d.Snippet,
				Source:      d.Source,
			})
		}
		f.Interactions = append(f.Interactions, in)
		f.Expected = append(f.Expected, FixtureExpected{
			RequestID: r.RequestID,
			Terminal:  r.Terminal,
			Source:    r.Source,
		})
	}
	return f, nil
}

// ToPipelineConfig converts the fixture tuning to a cascade config.
// Timeouts keep their defaults; canned collaborators never block.
func (fc FixtureConfig) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.IntentThreshold = fc.IntentThreshold
	cfg.RetrievalThreshold = fc.RetrievalThreshold
	cfg.ClarifyConfidence = fc.ClarifyConfidence
	cfg.Fusion = search.FusionConfig{
		SparseWeight:  fc.SparseWeight,
		DenseWeight:   fc.DenseWeight,
		MinFusedScore: fc.MinFusedScore,
		TopK:          fc.TopK,
	}
	return cfg
}

// ToCandidates converts recorded intents to the classifier output type.
func (fi *FixtureInteraction) ToCandidates() []nlu.IntentCandidate {
	out := make([]nlu.IntentCandidate, len(fi.Intents))
	for i, c := range fi.Intents {
		out[i] = nlu.IntentCandidate{Intent: c.Intent, Confidence: c.Confidence}
	}
	return out
}

// ToEntities converts recorded spans to the extractor output type.
func (fi *FixtureInteraction) ToEntities() []nlu.EntityMatch {
	out := make([]nlu.EntityMatch, len(fi.Entities))
	for i, e := range fi.Entities {
		out[i] = nlu.EntityMatch{
			Type:       e.Type,
			Text:       e.Text,
			Start:      e.Start,
			End:        e.End,
			Confidence: e.Confidence,
		}
	}
	return out
}

// ToDocs converts recorded documents to the retriever output type.
func (fi *FixtureInteraction) ToDocs() []search.ScoredDoc {
	out := make([]search.ScoredDoc, len(fi.Docs))
	for i, d := range fi.Docs {
		out[i] = search.ScoredDoc{
			DocID:       d.DocID,
			SparseScore: d.SparseScore,
			DenseScore:  d.DenseScore,
			Snippet:     d.Snippet,
			Source:      d.Source,
		}
	}
	return out
}

// #endregion fixture-loader
