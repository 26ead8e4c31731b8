package replay

// #region imports
import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/filkom-ub/chatbot/go-orchestrator/internal/kb"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/nlu"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/pipeline"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/search"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/template"
)

// #endregion

// #region canned-collaborators

// TerminalStructural is the pseudo-terminal reported when a replayed
// request is rejected before the cascade starts.
const TerminalStructural = "structural_error"

var errCanned = errors.New("collaborator failed during recording")

// canned serves one interaction's recorded collaborator outputs. It
// satisfies the classifier, extractor, and retriever ports so a replay
// exercises the real cascade against frozen inputs.
type canned struct {
	candidates []nlu.IntentCandidate
	intentErr  bool
	entities   []nlu.EntityMatch
	entityErr  bool
	docs       []search.ScoredDoc
	searchErr  bool
}

func newCanned(in *FixtureInteraction) *canned {
	return &canned{
		candidates: in.ToCandidates(),
		intentErr:  in.ClassifierFailed,
		entities:   in.ToEntities(),
		entityErr:  in.ExtractorFailed,
		docs:       in.ToDocs(),
		searchErr:  in.RetrieverFailed,
	}
}

func (c *canned) Classify(ctx context.Context, text string) (nlu.IntentResult, error) {
	if c.intentErr {
		return nlu.IntentResult{}, errCanned
	}
	return nlu.IntentResult{Candidates: c.candidates}, nil
}

func (c *canned) Extract(ctx context.Context, text string) ([]nlu.EntityMatch, error) {
	if c.entityErr {
		return nil, errCanned
	}
	return c.entities, nil
}

func (c *canned) Search(ctx context.Context, query string, topK int) ([]search.ScoredDoc, error) {
	if c.searchErr {
		return nil, errCanned
	}
	return c.docs, nil
}

// #endregion canned-collaborators

// #region replay-result

// Result captures one replayed interaction.
type Result struct {
	RequestID     string  `json:"request_id"`
	Terminal      string  `json:"terminal"`
	Source        string  `json:"source"`
	Confidence    float32 `json:"confidence"`
	Reply         string  `json:"reply"`
	Expected      string  `json:"expected,omitempty"`
	Match         bool    `json:"match"`
	Deterministic bool    `json:"deterministic"`
}

// Summary aggregates a replay run.
type Summary struct {
	Total      int            `json:"total"`
	Matched    int            `json:"matched"`
	Mismatched int            `json:"mismatched"`
	Terminals  map[string]int `json:"terminals"`
}

// #endregion replay-result

// #region replay-loop

// Replay runs every fixture interaction through the real cascade with
// canned collaborators and compares terminals against expectations.
// Each interaction is also run twice to confirm byte-identical output.
func Replay(f *Fixture) ([]Result, error) {
	if len(f.Interactions) == 0 {
		return nil, fmt.Errorf("fixture has no interactions")
	}

	snapshot := kb.NewSnapshot(f.KB)
	renderer := template.NewEngine(snapshot)
	cfg := f.Config.ToPipelineConfig()

	expected := make(map[string]FixtureExpected, len(f.Expected))
	for _, e := range f.Expected {
		expected[e.RequestID] = e
	}

	results := make([]Result, 0, len(f.Interactions))
	for i := range f.Interactions {
		in := &f.Interactions[i]
		col := newCanned(in)
		pipe := pipeline.NewPipeline(col, col, col, renderer, nil, cfg)

		first, err := runOnce(pipe, in)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", in.RequestID, err)
		}
		second, err := runOnce(pipe, in)
		if err != nil {
			return nil, fmt.Errorf("replay %s (second pass): %w", in.RequestID, err)
		}

		res := Result{
			RequestID:     in.RequestID,
			Terminal:      first.terminal,
			Source:        first.source,
			Confidence:    first.confidence,
			Reply:         first.reply,
			Deterministic: bytes.Equal(first.encoded, second.encoded),
		}
		if want, ok := expected[in.RequestID]; ok {
			res.Expected = want.Terminal
			res.Match = want.Terminal == res.Terminal &&
				(want.Source == "" || want.Source == res.Source)
		} else {
			res.Match = true
		}
		if !res.Match {
			log.Printf("[REPLAY] mismatch %s: got terminal=%s want=%s", in.RequestID, res.Terminal, res.Expected)
		}
		results = append(results, res)
	}
	return results, nil
}

// pass is the comparable outcome of a single cascade run.
type pass struct {
	terminal   string
	source     string
	confidence float32
	reply      string
	encoded    []byte
}

func runOnce(pipe *pipeline.Pipeline, in *FixtureInteraction) (pass, error) {
	req := pipeline.ChatRequest{RequestID: in.RequestID, UserText: in.UserText}
	resp, err := pipe.Process(context.Background(), req)
	if err != nil {
		var serr *pipeline.StructuralError
		if errors.As(err, &serr) {
			encoded, jerr := json.Marshal(serr)
			if jerr != nil {
				return pass{}, fmt.Errorf("encode structural error: %w", jerr)
			}
			return pass{terminal: TerminalStructural, encoded: encoded}, nil
		}
		return pass{}, err
	}
	encoded, jerr := json.Marshal(resp)
	if jerr != nil {
		return pass{}, fmt.Errorf("encode response: %w", jerr)
	}
	return pass{
		terminal:   string(resp.Trace.Terminal),
		source:     string(resp.Source),
		confidence: resp.Confidence,
		reply:      resp.ReplyText,
		encoded:    encoded,
	}, nil
}

// Summarize folds results into run totals.
func Summarize(results []Result) Summary {
	s := Summary{Terminals: make(map[string]int)}
	for _, r := range results {
		s.Total++
		if r.Match {
			s.Matched++
		} else {
			s.Mismatched++
		}
		s.Terminals[r.Terminal]++
	}
	return s
}

// #endregion replay-loop
