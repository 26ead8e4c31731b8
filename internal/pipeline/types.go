package pipeline

// #region imports
import (
	"context"
	"fmt"
	"time"

	"github.com/filkom-ub/chatbot/go-orchestrator/internal/nlu"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/search"
)

// #endregion

// #region terminal

// Terminal names the cascade state that finalized a response. Every
// request ends in exactly one of these.
type Terminal string

const (
	TerminalIntentMatch     Terminal = "intent_match"
	TerminalClarify         Terminal = "clarify"
	TerminalRetrievalMatch  Terminal = "retrieval_match"
	TerminalGenericFallback Terminal = "generic_fallback"
)

// #endregion

// #region source

// Source tells where the reply text came from.
type Source string

const (
	SourceTemplate  Source = "template"
	SourceRetrieval Source = "retrieval"
	SourceFallback  Source = "fallback"
)

// #endregion

// #region stage-names

// Trace stage and outcome labels. Kept stable so stored traces stay
// comparable across versions.
const (
	stageIntent    = "intent"
	stageEntities  = "entities"
	stageTemplate  = "template"
	stageRetrieval = "retrieval"
	stageFallback  = "fallback"
)

const (
	outcomeOK             = "ok"
	outcomeFailed         = "failed"
	outcomeSkipped        = "skipped"
	outcomeBelowThreshold = "below_threshold"
	outcomeMissingSlots   = "missing_slots"
	outcomeNoTemplate     = "no_template"
	outcomeCheckFailed    = "check_failed"
	outcomeEmpty          = "empty"
)

// Sentinel intent labels for degraded classifier outcomes.
const (
	intentUnknown    = "unknown"
	intentEmptyInput = "empty_input"
)

// #endregion

// #region request-response

// ChatRequest is one user question. Immutable once created.
type ChatRequest struct {
	RequestID  string    `json:"request_id"`
	UserText   string    `json:"user_text"`
	ReceivedAt time.Time `json:"received_at"`
}

// StageDecision is one row of the decision trace.
type StageDecision struct {
	Stage      string  `json:"stage"`
	Outcome    string  `json:"outcome"`
	Confidence float32 `json:"confidence,omitempty"`
	Detail     string  `json:"detail,omitempty"`
}

// Trace records the cascade path taken for a request. It carries no
// wall-clock values so equal collaborator outputs always produce an
// identical trace.
type Trace struct {
	Terminal Terminal        `json:"terminal"`
	Steps    []StageDecision `json:"steps"`
}

// ChatResponse is the single reply produced per request. ReplyText is
// never empty; the trace is for diagnostics, not for end users. Intent
// is the winning classifier label, or a sentinel when classification
// failed or never ran.
type ChatResponse struct {
	RequestID  string  `json:"request_id"`
	ReplyText  string  `json:"reply_text"`
	Source     Source  `json:"source"`
	Intent     string  `json:"intent"`
	Confidence float32 `json:"confidence"`
	Trace      Trace   `json:"trace"`
}

// #endregion

// #region structural-error

// StructuralError reports a malformed request. It is the only error kind
// that crosses the pipeline boundary; collaborator failures and
// composition failures degrade into fallback replies instead.
type StructuralError struct {
	Field  string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// #endregion

// #region collaborators

// Classifier ranks intent labels for a text.
type Classifier interface {
	Classify(ctx context.Context, text string) (nlu.IntentResult, error)
}

// Extractor tags entity spans in a text.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]nlu.EntityMatch, error)
}

// Retriever scores candidate documents for a query. Scores arrive
// unfused; the cascade applies the fusion law itself.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]search.ScoredDoc, error)
}

// Renderer fills a response template for an intent.
type Renderer interface {
	Render(intent string, slots map[string]string, source string) (string, error)
}

// #endregion

// #region config

// Config carries every knob the cascade reads. The server builds one
// from the service config; tests tweak fields directly.
type Config struct {
	IntentThreshold    float32
	RetrievalThreshold float32
	ClarifyConfidence  float32
	Fusion             search.FusionConfig

	IntentTimeout time.Duration
	EntityTimeout time.Duration
	SearchTimeout time.Duration

	MaxMessageLen int

	FallbackMessages []string // empty = built-in variants
	ClarifyFormat    string   // one %s verb, empty = built-in
}

// DefaultConfig returns the built-in cascade tuning.
func DefaultConfig() Config {
	return Config{
		IntentThreshold:    0.85,
		RetrievalThreshold: 0.70,
		ClarifyConfidence:  0.50,
		Fusion:             search.DefaultFusionConfig(),
		IntentTimeout:      3 * time.Second,
		EntityTimeout:      3 * time.Second,
		SearchTimeout:      5 * time.Second,
		MaxMessageLen:      500,
	}
}

// #endregion
