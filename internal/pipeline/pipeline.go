package pipeline

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/filkom-ub/chatbot/go-orchestrator/internal/logging"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/nlu"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/search"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/template"
)

// #endregion

// #region pipeline-struct

// Pipeline is the cascade orchestrator. It sequences intent
// classification, entity extraction, template filling, and hybrid
// retrieval, and always finalizes exactly one response per request.
type Pipeline struct {
	classifier Classifier
	extractor  Extractor
	retriever  Retriever
	renderer   Renderer
	traces     *logging.TraceStore // nil = no persistence
	cfg        Config
	checkCfg   template.CheckConfig
}

// NewPipeline wires a pipeline from injected collaborators. Pass a nil
// trace store to skip decision logging.
func NewPipeline(classifier Classifier, extractor Extractor, retriever Retriever, renderer Renderer, traces *logging.TraceStore, cfg Config) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		extractor:  extractor,
		retriever:  retriever,
		renderer:   renderer,
		traces:     traces,
		cfg:        cfg,
		checkCfg:   template.DefaultCheckConfig(),
	}
}

// #endregion

// #region run-state

// runState is the per-request mutable state. Nothing here is shared
// across requests.
type runState struct {
	req        ChatRequest
	started    time.Time
	intent     string
	confidence float32
	candidates []nlu.IntentCandidate
	intentErr  error
	entities   []nlu.EntityMatch
	entityErr  error
	slots      map[string]string
	fused      []search.RetrievedDoc
	searchErr  error
	steps      []StageDecision
}

func (r *runState) step(stage, outcome string, confidence float32, detail string) {
	r.steps = append(r.steps, StageDecision{
		Stage:      stage,
		Outcome:    outcome,
		Confidence: confidence,
		Detail:     detail,
	})
}

// #endregion

// #region process

// Process runs the cascade for one request. It returns an error only for
// structural problems with the request itself; collaborator failures and
// composition failures degrade into clarify, retrieval, or fallback
// replies and surface solely in the trace.
func (p *Pipeline) Process(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if serr := validateRequest(req, p.cfg.MaxMessageLen); serr != nil {
		log.Printf("[PIPE] reject %s: %v", req.RequestID, serr)
		return ChatResponse{}, serr
	}

	run := &runState{req: req, started: time.Now()}
	p.runNLU(ctx, run)

	if resp, done := p.tryTemplate(run); done {
		return resp, nil
	}
	if resp, done := p.tryRetrieval(ctx, run); done {
		return resp, nil
	}
	return p.fallbackResponse(run), nil
}

// #endregion

// #region nlu-stage

// runNLU issues intent classification and entity extraction
// concurrently. The stages have no data dependency; each gets its own
// timeout from the parent context so one timing out does not cancel the
// other. Both are joined before the branch decision.
func (p *Pipeline) runNLU(ctx context.Context, run *runState) {
	text := run.req.UserText
	if strings.TrimSpace(text) == "" {
		run.intent = intentEmptyInput
		run.step(stageIntent, outcomeSkipped, 0, intentEmptyInput)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, p.cfg.IntentTimeout)
		defer cancel()
		res, err := p.classifier.Classify(cctx, text)
		run.candidates, run.intentErr = res.Candidates, err
	}()
	go func() {
		defer wg.Done()
		ectx, cancel := context.WithTimeout(ctx, p.cfg.EntityTimeout)
		defer cancel()
		run.entities, run.entityErr = p.extractor.Extract(ectx, text)
	}()
	wg.Wait()

	run.intent = intentUnknown
	switch {
	case run.intentErr != nil:
		run.step(stageIntent, outcomeFailed, 0, run.intentErr.Error())
	case len(run.candidates) == 0:
		run.step(stageIntent, outcomeEmpty, 0, "no candidates")
	default:
		top := run.candidates[0]
		run.intent = top.Intent
		run.confidence = top.Confidence
		run.step(stageIntent, outcomeOK, top.Confidence, top.Intent)
	}

	if run.entityErr != nil {
		run.step(stageEntities, outcomeFailed, 0, run.entityErr.Error())
	} else {
		run.step(stageEntities, outcomeOK, 0, fmt.Sprintf("%d spans", len(run.entities)))
	}
	run.slots = slotValues(run.entities)
}

// slotValues maps entity types to surface text for slot filling. Spans
// arrive sorted by start offset; the first span of a type wins.
func slotValues(entities []nlu.EntityMatch) map[string]string {
	slots := make(map[string]string, len(entities))
	for _, e := range entities {
		key := strings.ToUpper(e.Type)
		if _, ok := slots[key]; !ok {
			slots[key] = e.Text
		}
	}
	return slots
}

// #endregion

// #region template-stage

// tryTemplate attempts the template answer for a confidently classified
// intent. It finalizes the response on a full render (intent match) and
// on missing required slots (clarifying question); every other outcome
// advances the cascade to retrieval.
func (p *Pipeline) tryTemplate(run *runState) (ChatResponse, bool) {
	switch {
	case run.intent == intentUnknown || run.intent == intentEmptyInput:
		return ChatResponse{}, false
	case run.confidence < p.cfg.IntentThreshold:
		run.step(stageTemplate, outcomeSkipped, run.confidence, "below intent threshold")
		return ChatResponse{}, false
	case longFormIntents[run.intent]:
		run.step(stageTemplate, outcomeSkipped, run.confidence, "long-form intent")
		return ChatResponse{}, false
	}

	reply, err := p.renderer.Render(run.intent, run.slots, "")
	if err == nil {
		if chk := template.Validate(reply, p.checkCfg); !chk.Passed {
			run.step(stageTemplate, outcomeCheckFailed, 0, chk.Reason)
			return ChatResponse{}, false
		}
		run.step(stageTemplate, outcomeOK, run.confidence, run.intent)
		return p.respond(run, TerminalIntentMatch, SourceTemplate, reply, run.confidence), true
	}

	var ce *template.CompositionError
	switch {
	case errors.As(err, &ce):
		detail := strings.Join(ce.Slots, ", ")
		if directIntents[run.intent] {
			// direct intents never ask clarifying questions
			run.step(stageTemplate, outcomeMissingSlots, 0, detail)
			return ChatResponse{}, false
		}
		run.step(stageTemplate, outcomeMissingSlots, p.cfg.ClarifyConfidence, detail)
		question := clarifyQuestion(p.cfg.ClarifyFormat, ce.Slots)
		return p.respond(run, TerminalClarify, SourceTemplate, question, p.cfg.ClarifyConfidence), true
	case errors.Is(err, template.ErrNoTemplate):
		run.step(stageTemplate, outcomeNoTemplate, 0, run.intent)
		return ChatResponse{}, false
	default:
		run.step(stageTemplate, outcomeFailed, 0, err.Error())
		return ChatResponse{}, false
	}
}

// #endregion

// #region retrieval-stage

// tryRetrieval queries the search service once, fuses the scores, and
// finalizes a retrieval answer when the top document clears the
// threshold. Any failure or miss advances to the generic fallback.
func (p *Pipeline) tryRetrieval(ctx context.Context, run *runState) (ChatResponse, bool) {
	rctx, cancel := context.WithTimeout(ctx, p.cfg.SearchTimeout)
	defer cancel()

	docs, err := p.retriever.Search(rctx, run.req.UserText, p.cfg.Fusion.TopK)
	if err != nil {
		run.searchErr = err
		run.step(stageRetrieval, outcomeFailed, 0, err.Error())
		return ChatResponse{}, false
	}

	run.fused = search.Fuse(docs, p.cfg.Fusion)
	top, ok := search.Top(run.fused)
	if !ok {
		run.step(stageRetrieval, outcomeEmpty, 0, "no documents")
		return ChatResponse{}, false
	}
	if top.FusedScore < p.cfg.RetrievalThreshold {
		run.step(stageRetrieval, outcomeBelowThreshold, top.FusedScore, top.DocID)
		return ChatResponse{}, false
	}

	run.step(stageRetrieval, outcomeOK, top.FusedScore, top.DocID)
	return p.respond(run, TerminalRetrievalMatch, SourceRetrieval, search.BuildAnswer(top), top.FusedScore), true
}

// #endregion

// #region fallback-stage

// fallbackResponse finalizes the generic fallback. This terminal always
// succeeds, keeping Process total over valid requests.
func (p *Pipeline) fallbackResponse(run *runState) ChatResponse {
	reply, variant := selectFallback(p.cfg.FallbackMessages, run.req.UserText)
	run.step(stageFallback, outcomeOK, 0, fmt.Sprintf("variant %d", variant))
	return p.respond(run, TerminalGenericFallback, SourceFallback, reply, 0)
}

// #endregion

// #region finalize

func (p *Pipeline) respond(run *runState, terminal Terminal, source Source, reply string, confidence float32) ChatResponse {
	resp := ChatResponse{
		RequestID:  run.req.RequestID,
		ReplyText:  reply,
		Source:     source,
		Intent:     run.intent,
		Confidence: confidence,
		Trace:      Trace{Terminal: terminal, Steps: run.steps},
	}
	p.logTrace(run, resp)
	log.Printf("[PIPE] %s terminal=%s source=%s conf=%.2f", run.req.RequestID, terminal, source, confidence)
	return resp
}

// logTrace persists the full decision record. Failures here never affect
// the response.
func (p *Pipeline) logTrace(run *runState, resp ChatResponse) {
	if p.traces == nil {
		return
	}

	record := logging.TraceRecord{
		RequestID:        run.req.RequestID,
		UserText:         run.req.UserText,
		IntentCandidates: recordIntents(run.candidates),
		ClassifierFailed: run.intentErr != nil,
		Entities:         recordEntities(run.entities),
		ExtractorFailed:  run.entityErr != nil,
		Docs:             recordDocs(run.fused),
		RetrieverFailed:  run.searchErr != nil,
		Thresholds: logging.RecordThresholds{
			IntentThreshold:    p.cfg.IntentThreshold,
			RetrievalThreshold: p.cfg.RetrievalThreshold,
			ClarifyConfidence:  p.cfg.ClarifyConfidence,
			MinFusedScore:      p.cfg.Fusion.MinFusedScore,
			SparseWeight:       p.cfg.Fusion.SparseWeight,
			DenseWeight:        p.cfg.Fusion.DenseWeight,
			TopK:               p.cfg.Fusion.TopK,
		},
		Steps:      recordSteps(run.steps),
		Terminal:   string(resp.Trace.Terminal),
		Source:     string(resp.Source),
		Confidence: resp.Confidence,
		ReplyText:  resp.ReplyText,
	}

	raw, err := json.Marshal(record)
	if err != nil {
		log.Printf("[PIPE] marshal trace record: %v", err)
	}

	entry := logging.TraceEntry{
		RequestID:  run.req.RequestID,
		UserText:   run.req.UserText,
		Intent:     run.intent,
		Confidence: resp.Confidence,
		Terminal:   string(resp.Trace.Terminal),
		Source:     string(resp.Source),
		RecordJSON: string(raw),
		ReplyLen:   len(resp.ReplyText),
		ElapsedMs:  time.Since(run.started).Milliseconds(),
	}
	if err := p.traces.Log(entry); err != nil {
		log.Printf("[PIPE] trace log failed: %v", err)
	}
}

func recordIntents(candidates []nlu.IntentCandidate) []logging.RecordIntent {
	out := make([]logging.RecordIntent, len(candidates))
	for i, c := range candidates {
		out[i] = logging.RecordIntent{Intent: c.Intent, Confidence: c.Confidence}
	}
	return out
}

func recordEntities(entities []nlu.EntityMatch) []logging.RecordEntity {
	out := make([]logging.RecordEntity, len(entities))
	for i, e := range entities {
		out[i] = logging.RecordEntity{
			Type:       e.Type,
			Text:       e.Text,
			Start:      e.Start,
			End:        e.End,
			Confidence: e.Confidence,
		}
	}
	return out
}

func recordDocs(docs []search.RetrievedDoc) []logging.RecordDoc {
	out := make([]logging.RecordDoc, len(docs))
	for i, d := range docs {
		out[i] = logging.RecordDoc{
			DocID:       d.DocID,
			SparseScore: d.SparseScore,
			DenseScore:  d.DenseScore,
			FusedScore:  d.FusedScore,
			Snippet:     d.Snippet,
			Source:      d.Source,
		}
	}
	return out
}

func recordSteps(steps []StageDecision) []logging.RecordStep {
	out := make([]logging.RecordStep, len(steps))
	for i, s := range steps {
		out[i] = logging.RecordStep{
			Stage:      s.Stage,
			Outcome:    s.Outcome,
			Confidence: s.Confidence,
			Detail:     s.Detail,
		}
	}
	return out
}

// #endregion
