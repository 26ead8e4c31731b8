package pipeline

// #region imports
import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/filkom-ub/chatbot/go-orchestrator/internal/kb"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/logging"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/nlu"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/search"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/template"
)

// #endregion

// #region fakes

type fakeClassifier struct {
	result nlu.IntentResult
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (nlu.IntentResult, error) {
	f.calls++
	if f.err != nil {
		return nlu.IntentResult{}, f.err
	}
	return f.result, nil
}

type fakeExtractor struct {
	entities []nlu.EntityMatch
	err      error
	calls    int
}

func (f *fakeExtractor) Extract(ctx context.Context, text string) ([]nlu.EntityMatch, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.entities, nil
}

type fakeRetriever struct {
	docs  []search.ScoredDoc
	err   error
	calls int
}

func (f *fakeRetriever) Search(ctx context.Context, query string, topK int) ([]search.ScoredDoc, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

// #endregion

// #region fixture

func testSnapshot() *kb.Snapshot {
	return kb.NewSnapshot(kb.ImportData{
		Dosen: map[string]kb.Dosen{
			"hendry_fonda": {
				NamaLengkap: "Hendry Fonda",
				NIDN:        "1021098802",
				NoHP:        "0812-6168-2801",
				Matakuliah:  "Machine Learning",
				Semester:    7,
				Prodi:       "Teknik Informatika",
			},
		},
		MataKuliah: map[string]kb.MataKuliah{
			"Algoritma dan Pemrograman": {
				Kode:     "TIF1101",
				SKS:      3,
				Semester: 1,
				Prodi:    "Teknik Informatika",
				Alias:    map[string][]string{"mata_kuliah": {"Algoritma"}},
			},
		},
		Jadwal: []kb.Jadwal{
			{
				MataKuliah: "Algoritma dan Pemrograman",
				Hari:       "Senin",
				Jam:        "08:00-10:30",
				Ruang:      "R301",
				Kelas:      "A",
			},
		},
		Templates: []kb.Template{
			{Intent: "greeting", Text: "Halo! Ada yang bisa saya bantu seputar informasi akademik FILKOM?"},
			{Intent: "help", Text: "Saya dapat membantu tentang {TOPIC}.", RequiredSlots: []string{"TOPIC"}},
			{Intent: "jadwal_kuliah", Text: "Perkuliahan {MATA_KULIAH} dilaksanakan hari {HARI} pukul {WAKTU} di ruang {RUANGAN}.", RequiredSlots: []string{"MATA_KULIAH"}},
			{Intent: "dosen_pengampu", Text: "Mata kuliah {MATA_KULIAH} diampu oleh {DOSEN}.", RequiredSlots: []string{"MATA_KULIAH"}},
			{Intent: "panduan_krs", Text: "Panduan KRS singkat."},
		},
	})
}

type pipeFixture struct {
	classifier *fakeClassifier
	extractor  *fakeExtractor
	retriever  *fakeRetriever
	pipe       *Pipeline
}

func newFixture(cfg Config) *pipeFixture {
	fx := &pipeFixture{
		classifier: &fakeClassifier{},
		extractor:  &fakeExtractor{},
		retriever:  &fakeRetriever{},
	}
	fx.pipe = NewPipeline(fx.classifier, fx.extractor, fx.retriever, template.NewEngine(testSnapshot()), nil, cfg)
	return fx
}

func chatReq(id, text string) ChatRequest {
	return ChatRequest{RequestID: id, UserText: text}
}

func topIntent(label string, confidence float32) nlu.IntentResult {
	return nlu.IntentResult{Candidates: []nlu.IntentCandidate{{Intent: label, Confidence: confidence}}}
}

// krsDocs fuse (weights 0.4/0.6) to 0.81 for krs-001, 0.64 for krs-003,
// and 0.46 for krs-002.
func krsDocs() []search.ScoredDoc {
	return []search.ScoredDoc{
		{DocID: "krs-001", SparseScore: 0.75, DenseScore: 0.85, Snippet: "Pengisian KRS dilakukan melalui portal akademik pada masa yang ditentukan kalender.", Source: "Panduan Akademik"},
		{DocID: "krs-002", SparseScore: 1.0, DenseScore: 0.1, Snippet: "Jadwal penting semester ganjil.", Source: "Kalender"},
		{DocID: "krs-003", SparseScore: 0.1, DenseScore: 1.0, Snippet: "Prosedur umum layanan akademik.", Source: "Buku Pedoman"},
	}
}

func hasStep(trace Trace, stage, outcome string) bool {
	for _, s := range trace.Steps {
		if s.Stage == stage && s.Outcome == outcome {
			return true
		}
	}
	return false
}

// #endregion

// #region terminal-tests

func TestProcess_IntentMatch(t *testing.T) {
	fx := newFixture(DefaultConfig())
	fx.classifier.result = topIntent("jadwal_kuliah", 0.92)
	fx.extractor.entities = []nlu.EntityMatch{
		{Type: "mata_kuliah", Text: "Algoritma", Start: 14, End: 23, Confidence: 0.88},
	}

	resp, err := fx.pipe.Process(context.Background(), chatReq("r-1", "Jadwal kuliah Algoritma hari apa?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Trace.Terminal != TerminalIntentMatch {
		t.Errorf("expected terminal intent_match, got %s", resp.Trace.Terminal)
	}
	if resp.Source != SourceTemplate {
		t.Errorf("expected source template, got %s", resp.Source)
	}
	if resp.Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %v", resp.Confidence)
	}
	want := "Perkuliahan Algoritma dilaksanakan hari Senin pukul 08:00-10:30 di ruang R301."
	if resp.ReplyText != want {
		t.Errorf("expected %q, got %q", want, resp.ReplyText)
	}
	if fx.retriever.calls != 0 {
		t.Errorf("retriever should not run on an intent match, got %d calls", fx.retriever.calls)
	}
}

func TestProcess_Clarify(t *testing.T) {
	fx := newFixture(DefaultConfig())
	fx.classifier.result = topIntent("dosen_pengampu", 0.90)

	resp, err := fx.pipe.Process(context.Background(), chatReq("r-2", "Siapa dosen pengampunya?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Trace.Terminal != TerminalClarify {
		t.Errorf("expected terminal clarify, got %s", resp.Trace.Terminal)
	}
	if resp.Source != SourceTemplate {
		t.Errorf("expected source template, got %s", resp.Source)
	}
	if resp.Confidence != 0.50 {
		t.Errorf("expected clarify sentinel 0.50, got %v", resp.Confidence)
	}
	want := "Mohon sebutkan nama mata kuliah agar saya dapat menjawab pertanyaan Anda dengan tepat."
	if resp.ReplyText != want {
		t.Errorf("expected %q, got %q", want, resp.ReplyText)
	}
	if fx.retriever.calls != 0 {
		t.Errorf("retriever should not run on a clarify, got %d calls", fx.retriever.calls)
	}
}

func TestProcess_RetrievalMatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetrievalThreshold = 0.60
	fx := newFixture(cfg)
	fx.classifier.result = topIntent("info_umum", 0.30)
	fx.retriever.docs = krsDocs()

	resp, err := fx.pipe.Process(context.Background(), chatReq("r-3", "Bagaimana cara mengisi KRS?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Trace.Terminal != TerminalRetrievalMatch {
		t.Errorf("expected terminal retrieval_match, got %s", resp.Trace.Terminal)
	}
	if resp.Source != SourceRetrieval {
		t.Errorf("expected source retrieval, got %s", resp.Source)
	}
	if resp.Confidence < 0.80 || resp.Confidence > 0.82 {
		t.Errorf("expected fused confidence near 0.81, got %v", resp.Confidence)
	}
	want := "Berdasarkan informasi yang saya temukan: Pengisian KRS dilakukan melalui portal akademik pada masa yang ditentukan kalender.\n\nSumber: Panduan Akademik"
	if resp.ReplyText != want {
		t.Errorf("expected %q, got %q", want, resp.ReplyText)
	}
	if fx.retriever.calls != 1 {
		t.Errorf("expected one retriever call, got %d", fx.retriever.calls)
	}
}

func TestProcess_FallbackBelowThreshold(t *testing.T) {
	fx := newFixture(DefaultConfig())
	fx.classifier.result = topIntent("info_umum", 0.30)
	// single sparse-only doc normalizes to fused 0.4, below the 0.70 bar
	fx.retriever.docs = []search.ScoredDoc{
		{DocID: "d-1", SparseScore: 0.25, DenseScore: 0, Snippet: "tidak relevan"},
	}

	text := "Pertanyaan yang tidak bisa dijawab"
	resp, err := fx.pipe.Process(context.Background(), chatReq("r-4", text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Trace.Terminal != TerminalGenericFallback {
		t.Errorf("expected terminal generic_fallback, got %s", resp.Trace.Terminal)
	}
	if resp.Source != SourceFallback {
		t.Errorf("expected source fallback, got %s", resp.Source)
	}
	if resp.Confidence != 0 {
		t.Errorf("expected confidence 0, got %v", resp.Confidence)
	}
	wantReply, _ := selectFallback(nil, text)
	if resp.ReplyText != wantReply {
		t.Errorf("expected %q, got %q", wantReply, resp.ReplyText)
	}
	if !hasStep(resp.Trace, stageRetrieval, outcomeBelowThreshold) {
		t.Errorf("expected a below_threshold retrieval step, got %+v", resp.Trace.Steps)
	}
}

func TestProcess_FallbackExactConfiguredString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FallbackMessages = []string{"Maaf, silakan hubungi bagian akademik."}
	fx := newFixture(cfg)
	fx.classifier.result = topIntent("info_umum", 0.30)

	resp, err := fx.pipe.Process(context.Background(), chatReq("r-5", "apa ini"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ReplyText != "Maaf, silakan hubungi bagian akademik." {
		t.Errorf("expected the configured fallback verbatim, got %q", resp.ReplyText)
	}
}

// #endregion

// #region structural-tests

func TestProcess_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   \t\n"} {
		fx := newFixture(DefaultConfig())
		_, err := fx.pipe.Process(context.Background(), chatReq("r-6", text))
		if err == nil {
			t.Fatalf("input %q: expected structural error", text)
		}
		var serr *StructuralError
		if !errors.As(err, &serr) {
			t.Fatalf("input %q: expected *StructuralError, got %v", text, err)
		}
		if fx.classifier.calls != 0 || fx.extractor.calls != 0 || fx.retriever.calls != 0 {
			t.Errorf("input %q: no collaborator may be called, got %d/%d/%d",
				text, fx.classifier.calls, fx.extractor.calls, fx.retriever.calls)
		}
	}
}

func TestProcess_OversizedInput(t *testing.T) {
	fx := newFixture(DefaultConfig())
	_, err := fx.pipe.Process(context.Background(), chatReq("r-7", strings.Repeat("a", 501)))
	var serr *StructuralError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *StructuralError, got %v", err)
	}
	if serr.Field != "user_text" {
		t.Errorf("expected field user_text, got %q", serr.Field)
	}
	if fx.classifier.calls != 0 {
		t.Errorf("classifier must not be called, got %d calls", fx.classifier.calls)
	}
}

// #endregion

// #region failure-absorption-tests

func TestProcess_ClassifierFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetrievalThreshold = 0.60
	fx := newFixture(cfg)
	fx.classifier.err = errors.New("classifier down")
	fx.retriever.docs = krsDocs()

	resp, err := fx.pipe.Process(context.Background(), chatReq("r-8", "Bagaimana cara mengisi KRS?"))
	if err != nil {
		t.Fatalf("collaborator failure must not surface, got: %v", err)
	}
	if resp.Trace.Terminal != TerminalRetrievalMatch {
		t.Errorf("expected retrieval_match, got %s", resp.Trace.Terminal)
	}
	if !hasStep(resp.Trace, stageIntent, outcomeFailed) {
		t.Errorf("expected a failed intent step, got %+v", resp.Trace.Steps)
	}
}

func TestProcess_EmptyCandidates(t *testing.T) {
	fx := newFixture(DefaultConfig())
	// classifier contract: fails by returning an empty list

	resp, err := fx.pipe.Process(context.Background(), chatReq("r-9", "halo?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Trace.Terminal != TerminalGenericFallback {
		t.Errorf("expected generic_fallback, got %s", resp.Trace.Terminal)
	}
	if resp.ReplyText == "" {
		t.Error("reply must never be empty")
	}
}

func TestProcess_ExtractorFailure(t *testing.T) {
	fx := newFixture(DefaultConfig())
	fx.classifier.result = topIntent("jadwal_kuliah", 0.92)
	fx.extractor.err = errors.New("ner timeout")

	resp, err := fx.pipe.Process(context.Background(), chatReq("r-10", "Jadwal kuliah hari apa?"))
	if err != nil {
		t.Fatalf("collaborator failure must not surface, got: %v", err)
	}
	// no entities arrive, so the required course slot turns into a question
	if resp.Trace.Terminal != TerminalClarify {
		t.Errorf("expected clarify, got %s", resp.Trace.Terminal)
	}
	if !hasStep(resp.Trace, stageEntities, outcomeFailed) {
		t.Errorf("expected a failed entities step, got %+v", resp.Trace.Steps)
	}
}

func TestProcess_RetrieverFailure(t *testing.T) {
	fx := newFixture(DefaultConfig())
	fx.classifier.result = topIntent("info_umum", 0.30)
	fx.retriever.err = errors.New("search down")

	resp, err := fx.pipe.Process(context.Background(), chatReq("r-11", "ada info beasiswa?"))
	if err != nil {
		t.Fatalf("collaborator failure must not surface, got: %v", err)
	}
	if resp.Trace.Terminal != TerminalGenericFallback {
		t.Errorf("expected generic_fallback, got %s", resp.Trace.Terminal)
	}
	if !hasStep(resp.Trace, stageRetrieval, outcomeFailed) {
		t.Errorf("expected a failed retrieval step, got %+v", resp.Trace.Steps)
	}
}

// #endregion

// #region routing-tests

func TestProcess_NoTemplateCascadesToRetrieval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetrievalThreshold = 0.60
	fx := newFixture(cfg)
	// confident intent without a template entry still cascades
	fx.classifier.result = topIntent("batas_sks", 0.95)
	fx.retriever.docs = krsDocs()

	resp, err := fx.pipe.Process(context.Background(), chatReq("r-12", "Berapa batas SKS saya?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Trace.Terminal != TerminalRetrievalMatch {
		t.Errorf("expected retrieval_match, got %s", resp.Trace.Terminal)
	}
	if !hasStep(resp.Trace, stageTemplate, outcomeNoTemplate) {
		t.Errorf("expected a no_template step, got %+v", resp.Trace.Steps)
	}
}

func TestProcess_LongFormSkipsTemplate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetrievalThreshold = 0.60
	fx := newFixture(cfg)
	// the fixture has a panduan_krs template; the route must ignore it
	fx.classifier.result = topIntent("panduan_krs", 0.95)
	fx.retriever.docs = krsDocs()

	resp, err := fx.pipe.Process(context.Background(), chatReq("r-13", "Bagaimana panduan KRS?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Trace.Terminal != TerminalRetrievalMatch {
		t.Errorf("expected retrieval_match, got %s", resp.Trace.Terminal)
	}
	if !hasStep(resp.Trace, stageTemplate, outcomeSkipped) {
		t.Errorf("expected a skipped template step, got %+v", resp.Trace.Steps)
	}
}

func TestProcess_DirectIntentMatch(t *testing.T) {
	fx := newFixture(DefaultConfig())
	fx.classifier.result = topIntent("greeting", 0.90)

	resp, err := fx.pipe.Process(context.Background(), chatReq("r-14", "Halo bot"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Trace.Terminal != TerminalIntentMatch {
		t.Errorf("expected intent_match, got %s", resp.Trace.Terminal)
	}
	if resp.ReplyText != "Halo! Ada yang bisa saya bantu seputar informasi akademik FILKOM?" {
		t.Errorf("unexpected reply: %q", resp.ReplyText)
	}
}

func TestProcess_DirectIntentNeverClarifies(t *testing.T) {
	fx := newFixture(DefaultConfig())
	// the help template declares a required slot, but direct intents skip
	// slot gating instead of asking a clarifying question
	fx.classifier.result = topIntent("help", 0.90)

	resp, err := fx.pipe.Process(context.Background(), chatReq("r-15", "tolong bantu"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Trace.Terminal == TerminalClarify {
		t.Fatal("direct intents must not produce a clarify terminal")
	}
	if resp.Trace.Terminal != TerminalGenericFallback {
		t.Errorf("expected generic_fallback, got %s", resp.Trace.Terminal)
	}
}

// #endregion

// #region determinism-tests

func TestProcess_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetrievalThreshold = 0.60
	fx := newFixture(cfg)
	fx.classifier.result = nlu.IntentResult{Candidates: []nlu.IntentCandidate{
		{Intent: "info_umum", Confidence: 0.42},
		{Intent: "panduan_krs", Confidence: 0.31},
	}}
	fx.extractor.entities = []nlu.EntityMatch{
		{Type: "mata_kuliah", Text: "KRS", Start: 24, End: 27, Confidence: 0.61},
	}
	fx.retriever.docs = krsDocs()
	req := chatReq("r-16", "Bagaimana cara mengisi KRS?")

	first, err := fx.pipe.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstRaw, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := fx.pipe.Process(context.Background(), req)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		againRaw, err := json.Marshal(again)
		if err != nil {
			t.Fatalf("run %d: marshal: %v", i, err)
		}
		if !bytes.Equal(firstRaw, againRaw) {
			t.Fatalf("run %d: response changed:\n%s\nvs\n%s", i, firstRaw, againRaw)
		}
	}
}

// #endregion

// #region trace-log-tests

func TestProcess_WritesDecisionLog(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store, err := logging.NewTraceStore(db)
	if err != nil {
		t.Fatalf("new trace store: %v", err)
	}

	cfg := DefaultConfig()
	cfg.RetrievalThreshold = 0.60
	fx := newFixture(cfg)
	fx.pipe = NewPipeline(fx.classifier, fx.extractor, fx.retriever, template.NewEngine(testSnapshot()), store, cfg)
	fx.classifier.result = topIntent("info_umum", 0.30)
	fx.retriever.docs = krsDocs()

	if _, err := fx.pipe.Process(context.Background(), chatReq("r-17", "Bagaimana cara mengisi KRS?")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := store.Recent(1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 logged entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.RequestID != "r-17" {
		t.Errorf("expected request r-17, got %q", entry.RequestID)
	}
	if entry.Terminal != string(TerminalRetrievalMatch) {
		t.Errorf("expected terminal retrieval_match, got %q", entry.Terminal)
	}
	if entry.ElapsedMs < 0 {
		t.Errorf("elapsed must be non-negative, got %d", entry.ElapsedMs)
	}

	var record logging.TraceRecord
	if err := json.Unmarshal([]byte(entry.RecordJSON), &record); err != nil {
		t.Fatalf("record_json must be valid JSON: %v", err)
	}
	if record.UserText != "Bagaimana cara mengisi KRS?" {
		t.Errorf("unexpected user_text in record: %q", record.UserText)
	}
	if len(record.Docs) != 3 {
		t.Errorf("expected 3 recorded docs, got %d", len(record.Docs))
	}
	if record.Thresholds.IntentThreshold != cfg.IntentThreshold {
		t.Errorf("expected intent threshold %v, got %v", cfg.IntentThreshold, record.Thresholds.IntentThreshold)
	}
}

// #endregion

// #region helper-tests

func TestSlotValues(t *testing.T) {
	entities := []nlu.EntityMatch{
		{Type: "mata_kuliah", Text: "Basis Data", Start: 0, End: 10},
		{Type: "dosen", Text: "Fonda", Start: 15, End: 20},
		{Type: "mata_kuliah", Text: "Algoritma", Start: 25, End: 34},
	}
	slots := slotValues(entities)
	if slots["MATA_KULIAH"] != "Basis Data" {
		t.Errorf("first span of a type must win, got %q", slots["MATA_KULIAH"])
	}
	if slots["DOSEN"] != "Fonda" {
		t.Errorf("expected Fonda, got %q", slots["DOSEN"])
	}
	if len(slots) != 2 {
		t.Errorf("expected 2 slots, got %d", len(slots))
	}
}

// #endregion
