package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/filkom-ub/chatbot/go-orchestrator/internal/kb"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// #region fakes

type fakeProcessor struct {
	resp    pipeline.ChatResponse
	err     error
	calls   int
	lastReq pipeline.ChatRequest
}

func (f *fakeProcessor) Process(ctx context.Context, req pipeline.ChatRequest) (pipeline.ChatResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return pipeline.ChatResponse{}, f.err
	}
	resp := f.resp
	resp.RequestID = req.RequestID
	return resp, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) Health(ctx context.Context) error { return f.err }

func templateResponse() pipeline.ChatResponse {
	return pipeline.ChatResponse{
		ReplyText:  "Mata kuliah Machine Learning diampu oleh Hendry Fonda.",
		Source:     pipeline.SourceTemplate,
		Intent:     "dosen_pengampu",
		Confidence: 0.93,
		Trace:      pipeline.Trace{Terminal: pipeline.TerminalIntentMatch},
	}
}

func newTestRouter(proc Processor) *gin.Engine {
	h := NewHandler(proc, nil, nil, nil, nil, pipeline.DefaultConfig())
	return NewRouter(h)
}

type gotProcess struct {
	RequestID    string  `json:"request_id"`
	Reply        string  `json:"reply"`
	Source       string  `json:"source"`
	Confidence   float32 `json:"confidence"`
	Intent       string  `json:"intent"`
	ProcessingMs int64   `json:"processing_ms"`
}

func decodeProcess(t *testing.T, w *httptest.ResponseRecorder) gotProcess {
	t.Helper()
	var got gotProcess
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, w.Body.String())
	}
	return got
}

// #endregion fakes

// #region process-tests

func TestProcess_OK(t *testing.T) {
	proc := &fakeProcessor{resp: templateResponse()}
	router := newTestRouter(proc)

	body := bytes.NewBufferString(`{"message": "Siapa dosen pengampu mata kuliah Machine Learning?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/process", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", w.Code, w.Body.String())
	}

	got := decodeProcess(t, w)
	if got.RequestID == "" {
		t.Error("expected a generated request_id")
	}
	if got.Reply != "Mata kuliah Machine Learning diampu oleh Hendry Fonda." {
		t.Errorf("unexpected reply %q", got.Reply)
	}
	if got.Source != "template" || got.Intent != "dosen_pengampu" {
		t.Errorf("unexpected source/intent: %s/%s", got.Source, got.Intent)
	}
	if got.ProcessingMs < 0 {
		t.Errorf("expected non-negative processing_ms, got %d", got.ProcessingMs)
	}
	if proc.calls != 1 {
		t.Errorf("expected 1 processor call, got %d", proc.calls)
	}
	if proc.lastReq.UserText != "Siapa dosen pengampu mata kuliah Machine Learning?" {
		t.Errorf("unexpected user text forwarded: %q", proc.lastReq.UserText)
	}
}

func TestProcess_BadJSON(t *testing.T) {
	proc := &fakeProcessor{resp: templateResponse()}
	router := newTestRouter(proc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/process", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if proc.calls != 0 {
		t.Errorf("expected no processor calls, got %d", proc.calls)
	}
}

func TestProcess_StructuralError(t *testing.T) {
	proc := &fakeProcessor{err: &pipeline.StructuralError{Field: "user_text", Reason: "must not be empty"}}
	router := newTestRouter(proc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/process", bytes.NewBufferString(`{"message": ""}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body %s)", w.Code, w.Body.String())
	}

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if got["field"] != "user_text" {
		t.Errorf("expected field user_text, got %v", got["field"])
	}
	if got["error"] == "" || got["error"] == nil {
		t.Error("expected an error message")
	}
}

func TestProcess_InternalError(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("boom")}
	router := newTestRouter(proc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/process", bytes.NewBufferString(`{"message": "halo"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestProcess_QueryVariant(t *testing.T) {
	proc := &fakeProcessor{resp: templateResponse()}
	router := newTestRouter(proc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/process?message=Jadwal+kuliah+Basis+Data+hari+apa%3F", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if proc.lastReq.UserText != "Jadwal kuliah Basis Data hari apa?" {
		t.Errorf("unexpected user text forwarded: %q", proc.lastReq.UserText)
	}
}

func TestProcess_HonorsRequestIDHeader(t *testing.T) {
	proc := &fakeProcessor{resp: templateResponse()}
	router := newTestRouter(proc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/process", bytes.NewBufferString(`{"message": "halo"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-fixed-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	got := decodeProcess(t, w)
	if got.RequestID != "req-fixed-42" {
		t.Errorf("expected request_id req-fixed-42, got %s", got.RequestID)
	}
	if w.Header().Get("X-Request-ID") != "req-fixed-42" {
		t.Errorf("expected request id echoed in header, got %q", w.Header().Get("X-Request-ID"))
	}
}

// #endregion process-tests

// #region demo-tests

func TestDemo_RunsAllQuestions(t *testing.T) {
	proc := &fakeProcessor{resp: templateResponse()}
	router := newTestRouter(proc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/demo", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if proc.calls != len(demoQuestions) {
		t.Errorf("expected %d processor calls, got %d", len(demoQuestions), proc.calls)
	}

	var got struct {
		RequestID string       `json:"request_id"`
		Questions []string     `json:"questions"`
		Results   []gotProcess `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode demo body: %v", err)
	}
	if len(got.Results) != len(demoQuestions) {
		t.Errorf("expected %d results, got %d", len(demoQuestions), len(got.Results))
	}
	if len(got.Results) > 0 && got.Results[0].RequestID == got.RequestID {
		t.Error("expected per-question request ids derived from the base id")
	}
}

func TestDemo_SkipsFailedQuestions(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("collaborators down")}
	router := newTestRouter(proc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/demo", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got struct {
		Results []gotProcess `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode demo body: %v", err)
	}
	if len(got.Results) != 0 {
		t.Errorf("expected no results when every question fails, got %d", len(got.Results))
	}
}

// #endregion demo-tests

// #region status-tests

func TestStatus_Collaborators(t *testing.T) {
	snap := kb.NewSnapshot(kb.ImportData{
		Dosen: map[string]kb.Dosen{
			"hendry_fonda": {NamaLengkap: "Hendry Fonda"},
		},
	})
	h := NewHandler(&fakeProcessor{resp: templateResponse()}, snap, nil,
		fakeHealth{}, fakeHealth{err: errors.New("connection refused")}, pipeline.DefaultConfig())
	router := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var got struct {
		Service    string `json:"service"`
		Thresholds struct {
			Intent    float32 `json:"intent"`
			Retrieval float32 `json:"retrieval"`
		} `json:"thresholds"`
		KB struct {
			Dosen int `json:"dosen"`
		} `json:"kb"`
		Collaborators map[string]collaboratorStatus `json:"collaborators"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode status body: %v", err)
	}
	if got.Service != "go-orchestrator" {
		t.Errorf("unexpected service name %q", got.Service)
	}
	if got.Thresholds.Intent != 0.85 || got.Thresholds.Retrieval != 0.7 {
		t.Errorf("unexpected thresholds: %+v", got.Thresholds)
	}
	if got.KB.Dosen != 1 {
		t.Errorf("expected 1 dosen in kb stats, got %d", got.KB.Dosen)
	}
	if got.Collaborators["nlu"].Status != "ok" {
		t.Errorf("expected nlu ok, got %+v", got.Collaborators["nlu"])
	}
	if got.Collaborators["search"].Status != "unreachable" {
		t.Errorf("expected search unreachable, got %+v", got.Collaborators["search"])
	}
}

func TestStatus_NotConfigured(t *testing.T) {
	router := newTestRouter(&fakeProcessor{resp: templateResponse()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var got struct {
		Collaborators map[string]collaboratorStatus `json:"collaborators"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode status body: %v", err)
	}
	if got.Collaborators["nlu"].Status != "not_configured" {
		t.Errorf("expected nlu not_configured, got %+v", got.Collaborators["nlu"])
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeProcessor{resp: templateResponse()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if got["status"] != "ok" {
		t.Errorf("expected status ok, got %q", got["status"])
	}
}

// #endregion status-tests
