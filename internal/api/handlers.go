package api

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/filkom-ub/chatbot/go-orchestrator/internal/kb"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/logging"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/pipeline"
)

// #endregion

// #region handler

// Processor is the cascade boundary the HTTP layer drives.
type Processor interface {
	Process(ctx context.Context, req pipeline.ChatRequest) (pipeline.ChatResponse, error)
}

// HealthChecker reports collaborator liveness.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler serves the chat API. All fields except the processor may be
// nil; the matching status sections are then omitted or reported as
// not configured.
type Handler struct {
	pipe     Processor
	snapshot *kb.Snapshot
	traces   *logging.TraceStore
	nlu      HealthChecker
	search   HealthChecker
	cfg      pipeline.Config
	started  time.Time
}

// NewHandler wires the HTTP surface around a processor.
func NewHandler(pipe Processor, snapshot *kb.Snapshot, traces *logging.TraceStore, nluHealth, searchHealth HealthChecker, cfg pipeline.Config) *Handler {
	return &Handler{
		pipe:     pipe,
		snapshot: snapshot,
		traces:   traces,
		nlu:      nluHealth,
		search:   searchHealth,
		cfg:      cfg,
		started:  time.Now(),
	}
}

// #endregion handler

// #region chat

// demoQuestions are the canned questions behind the demo endpoint. They
// cover the template, clarify, and retrieval paths against a populated KB.
var demoQuestions = []string{
	"Siapa dosen pengampu mata kuliah Machine Learning?",
	"Jadwal kuliah Basis Data hari apa?",
	"Berapa SKS mata kuliah Algoritma dan Pemrograman?",
	"Kontak dosen Hendry Fonda",
	"Syarat untuk mengambil skripsi",
}

type processRequest struct {
	Message string `json:"message"`
}

type processResponse struct {
	RequestID    string  `json:"request_id"`
	Reply        string  `json:"reply"`
	Source       string  `json:"source"`
	Confidence   float32 `json:"confidence"`
	Intent       string  `json:"intent"`
	ProcessingMs int64   `json:"processing_ms"`
}

func (h *Handler) handleProcess(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	h.process(c, req.Message, RequestIDFrom(c))
}

// handleProcessQuery is the browser-testing variant of handleProcess.
func (h *Handler) handleProcessQuery(c *gin.Context) {
	h.process(c, c.Query("message"), RequestIDFrom(c))
}

func (h *Handler) process(c *gin.Context, message, requestID string) {
	start := time.Now()
	req := pipeline.ChatRequest{
		RequestID:  requestID,
		UserText:   message,
		ReceivedAt: start,
	}

	resp, err := h.pipe.Process(c.Request.Context(), req)
	if err != nil {
		var serr *pipeline.StructuralError
		if errors.As(err, &serr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"request_id": requestID,
				"error":      serr.Error(),
				"field":      serr.Field,
			})
			return
		}
		log.Printf("[API] process %s failed: %v", requestID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"request_id": requestID,
			"error":      "internal error",
		})
		return
	}

	c.JSON(http.StatusOK, processResponse{
		RequestID:    resp.RequestID,
		Reply:        resp.ReplyText,
		Source:       string(resp.Source),
		Confidence:   resp.Confidence,
		Intent:       resp.Intent,
		ProcessingMs: time.Since(start).Milliseconds(),
	})
}

func (h *Handler) handleDemo(c *gin.Context) {
	baseID := RequestIDFrom(c)
	results := make([]processResponse, 0, len(demoQuestions))

	for i, question := range demoQuestions {
		start := time.Now()
		req := pipeline.ChatRequest{
			RequestID:  fmt.Sprintf("%s-demo-%d", baseID, i+1),
			UserText:   question,
			ReceivedAt: start,
		}
		resp, err := h.pipe.Process(c.Request.Context(), req)
		if err != nil {
			log.Printf("[API] demo question %d failed: %v", i+1, err)
			continue
		}
		results = append(results, processResponse{
			RequestID:    resp.RequestID,
			Reply:        resp.ReplyText,
			Source:       string(resp.Source),
			Confidence:   resp.Confidence,
			Intent:       resp.Intent,
			ProcessingMs: time.Since(start).Milliseconds(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"request_id": baseID,
		"questions":  demoQuestions,
		"results":    results,
	})
}

// #endregion chat

// #region status

type collaboratorStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) checkCollaborator(ctx context.Context, hc HealthChecker) collaboratorStatus {
	if hc == nil {
		return collaboratorStatus{Status: "not_configured"}
	}
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := hc.Health(pctx); err != nil {
		return collaboratorStatus{Status: "unreachable", Error: err.Error()}
	}
	return collaboratorStatus{Status: "ok"}
}

func (h *Handler) handleStatus(c *gin.Context) {
	body := gin.H{
		"service":  "go-orchestrator",
		"uptime_s": int64(time.Since(h.started).Seconds()),
		"thresholds": gin.H{
			"intent":    h.cfg.IntentThreshold,
			"retrieval": h.cfg.RetrievalThreshold,
			"clarify":   h.cfg.ClarifyConfidence,
			"min_fused": h.cfg.Fusion.MinFusedScore,
		},
		"collaborators": gin.H{
			"nlu":    h.checkCollaborator(c.Request.Context(), h.nlu),
			"search": h.checkCollaborator(c.Request.Context(), h.search),
		},
	}

	if h.snapshot != nil {
		body["kb"] = h.snapshot.Stats()
	}
	if h.traces != nil {
		counts, err := h.traces.TerminalCounts()
		if err != nil {
			log.Printf("[API] terminal counts failed: %v", err)
		} else {
			body["terminals"] = counts
		}
	}

	c.JSON(http.StatusOK, body)
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// #endregion status
