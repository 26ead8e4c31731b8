package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/filkom-ub/chatbot/go-orchestrator/internal/api"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/config"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/kb"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/logging"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/nlu"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/pipeline"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/search"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/template"
)

// #region main
func main() {
	cfg := config.Load()

	logger := logging.Setup(logging.Options{
		FilePath:   cfg.LogFile,
		JSONFormat: cfg.LogJSON,
		Level:      cfg.LogLevel,
		MaxSizeMB:  cfg.LogMaxMB,
		MaxBackups: cfg.LogBackups,
		MaxAgeDays: cfg.LogMaxDays,
	})

	store, err := kb.NewStore(cfg.DBPath)
	if err != nil {
		logger.Fatalf("open knowledge base %s: %v", cfg.DBPath, err)
	}
	defer store.Close()

	snapshot, err := store.LoadSnapshot()
	if err != nil {
		logger.Fatalf("load knowledge base snapshot: %v", err)
	}
	snapshot.SetAliasCutoff(float64(cfg.AliasCutoff))
	stats := snapshot.Stats()
	logger.WithFields(logrus.Fields{
		"dosen":       stats.Dosen,
		"mata_kuliah": stats.MataKuliah,
		"jadwal":      stats.Jadwal,
		"templates":   stats.Templates,
	}).Info("knowledge base loaded")
	if stats.Templates == 0 {
		logger.Warn("no response templates loaded, every confident intent will cascade to retrieval")
	}

	traces, err := logging.NewTraceStore(store.DB())
	if err != nil {
		logger.Fatalf("init decision log: %v", err)
	}

	nluClient := nlu.NewClient(cfg.NLUAddr)
	searchClient := search.NewClient(cfg.SearchAddr)
	probeCollaborators(logger, nluClient, searchClient)

	renderer := template.NewEngine(snapshot)

	pipeCfg := pipeline.Config{
		IntentThreshold:    cfg.IntentThreshold,
		RetrievalThreshold: cfg.RetrievalThreshold,
		ClarifyConfidence:  cfg.ClarifyConfidence,
		Fusion: search.FusionConfig{
			SparseWeight:  cfg.SparseWeight,
			DenseWeight:   cfg.DenseWeight,
			MinFusedScore: cfg.MinFusedScore,
			TopK:          cfg.TopK,
		},
		IntentTimeout:    cfg.IntentTimeout,
		EntityTimeout:    cfg.EntityTimeout,
		SearchTimeout:    cfg.SearchTimeout,
		MaxMessageLen:    cfg.MaxMessageLen,
		FallbackMessages: cfg.FallbackMessages,
		ClarifyFormat:    cfg.ClarifyFormat,
	}
	pipe := pipeline.NewPipeline(nluClient, nluClient, searchClient, renderer, traces, pipeCfg)

	gin.SetMode(cfg.GinMode)
	handler := api.NewHandler(pipe, snapshot, traces, nluClient, searchClient, pipeCfg)
	router := api.NewRouter(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	logger.WithFields(logrus.Fields{
		"addr":                addr,
		"nlu":                 cfg.NLUAddr,
		"search":              cfg.SearchAddr,
		"intent_threshold":    cfg.IntentThreshold,
		"retrieval_threshold": cfg.RetrievalThreshold,
	}).Info("chat service listening")
	if err := router.Run(addr); err != nil {
		logger.Fatalf("server: %v", err)
	}
}

// #endregion main

// #region probe

// probeCollaborators logs the reachability of the model services at
// startup. Both are optional at boot; the cascade degrades per stage
// when one is down.
func probeCollaborators(logger *logrus.Logger, nluClient *nlu.Client, searchClient *search.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := nluClient.Health(ctx); err != nil {
		logger.Warnf("nlu service unreachable, intent and entity stages will degrade: %v", err)
	} else {
		logger.Info("nlu service reachable")
	}
	if err := searchClient.Health(ctx); err != nil {
		logger.Warnf("search service unreachable, retrieval stage will degrade: %v", err)
	} else {
		logger.Info("search service reachable")
	}
}

// #endregion probe
