package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/filkom-ub/chatbot/go-orchestrator/internal/kb"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/logging"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to chatbot.db")
	last := flag.Int("last", 20, "show N most recent decisions")
	request := flag.String("request", "", "show single request detail")
	kbStats := flag.Bool("kb", false, "include knowledge base table counts")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/chatbot.db [--last N] [--request id] [--kb] [--json]")
		os.Exit(2)
	}

	store, err := kb.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	traces, err := logging.NewTraceStore(store.DB())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open decision log: %v\n", err)
		os.Exit(1)
	}

	if *request != "" {
		err = runDetailMode(traces, *request, *jsonOut)
	} else {
		err = runListMode(traces, store, *last, *kbStats, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	RequestID  string  `json:"request_id"`
	Intent     string  `json:"intent"`
	Confidence float32 `json:"confidence"`
	Terminal   string  `json:"terminal"`
	Source     string  `json:"source"`
	ElapsedMs  int64   `json:"elapsed_ms"`
	CreatedAt  string  `json:"created_at"`
	UserText   string  `json:"user_text"`
}

type listOutput struct {
	Decisions []listRow      `json:"decisions"`
	Terminals map[string]int `json:"terminals"`
	KB        map[string]int `json:"kb,omitempty"`
}

func runListMode(traces *logging.TraceStore, store *kb.Store, last int, kbStats, jsonOut bool) error {
	entries, err := traces.Recent(last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions logged")
		return nil
	}

	// store returns DESC, reverse for chronological
	rows := make([]listRow, len(entries))
	for i, e := range entries {
		rows[len(entries)-1-i] = listRow{
			RequestID:  e.RequestID,
			Intent:     e.Intent,
			Confidence: e.Confidence,
			Terminal:   e.Terminal,
			Source:     e.Source,
			ElapsedMs:  e.ElapsedMs,
			CreatedAt:  e.CreatedAt.Format("2006-01-02T15:04:05Z"),
			UserText:   e.UserText,
		}
	}

	terminals, err := traces.TerminalCounts()
	if err != nil {
		return err
	}

	out := listOutput{Decisions: rows, Terminals: terminals}
	if kbStats {
		counts, err := store.Counts()
		if err != nil {
			return err
		}
		out.KB = counts
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("%-12s  %-18s  %5s  %-17s  %-10s  %6s  %s\n",
		"Request", "Intent", "Conf", "Terminal", "Source", "Ms", "Time")
	fmt.Printf("%-12s+-%-18s+-%5s+-%-17s+-%-10s+-%6s+-%s\n",
		"------------", "------------------", "-----", "-----------------", "----------", "------", "--------------------")
	for _, r := range rows {
		intent := r.Intent
		if intent == "" {
			intent = "—"
		}
		fmt.Printf("%-12s  %-18s  %5.2f  %-17s  %-10s  %6d  %s\n",
			shortID(r.RequestID), intent, r.Confidence, r.Terminal, r.Source, r.ElapsedMs, r.CreatedAt)
	}

	fmt.Printf("\nTerminal distribution:\n")
	printCounts(terminals)

	if out.KB != nil {
		fmt.Printf("\nKnowledge base tables:\n")
		printCounts(out.KB)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(traces *logging.TraceStore, requestID string, jsonOut bool) error {
	entries, err := traces.Get(requestID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("request %s not found", requestID)
	}
	entry := entries[0]

	var record *logging.TraceRecord
	if entry.RecordJSON != "" {
		var r logging.TraceRecord
		if err := json.Unmarshal([]byte(entry.RecordJSON), &r); err == nil {
			record = &r
		}
	}

	if jsonOut {
		if record != nil {
			return printJSON(record)
		}
		return printJSON(entry)
	}

	fmt.Printf("Request:    %s\n", entry.RequestID)
	fmt.Printf("Text:       %s\n", entry.UserText)
	fmt.Printf("Intent:     %s\n", orDash(entry.Intent))
	fmt.Printf("Confidence: %.2f\n", entry.Confidence)
	fmt.Printf("Terminal:   %s\n", entry.Terminal)
	fmt.Printf("Source:     %s\n", entry.Source)
	fmt.Printf("Elapsed:    %d ms\n", entry.ElapsedMs)
	fmt.Printf("Created:    %s\n", entry.CreatedAt.Format("2006-01-02T15:04:05Z"))

	if record == nil {
		fmt.Println("\n(no decision record stored)")
		return nil
	}

	if len(record.IntentCandidates) > 0 {
		fmt.Printf("\nIntent candidates:\n")
		for _, c := range record.IntentCandidates {
			fmt.Printf("  %-24s %.4f\n", c.Intent, c.Confidence)
		}
	}
	if record.ClassifierFailed {
		fmt.Println("\nClassifier: FAILED")
	}

	if len(record.Entities) > 0 {
		fmt.Printf("\nEntities:\n")
		for _, e := range record.Entities {
			fmt.Printf("  %-16s %-24q [%d:%d] %.4f\n", e.Type, e.Text, e.Start, e.End, e.Confidence)
		}
	}
	if record.ExtractorFailed {
		fmt.Println("\nExtractor: FAILED")
	}

	if len(record.Docs) > 0 {
		fmt.Printf("\nRetrieved documents:\n")
		for _, d := range record.Docs {
			fmt.Printf("  %-16s fused=%.4f sparse=%.4f dense=%.4f\n", d.DocID, d.FusedScore, d.SparseScore, d.DenseScore)
		}
	}
	if record.RetrieverFailed {
		fmt.Println("\nRetriever: FAILED")
	}

	fmt.Printf("\nCascade steps:\n")
	for _, s := range record.Steps {
		detail := s.Detail
		if detail != "" {
			detail = "  (" + detail + ")"
		}
		fmt.Printf("  %-10s %-16s %.2f%s\n", s.Stage, s.Outcome, s.Confidence, detail)
	}

	fmt.Printf("\nThresholds: intent=%.2f retrieval=%.2f clarify=%.2f min_fused=%.2f\n",
		record.Thresholds.IntentThreshold, record.Thresholds.RetrievalThreshold,
		record.Thresholds.ClarifyConfidence, record.Thresholds.MinFusedScore)
	fmt.Printf("\nReply:\n  %s\n", record.ReplyText)
	return nil
}

// #endregion detail-mode

// #region output

func printCounts(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	total := 0
	for k, n := range counts {
		keys = append(keys, k)
		total += n
	}
	sort.Strings(keys)
	for _, name := range keys {
		fmt.Printf("  %-20s %d\n", name, counts[name])
	}
	fmt.Printf("  %-20s %d\n", "total", total)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// #endregion output
