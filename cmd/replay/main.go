package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/filkom-ub/chatbot/go-orchestrator/internal/kb"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/logging"
	"github.com/filkom-ub/chatbot/go-orchestrator/internal/replay"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to chatbot.db (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	last := flag.Int("last", 20, "number of most recent decisions to replay in DB mode")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/chatbot.db [--last N]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *last)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	if f.Description != "" {
		fmt.Printf("Fixture: %s\n\n", f.Description)
	}

	results, err := replay.Replay(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	return printComparison(results)
}

// #endregion fixture-mode

// #region db-mode

// runDBMode rebuilds a fixture from the decision log and the KB tables
// of a live database, then replays it in memory.
func runDBMode(dbPath string, last int) int {
	store, err := kb.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	f, err := fixtureFromDB(store, last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	fmt.Printf("Replaying %d decisions from %s\n\n", len(f.Interactions), dbPath)

	results, err := replay.Replay(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	return printComparison(results)
}

// fixtureFromDB exports the KB and the last N decision records into an
// in-memory fixture. Records without a stored decision record are
// skipped; they predate record_json or were truncated.
func fixtureFromDB(store *kb.Store, last int) (*replay.Fixture, error) {
	kbData, err := store.ExportData()
	if err != nil {
		return nil, fmt.Errorf("export kb: %w", err)
	}

	traces, err := logging.NewTraceStore(store.DB())
	if err != nil {
		return nil, fmt.Errorf("open decision log: %w", err)
	}
	entries, err := traces.Recent(last)
	if err != nil {
		return nil, fmt.Errorf("read decision log: %w", err)
	}

	// store returns DESC, reverse for chronological
	var records []logging.TraceRecord
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].RecordJSON == "" {
			continue
		}
		var r logging.TraceRecord
		if err := json.Unmarshal([]byte(entries[i].RecordJSON), &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no replayable decision records in last %d entries", last)
	}

	return replay.FixtureFromRecords(
		fmt.Sprintf("DB export: %d decisions", len(records)),
		kbData,
		records,
	)
}

// #endregion db-mode

// #region output

// printComparison outputs a comparison table and returns the exit code:
// 0 when every interaction matches and is deterministic, 1 otherwise.
func printComparison(results []replay.Result) int {
	fmt.Printf("%-14s| %-18s| %-18s| %-6s| %s\n", "Request", "Expected", "Replayed", "Match", "Det")
	fmt.Printf("%-14s+%-19s+%-19s+%-7s+%s\n",
		"--------------", "-------------------", "-------------------", "-------", "-----")

	for _, r := range results {
		expected := r.Expected
		if expected == "" {
			expected = "—"
		}
		match := "DIFF"
		if r.Match {
			match = "OK"
		}
		det := "OK"
		if !r.Deterministic {
			det = "DIFF"
		}
		fmt.Printf("%-14s| %-18s| %-18s| %-6s| %s\n", shortID(r.RequestID), expected, r.Terminal, match, det)
	}

	s := replay.Summarize(results)
	nondeterministic := 0
	for _, r := range results {
		if !r.Deterministic {
			nondeterministic++
		}
	}
	fmt.Printf("\nSummary: %d total, %d match, %d diverge, %d non-deterministic\n",
		s.Total, s.Matched, s.Mismatched, nondeterministic)

	if s.Mismatched > 0 || nondeterministic > 0 {
		return 1
	}
	return 0
}

func shortID(id string) string {
	if len(id) > 14 {
		return id[:14]
	}
	return id
}

// #endregion output
