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
	dbPath := flag.String("db", "", "path to chatbot.db")
	last := flag.Int("last", 10, "number of most recent decisions to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/chatbot.db --out path/to/fixture.json [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath string, last int, outPath string) error {
	store, err := kb.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	kbData, err := store.ExportData()
	if err != nil {
		return fmt.Errorf("export kb: %w", err)
	}

	traces, err := logging.NewTraceStore(store.DB())
	if err != nil {
		return fmt.Errorf("open decision log: %w", err)
	}
	entries, err := traces.Recent(last)
	if err != nil {
		return fmt.Errorf("read decision log: %w", err)
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
		return fmt.Errorf("no exportable decision records in last %d entries", last)
	}
	fmt.Printf("Found %d decision records\n", len(records))

	fixture, err := replay.FixtureFromRecords(
		fmt.Sprintf("Production export: %d decisions from the live decision log", len(records)),
		kbData,
		records,
	)
	if err != nil {
		return err
	}

	return writeFixture(fixture, outPath)
}

// #endregion extract

// #region output

func writeFixture(fixture *replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d interactions)\n", outPath, len(data), len(fixture.Interactions))
	return nil
}

// #endregion output
