// Command lexiforge is a demo CLI for the lookup core: load a language
// pack, seed a small SQLite dictionary, and run findTerms against one
// query string. It is not a dictionary importer — it seeds rows
// directly via the store's bulk-insert surface for demonstration.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/langpack"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store/sqlite"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/translator"
)

func main() {
	var (
		langPackPath = flag.String("langpack", "", "Path to a language pack YAML file (required)")
		dbPath       = flag.String("db", "", "Path to the SQLite database file (created and seeded if missing)")
		query        = flag.String("query", "", "Term to look up (required)")
		mode         = flag.String("mode", "group", "findTerms mode: group, term, merge, or simple")
	)
	flag.Parse()

	if *langPackPath == "" {
		log.Fatal("--langpack required")
	}
	if *query == "" {
		log.Fatal("--query required")
	}
	if *dbPath == "" {
		log.Fatal("--db required")
	}

	ctx := context.Background()
	start := time.Now()

	pack, err := langpack.Load(*langPackPath)
	if err != nil {
		log.Fatalf("load language pack: %v", err)
	}

	s, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer s.Close()

	seeded, err := seedDemoDictionary(ctx, s, pack.Language)
	if err != nil {
		log.Fatalf("seed demo dictionary: %v", err)
	}

	tr := translator.New(s, 256, pack)
	entries, err := tr.FindTerms(ctx, *query, translator.Options{
		Language:             pack.Language,
		Deinflect:            true,
		Mode:                 translator.Mode(*mode),
		MatchType:            store.MatchPrefix,
		SearchResolution:     translator.ResolutionLetter,
		EnabledDictionaryMap: translator.EnabledDictionaryMap{"demo": {Index: 0}},
	})
	if err != nil {
		log.Fatalf("find terms: %v", err)
	}

	elapsed := time.Since(start)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Printf("%s dictionary rows, %d results in %s\n", humanize.Comma(int64(seeded)), len(entries), elapsed.Round(time.Millisecond))
	}

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		log.Fatalf("marshal entries: %v", err)
	}
	fmt.Println(string(out))
}

// seedDemoDictionary inserts a handful of rows covering the language
// pack's dictionary-form conditions, skipping re-insertion if the demo
// dictionary already exists.
func seedDemoDictionary(ctx context.Context, s store.Store, language string) (int, error) {
	var rows []store.TermRow
	switch language {
	case "ja":
		rows = []store.TermRow{
			{Dictionary: "demo", Expression: "見る", Reading: "みる", Glossary: []store.GlossaryEntry{{Text: "to see"}}},
			{Dictionary: "demo", Expression: "食べる", Reading: "たべる", Glossary: []store.GlossaryEntry{{Text: "to eat"}}},
		}
	default:
		rows = []store.TermRow{
			{Dictionary: "demo", Expression: "walk", Reading: "walk", Glossary: []store.GlossaryEntry{{Text: "to walk"}}},
			{Dictionary: "demo", Expression: "cat", Reading: "cat", Glossary: []store.GlossaryEntry{{Text: "a cat"}}},
		}
	}

	if _, ok, err := s.GetDictionary(ctx, "demo"); err != nil {
		return 0, err
	} else if ok {
		return len(rows), nil
	}

	if _, err := s.CreateDictionary(ctx, store.Dictionary{Title: "demo", Revision: "1"}); err != nil {
		return 0, err
	}
	if err := s.InsertTerms(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
