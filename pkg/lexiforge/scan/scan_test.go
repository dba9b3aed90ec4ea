package scan

import (
	"context"
	"testing"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/rules"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store/memstore"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/translator"
)

func mustCompile(t *testing.T, spec rules.Spec) *rules.RuleSet {
	t.Helper()
	rs, err := rules.Compile(spec)
	if err != nil {
		t.Fatalf("rules.Compile: %v", err)
	}
	return rs
}

func TestScanSplitsMatchedAndUnmatchedRuns(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTerms(ctx, []store.TermRow{
		{Dictionary: "D", Expression: "cat", Reading: "cat", Glossary: []store.GlossaryEntry{{Text: "a cat"}}},
	}); err != nil {
		t.Fatalf("InsertTerms: %v", err)
	}

	spec := rules.Spec{Language: "en", Conditions: map[string]rules.CondSpec{"v": {IsDictionaryForm: true}}}
	pack := translator.NewLanguagePack(mustCompile(t, spec), nil, nil, nil)
	tr := translator.New(s, 64, pack)

	segments, err := Scan(ctx, tr, "xx cat yy", "en", translator.EnabledDictionaryMap{"D": {Index: 0}}, 20)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	var matched []string
	for _, seg := range segments {
		if seg.Matched {
			matched = append(matched, seg.Text)
		}
	}
	if len(matched) != 1 || matched[0] != "cat" {
		t.Fatalf("matched segments = %+v, want exactly one 'cat'", matched)
	}

	var rebuilt string
	for _, seg := range segments {
		rebuilt += seg.Text
	}
	if rebuilt != "xx cat yy" {
		t.Fatalf("segments do not reconstruct the input: got %q", rebuilt)
	}
}

func TestScanEmptyTextReturnsNoSegments(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	spec := rules.Spec{Language: "en", Conditions: map[string]rules.CondSpec{"v": {IsDictionaryForm: true}}}
	pack := translator.NewLanguagePack(mustCompile(t, spec), nil, nil, nil)
	tr := translator.New(s, 64, pack)

	segments, err := Scan(ctx, tr, "", "en", translator.EnabledDictionaryMap{"D": {Index: 0}}, 20)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(segments) != 0 {
		t.Fatalf("segments = %+v, want none for empty input", segments)
	}
}

func TestScanSingleCharacterJapaneseMatch(t *testing.T) {
	// A one-code-point Japanese match is accepted even though a
	// one-code-point match in a non-Japanese script is not.
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTerms(ctx, []store.TermRow{
		{Dictionary: "D", Expression: "猫", Reading: "ねこ", Glossary: []store.GlossaryEntry{{Text: "cat"}}},
	}); err != nil {
		t.Fatalf("InsertTerms: %v", err)
	}

	spec := rules.Spec{Language: "ja", Conditions: map[string]rules.CondSpec{"v": {IsDictionaryForm: true}}}
	pack := translator.NewLanguagePack(mustCompile(t, spec), nil, nil, nil)
	pack.ReadingNormalizer = translator.IdentityReadingNormalizer
	tr := translator.New(s, 64, pack)

	segments, err := Scan(ctx, tr, "猫", "ja", translator.EnabledDictionaryMap{"D": {Index: 0}}, 20)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(segments) != 1 || !segments[0].Matched || segments[0].Text != "猫" {
		t.Fatalf("segments = %+v, want single matched 猫 segment", segments)
	}
}
