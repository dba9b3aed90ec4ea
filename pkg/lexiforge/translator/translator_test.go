package translator

import (
	"context"
	"testing"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/rules"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store/memstore"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/textproc"
)

func mustCompile(t *testing.T, spec rules.Spec) *rules.RuleSet {
	t.Helper()
	rs, err := rules.Compile(spec)
	if err != nil {
		t.Fatalf("rules.Compile: %v", err)
	}
	return rs
}

// englishPack builds a minimal rule set: a single "past" suffix
// transform over a v/vp condition pair, with no text processors.
func englishPack(t *testing.T) *LanguagePack {
	t.Helper()
	spec := rules.Spec{
		Language: "en",
		Conditions: map[string]rules.CondSpec{
			"v":  {IsDictionaryForm: true},
			"vp": {},
		},
		Transforms: []rules.TransformSpec{
			{
				ID:   "past",
				Name: "past tense",
				Rules: []rules.RuleSpec{
					{Type: rules.TypeSuffix, Suffix: "ed", Replacement: "", ConditionsIn: []string{"vp"}, ConditionsOut: []string{"v"}},
				},
			},
		},
	}
	return NewLanguagePack(mustCompile(t, spec), nil, nil, nil)
}

func sequencePtr(v int64) *int64 { return &v }

func TestFindTermsEmptyInput(t *testing.T) {
	tr := New(memstore.New(), 64, englishPack(t))
	got, err := tr.FindTerms(context.Background(), "", Options{Language: "en", EnabledDictionaryMap: EnabledDictionaryMap{}})
	if err != nil {
		t.Fatalf("FindTerms: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil/empty result for empty input", got)
	}
}

func TestFindTermsUnsupportedLanguage(t *testing.T) {
	tr := New(memstore.New(), 64, englishPack(t))
	_, err := tr.FindTerms(context.Background(), "walked", Options{Language: "ja"})
	if err == nil {
		t.Fatalf("expected UnsupportedLanguage error")
	}
}

func TestFindTermsEnglishPastTenseDeinflection(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTerms(ctx, []store.TermRow{
		{Dictionary: "test", Expression: "walk", Reading: "walk", Glossary: []store.GlossaryEntry{{Text: "to walk"}}},
	}); err != nil {
		t.Fatalf("InsertTerms: %v", err)
	}

	tr := New(s, 64, englishPack(t))
	entries, err := tr.FindTerms(ctx, "walked", Options{
		Language:             "en",
		Deinflect:            true,
		Mode:                 ModeGroup,
		MatchType:            store.MatchExact,
		SearchResolution:     ResolutionLetter,
		EnabledDictionaryMap: EnabledDictionaryMap{"test": {Index: 0}},
	})
	if err != nil {
		t.Fatalf("FindTerms: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	if len(e.Headwords) != 1 || e.Headwords[0].Term != "walk" {
		t.Fatalf("headwords = %+v, want single 'walk' headword", e.Headwords)
	}
	if len(e.InflectionRuleChainCandidates) != 1 || len(e.InflectionRuleChainCandidates[0].Rules) != 1 {
		t.Fatalf("InflectionRuleChainCandidates = %+v, want one chain with one rule", e.InflectionRuleChainCandidates)
	}
	if e.InflectionRuleChainCandidates[0].Rules[0].Name != "past tense" {
		t.Fatalf("rule name = %q, want presented name %q", e.InflectionRuleChainCandidates[0].Rules[0].Name, "past tense")
	}
}

func TestFindTermsDeinflectFalseExactOnly(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTerms(ctx, []store.TermRow{
		{Dictionary: "test", Expression: "walked", Reading: "walked", Glossary: []store.GlossaryEntry{{Text: "past of walk"}}},
	}); err != nil {
		t.Fatalf("InsertTerms: %v", err)
	}

	tr := New(s, 64, englishPack(t))
	entries, err := tr.FindTerms(ctx, "walked", Options{
		Language:             "en",
		Deinflect:            false,
		MatchType:            store.MatchExact,
		EnabledDictionaryMap: EnabledDictionaryMap{"test": {Index: 0}},
	})
	if err != nil {
		t.Fatalf("FindTerms: %v", err)
	}
	if len(entries) != 1 || entries[0].Headwords[0].Term != "walked" {
		t.Fatalf("entries = %+v, want only exact 'walked' match", entries)
	}
}

func TestFindTermsNoEnabledDictionaryReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTerms(ctx, []store.TermRow{
		{Dictionary: "test", Expression: "walk", Reading: "walk", Glossary: []store.GlossaryEntry{{Text: "to walk"}}},
	}); err != nil {
		t.Fatalf("InsertTerms: %v", err)
	}

	tr := New(s, 64, englishPack(t))
	entries, err := tr.FindTerms(ctx, "walk", Options{
		Language:             "en",
		MatchType:            store.MatchExact,
		EnabledDictionaryMap: EnabledDictionaryMap{},
	})
	if err != nil {
		t.Fatalf("FindTerms: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %+v, want empty result with no enabled dictionaries", entries)
	}
}

func TestFindTermsRemoveNonJapaneseCharacters(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTerms(ctx, []store.TermRow{
		{Dictionary: "test", Expression: "猫", Reading: "ねこ", Glossary: []store.GlossaryEntry{{Text: "cat"}}},
	}); err != nil {
		t.Fatalf("InsertTerms: %v", err)
	}

	tr := New(s, 64, &LanguagePack{Language: "ja", Transformer: englishPack(t).Transformer, ReadingNormalizer: IdentityReadingNormalizer})
	entries, err := tr.FindTerms(ctx, "猫a", Options{
		Language:                    "ja",
		MatchType:                   store.MatchExact,
		RemoveNonJapaneseCharacters: true,
		EnabledDictionaryMap:        EnabledDictionaryMap{"test": {Index: 0}},
	})
	if err != nil {
		t.Fatalf("FindTerms: %v", err)
	}
	if len(entries) != 1 || entries[0].Headwords[0].Term != "猫" {
		t.Fatalf("entries = %+v, want truncation at non-Japanese rune to match 猫", entries)
	}
}

func TestFindTermsSequenceMerge(t *testing.T) {
	// Two rows sharing sequence=100 in the main
	// dictionary, plus a third row in a secondary-search dictionary
	// sharing the reading.
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTerms(ctx, []store.TermRow{
		{Dictionary: "D", Expression: "見る", Reading: "みる", Sequence: sequencePtr(100), Glossary: []store.GlossaryEntry{{Text: "to see"}}},
		{Dictionary: "D", Expression: "観る", Reading: "みる", Sequence: sequencePtr(100), Glossary: []store.GlossaryEntry{{Text: "to watch"}}},
		{Dictionary: "E", Expression: "観る", Reading: "みる", Glossary: []store.GlossaryEntry{{Text: "to view"}}},
	}); err != nil {
		t.Fatalf("InsertTerms: %v", err)
	}

	pack := &LanguagePack{Language: "ja", Transformer: englishPack(t).Transformer, ReadingNormalizer: IdentityReadingNormalizer}
	tr := New(s, 64, pack)
	entries, err := tr.FindTerms(ctx, "見る", Options{
		Language:       "ja",
		Mode:           ModeMerge,
		MatchType:      store.MatchExact,
		MainDictionary: "D",
		EnabledDictionaryMap: EnabledDictionaryMap{
			"D": {Index: 0},
			"E": {Index: 1, AllowSecondarySearches: true},
		},
	})
	if err != nil {
		t.Fatalf("FindTerms: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1 merged entry, got %+v", len(entries), entries)
	}
	e := entries[0]
	if len(e.Headwords) != 2 {
		t.Fatalf("len(headwords) = %d, want 2 (見る,観る), got %+v", len(e.Headwords), e.Headwords)
	}
	if len(e.Definitions) != 3 {
		t.Fatalf("len(definitions) = %d, want 3 (ids from D,D,E), got %+v", len(e.Definitions), e.Definitions)
	}
	primaryCount := 0
	for _, d := range e.Definitions {
		if d.IsPrimary {
			primaryCount++
		}
	}
	if primaryCount != 1 {
		t.Fatalf("primary definition count = %d, want 1 (only the direct lookup hit)", primaryCount)
	}
	if !e.Headwords[0].hasPrimary() {
		t.Fatalf("headwords[0] = %+v, want primary-source headword first", e.Headwords[0])
	}
}

func (hw Headword) hasPrimary() bool { return hasPrimarySource(hw) }

func TestFindTermsRedundantPOSFlagging(t *testing.T) {
	// Two definitions in the same dictionary with
	// identical sorted partOfSpeech tag sets -> the second's tags are
	// flagged redundant; the first's are not.
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTags(ctx, []store.TagRow{
		{Dictionary: "D", Name: "n", Category: "partOfSpeech", Order: 1},
	}); err != nil {
		t.Fatalf("InsertTags: %v", err)
	}
	if err := s.InsertTerms(ctx, []store.TermRow{
		{Dictionary: "D", Expression: "term", Reading: "term", DefinitionTags: "n", Glossary: []store.GlossaryEntry{{Text: "sense one"}}},
		{Dictionary: "D", Expression: "term", Reading: "term", DefinitionTags: "n", Glossary: []store.GlossaryEntry{{Text: "sense two"}}},
	}); err != nil {
		t.Fatalf("InsertTerms: %v", err)
	}

	pack := &LanguagePack{Language: "x", Transformer: englishPack(t).Transformer, ReadingNormalizer: IdentityReadingNormalizer}
	tr := New(s, 64, pack)
	entries, err := tr.FindTerms(ctx, "term", Options{
		Language:             "x",
		Mode:                 ModeGroup,
		MatchType:            store.MatchExact,
		EnabledDictionaryMap: EnabledDictionaryMap{"D": {Index: 0}},
	})
	if err != nil {
		t.Fatalf("FindTerms: %v", err)
	}
	if len(entries) != 1 || len(entries[0].Definitions) != 2 {
		t.Fatalf("entries = %+v, want one entry with 2 definitions", entries)
	}
	defs := entries[0].Definitions
	if len(defs[0].Tags) != 1 || defs[0].Tags[0].Redundant {
		t.Fatalf("defs[0].Tags = %+v, want one non-redundant partOfSpeech tag", defs[0].Tags)
	}
	if len(defs[1].Tags) != 1 || !defs[1].Tags[0].Redundant {
		t.Fatalf("defs[1].Tags = %+v, want one redundant partOfSpeech tag (repeats defs[0]'s set)", defs[1].Tags)
	}
}

func TestFindTermsExcludeDictionaryDefinitions(t *testing.T) {
	// Dictionary A is excluded; B keeps the headword alive. Everything A
	// contributed must go: its definition, its frequency record, its
	// pitch record, and its membership in the merged headword tag.
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTerms(ctx, []store.TermRow{
		{Dictionary: "A", Expression: "term", Reading: "term", TermTags: "common", Glossary: []store.GlossaryEntry{{Text: "from A"}}},
		{Dictionary: "B", Expression: "term", Reading: "term", TermTags: "common", Glossary: []store.GlossaryEntry{{Text: "from B"}}},
	}); err != nil {
		t.Fatalf("InsertTerms: %v", err)
	}
	if err := s.InsertTermMeta(ctx, []store.TermMetaRow{
		{Dictionary: "A", Expression: "term", Mode: "freq", Data: []byte(`42`)},
		{Dictionary: "A", Expression: "term", Mode: "pitch", Data: []byte(`{"reading":"term","pitches":[{"position":0}]}`)},
	}); err != nil {
		t.Fatalf("InsertTermMeta: %v", err)
	}
	if err := s.InsertTags(ctx, []store.TagRow{
		{Dictionary: "A", Name: "common", Category: "frequent", Order: 1},
		{Dictionary: "B", Name: "common", Category: "frequent", Order: 1},
	}); err != nil {
		t.Fatalf("InsertTags: %v", err)
	}

	pack := &LanguagePack{Language: "x", Transformer: englishPack(t).Transformer, ReadingNormalizer: IdentityReadingNormalizer}
	tr := New(s, 64, pack)
	entries, err := tr.FindTerms(ctx, "term", Options{
		Language:                     "x",
		Mode:                         ModeGroup,
		MatchType:                    store.MatchExact,
		EnabledDictionaryMap:         EnabledDictionaryMap{"A": {Index: 0}, "B": {Index: 1}},
		ExcludeDictionaryDefinitions: []string{"A"},
	})
	if err != nil {
		t.Fatalf("FindTerms: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	for _, d := range e.Definitions {
		if d.Dictionary == "A" {
			t.Fatalf("definition from excluded dictionary A survived: %+v", d)
		}
	}
	if len(e.Headwords) != 1 {
		t.Fatalf("len(headwords) = %d, want 1 (kept alive by B)", len(e.Headwords))
	}
	for _, f := range e.Frequencies {
		if f.Dictionary == "A" {
			t.Fatalf("frequency from excluded dictionary A survived: %+v", f)
		}
	}
	for _, p := range e.Pronunciations {
		if p.Dictionary == "A" {
			t.Fatalf("pronunciation from excluded dictionary A survived: %+v", p)
		}
	}
	tags := e.Headwords[0].Tags
	if len(tags) != 1 || tags[0].Name != "common" {
		t.Fatalf("headword tags = %+v, want the merged 'common' tag to survive via B", tags)
	}
	if tags[0].Dictionaries["A"] {
		t.Fatalf("tag membership = %+v, want excluded dictionary A removed", tags[0].Dictionaries)
	}
	if !tags[0].Dictionaries["B"] {
		t.Fatalf("tag membership = %+v, want B retained", tags[0].Dictionaries)
	}
}

func TestEntryMergeByRowIDLongerTransformedTextWins(t *testing.T) {
	// Two deinflections target the same row id
	// with transformedText lengths 3 and 5; the survivor keeps the
	// longer and MaxOriginalTextLength equals it.
	hitShort := rowHit{
		deinflection: databaseDeinflection{originalText: "abc", transformedText: "abc", deinflectedText: "x"},
		row:          store.TermMatch{TermRow: store.TermRow{ID: 1, Dictionary: "D", Expression: "x", Glossary: []store.GlossaryEntry{{Text: "g"}}}},
	}
	hitLong := rowHit{
		deinflection: databaseDeinflection{originalText: "abcde", transformedText: "abcde", deinflectedText: "x"},
		row:          store.TermMatch{TermRow: store.TermRow{ID: 1, Dictionary: "D", Expression: "x", Glossary: []store.GlossaryEntry{{Text: "g"}}}},
	}
	enabled := EnabledDictionaryMap{"D": {Index: 0}}

	entries := buildEntries([]rowHit{hitShort, hitLong}, enabled)
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Headwords[0].Sources[0].TransformedText != "abcde" {
		t.Fatalf("survivor transformedText = %q, want the longer %q", entries[0].Headwords[0].Sources[0].TransformedText, "abcde")
	}
	if entries[0].MaxOriginalTextLength != 5 {
		t.Fatalf("MaxOriginalTextLength = %d, want 5", entries[0].MaxOriginalTextLength)
	}
}

func TestCompareEntriesPrimaryReadingPrecedence(t *testing.T) {
	a := TermDictionaryEntry{MatchPrimaryReading: true}
	b := TermDictionaryEntry{MatchPrimaryReading: false}
	if !compareEntries(&a, &b) {
		t.Fatalf("entry with MatchPrimaryReading=true must sort before one without, all else equal")
	}
	if compareEntries(&b, &a) {
		t.Fatalf("compareEntries must not be symmetric for a genuine difference")
	}
}

func TestCompareEntriesIsStrictWeakOrder(t *testing.T) {
	entries := []TermDictionaryEntry{
		{SourceTermExactMatchCount: 2, Score: 1},
		{SourceTermExactMatchCount: 1, MatchPrimaryReading: true, Score: 5},
		{SourceTermExactMatchCount: 1, MatchPrimaryReading: false, MaxOriginalTextLength: 3},
		{SourceTermExactMatchCount: 0, DictionaryIndex: 2},
		{SourceTermExactMatchCount: 0, DictionaryIndex: 1},
	}
	for i := range entries {
		if compareEntries(&entries[i], &entries[i]) {
			t.Fatalf("compareEntries(%d,%d) must be irreflexive", i, i)
		}
	}
	for i := range entries {
		for j := range entries {
			if i == j {
				continue
			}
			if compareEntries(&entries[i], &entries[j]) && compareEntries(&entries[j], &entries[i]) {
				t.Fatalf("compareEntries(%d,%d) and compareEntries(%d,%d) both true: not asymmetric", i, j, j, i)
			}
		}
	}
}

func TestFrequencyOrderInjectionAndSort(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTerms(ctx, []store.TermRow{
		{Dictionary: "D", Expression: "a", Reading: "a", Glossary: []store.GlossaryEntry{{Text: "def a"}}},
		{Dictionary: "D", Expression: "b", Reading: "b", Glossary: []store.GlossaryEntry{{Text: "def b"}}},
	}); err != nil {
		t.Fatalf("InsertTerms: %v", err)
	}
	if err := s.InsertTermMeta(ctx, []store.TermMetaRow{
		{Dictionary: "freqdict", Expression: "a", Mode: "freq", Data: []byte(`1000`)},
		{Dictionary: "freqdict", Expression: "b", Mode: "freq", Data: []byte(`10`)},
	}); err != nil {
		t.Fatalf("InsertTermMeta: %v", err)
	}

	pack := &LanguagePack{Language: "x", Transformer: englishPack(t).Transformer, ReadingNormalizer: IdentityReadingNormalizer}
	tr := New(s, 64, pack)

	var all []TermDictionaryEntry
	for _, term := range []string{"a", "b"} {
		entries, err := tr.FindTerms(ctx, term, Options{
			Language:                "x",
			Mode:                    ModeGroup,
			MatchType:               store.MatchExact,
			SortFrequencyDictionary: "freqdict",
			EnabledDictionaryMap:    EnabledDictionaryMap{"D": {Index: 0}, "freqdict": {Index: 1}},
		})
		if err != nil {
			t.Fatalf("FindTerms(%q): %v", term, err)
		}
		all = append(all, entries...)
	}
	SortEntries(all)
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
	if all[0].Headwords[0].Term != "b" {
		t.Fatalf("first entry = %q, want 'b' (lower/better frequency rank sorts first)", all[0].Headwords[0].Term)
	}
}

func TestGetFrequencyRanking(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTermMeta(ctx, []store.TermMetaRow{
		{Dictionary: "A", Expression: "X", Mode: "freq", Data: []byte(`10`)},
		{Dictionary: "B", Expression: "X", Mode: "freq", Data: []byte(`1000`)},
	}); err != nil {
		t.Fatalf("InsertTermMeta: %v", err)
	}

	tr := New(s, 64, englishPack(t))
	ranking, err := tr.GetFrequencyRanking(ctx, "X", []string{"A", "B"})
	if err != nil {
		t.Fatalf("GetFrequencyRanking: %v", err)
	}
	if len(ranking.Frequencies) != 2 {
		t.Fatalf("len(frequencies) = %d, want 2", len(ranking.Frequencies))
	}
	if ranking.HarmonicMean != 20 {
		t.Fatalf("harmonic mean = %v, want 20 (round(2 / (1/10 + 1/1000)))", ranking.HarmonicMean)
	}
}

func TestTextProcessorVariantsFeedIntoLookup(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTerms(ctx, []store.TermRow{
		{Dictionary: "D", Expression: "WORD", Reading: "WORD", Glossary: []store.GlossaryEntry{{Text: "shouting"}}},
	}); err != nil {
		t.Fatalf("InsertTerms: %v", err)
	}

	upper := textproc.NewProcessor("uppercase", textproc.BoolOptions, func(text string, opt textproc.Option) string {
		if opt == "false" {
			return text
		}
		return upperASCII(text)
	})
	pack := &LanguagePack{
		Language:          "x",
		Transformer:       englishPack(t).Transformer,
		Preprocessors:     []textproc.Processor{upper},
		ReadingNormalizer: IdentityReadingNormalizer,
	}
	tr := New(s, 64, pack)
	entries, err := tr.FindTerms(ctx, "word", Options{
		Language:             "x",
		Mode:                 ModeGroup,
		MatchType:            store.MatchExact,
		EnabledDictionaryMap: EnabledDictionaryMap{"D": {Index: 0}},
	})
	if err != nil {
		t.Fatalf("FindTerms: %v", err)
	}
	if len(entries) != 1 || entries[0].Headwords[0].Term != "WORD" {
		t.Fatalf("entries = %+v, want uppercase variant to match stored WORD", entries)
	}
}

func upperASCII(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'z' {
			out[i] = c - ('a' - 'A')
		}
	}
	return string(out)
}

func TestFindKanjiBasic(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertKanji(ctx, []store.KanjiRow{
		{Dictionary: "D", Character: "猫", Onyomi: "ビョウ", Kunyomi: "ねこ", Meanings: []string{"cat"}, Stats: map[string]string{"grade": "6"}},
	}); err != nil {
		t.Fatalf("InsertKanji: %v", err)
	}
	if err := s.InsertTags(ctx, []store.TagRow{
		{Dictionary: "D", Name: "grade", Category: "stat", Notes: "school grade"},
	}); err != nil {
		t.Fatalf("InsertTags: %v", err)
	}

	pack := &LanguagePack{Language: "ja", Transformer: englishPack(t).Transformer, ReadingNormalizer: IdentityReadingNormalizer}
	tr := New(s, 64, pack)
	entries, err := tr.FindKanji(ctx, "猫", EnabledDictionaryMap{"D": {Index: 0}})
	if err != nil {
		t.Fatalf("FindKanji: %v", err)
	}
	if len(entries) != 1 || entries[0].Character != "猫" {
		t.Fatalf("entries = %+v, want single 猫 entry", entries)
	}
	stat, ok := entries[0].Stats["grade"]
	if !ok || stat.Name != "grade" {
		t.Fatalf("Stats[grade] = %+v, ok=%v, want resolved grade stat tag", stat, ok)
	}
}
