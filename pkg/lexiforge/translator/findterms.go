package translator

import (
	"context"
	"unicode"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/textproc"
)

// jckRune reports whether r belongs to the combined
// Japanese/Chinese/Korean range the RemoveNonJapaneseCharacters option
// truncates against: kana, CJK ideographs, and hangul.
func jckRune(r rune) bool {
	return unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han, unicode.Hangul) || r == 0x30FC // long vowel mark
}

// cjkLanguage reports whether the RemoveNonJapaneseCharacters option
// applies to this language at all.
func cjkLanguage(language string) bool {
	switch language {
	case "ja", "zh", "yue", "ko":
		return true
	}
	return false
}

// removeNonJapaneseCharacters truncates text at the first rune outside
// jckRune, leaving only its leading JCK-script run.
func removeNonJapaneseCharacters(text string) string {
	for i, r := range text {
		if !jckRune(r) {
			return text[:i]
		}
	}
	return text
}

// FindTerms runs the full lookup pipeline: deinflection
// generation, bulk store queries, dictionary-provided deinflection,
// entry merging, mode-dependent regrouping, tag/frequency/pronunciation
// enrichment, sort-frequency injection, final sort, and inflection-rule
// presentation.
func (t *Translator) FindTerms(ctx context.Context, rawText string, opts Options) ([]TermDictionaryEntry, error) {
	if rawText == "" {
		return nil, nil
	}

	pack, err := t.languagePack(opts.Language)
	if err != nil {
		return nil, err
	}

	text := rawText
	if opts.RemoveNonJapaneseCharacters && cjkLanguage(opts.Language) {
		text = removeNonJapaneseCharacters(text)
	}
	if text == "" {
		return nil, nil
	}

	preprocessors := pack.Preprocessors
	if len(opts.TextReplacements) > 0 {
		extra := make([]textproc.Processor, len(opts.TextReplacements))
		for i, r := range opts.TextReplacements {
			extra[i] = textproc.NewTextReplacementProcessor(i, r.Pattern, r.Replacement)
		}
		preprocessors = append(append([]textproc.Processor{}, extra...), pack.Preprocessors...)
	}
	callPack := *pack
	callPack.Preprocessors = preprocessors

	correlationID := t.correlationID()
	memo := textproc.NewMemo()

	matchType := opts.MatchType
	if matchType == "" {
		matchType = store.MatchPrefix
	}

	var deinflections []databaseDeinflection
	for _, prefix := range enumeratePrefixes(text, opts.SearchResolution) {
		deinflections = append(deinflections, generateDeinflections(prefix, &callPack, opts.Deinflect, correlationID, memo)...)
	}

	hits, err := t.bulkLookup(ctx, deinflections, &callPack, matchType, opts.EnabledDictionaryMap)
	if err != nil {
		return nil, err
	}

	if secondPass := dictionaryDeinflections(hits, opts.EnabledDictionaryMap); len(secondPass) > 0 {
		moreHits, err := t.bulkLookup(ctx, secondPass, &callPack, store.MatchExact, opts.EnabledDictionaryMap)
		if err != nil {
			return nil, err
		}
		hits = append(hits, moreHits...)
	}

	entries := buildEntries(hits, opts.EnabledDictionaryMap)
	if len(entries) == 0 {
		return nil, nil
	}

	markExactMatchesAndPrimaryReading(entries, rawText, opts.PrimaryReading, pack.ReadingNormalizer)

	mode := opts.Mode
	if mode == "" {
		mode = ModeGroup
	}

	grouped, err := t.applyMode(ctx, entries, mode, opts, pack.ReadingNormalizer)
	if err != nil {
		return nil, err
	}

	// Simple mode skips tag-meta expansion entirely and only attaches
	// frequency meta when sortFrequencyDictionary is set, restricted to
	// that one dictionary.
	if mode != ModeSimple {
		if err := expandTags(ctx, t.store, t.tagCache, grouped); err != nil {
			return nil, err
		}
		if err := enrichFrequenciesAndPronunciations(ctx, t.store, opts.EnabledDictionaryMap, grouped); err != nil {
			return nil, err
		}
	} else if opts.SortFrequencyDictionary != "" {
		if dictOpts, ok := opts.EnabledDictionaryMap[opts.SortFrequencyDictionary]; ok {
			restricted := EnabledDictionaryMap{opts.SortFrequencyDictionary: dictOpts}
			if err := enrichFrequenciesAndPronunciations(ctx, t.store, restricted, grouped); err != nil {
				return nil, err
			}
			for i := range grouped {
				grouped[i].Pronunciations = nil
			}
		}
	}

	excluded := make(map[string]bool, len(opts.ExcludeDictionaryDefinitions))
	for _, d := range opts.ExcludeDictionaryDefinitions {
		excluded[d] = true
	}

	for i := range grouped {
		excludeDictionaryDefinitions(&grouped[i], excluded)
	}

	grouped = removeEmptyEntries(grouped)

	for i := range grouped {
		injectSortFrequency(&grouped[i], opts)
		sortEntryContents(&grouped[i])
		presentEntry(&grouped[i], pack.RuleCatalog)
	}

	SortEntries(grouped)
	return grouped, nil
}

func removeEmptyEntries(entries []TermDictionaryEntry) []TermDictionaryEntry {
	out := entries[:0]
	for _, e := range entries {
		if len(e.Definitions) == 0 || len(e.Headwords) == 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}

// applyMode dispatches to the mode-specific regrouping implementation.
func (t *Translator) applyMode(ctx context.Context, entries []TermDictionaryEntry, mode Mode, opts Options, normalize ReadingNormalizer) ([]TermDictionaryEntry, error) {
	switch mode {
	case ModeSimple:
		return entries, nil
	case ModeTerm:
		return regroup(entries, ModeTerm, normalize, false), nil
	case ModeMerge:
		return mergeMode(ctx, t.store, entries, opts.EnabledDictionaryMap, opts.MainDictionary, normalize)
	default:
		return regroup(entries, ModeGroup, normalize, false), nil
	}
}

// markExactMatchesAndPrimaryReading sets SourceTermExactMatchCount and
// MatchPrimaryReading on each raw entry before grouping aggregates
// them: an entry's count is 1 when its headword's term
// equals the untouched raw input text, and MatchPrimaryReading holds
// when primaryReading is set and equals the headword's normalized
// reading.
func markExactMatchesAndPrimaryReading(entries []TermDictionaryEntry, rawText, primaryReading string, normalize ReadingNormalizer) {
	normalizedPrimary := ""
	if primaryReading != "" {
		normalizedPrimary = normalize(primaryReading)
	}
	for i := range entries {
		e := &entries[i]
		if len(e.Headwords) == 0 {
			continue
		}
		hw := e.Headwords[0]
		if hw.Term == rawText {
			e.SourceTermExactMatchCount = 1
		}
		if normalizedPrimary != "" && normalize(hw.Reading) == normalizedPrimary {
			e.MatchPrimaryReading = true
		}
	}
}
