// Package scan implements the bounded-window sentence scanner: a
// left-to-right parse that segments text into matched and
// unmatched runs by repeatedly calling a Translator's simple-mode
// findTerms over a shrinking lookahead window.
//
// This is an illustrative consumer of the translator package, not a
// standalone parser: every decision it makes about what counts as a
// "match" is delegated to the lookup core's own result, scoring, and
// sort order.
package scan

import (
	"context"
	"unicode"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/translator"
)

// Segment is one run of the scanned text: either a matched span backed
// by a dictionary lookup, or an unmatched run of code points that
// matched nothing.
type Segment struct {
	Text    string
	Matched bool

	// Sources holds the contributing headword sources for a matched
	// segment, filtered to originalText == the matched text, isPrimary,
	// and an exact match type. Empty for an unmatched
	// segment.
	Sources []translator.Source
}

func japaneseRune(r rune) bool {
	return unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) || r == 0x30FC
}

// Scan walks text left to right, querying tr.FindTerms in simple mode
// over a scanLength-bounded lookahead at each code-point position.
// A scanLength outside the [1, 20] range (zero and negative values
// included) is replaced by 20.
//
// Results for a given scanned substring are cached for the lifetime of
// one Scan call, so a substring that recurs in the text is looked up
// only once.
func Scan(ctx context.Context, tr *translator.Translator, text, language string, enabled translator.EnabledDictionaryMap, scanLength int) ([]Segment, error) {
	if scanLength <= 0 || scanLength > 20 {
		scanLength = 20
	}

	runes := []rune(text)
	n := len(runes)
	cache := make(map[string][]translator.TermDictionaryEntry)

	var segments []Segment
	var unmatched []rune

	flushUnmatched := func() {
		if len(unmatched) == 0 {
			return
		}
		segments = append(segments, Segment{Text: string(unmatched)})
		unmatched = unmatched[:0]
	}

	pos := 0
	for pos < n {
		end := pos + scanLength
		if end > n {
			end = n
		}
		substring := string(runes[pos:end])

		entries, ok := cache[substring]
		if !ok {
			var err error
			entries, err = tr.FindTerms(ctx, substring, translator.Options{
				Mode:                 translator.ModeSimple,
				Language:             language,
				Deinflect:            true,
				MatchType:            store.MatchPrefix,
				SearchResolution:     translator.ResolutionLetter,
				EnabledDictionaryMap: enabled,
			})
			if err != nil {
				return nil, err
			}
			cache[substring] = entries
		}

		originalTextLength := bestOriginalTextLength(entries)
		current := runes[pos]

		if len(entries) > 0 && originalTextLength > 0 && (originalTextLength > 1 || japaneseRune(current)) {
			flushUnmatched()

			matchEnd := pos + originalTextLength
			if matchEnd > n {
				matchEnd = n
			}
			matchedText := string(runes[pos:matchEnd])

			segments = append(segments, Segment{
				Text:    matchedText,
				Matched: true,
				Sources: matchingSources(entries, matchedText),
			})

			advance := originalTextLength
			if advance < 1 {
				advance = 1
			}
			pos += advance
			continue
		}

		unmatched = append(unmatched, current)
		pos++
	}
	flushUnmatched()

	return segments, nil
}

// bestOriginalTextLength returns the leading entry's MaxOriginalTextLength,
// the result set already being sorted with that as the dominant
// length-ordering key.
func bestOriginalTextLength(entries []translator.TermDictionaryEntry) int {
	if len(entries) == 0 {
		return 0
	}
	return entries[0].MaxOriginalTextLength
}

// matchingSources collects every source across every headword of
// entries[0] whose OriginalText equals matchedText, IsPrimary is set,
// and MatchType is an exact match.
func matchingSources(entries []translator.TermDictionaryEntry, matchedText string) []translator.Source {
	if len(entries) == 0 {
		return nil
	}
	var out []translator.Source
	for _, hw := range entries[0].Headwords {
		for _, src := range hw.Sources {
			if src.OriginalText == matchedText && src.IsPrimary && src.MatchType == store.MatchExact {
				out = append(out, src)
			}
		}
	}
	return out
}
