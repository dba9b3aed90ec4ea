package translator

import (
	"sort"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/collate"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/textproc"
)

// compareEntries is the global result comparator: a strict
// weak order over TermDictionaryEntry values, most relevant result
// first. Keys are applied in order, each only breaking ties left by
// the one before it:
//
//  1. primary-reading match, descending (a reading that matches the
//     caller-supplied primary reading ranks above one that doesn't)
//  2. maximum original text length, descending (a longer matched span
//     of input text wins)
//  3. shortest text-processor rule-chain length, ascending (fewer
//     pre/post transforms needed ranks higher)
//  4. shortest inflection rule-chain length, ascending (a shallower
//     deinflection ranks higher)
//  5. source-term exact match count, descending
//  6. sort-frequency order, ascending (injectSortFrequency pre-signs
//     the value so ascending comparison is correct either direction)
//  7. dictionary index, ascending (the EnabledDictionaryMap's declared
//     priority order)
//  8. score, descending
//  9. pairwise over headwords: longer term first, then invariant-
//     locale collation order, until one headword differs
//  10. definition count, descending
//
// Ties remaining after all keys preserve the stable input order —
// SortEntries uses sort.SliceStable so a tie is a deliberate no-op, not
// an arbitrary one.
func compareEntries(a, b *TermDictionaryEntry) bool {
	if a.MatchPrimaryReading != b.MatchPrimaryReading {
		return a.MatchPrimaryReading
	}
	if a.MaxOriginalTextLength != b.MaxOriginalTextLength {
		return a.MaxOriginalTextLength > b.MaxOriginalTextLength
	}
	if at, bt := shortestChainLen(a.TextProcessorRuleChainCandidates), shortestChainLen(b.TextProcessorRuleChainCandidates); at != bt {
		return at < bt
	}
	if ai, bi := shortestInflectionChainLen(a.InflectionRuleChainCandidates), shortestInflectionChainLen(b.InflectionRuleChainCandidates); ai != bi {
		return ai < bi
	}
	if a.SourceTermExactMatchCount != b.SourceTermExactMatchCount {
		return a.SourceTermExactMatchCount > b.SourceTermExactMatchCount
	}
	if a.FrequencyOrder != b.FrequencyOrder {
		return a.FrequencyOrder < b.FrequencyOrder
	}
	if a.DictionaryIndex != b.DictionaryIndex {
		return a.DictionaryIndex < b.DictionaryIndex
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if cmp := compareHeadwordsPairwise(a.Headwords, b.Headwords); cmp != 0 {
		return cmp < 0
	}
	return len(a.Definitions) > len(b.Definitions)
}

// shortestChainLen returns the minimum candidate length in a
// text-processor rule-chain list, or 0 when the list is empty (no
// processors applied at all is the shortest possible chain).
func shortestChainLen(chains []textproc.Chain) int {
	if len(chains) == 0 {
		return 0
	}
	best := len(chains[0])
	for _, c := range chains[1:] {
		if len(c) < best {
			best = len(c)
		}
	}
	return best
}

func shortestInflectionChainLen(chains []InflectionRuleChain) int {
	if len(chains) == 0 {
		return 0
	}
	best := len(chains[0].Rules)
	for _, c := range chains[1:] {
		if len(c.Rules) < best {
			best = len(c.Rules)
		}
	}
	return best
}

// compareHeadwordsPairwise is the headword tiebreaker: walk
// both headword lists in parallel comparing (-term length, collation
// order) until one pair differs or a list runs out.
func compareHeadwordsPairwise(a, b []Headword) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ta, tb := []rune(a[i].Term), []rune(b[i].Term)
		if len(ta) != len(tb) {
			if len(ta) > len(tb) {
				return -1
			}
			return 1
		}
		if c := collate.Compare(a[i].Term, b[i].Term); c != 0 {
			return c
		}
	}
	return 0
}

// SortEntries orders entries by compareEntries in place.
func SortEntries(entries []TermDictionaryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return compareEntries(&entries[i], &entries[j])
	})
}

// sortEntryContents orders one entry's Definitions, Frequencies, and
// Pronunciations once grouping and enrichment are complete:
// definitions by (+frequencyOrder, +dictionaryIndex, -score,
// +headwordIndices lexicographic, +index); simple data by
// (+headwordIndex, +dictionaryIndex, +index).
func sortEntryContents(e *TermDictionaryEntry) {
	origDefIndex := make([]int, len(e.Definitions))
	for i := range e.Definitions {
		origDefIndex[i] = e.Definitions[i].Index
	}
	sort.SliceStable(e.Definitions, func(i, j int) bool {
		a, b := e.Definitions[i], e.Definitions[j]
		if a.FrequencyOrder != b.FrequencyOrder {
			return a.FrequencyOrder < b.FrequencyOrder
		}
		if a.DictionaryIndex != b.DictionaryIndex {
			return a.DictionaryIndex < b.DictionaryIndex
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if c := compareIntSlicesLex(a.HeadwordIndices, b.HeadwordIndices); c != 0 {
			return c < 0
		}
		return origDefIndex[i] < origDefIndex[j]
	})
	for i := range e.Definitions {
		e.Definitions[i].Index = i
	}

	origFreqIndex := make([]int, len(e.Frequencies))
	for i := range e.Frequencies {
		origFreqIndex[i] = e.Frequencies[i].Index
	}
	sort.SliceStable(e.Frequencies, func(i, j int) bool {
		a, b := e.Frequencies[i], e.Frequencies[j]
		if a.HeadwordIndex != b.HeadwordIndex {
			return a.HeadwordIndex < b.HeadwordIndex
		}
		if a.DictionaryIndex != b.DictionaryIndex {
			return a.DictionaryIndex < b.DictionaryIndex
		}
		return origFreqIndex[i] < origFreqIndex[j]
	})
	for i := range e.Frequencies {
		e.Frequencies[i].Index = i
	}

	origPronIndex := make([]int, len(e.Pronunciations))
	for i := range e.Pronunciations {
		origPronIndex[i] = e.Pronunciations[i].Index
	}
	sort.SliceStable(e.Pronunciations, func(i, j int) bool {
		a, b := e.Pronunciations[i], e.Pronunciations[j]
		if a.HeadwordIndex != b.HeadwordIndex {
			return a.HeadwordIndex < b.HeadwordIndex
		}
		if a.DictionaryIndex != b.DictionaryIndex {
			return a.DictionaryIndex < b.DictionaryIndex
		}
		return origPronIndex[i] < origPronIndex[j]
	})
	for i := range e.Pronunciations {
		e.Pronunciations[i].Index = i
	}
}

func compareIntSlicesLex(a, b []int) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	if len(a) == len(b) {
		return 0
	}
	if len(a) < len(b) {
		return -1
	}
	return 1
}
