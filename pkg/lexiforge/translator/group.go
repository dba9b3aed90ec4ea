package translator

import (
	"context"
	"sort"
	"strings"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
)

// groupKey identifies the bucket a contributor's headword joins under
// for the group/term regrouping modes: term plus
// (for group mode) the normalized reading, plus the set of rule-chains
// the contributor carries.
type groupKey struct {
	term      string
	reading   string // empty for term mode
	chainsKey string
}

func chainsKey(e *TermDictionaryEntry) string {
	parts := make([]string, 0, len(e.InflectionRuleChainCandidates))
	for _, c := range e.InflectionRuleChainCandidates {
		parts = append(parts, string(c.Source)+":"+chainRuleKey(ruleIDs(c.Rules)))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// regroup implements the group/term modes: entries whose
// key matches are combined by combineGroup into one TermDictionaryEntry
// apiece, using the language's reading normalizer for group mode.
func regroup(entries []TermDictionaryEntry, mode Mode, normalize ReadingNormalizer, checkDuplicateDefinitions bool) []TermDictionaryEntry {
	order := make([]groupKey, 0, len(entries))
	buckets := make(map[groupKey][]TermDictionaryEntry)

	for i := range entries {
		e := &entries[i]
		var term, reading string
		if len(e.Headwords) > 0 {
			term = e.Headwords[0].Term
			reading = e.Headwords[0].Reading
		}
		key := groupKey{term: term, chainsKey: chainsKey(e)}
		if mode == ModeGroup {
			key.reading = normalize(reading)
		}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], *e)
	}

	out := make([]TermDictionaryEntry, 0, len(order))
	for _, key := range order {
		out = append(out, combineGroup(buckets[key], normalize, checkDuplicateDefinitions))
	}
	return out
}

// headwordKey is the (term, normalized-reading) identity headwords
// merge under during grouped-entry construction.
type headwordKey struct{ term, reading string }

// combineGroup builds one grouped TermDictionaryEntry from
// one bucket of contributing TermDictionaryEntry values.
func combineGroup(contributors []TermDictionaryEntry, normalize ReadingNormalizer, checkDuplicateDefinitions bool) TermDictionaryEntry {
	if len(contributors) == 1 && !checkDuplicateDefinitions {
		// An append-only bucket of one has nothing to merge.
		return contributors[0]
	}

	hwIndex := make(map[headwordKey]int)
	var headwords []Headword

	// remap[contributorIdx][localHeadwordIdx] -> merged headword index
	remap := make([][]int, len(contributors))

	for ci, c := range contributors {
		remap[ci] = make([]int, len(c.Headwords))
		for hi, hw := range c.Headwords {
			key := headwordKey{term: hw.Term, reading: normalize(hw.Reading)}
			idx, ok := hwIndex[key]
			if !ok {
				idx = len(headwords)
				hwIndex[key] = idx
				headwords = append(headwords, Headword{
					Index:              idx,
					Term:               hw.Term,
					Reading:            hw.Reading,
					minDictionaryIndex: hw.minDictionaryIndex,
				})
			}
			merged := &headwords[idx]
			merged.Sources = mergeSources(merged.Sources, hw.Sources)
			merged.WordClasses = mergeStrings(merged.WordClasses, hw.WordClasses)
			merged.pendingTags = append(merged.pendingTags, hw.pendingTags...)
			if hw.minDictionaryIndex < merged.minDictionaryIndex {
				merged.minDictionaryIndex = hw.minDictionaryIndex
			}
			remap[ci][hi] = idx
		}
	}

	var definitions []Definition
	seenDefKey := make(map[string]int)

	for ci, c := range contributors {
		for _, def := range c.Definitions {
			remapped := make([]int, len(def.HeadwordIndices))
			for i, hi := range def.HeadwordIndices {
				remapped[i] = remap[ci][hi]
			}
			def.HeadwordIndices = remapped

			if !checkDuplicateDefinitions {
				def.Index = len(definitions)
				definitions = append(definitions, def)
				continue
			}

			key := definitionKey(def)
			if existingIdx, ok := seenDefKey[key]; ok {
				existing := &definitions[existingIdx]
				existing.Sequences = mergeInt64s(existing.Sequences, def.Sequences)
				existing.IsPrimary = existing.IsPrimary || def.IsPrimary
				existing.HeadwordIndices = mergeIntsSortedUnique(existing.HeadwordIndices, def.HeadwordIndices)
				existing.pendingTags = append(existing.pendingTags, def.pendingTags...)
				continue
			}
			def.Index = len(definitions)
			seenDefKey[key] = len(definitions)
			definitions = append(definitions, def)
		}
	}

	out := TermDictionaryEntry{Headwords: headwords, Definitions: definitions}

	out.Score = contributors[0].Score
	out.DictionaryIndex = contributors[0].DictionaryIndex
	for _, c := range contributors {
		if c.Score > out.Score {
			out.Score = c.Score
		}
		if c.DictionaryIndex < out.DictionaryIndex {
			out.DictionaryIndex = c.DictionaryIndex
		}
		out.SourceTermExactMatchCount += c.SourceTermExactMatchCount
		out.MatchPrimaryReading = out.MatchPrimaryReading || c.MatchPrimaryReading
		if c.isPrimaryContributor() {
			if c.MaxOriginalTextLength > out.MaxOriginalTextLength {
				out.MaxOriginalTextLength = c.MaxOriginalTextLength
			}
			if out.InflectionRuleChainCandidates == nil || shorterChains(c.InflectionRuleChainCandidates, out.InflectionRuleChainCandidates) {
				out.InflectionRuleChainCandidates = c.InflectionRuleChainCandidates
			}
			if out.TextProcessorRuleChainCandidates == nil || len(c.TextProcessorRuleChainCandidates) < len(out.TextProcessorRuleChainCandidates) {
				out.TextProcessorRuleChainCandidates = c.TextProcessorRuleChainCandidates
			}
		}
	}
	if out.InflectionRuleChainCandidates == nil && len(contributors) > 0 {
		out.InflectionRuleChainCandidates = contributors[0].InflectionRuleChainCandidates
		out.TextProcessorRuleChainCandidates = contributors[0].TextProcessorRuleChainCandidates
	}

	sortHeadwords(&out)
	return out
}

// isPrimaryContributor reports whether any source in this contributor's
// headwords came from a direct lookup. Length and rule-chain
// aggregation during grouping only consults primary contributors.
func (e *TermDictionaryEntry) isPrimaryContributor() bool {
	for _, hw := range e.Headwords {
		for _, s := range hw.Sources {
			if s.IsPrimary {
				return true
			}
		}
	}
	return false
}

func shorterChains(a, b []InflectionRuleChain) bool { return len(a) < len(b) }

func definitionKey(d Definition) string {
	var b strings.Builder
	b.WriteString(d.Dictionary)
	b.WriteByte('\x00')
	for _, g := range d.Glossary {
		b.WriteString(g)
		b.WriteByte('\x00')
	}
	return b.String()
}

func mergeSources(existing, incoming []Source) []Source {
	seen := make(map[Source]bool, len(existing))
	for _, s := range existing {
		seen[srcIdentity(s)] = true
	}
	for _, s := range incoming {
		id := srcIdentity(s)
		if seen[id] {
			// isPrimary=true wins on an identical duplicate.
			if s.IsPrimary {
				for i := range existing {
					if srcIdentity(existing[i]) == id {
						existing[i].IsPrimary = true
					}
				}
			}
			continue
		}
		seen[id] = true
		existing = append(existing, s)
	}
	return existing
}

// srcIdentity is Source with IsPrimary zeroed, used as the dedup key:
// two sources with the same texts, match type, and match source are
// one source, and isPrimary=true wins the merge.
func srcIdentity(s Source) Source {
	s.IsPrimary = false
	return s
}

func mergeStrings(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s] = true
	}
	for _, s := range incoming {
		if seen[s] {
			continue
		}
		seen[s] = true
		existing = append(existing, s)
	}
	return existing
}

func mergeInt64s(existing, incoming []int64) []int64 {
	seen := make(map[int64]bool, len(existing))
	for _, v := range existing {
		seen[v] = true
	}
	for _, v := range incoming {
		if seen[v] {
			continue
		}
		seen[v] = true
		existing = append(existing, v)
	}
	return existing
}

// mergeIntsSortedUnique inserts each value of incoming into existing via
// binary insertion, keeping the result sorted and deduplicated.
func mergeIntsSortedUnique(existing, incoming []int) []int {
	for _, v := range incoming {
		i := sort.SearchInts(existing, v)
		if i < len(existing) && existing[i] == v {
			continue
		}
		existing = append(existing, 0)
		copy(existing[i+1:], existing[i:])
		existing[i] = v
	}
	return existing
}

// sortHeadwords orders a grouped entry's headwords primary-source-
// bearing first, then by ascending minimum dictionary index,
// renumbering Index and every HeadwordIndices reference.
func sortHeadwords(e *TermDictionaryEntry) {
	type ranked struct {
		hw      Headword
		oldIdx  int
		primary bool
	}
	rs := make([]ranked, len(e.Headwords))
	for i, hw := range e.Headwords {
		rs[i] = ranked{hw: hw, oldIdx: i, primary: hasPrimarySource(hw)}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].primary != rs[j].primary {
			return rs[i].primary
		}
		return rs[i].hw.minDictionaryIndex < rs[j].hw.minDictionaryIndex
	})

	remap := make([]int, len(rs))
	headwords := make([]Headword, len(rs))
	for newIdx, r := range rs {
		remap[r.oldIdx] = newIdx
		r.hw.Index = newIdx
		headwords[newIdx] = r.hw
	}
	e.Headwords = headwords

	for di := range e.Definitions {
		indices := e.Definitions[di].HeadwordIndices
		for i, old := range indices {
			indices[i] = remap[old]
		}
	}
}

func hasPrimarySource(hw Headword) bool {
	for _, s := range hw.Sources {
		if s.IsPrimary {
			return true
		}
	}
	return false
}

// --- merge mode ---

// mergeMode implements the sequence-based regrouping: entries from
// mainDictionary with sequence >= 0 seed a group; every other row
// sharing (sequence, dictionary) joins non-primary; ungrouped entries
// whose headword matches a group join it; a secondary search then pulls
// in allowSecondarySearches dictionaries' exact matches; remaining
// ungrouped entries regroup by headword as in group mode.
func mergeMode(ctx context.Context, s store.Store, entries []TermDictionaryEntry, enabled EnabledDictionaryMap, mainDictionary string, normalize ReadingNormalizer) ([]TermDictionaryEntry, error) {
	var groups [][]TermDictionaryEntry
	var ungrouped []TermDictionaryEntry
	seqQueries := make([]store.SequenceQuery, 0)
	groupForSeq := make(map[int64]int)

	for _, e := range entries {
		seq, dict, ok := entrySequence(e, mainDictionary)
		if !ok {
			ungrouped = append(ungrouped, e)
			continue
		}
		if gi, ok := groupForSeq[seq]; ok {
			groups[gi] = append(groups[gi], e)
			continue
		}
		groups = append(groups, []TermDictionaryEntry{e})
		groupForSeq[seq] = len(groups) - 1
		seqQueries = append(seqQueries, store.SequenceQuery{Sequence: seq, Dictionary: dict})
	}

	if len(seqQueries) > 0 {
		matches, err := s.FindTermsBySequenceBulk(ctx, seqQueries)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			gi := groupForSeq[*m.Sequence]
			glossary := stripFormOfPointers(m.Glossary)
			if len(glossary) == 0 {
				continue
			}
			already := false
			for _, c := range groups[gi] {
				for _, d := range c.Definitions {
					if d.ID == m.ID {
						already = true
					}
				}
			}
			if already {
				continue
			}
			opts := enabled[m.Dictionary]
			groups[gi] = append(groups[gi], newSecondaryEntry(m, glossary, opts))
		}
	}

	var stillUngrouped []TermDictionaryEntry
	for _, e := range ungrouped {
		joined := false
		if len(e.Headwords) > 0 {
			for gi, g := range groups {
				if groupHasHeadword(g, e.Headwords[0], normalize) {
					groups[gi] = append(groups[gi], e)
					joined = true
					break
				}
			}
		}
		if !joined {
			stillUngrouped = append(stillUngrouped, e)
		}
	}

	if err := secondarySearch(ctx, s, groups, enabled, normalize); err != nil {
		return nil, err
	}

	out := make([]TermDictionaryEntry, 0, len(groups))
	for _, g := range groups {
		out = append(out, combineGroup(g, normalize, true))
	}

	regrouped := regroup(stillUngrouped, ModeGroup, normalize, true)
	out = append(out, regrouped...)
	return out, nil
}

func entrySequence(e TermDictionaryEntry, mainDictionary string) (seq int64, dict string, ok bool) {
	for _, d := range e.Definitions {
		if d.Dictionary != mainDictionary {
			continue
		}
		if len(d.Sequences) == 0 || d.Sequences[0] < 0 {
			continue
		}
		return d.Sequences[0], d.Dictionary, true
	}
	return 0, "", false
}

func groupHasHeadword(group []TermDictionaryEntry, hw Headword, normalize ReadingNormalizer) bool {
	target := headwordKey{term: hw.Term, reading: normalize(hw.Reading)}
	for _, c := range group {
		for _, h := range c.Headwords {
			if (headwordKey{term: h.Term, reading: normalize(h.Reading)}) == target {
				return true
			}
		}
	}
	return false
}

// secondarySearch implements the final step of merge mode: for every
// dictionary marked AllowSecondarySearches, bulk-query exact (term,
// reading) matches from the groups' headwords and fold in non-primary
// results.
func secondarySearch(ctx context.Context, s store.Store, groups [][]TermDictionaryEntry, enabled EnabledDictionaryMap, normalize ReadingNormalizer) error {
	var allowed []string
	for title, opts := range enabled {
		if opts.AllowSecondarySearches {
			allowed = append(allowed, title)
		}
	}
	if len(allowed) == 0 {
		return nil
	}
	dictSet := make(store.DictSet, len(allowed))
	for _, t := range allowed {
		dictSet[t] = true
	}

	var queries []store.TermExactQuery
	owner := make([]int, 0)
	for gi, g := range groups {
		for _, c := range g {
			for _, hw := range c.Headwords {
				queries = append(queries, store.TermExactQuery{Term: hw.Term, Reading: hw.Reading})
				owner = append(owner, gi)
			}
		}
	}
	if len(queries) == 0 {
		return nil
	}

	matches, err := s.FindTermsExactBulk(ctx, queries, dictSet)
	if err != nil {
		return err
	}

	for _, m := range matches {
		gi := owner[m.QueryIndex]
		glossary := stripFormOfPointers(m.Glossary)
		if len(glossary) == 0 {
			continue
		}
		if groupHasDefinitionID(groups[gi], m.ID) {
			continue
		}
		opts := enabled[m.Dictionary]
		groups[gi] = append(groups[gi], newSecondaryEntry(m, glossary, opts))
	}
	return nil
}

func groupHasDefinitionID(group []TermDictionaryEntry, id int64) bool {
	for _, c := range group {
		for _, d := range c.Definitions {
			if d.ID == id {
				return true
			}
		}
	}
	return false
}

// newSecondaryEntry builds a single-headword TermDictionaryEntry for a
// row pulled in by merge mode's sequence or secondary-search joins —
// never from a direct lookup, so every Source/Definition is
// non-primary.
func newSecondaryEntry(row store.TermMatch, glossary []string, opts DictOptions) TermDictionaryEntry {
	src := Source{
		OriginalText:    row.Expression,
		TransformedText: row.Expression,
		DeinflectedText: row.Expression,
		MatchType:       store.MatchExact,
		MatchSource:     store.SourceSequence,
		IsPrimary:       false,
	}
	headword := Headword{
		Term:               row.Expression,
		Reading:            row.Reading,
		Sources:            []Source{src},
		WordClasses:        strings.Fields(row.Rules),
		minDictionaryIndex: opts.Index,
		pendingTags:        tagRefs(row.Dictionary, row.TermTags),
	}
	var sequences []int64
	if row.Sequence != nil {
		sequences = []int64{*row.Sequence}
	}
	def := Definition{
		HeadwordIndices: []int{0},
		Dictionary:      row.Dictionary,
		DictionaryIndex: opts.Index,
		DictionaryAlias: opts.Alias,
		ID:              row.ID,
		Score:           row.Score,
		Sequences:       sequences,
		Glossary:        glossary,
		IsPrimary:       false,
		pendingTags:     tagRefs(row.Dictionary, row.DefinitionTags),
	}
	return TermDictionaryEntry{
		Headwords:   []Headword{headword},
		Definitions: []Definition{def},
		Score:       row.Score,
	}
}
