package translator

import (
	"context"
	"sort"
	"strings"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/condition"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/textproc"
)

// rowHit pairs a surviving stored row with the databaseDeinflection
// that produced it.
type rowHit struct {
	deinflection databaseDeinflection
	row          store.TermMatch
}

// conditionsFromRowRules parses a stored term row's space-separated POS
// rule tokens into a condition mask, using the lenient lookup (unknown
// tokens contribute no bits).
func conditionsFromRowRules(rulesField string, flags map[string]condition.Flags) condition.Flags {
	var mask condition.Flags
	for _, tok := range strings.Fields(rulesField) {
		mask |= flags[tok]
	}
	return mask
}

func dictSetFrom(enabled EnabledDictionaryMap) store.DictSet {
	out := make(store.DictSet, len(enabled))
	for title := range enabled {
		out[title] = true
	}
	return out
}

// bulkLookup deduplicates deinflections by deinflectedText (the
// bulk-query dedup relation is deliberately coarser than the one entry
// merging uses), issues one FindTermsBulk call, and scatters rows
// back to every deinflection sharing that text. A row survives only if
// its dictionary's PartsOfSpeechFilter is false, or the deinflection's
// conditions match the row's parsed rule mask.
func (t *Translator) bulkLookup(ctx context.Context, deinflections []databaseDeinflection, pack *LanguagePack, matchType store.MatchType, enabled EnabledDictionaryMap) ([]rowHit, error) {
	if len(deinflections) == 0 {
		return nil, nil
	}

	uniqueTexts := make([]string, 0, len(deinflections))
	groups := make(map[string][]int)
	for i, d := range deinflections {
		if _, ok := groups[d.deinflectedText]; !ok {
			uniqueTexts = append(uniqueTexts, d.deinflectedText)
		}
		groups[d.deinflectedText] = append(groups[d.deinflectedText], i)
	}

	dictSet := dictSetFrom(enabled)
	matches, err := t.store.FindTermsBulk(ctx, uniqueTexts, dictSet, matchType)
	if err != nil {
		return nil, err
	}

	var hits []rowHit
	for _, m := range matches {
		text := uniqueTexts[m.QueryIndex]
		for _, di := range groups[text] {
			d := deinflections[di]
			opts, ok := enabled[m.Dictionary]
			if !ok {
				continue
			}
			if opts.PartsOfSpeechFilter {
				rowFlags := conditionsFromRowRules(m.Rules, pack.DictionaryFormFlags)
				if !condition.Match(d.conditions, rowFlags) {
					continue
				}
			}
			hits = append(hits, rowHit{deinflection: d, row: m})
		}
	}
	return hits, nil
}

// dictionaryDeinflections synthesizes the second-pass deinflections:
// for each hit whose dictionary has UseDeinflections set and whose
// glossary carries [formOf, rules] pointers, produce one new
// databaseDeinflection per pointer targeting formOf.
func dictionaryDeinflections(hits []rowHit, enabled EnabledDictionaryMap) []databaseDeinflection {
	var out []databaseDeinflection

	for _, h := range hits {
		opts, ok := enabled[h.row.Dictionary]
		if !ok || !opts.UseDeinflections {
			continue
		}
		for _, g := range h.row.Glossary {
			if !g.IsFormOf || g.FormOf == "" {
				continue
			}

			authorRules := make([]RuleRef, len(g.Rules))
			for i, name := range g.Rules {
				authorRules[i] = RuleRef{ID: name, Name: name}
			}

			candidates := make([]InflectionRuleChain, len(h.deinflection.inflectionRuleChainCandidates))
			if len(candidates) == 0 {
				candidates = []InflectionRuleChain{{Source: SourceDictEntry, Rules: authorRules}}
			}
			for i, c := range h.deinflection.inflectionRuleChainCandidates {
				src := SourceBoth
				if len(c.Rules) == 0 {
					src = SourceDictEntry
				}
				merged := make([]RuleRef, 0, len(c.Rules)+len(authorRules))
				merged = append(merged, c.Rules...)
				merged = append(merged, authorRules...)
				candidates[i] = InflectionRuleChain{Source: src, Rules: merged}
			}

			out = append(out, databaseDeinflection{
				originalText:                     h.deinflection.originalText,
				transformedText:                  h.deinflection.transformedText,
				deinflectedText:                  g.FormOf,
				conditions:                       0,
				textProcessorRuleChainCandidates: h.deinflection.textProcessorRuleChainCandidates,
				inflectionRuleChainCandidates:    candidates,
			})
		}
	}

	return out
}

// stripFormOfPointers removes [formOf, rules] pointer entries from a
// row's glossary, returning the plain display glossary. A row left
// with no content is not a definition.
func stripFormOfPointers(entries []store.GlossaryEntry) []string {
	var out []string
	for _, g := range entries {
		if g.IsFormOf {
			continue
		}
		out = append(out, g.Text)
	}
	return out
}

// buildEntries turns every surviving rowHit into a TermDictionaryEntry,
// merging occurrences of the same row id: the occurrence with the
// longer transformed text wins
// outright; ties merge rule-chain candidates (deduplicating, and
// promoting a chain seen from both algorithm and dictionary sources to
// source=both); shorter occurrences are discarded. Rows with no
// surviving glossary content (after stripping formOf pointers) are
// dropped entirely.
func buildEntries(hits []rowHit, enabled EnabledDictionaryMap) []TermDictionaryEntry {
	order := make([]int64, 0, len(hits))
	byID := make(map[int64]int) // row id -> index into entries/firstLen
	firstLen := make(map[int64]int)
	entries := make(map[int64]*TermDictionaryEntry)

	for _, h := range hits {
		glossary := stripFormOfPointers(h.row.Glossary)
		if len(glossary) == 0 {
			continue
		}
		opts := enabled[h.row.Dictionary]
		thisLen := len([]rune(h.deinflection.transformedText))
		origLen := len([]rune(h.deinflection.originalText))

		if _, seen := byID[h.row.ID]; seen {
			existing := entries[h.row.ID]
			switch {
			case thisLen > firstLen[h.row.ID]:
				prevMax := existing.MaxOriginalTextLength
				*existing = newEntryFromHit(h, glossary, opts)
				if prevMax > existing.MaxOriginalTextLength {
					existing.MaxOriginalTextLength = prevMax
				}
				firstLen[h.row.ID] = thisLen
			case thisLen == firstLen[h.row.ID]:
				mergeRuleChainCandidates(existing, h.deinflection)
			default:
				// shorter occurrence: discard
			}
			if origLen > existing.MaxOriginalTextLength {
				existing.MaxOriginalTextLength = origLen
			}
			continue
		}

		entry := newEntryFromHit(h, glossary, opts)
		entries[h.row.ID] = &entry
		byID[h.row.ID] = len(order)
		firstLen[h.row.ID] = thisLen
		order = append(order, h.row.ID)
	}

	out := make([]TermDictionaryEntry, 0, len(order))
	for _, id := range order {
		out = append(out, *entries[id])
	}
	return out
}

func newEntryFromHit(h rowHit, glossary []string, opts DictOptions) TermDictionaryEntry {
	src := Source{
		OriginalText:    h.deinflection.originalText,
		TransformedText: h.deinflection.transformedText,
		DeinflectedText: h.deinflection.deinflectedText,
		MatchType:       h.row.MatchType,
		MatchSource:     h.row.MatchSource,
		IsPrimary:       true,
	}

	headword := Headword{
		Index:              0,
		Term:               h.row.Expression,
		Reading:            h.row.Reading,
		Sources:            []Source{src},
		WordClasses:        strings.Fields(h.row.Rules),
		minDictionaryIndex: opts.Index,
		pendingTags:        tagRefs(h.row.Dictionary, h.row.TermTags),
	}

	var sequences []int64
	if h.row.Sequence != nil {
		sequences = []int64{*h.row.Sequence}
	}

	def := Definition{
		Index:           0,
		HeadwordIndices: []int{0},
		Dictionary:      h.row.Dictionary,
		DictionaryIndex: opts.Index,
		DictionaryAlias: opts.Alias,
		ID:              h.row.ID,
		Score:           h.row.Score,
		Sequences:       sequences,
		Glossary:        glossary,
		IsPrimary:       true,
		pendingTags:     tagRefs(h.row.Dictionary, h.row.DefinitionTags),
	}

	return TermDictionaryEntry{
		Headwords:                        []Headword{headword},
		Definitions:                      []Definition{def},
		InflectionRuleChainCandidates:    cloneChains(h.deinflection.inflectionRuleChainCandidates),
		TextProcessorRuleChainCandidates: h.deinflection.textProcessorRuleChainCandidates,
		Score:                            h.row.Score,
		DictionaryIndex:                  opts.Index,
		MaxOriginalTextLength:            len([]rune(h.deinflection.originalText)),
	}
}

// tagRefs builds a pendingTagRef list from a row's space-separated tag
// field, or nil if it carries no tags.
func tagRefs(dictionary, field string) []pendingTagRef {
	names := strings.Fields(field)
	if len(names) == 0 {
		return nil
	}
	return []pendingTagRef{{dictionary: dictionary, names: names}}
}

func cloneChains(in []InflectionRuleChain) []InflectionRuleChain {
	out := make([]InflectionRuleChain, len(in))
	copy(out, in)
	return out
}

// mergeRuleChainCandidates merges a tied occurrence's rule-chain
// candidates into existing, deduplicating by unordered rule-id
// equality and promoting a chain seen from both sources to source=both.
func mergeRuleChainCandidates(existing *TermDictionaryEntry, d databaseDeinflection) {
	existing.TextProcessorRuleChainCandidates = mergeTextProcessorChains(existing.TextProcessorRuleChainCandidates, d.textProcessorRuleChainCandidates)
	existing.InflectionRuleChainCandidates = mergeInflectionChains(existing.InflectionRuleChainCandidates, d.inflectionRuleChainCandidates)
}

func chainRuleKey(ids []string) string { return strings.Join(ids, "\x00") }

func ruleIDs(rules []RuleRef) []string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}

func mergeInflectionChains(existing, incoming []InflectionRuleChain) []InflectionRuleChain {
	type slot struct {
		idx int
	}
	// Chains naming the same rules in a different order share a key.
	unorderedKey := func(rules []RuleRef) string {
		ids := ruleIDs(rules)
		sort.Strings(ids)
		return chainRuleKey(ids)
	}
	byKey := make(map[string]slot, len(existing))
	for i, c := range existing {
		byKey[unorderedKey(c.Rules)] = slot{i}
	}

	for _, c := range incoming {
		key := unorderedKey(c.Rules)
		if s, ok := byKey[key]; ok {
			if existing[s.idx].Source != c.Source {
				existing[s.idx].Source = SourceBoth
			}
			continue
		}
		byKey[key] = slot{len(existing)}
		existing = append(existing, c)
	}
	return existing
}

func mergeTextProcessorChains(existing, incoming []textproc.Chain) []textproc.Chain {
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[strings.Join(c, "\x00")] = true
	}
	for _, c := range incoming {
		k := strings.Join(c, "\x00")
		if seen[k] {
			continue
		}
		seen[k] = true
		existing = append(existing, c)
	}
	return existing
}
