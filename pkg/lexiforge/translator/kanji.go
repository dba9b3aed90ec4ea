package translator

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/freq"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/tags"
)

// kanjiStatSlot tracks where one resolved stat tag belongs once the
// Aggregator batch finishes: entries[entryIdx].Stats[statName].
type kanjiStatSlot struct {
	entryIdx int
	statName string
	value    string
	resolved []tags.Tag
}

// FindKanji looks up every distinct character in text against each
// enabled dictionary's kanji table, attaching tags,
// kanji stats (themselves tag references), and
// frequency records, returning one KanjiDictionaryEntry per
// (character, dictionary) match.
func (t *Translator) FindKanji(ctx context.Context, text string, enabled EnabledDictionaryMap) ([]KanjiDictionaryEntry, error) {
	if text == "" {
		return nil, nil
	}

	seen := make(map[string]bool)
	var chars []string
	for _, r := range text {
		ch := string(r)
		if seen[ch] {
			continue
		}
		seen[ch] = true
		chars = append(chars, ch)
	}
	if len(chars) == 0 {
		return nil, nil
	}

	dictSet := dictSetFrom(enabled)
	rows, err := t.store.FindKanjiBulk(ctx, chars, dictSet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	entries := make([]KanjiDictionaryEntry, len(rows))
	agg := tags.NewAggregator(t.tagCache)
	var statSlots []*kanjiStatSlot

	for i, row := range rows {
		opts := enabled[row.Dictionary]
		entries[i] = KanjiDictionaryEntry{
			Character:       row.Character,
			Onyomi:          row.Onyomi,
			Kunyomi:         row.Kunyomi,
			Dictionary:      row.Dictionary,
			DictionaryIndex: opts.Index,
			DictionaryAlias: opts.Alias,
			Meanings:        row.Meanings,
			Stats:           make(map[string]tags.Tag, len(row.Stats)),
		}

		if names := strings.Fields(row.Tags); len(names) > 0 {
			slot := agg.NewSlot(&entries[i].Tags)
			agg.AddTags(slot, row.Dictionary, names)
		}

		for statName, value := range row.Stats {
			s := &kanjiStatSlot{entryIdx: i, statName: statName, value: value}
			slot := agg.NewSlot(&s.resolved)
			agg.AddTags(slot, row.Dictionary, []string{statName})
			statSlots = append(statSlots, s)
		}
	}

	if err := agg.Expand(ctx, t.store); err != nil {
		return nil, err
	}

	for _, s := range statSlots {
		if len(s.resolved) == 0 {
			continue
		}
		tag := s.resolved[0]
		tag.Notes = mergeStatNote(tag.Notes, s.value)
		entries[s.entryIdx].Stats[s.statName] = tag
	}

	if err := t.attachKanjiFrequencies(ctx, entries, enabled); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DictionaryIndex < entries[j].DictionaryIndex
	})

	return entries, nil
}

// mergeStatNote folds a stat's display value into its resolved tag's
// notes, so a reader sees both the tag's description and the kanji's
// actual value for it (e.g. grade=6).
func mergeStatNote(notes, value string) string {
	if value == "" {
		return notes
	}
	if notes == "" {
		return value
	}
	return notes + ": " + value
}

// attachKanjiFrequencies bulk-fetches kanji-meta freq rows for every
// distinct character across entries.
func (t *Translator) attachKanjiFrequencies(ctx context.Context, entries []KanjiDictionaryEntry, enabled EnabledDictionaryMap) error {
	seen := make(map[string]bool)
	var chars []string
	for _, e := range entries {
		if !seen[e.Character] {
			seen[e.Character] = true
			chars = append(chars, e.Character)
		}
	}

	rows, err := t.store.FindKanjiMetaBulk(ctx, chars, dictSetFrom(enabled))
	if err != nil {
		return err
	}

	byChar := make(map[string][]store.KanjiMetaMatch, len(chars))
	for _, r := range rows {
		byChar[chars[r.QueryIndex]] = append(byChar[chars[r.QueryIndex]], r)
	}

	for i := range entries {
		e := &entries[i]
		for _, row := range byChar[e.Character] {
			if row.Mode != "freq" || row.Dictionary != e.Dictionary {
				continue
			}
			v, err := freq.ParseFreqData(row.Dictionary, row.Data)
			if err != nil {
				log.Printf("lexiforge: malformed_row dict=%q character=%q mode=%q: %v",
					row.Dictionary, row.Character, row.Mode, err)
				continue
			}
			e.Frequencies = append(e.Frequencies, KanjiFrequency{
				Index:           len(e.Frequencies),
				Dictionary:      row.Dictionary,
				DictionaryIndex: e.DictionaryIndex,
				DictionaryAlias: e.DictionaryAlias,
				Number:          v.Number,
				DisplayValue:    v.DisplayValue,
			})
		}
	}
	return nil
}
