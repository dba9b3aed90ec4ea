package translator

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/freq"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/tags"
)

// expandTags runs the single post-grouping tag resolution pass: every
// headword and definition across entries queues its
// pendingTags into one Aggregator, resolved in one batch against the
// shared tag cache, then flagRedundantTags marks a definition's
// partOfSpeech tags redundant when they repeat the previous
// same-dictionary definition's set.
func expandTags(ctx context.Context, s store.Store, cache *tags.Cache, entries []TermDictionaryEntry) error {
	agg := tags.NewAggregator(cache)

	for ei := range entries {
		for hi := range entries[ei].Headwords {
			hw := &entries[ei].Headwords[hi]
			if len(hw.pendingTags) == 0 {
				continue
			}
			slot := agg.NewSlot(&hw.Tags)
			for _, ref := range hw.pendingTags {
				agg.AddTags(slot, ref.dictionary, ref.names)
			}
			hw.pendingTags = nil
		}
		for di := range entries[ei].Definitions {
			def := &entries[ei].Definitions[di]
			if len(def.pendingTags) == 0 {
				continue
			}
			slot := agg.NewSlot(&def.Tags)
			for _, ref := range def.pendingTags {
				agg.AddTags(slot, ref.dictionary, ref.names)
			}
			def.pendingTags = nil
		}
	}

	if err := agg.Expand(ctx, s); err != nil {
		return err
	}

	for ei := range entries {
		flagRedundantTags(&entries[ei])
	}
	return nil
}

const partOfSpeechCategory = "partOfSpeech"

// flagRedundantTags: within a single dictionary, if a definition's sorted set of partOfSpeech-category tag
// names equals the immediately preceding definition's (in the order
// Definitions were encountered during assembly), its partOfSpeech tags
// are marked Redundant — the reader sees the part-of-speech once per
// run of same-POS senses, not on every one. Tags outside that category
// are never touched and stay Redundant=false.
func flagRedundantTags(e *TermDictionaryEntry) {
	lastPOSKeyByDict := make(map[string]string, len(e.Definitions))

	for di := range e.Definitions {
		def := &e.Definitions[di]

		names := make([]string, 0, len(def.Tags))
		for _, t := range def.Tags {
			if t.Category == partOfSpeechCategory {
				names = append(names, t.Name)
			}
		}
		sort.Strings(names)
		key := strings.Join(names, "\x00")

		redundant := key != "" && lastPOSKeyByDict[def.Dictionary] == key
		lastPOSKeyByDict[def.Dictionary] = key

		for ti := range def.Tags {
			if def.Tags[ti].Category == partOfSpeechCategory {
				def.Tags[ti].Redundant = redundant
			}
		}
	}
}

// enrichFrequenciesAndPronunciations bulk-fetches term-meta rows for
// every distinct headword term across entries and distributes the
// decoded freq/pitch/ipa records back onto each contributing headword.
func enrichFrequenciesAndPronunciations(ctx context.Context, s store.Store, enabled EnabledDictionaryMap, entries []TermDictionaryEntry) error {
	termSet := make(map[string]bool)
	var terms []string
	for _, e := range entries {
		for _, hw := range e.Headwords {
			if !termSet[hw.Term] {
				termSet[hw.Term] = true
				terms = append(terms, hw.Term)
			}
		}
	}
	if len(terms) == 0 {
		return nil
	}

	dictSet := dictSetFrom(enabled)
	rows, err := s.FindTermMetaBulk(ctx, terms, dictSet)
	if err != nil {
		return err
	}

	byTerm := make(map[string][]store.TermMetaMatch, len(terms))
	for _, r := range rows {
		byTerm[terms[r.QueryIndex]] = append(byTerm[terms[r.QueryIndex]], r)
	}

	for ei := range entries {
		e := &entries[ei]
		for hi := range e.Headwords {
			applyTermMeta(e, hi, byTerm[e.Headwords[hi].Term], enabled)
		}
	}
	return nil
}

// applyTermMeta distributes one headword's decoded meta rows onto the
// entry. A freq payload carrying a reading only applies to a headword
// with that reading; one without a reading applies to any. Pitch and
// ipa payloads always name a reading and are filtered the same way.
// A payload that fails to decode is logged and skipped; the lookup
// continues.
func applyTermMeta(e *TermDictionaryEntry, headwordIdx int, rows []store.TermMetaMatch, enabled EnabledDictionaryMap) {
	hw := &e.Headwords[headwordIdx]
	for _, row := range rows {
		opts := enabled[row.Dictionary]
		switch row.Mode {
		case "freq":
			v, err := freq.ParseFreqData(row.Dictionary, row.Data)
			if err != nil {
				logMalformedRow(row, err)
				continue
			}
			if v.Reading != "" && v.Reading != hw.Reading {
				continue
			}
			e.Frequencies = append(e.Frequencies, TermFrequency{
				HeadwordIndex:   hw.Index,
				Index:           len(e.Frequencies),
				Dictionary:      row.Dictionary,
				DictionaryIndex: opts.Index,
				DictionaryAlias: opts.Alias,
				Number:          v.Number,
				DisplayValue:    v.DisplayValue,
				Reading:         v.Reading,
			})
		case "pitch":
			var payload struct {
				Reading string `json:"reading"`
				Pitches []struct {
					Position int      `json:"position"`
					Nasal    []int    `json:"nasal"`
					Devoice  []int    `json:"devoice"`
					Tags     []string `json:"tags"`
				} `json:"pitches"`
			}
			if err := json.Unmarshal(row.Data, &payload); err != nil {
				logMalformedRow(row, err)
				continue
			}
			if payload.Reading != "" && payload.Reading != hw.Reading {
				continue
			}
			pitches := make([]Pitch, len(payload.Pitches))
			for i, p := range payload.Pitches {
				pitches[i] = Pitch{Position: p.Position, Nasal: p.Nasal, Devoice: p.Devoice, Tags: p.Tags}
			}
			e.Pronunciations = append(e.Pronunciations, Pronunciation{
				HeadwordIndex:   hw.Index,
				Index:           len(e.Pronunciations),
				Dictionary:      row.Dictionary,
				DictionaryIndex: opts.Index,
				DictionaryAlias: opts.Alias,
				Reading:         payload.Reading,
				Pitches:         pitches,
			})
		case "ipa":
			var payload struct {
				Reading        string `json:"reading"`
				Transcriptions []struct {
					IPA  string   `json:"ipa"`
					Tags []string `json:"tags"`
				} `json:"transcriptions"`
			}
			if err := json.Unmarshal(row.Data, &payload); err != nil {
				logMalformedRow(row, err)
				continue
			}
			if payload.Reading != "" && payload.Reading != hw.Reading {
				continue
			}
			ipas := make([]IPATranscription, len(payload.Transcriptions))
			for i, t := range payload.Transcriptions {
				ipas[i] = IPATranscription{IPA: t.IPA, Tags: t.Tags}
			}
			e.Pronunciations = append(e.Pronunciations, Pronunciation{
				HeadwordIndex:   hw.Index,
				Index:           len(e.Pronunciations),
				Dictionary:      row.Dictionary,
				DictionaryIndex: opts.Index,
				DictionaryAlias: opts.Alias,
				Reading:         payload.Reading,
				IPA:             ipas,
			})
		}
	}
}

func logMalformedRow(row store.TermMetaMatch, err error) {
	log.Printf("lexiforge: malformed_row dict=%q expression=%q mode=%q: %v",
		row.Dictionary, row.Expression, row.Mode, err)
}

// excludeDictionaryDefinitions drops every Definition, frequency,
// pronunciation, and tag-group membership belonging to an excluded
// dictionary, then removes any headword left with no remaining
// definition referencing it and remaps the survivors' indices.
func excludeDictionaryDefinitions(e *TermDictionaryEntry, excluded map[string]bool) {
	if len(excluded) == 0 {
		return
	}

	var kept []Definition
	for _, def := range e.Definitions {
		if excluded[def.Dictionary] {
			continue
		}
		kept = append(kept, def)
	}
	e.Definitions = kept

	referenced := make(map[int]bool)
	for _, def := range e.Definitions {
		for _, hi := range def.HeadwordIndices {
			referenced[hi] = true
		}
	}

	remap := make(map[int]int, len(e.Headwords))
	var headwords []Headword
	for _, hw := range e.Headwords {
		if !referenced[hw.Index] {
			continue
		}
		remap[hw.Index] = len(headwords)
		hw.Index = len(headwords)
		headwords = append(headwords, hw)
	}
	e.Headwords = headwords

	for di := range e.Definitions {
		indices := e.Definitions[di].HeadwordIndices
		for i, old := range indices {
			indices[i] = remap[old]
		}
	}

	var freqs []TermFrequency
	for _, f := range e.Frequencies {
		if excluded[f.Dictionary] {
			continue
		}
		if newIdx, ok := remap[f.HeadwordIndex]; ok {
			f.HeadwordIndex = newIdx
			freqs = append(freqs, f)
		}
	}
	e.Frequencies = freqs

	var prons []Pronunciation
	for _, p := range e.Pronunciations {
		if excluded[p.Dictionary] {
			continue
		}
		if newIdx, ok := remap[p.HeadwordIndex]; ok {
			p.HeadwordIndex = newIdx
			prons = append(prons, p)
		}
	}
	e.Pronunciations = prons

	for i := range e.Headwords {
		e.Headwords[i].Tags = excludeTagMembers(e.Headwords[i].Tags, excluded)
	}
	for i := range e.Definitions {
		e.Definitions[i].Tags = excludeTagMembers(e.Definitions[i].Tags, excluded)
	}
}

// excludeTagMembers removes excluded dictionaries from each tag's
// membership set, dropping a tag whose every contributor was excluded.
// Tags are shared by reference within one lookup, so a retained tag is
// copied before its set shrinks.
func excludeTagMembers(in []tags.Tag, excluded map[string]bool) []tags.Tag {
	out := in[:0]
	for _, t := range in {
		hit := false
		for d := range t.Dictionaries {
			if excluded[d] {
				hit = true
				break
			}
		}
		if hit {
			kept := make(map[string]bool, len(t.Dictionaries))
			for d, v := range t.Dictionaries {
				if !excluded[d] {
					kept[d] = v
				}
			}
			if len(kept) == 0 {
				continue
			}
			t.Dictionaries = kept
		}
		out = append(out, t)
	}
	return out
}
