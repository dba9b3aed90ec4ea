// Package translator implements the lookup core: it
// orchestrates variant generation, deinflection, dictionary-store
// queries, and result assembly, producing ranked, deduplicated
// TermDictionaryEntry and KanjiDictionaryEntry results.
package translator

import (
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/tags"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/textproc"
)

// Mode selects how findTerms regroups raw matches.
type Mode string

const (
	ModeGroup  Mode = "group"
	ModeTerm   Mode = "term"
	ModeMerge  Mode = "merge"
	ModeSimple Mode = "simple"
)

// SearchResolution controls how far a prefix is decremented between
// lookup attempts.
type SearchResolution string

const (
	ResolutionLetter SearchResolution = "letter"
	ResolutionWord   SearchResolution = "word"
)

// FrequencyOrderDirection selects ascending or descending sort-frequency
// injection.
type FrequencyOrderDirection string

const (
	FrequencyAscending  FrequencyOrderDirection = "ascending"
	FrequencyDescending FrequencyOrderDirection = "descending"
)

// RuleChainSource is the closed three-value tag on an inflection rule
// chain: whether it was produced by the algorithmic transformer, by a
// dictionary-author-supplied formOf pointer, or by both independently
// arriving at the same chain.
type RuleChainSource string

const (
	SourceAlgorithm RuleChainSource = "algorithm"
	SourceDictEntry RuleChainSource = "dictionary"
	SourceBoth      RuleChainSource = "both"
)

// RuleRef names one inflection rule within a chain: its stable internal
// transform id, and (once presented) its user-facing name and
// optional description. Unknown ids present as Name == ID.
type RuleRef struct {
	ID          string
	Name        string
	Description string
}

// InflectionRuleChain is one candidate derivation path reaching a
// deinflected form, tagged with where it came from.
type InflectionRuleChain struct {
	Source RuleChainSource
	Rules  []RuleRef
}

// Source records where one headword occurrence came from: the raw
// input slice, the text-processor-transformed text, the deinflected
// form, and the kind of match.
type Source struct {
	OriginalText    string
	TransformedText string
	DeinflectedText string
	MatchType       store.MatchType
	MatchSource     store.MatchSource
	IsPrimary       bool
}

// Headword is a (term, reading) pair under which definitions are
// grouped, carrying every Source that contributed to it.
type Headword struct {
	Index       int
	Term        string
	Reading     string
	Sources     []Source
	Tags        []tags.Tag
	WordClasses []string

	// minDictionaryIndex tracks the lowest EnabledDictionaryMap index of
	// any contributor, used to order headwords during grouping.
	// Not part of the public result shape.
	minDictionaryIndex int

	// pendingTags carries each contributor's raw (dictionary, tagName)
	// references until the single post-grouping tags.Aggregator pass
	// resolves them into Tags. Not part of the public
	// result shape.
	pendingTags []pendingTagRef
}

// pendingTagRef is one contributor's unresolved tag-name list from a
// given dictionary, queued for batch resolution after grouping.
type pendingTagRef struct {
	dictionary string
	names      []string
}

// Definition is one dictionary's glossary entry attached to a subset of
// an entry's headwords.
type Definition struct {
	Index           int
	HeadwordIndices []int
	Dictionary      string
	DictionaryIndex int
	DictionaryAlias string
	ID              int64
	Score           float64
	Sequences       []int64
	Tags            []tags.Tag
	Glossary        []string
	IsPrimary       bool
	FrequencyOrder  int

	// pendingTags mirrors Headword.pendingTags for this definition's own
	// DefinitionTags. Not part of the public result shape.
	pendingTags []pendingTagRef
}

// TermFrequency is one frequency record attached to a headword.
type TermFrequency struct {
	HeadwordIndex   int
	Index           int
	Dictionary      string
	DictionaryIndex int
	DictionaryAlias string
	Number          float64
	DisplayValue    string
	Reading         string
}

// Pitch is one pitch-accent record.
type Pitch struct {
	Position int
	Nasal    []int
	Devoice  []int
	Tags     []string
}

// IPATranscription is one IPA record.
type IPATranscription struct {
	IPA  string
	Tags []string
}

// Pronunciation is one pitch/IPA record attached to a headword.
type Pronunciation struct {
	HeadwordIndex   int
	Index           int
	Dictionary      string
	DictionaryIndex int
	DictionaryAlias string
	Reading         string
	Pitches         []Pitch
	IPA             []IPATranscription
}

// TermDictionaryEntry is the in-memory result of a findTerms lookup:
// one or more headwords, the definitions grouped under them, and
// parallel per-headword frequency/pronunciation lists, plus the
// scoring fields the global comparator sorts on.
type TermDictionaryEntry struct {
	Headwords      []Headword
	Definitions    []Definition
	Frequencies    []TermFrequency
	Pronunciations []Pronunciation

	InflectionRuleChainCandidates    []InflectionRuleChain
	TextProcessorRuleChainCandidates []textproc.Chain

	Score                     float64
	DictionaryIndex           int
	FrequencyOrder            int
	SourceTermExactMatchCount int
	MatchPrimaryReading       bool
	MaxOriginalTextLength     int
}

// KanjiFrequency is one frequency record attached to a kanji entry.
type KanjiFrequency struct {
	Index           int
	Dictionary      string
	DictionaryIndex int
	DictionaryAlias string
	Number          float64
	DisplayValue    string
}

// KanjiDictionaryEntry is the in-memory result of a findKanji lookup.
type KanjiDictionaryEntry struct {
	Character       string
	Onyomi          string
	Kunyomi         string
	Dictionary      string
	DictionaryIndex int
	DictionaryAlias string
	Tags            []tags.Tag
	Stats           map[string]tags.Tag
	Meanings        []string
	Frequencies     []KanjiFrequency
}
