package translator

import (
	"regexp"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
)

// DictOptions is one dictionary's entry in the caller-supplied
// enabled-dictionary map: its global sort order, display
// alias, and per-dictionary lookup behavior flags.
type DictOptions struct {
	Index                  int
	Alias                  string
	AllowSecondarySearches bool
	PartsOfSpeechFilter    bool
	UseDeinflections       bool
}

// EnabledDictionaryMap is the caller-supplied allowlist+config for a
// lookup: dictionary title to its DictOptions. A dictionary absent from
// this map is skipped entirely.
type EnabledDictionaryMap map[string]DictOptions

// TextReplacement is one user-supplied regex/replacement pair, applied
// as a prepended identity-style text processor.
type TextReplacement struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Options configures one findTerms/findKanji call.
type Options struct {
	Mode                         Mode
	MatchType                    store.MatchType
	Deinflect                    bool
	PrimaryReading               string
	MainDictionary               string
	SortFrequencyDictionary      string
	SortFrequencyDictionaryOrder FrequencyOrderDirection
	RemoveNonJapaneseCharacters  bool
	TextReplacements             []TextReplacement
	EnabledDictionaryMap         EnabledDictionaryMap
	ExcludeDictionaryDefinitions []string
	SearchResolution             SearchResolution
	Language                     string
}
