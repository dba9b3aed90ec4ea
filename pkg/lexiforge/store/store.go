// Package store defines the dictionary backing-store interface and its
// row types: the bulk query surface the translator drives, and the
// plain CRUD surface a dictionary importer (out of scope here) would
// use to populate it.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// MatchType is how a query term was matched against a stored index.
type MatchType string

const (
	MatchExact  MatchType = "exact"
	MatchPrefix MatchType = "prefix"
	MatchSuffix MatchType = "suffix"
)

// MatchSource names which index produced a match.
type MatchSource string

const (
	SourceTerm     MatchSource = "term"
	SourceReading  MatchSource = "reading"
	SourceSequence MatchSource = "sequence"
)

// Dictionary is the persisted record of one imported dictionary.
type Dictionary struct {
	ID               int64
	Title            string
	Revision         string
	ImportDateUnix   int64
	TermCount        int
	TermMetaCount    int
	KanjiCount       int
	KanjiMetaCount   int
	TagCount         int
	MediaCount       int
	Stylesheet       string
	IsUpdatable      bool
	IndexURL         string
	DownloadURL      string
}

// TermRow is one persisted term entry.
type TermRow struct {
	ID                int64
	Dictionary        string
	Expression        string
	Reading           string
	ExpressionReverse string
	ReadingReverse    string
	DefinitionTags    string
	TermTags          string
	Rules             string
	Score             float64
	Glossary          []GlossaryEntry
	Sequence          *int64
}

// GlossaryEntry is one element of a term row's glossary. Most entries
// are plain display text; a dictionary author may instead encode a
// custom deinflection pointer as a two-element array of
// [formOf, [inflectionRuleNames]]. This type
// round-trips both shapes through JSON without the caller needing to
// special-case the array form.
type GlossaryEntry struct {
	Text     string
	IsFormOf bool
	FormOf   string
	Rules    []string
}

// MarshalJSON emits a plain string for ordinary glossary text, or a
// [formOf, rules] two-element array for a dictionary-deinflection
// pointer.
func (g GlossaryEntry) MarshalJSON() ([]byte, error) {
	if g.IsFormOf {
		return json.Marshal([2]any{g.FormOf, g.Rules})
	}
	return json.Marshal(g.Text)
}

// UnmarshalJSON accepts either shape: a bare string, or a
// [formOf, rules] array.
func (g *GlossaryEntry) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*g = GlossaryEntry{Text: text}
		return nil
	}

	var tuple [2]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("glossary entry: neither a string nor a [formOf, rules] pair: %w", err)
	}
	var formOf string
	if err := json.Unmarshal(tuple[0], &formOf); err != nil {
		return fmt.Errorf("glossary entry: formOf: %w", err)
	}
	var rules []string
	if err := json.Unmarshal(tuple[1], &rules); err != nil {
		return fmt.Errorf("glossary entry: rules: %w", err)
	}
	*g = GlossaryEntry{IsFormOf: true, FormOf: formOf, Rules: rules}
	return nil
}

// TermMatch is a TermRow annotated with how it was matched and which
// input (by index) produced it, so callers can scatter results back to
// their original query slice.
type TermMatch struct {
	TermRow
	MatchType   MatchType
	MatchSource MatchSource
	QueryIndex  int
}

// TermMetaRow is one persisted term-meta entry: mode-dependent data
// keyed on (dictionary, expression). Data holds the mode's raw payload
// (a JSON-decodable freq/pitch/ipa value); this package is agnostic
// to its internal shape.
type TermMetaRow struct {
	ID         int64
	Dictionary string
	Expression string
	Mode       string
	Data       []byte
}

// TermMetaMatch pairs a TermMetaRow with its originating query index.
type TermMetaMatch struct {
	TermMetaRow
	QueryIndex int
}

// KanjiRow is one persisted kanji entry.
type KanjiRow struct {
	ID         int64
	Dictionary string
	Character  string
	Onyomi     string
	Kunyomi    string
	Tags       string
	Meanings   []string
	Stats      map[string]string
}

// KanjiMetaRow is one persisted kanji-meta entry.
type KanjiMetaRow struct {
	ID         int64
	Dictionary string
	Character  string
	Mode       string
	Data       []byte
}

// KanjiMetaMatch pairs a KanjiMetaRow with its originating query index.
type KanjiMetaMatch struct {
	KanjiMetaRow
	QueryIndex int
}

// KanjiMatch pairs a KanjiRow with its originating query index.
type KanjiMatch struct {
	KanjiRow
	QueryIndex int
}

// TagRow is one persisted tag entry, looked up by (dictionary, name).
type TagRow struct {
	ID         int64
	Dictionary string
	Name       string
	Category   string
	Order      int
	Notes      string
	Score      float64
}

// MediaRow is one persisted media entry, looked up by (dictionary, path).
type MediaRow struct {
	ID         int64
	Dictionary string
	Path       string
	MediaType  string
	Width      int
	Height     int
	Content    []byte
}

// TermExactQuery is one (term, reading) pair for findTermsExactBulk.
type TermExactQuery struct {
	Term    string
	Reading string
}

// SequenceQuery is one (sequence, dictionary) pair for
// findTermsBySequenceBulk.
type SequenceQuery struct {
	Sequence   int64
	Dictionary string
}

// TagQuery is one (dictionary, name) pair for findTagMetaBulk.
type TagQuery struct {
	Dictionary string
	Name       string
}

// MediaQuery is one (dictionary, path) pair for getMedia.
type MediaQuery struct {
	Dictionary string
	Path       string
}

// DictSet is an allowlist of dictionary titles to search within.
type DictSet map[string]bool

// Store is the dictionary backing store's full query and mutation
// surface. All bulk operations are read-only and preserve the caller's
// input index on every returned row: callers scatter results back to
// their original query slice using QueryIndex. The memstore
// implementation answers each bulk call under one read lock; the sqlite
// implementation runs one query per input item and index column with no
// surrounding transaction, so one bulk call is not a single snapshot.
// Writes require the store to be open; closing the
// store while a lookup is pending is an error.
type Store interface {
	Close() error

	// Dictionaries
	CreateDictionary(ctx context.Context, d Dictionary) (int64, error)
	GetDictionary(ctx context.Context, title string) (Dictionary, bool, error)
	ListDictionaries(ctx context.Context) ([]Dictionary, error)
	DeleteDictionary(ctx context.Context, title string) error

	// Bulk inserts, used by a seeding/import caller.
	InsertTerms(ctx context.Context, rows []TermRow) error
	InsertTermMeta(ctx context.Context, rows []TermMetaRow) error
	InsertKanji(ctx context.Context, rows []KanjiRow) error
	InsertKanjiMeta(ctx context.Context, rows []KanjiMetaRow) error
	InsertTags(ctx context.Context, rows []TagRow) error
	InsertMedia(ctx context.Context, rows []MediaRow) error

	// Bulk query surface.
	FindTermsBulk(ctx context.Context, termList []string, dictSet DictSet, matchType MatchType) ([]TermMatch, error)
	FindTermsExactBulk(ctx context.Context, items []TermExactQuery, dictSet DictSet) ([]TermMatch, error)
	FindTermsBySequenceBulk(ctx context.Context, items []SequenceQuery) ([]TermMatch, error)
	FindTermMetaBulk(ctx context.Context, termList []string, dictSet DictSet) ([]TermMetaMatch, error)
	FindKanjiBulk(ctx context.Context, charList []string, dictSet DictSet) ([]KanjiMatch, error)
	FindKanjiMetaBulk(ctx context.Context, charList []string, dictSet DictSet) ([]KanjiMetaMatch, error)
	FindTagMetaBulk(ctx context.Context, items []TagQuery) ([]TagRow, error)
	GetMedia(ctx context.Context, items []MediaQuery) ([]MediaRow, error)
}
