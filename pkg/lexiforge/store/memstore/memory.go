// Package memstore is an in-memory store.Store used by tests; it
// implements the same bulk query surface as the sqlite store without
// touching disk.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/internalerr"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	closed       bool
	nextID       int64
	dictionaries map[string]store.Dictionary
	terms        []store.TermRow
	termMeta     []store.TermMetaRow
	kanji        []store.KanjiRow
	kanjiMeta    []store.KanjiMetaRow
	tags         map[string]store.TagRow // key: dictionary + "\x00" + name
	media        map[string]store.MediaRow
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextID:       1,
		dictionaries: make(map[string]store.Dictionary),
		tags:         make(map[string]store.TagRow),
		media:        make(map[string]store.MediaRow),
	}
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// errClosed mirrors the sqlite store: every operation on a closed store
// fails rather than answering from stale state.
func (s *Store) errClosed() error {
	if s.closed {
		return internalerr.New(internalerr.KindStoreUnavailable, "store is closed")
	}
	return nil
}

func tagKey(dictionary, name string) string { return dictionary + "\x00" + name }
func mediaKey(dictionary, path string) string { return dictionary + "\x00" + path }

func (s *Store) CreateDictionary(_ context.Context, d store.Dictionary) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errClosed(); err != nil {
		return 0, err
	}

	if existing, ok := s.dictionaries[d.Title]; ok {
		d.ID = existing.ID
	} else {
		d.ID = s.nextID
		s.nextID++
	}
	s.dictionaries[d.Title] = d
	return d.ID, nil
}

func (s *Store) GetDictionary(_ context.Context, title string) (store.Dictionary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.errClosed(); err != nil {
		return store.Dictionary{}, false, err
	}
	d, ok := s.dictionaries[title]
	return d, ok, nil
}

func (s *Store) ListDictionaries(_ context.Context) ([]store.Dictionary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.errClosed(); err != nil {
		return nil, err
	}
	out := make([]store.Dictionary, 0, len(s.dictionaries))
	for _, d := range s.dictionaries {
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) DeleteDictionary(_ context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errClosed(); err != nil {
		return err
	}

	delete(s.dictionaries, title)
	s.terms = filterOutDict(s.terms, title, func(r store.TermRow) string { return r.Dictionary })
	s.termMeta = filterOutDict(s.termMeta, title, func(r store.TermMetaRow) string { return r.Dictionary })
	s.kanji = filterOutDict(s.kanji, title, func(r store.KanjiRow) string { return r.Dictionary })
	s.kanjiMeta = filterOutDict(s.kanjiMeta, title, func(r store.KanjiMetaRow) string { return r.Dictionary })
	for k, t := range s.tags {
		if t.Dictionary == title {
			delete(s.tags, k)
		}
	}
	for k, m := range s.media {
		if m.Dictionary == title {
			delete(s.media, k)
		}
	}
	return nil
}

func filterOutDict[T any](rows []T, title string, dict func(T) string) []T {
	out := rows[:0:0]
	for _, r := range rows {
		if dict(r) != title {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) InsertTerms(_ context.Context, rows []store.TermRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errClosed(); err != nil {
		return err
	}
	for _, r := range rows {
		r.ID = s.nextID
		s.nextID++
		if r.Reading == "" {
			r.Reading = r.Expression
		}
		s.terms = append(s.terms, r)
	}
	return nil
}

func (s *Store) InsertTermMeta(_ context.Context, rows []store.TermMetaRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errClosed(); err != nil {
		return err
	}
	for _, r := range rows {
		r.ID = s.nextID
		s.nextID++
		s.termMeta = append(s.termMeta, r)
	}
	return nil
}

func (s *Store) InsertKanji(_ context.Context, rows []store.KanjiRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errClosed(); err != nil {
		return err
	}
	for _, r := range rows {
		r.ID = s.nextID
		s.nextID++
		s.kanji = append(s.kanji, r)
	}
	return nil
}

func (s *Store) InsertKanjiMeta(_ context.Context, rows []store.KanjiMetaRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errClosed(); err != nil {
		return err
	}
	for _, r := range rows {
		r.ID = s.nextID
		s.nextID++
		s.kanjiMeta = append(s.kanjiMeta, r)
	}
	return nil
}

func (s *Store) InsertTags(_ context.Context, rows []store.TagRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errClosed(); err != nil {
		return err
	}
	for _, r := range rows {
		key := tagKey(r.Dictionary, r.Name)
		if existing, ok := s.tags[key]; ok {
			r.ID = existing.ID
		} else {
			r.ID = s.nextID
			s.nextID++
		}
		s.tags[key] = r
	}
	return nil
}

func (s *Store) InsertMedia(_ context.Context, rows []store.MediaRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errClosed(); err != nil {
		return err
	}
	for _, r := range rows {
		key := mediaKey(r.Dictionary, r.Path)
		if existing, ok := s.media[key]; ok {
			r.ID = existing.ID
		} else {
			r.ID = s.nextID
			s.nextID++
		}
		s.media[key] = r
	}
	return nil
}

func dictAllowed(dictSet store.DictSet, dictionary string) bool {
	if len(dictSet) == 0 {
		return true
	}
	return dictSet[dictionary]
}

// FindTermsBulk mirrors the sqlite implementation's semantics: per
// input term, scan the forward or reverse index per matchType, dedup by
// row id within this call, and promote matchType to exact on an exact
// stored-value match.
func (s *Store) FindTermsBulk(_ context.Context, termList []string, dictSet store.DictSet, matchType store.MatchType) ([]store.TermMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.errClosed(); err != nil {
		return nil, err
	}

	var out []store.TermMatch
	seen := make(map[int64]bool)

	for idx, term := range termList {
		for _, r := range s.terms {
			if !dictAllowed(dictSet, r.Dictionary) {
				continue
			}
			source, matched, exact := matchTerm(r, term, matchType)
			if !matched {
				continue
			}
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			mt := matchType
			if exact {
				mt = store.MatchExact
			}
			out = append(out, store.TermMatch{TermRow: r, MatchType: mt, MatchSource: source, QueryIndex: idx})
		}
	}
	return out, nil
}

func matchTerm(r store.TermRow, term string, matchType store.MatchType) (store.MatchSource, bool, bool) {
	switch matchType {
	case store.MatchExact:
		if r.Expression == term {
			return store.SourceTerm, true, true
		}
		if r.Reading == term {
			return store.SourceReading, true, true
		}
	case store.MatchPrefix:
		if strings.HasPrefix(r.Expression, term) {
			return store.SourceTerm, true, r.Expression == term
		}
		if strings.HasPrefix(r.Reading, term) {
			return store.SourceReading, true, r.Reading == term
		}
	case store.MatchSuffix:
		rs := []rune(term)
		for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
			rs[i], rs[j] = rs[j], rs[i]
		}
		reversed := string(rs)
		if strings.HasPrefix(r.ExpressionReverse, reversed) {
			return store.SourceTerm, true, r.Expression == term
		}
		if strings.HasPrefix(r.ReadingReverse, reversed) {
			return store.SourceReading, true, r.Reading == term
		}
	}
	return "", false, false
}

func (s *Store) FindTermsExactBulk(_ context.Context, items []store.TermExactQuery, dictSet store.DictSet) ([]store.TermMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.errClosed(); err != nil {
		return nil, err
	}

	var out []store.TermMatch
	for idx, item := range items {
		for _, r := range s.terms {
			if !dictAllowed(dictSet, r.Dictionary) {
				continue
			}
			if r.Expression == item.Term && r.Reading == item.Reading {
				out = append(out, store.TermMatch{TermRow: r, MatchType: store.MatchExact, MatchSource: store.SourceTerm, QueryIndex: idx})
			}
		}
	}
	return out, nil
}

func (s *Store) FindTermsBySequenceBulk(_ context.Context, items []store.SequenceQuery) ([]store.TermMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.errClosed(); err != nil {
		return nil, err
	}

	var out []store.TermMatch
	for idx, item := range items {
		for _, r := range s.terms {
			if r.Dictionary != item.Dictionary || r.Sequence == nil || *r.Sequence != item.Sequence {
				continue
			}
			out = append(out, store.TermMatch{TermRow: r, MatchType: store.MatchExact, MatchSource: store.SourceSequence, QueryIndex: idx})
		}
	}
	return out, nil
}

func (s *Store) FindTermMetaBulk(_ context.Context, termList []string, dictSet store.DictSet) ([]store.TermMetaMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.errClosed(); err != nil {
		return nil, err
	}

	var out []store.TermMetaMatch
	for idx, term := range termList {
		for _, m := range s.termMeta {
			if m.Expression != term || !dictAllowed(dictSet, m.Dictionary) {
				continue
			}
			out = append(out, store.TermMetaMatch{TermMetaRow: m, QueryIndex: idx})
		}
	}
	return out, nil
}

func (s *Store) FindKanjiBulk(_ context.Context, charList []string, dictSet store.DictSet) ([]store.KanjiMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.errClosed(); err != nil {
		return nil, err
	}

	var out []store.KanjiMatch
	for idx, ch := range charList {
		for _, r := range s.kanji {
			if r.Character != ch || !dictAllowed(dictSet, r.Dictionary) {
				continue
			}
			out = append(out, store.KanjiMatch{KanjiRow: r, QueryIndex: idx})
		}
	}
	return out, nil
}

func (s *Store) FindKanjiMetaBulk(_ context.Context, charList []string, dictSet store.DictSet) ([]store.KanjiMetaMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.errClosed(); err != nil {
		return nil, err
	}

	var out []store.KanjiMetaMatch
	for idx, ch := range charList {
		for _, m := range s.kanjiMeta {
			if m.Character != ch || !dictAllowed(dictSet, m.Dictionary) {
				continue
			}
			out = append(out, store.KanjiMetaMatch{KanjiMetaRow: m, QueryIndex: idx})
		}
	}
	return out, nil
}

func (s *Store) FindTagMetaBulk(_ context.Context, items []store.TagQuery) ([]store.TagRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.errClosed(); err != nil {
		return nil, err
	}

	var out []store.TagRow
	for _, item := range items {
		if t, ok := s.tags[tagKey(item.Dictionary, item.Name)]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) GetMedia(_ context.Context, items []store.MediaQuery) ([]store.MediaRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.errClosed(); err != nil {
		return nil, err
	}

	var out []store.MediaRow
	for _, item := range items {
		if m, ok := s.media[mediaKey(item.Dictionary, item.Path)]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ store.Store = (*Store)(nil)
