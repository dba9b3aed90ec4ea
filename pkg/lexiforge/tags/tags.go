// Package tags implements the tag aggregator and expander: batched
// resolution of (dictionary, tagName) references
// encountered during result assembly into shared Tag objects.
//
// Go has no stable identity for a slice header that could key pending
// work directly on the caller-owned output slice, so the aggregator
// hands out an opaque Slot token per target and maps token to pending
// groups, with a final sweep writing resolved tags into each owner.
package tags

import (
	"context"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/collate"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
)

// Tag is the resolved, display-ready form of a (dictionary, tagName)
// reference.
type Tag struct {
	Name         string
	Category     string
	Order        int
	Score        float64
	Notes        string
	Dictionaries map[string]bool

	// Redundant marks a partOfSpeech-category tag that repeats the set
	// already shown by the immediately preceding definition in the same
	// dictionary. Set by the translator after
	// expansion; always false for tags outside that category.
	Redundant bool
}

const defaultCategory = "default"

func placeholderTag(name string, dictionary string) Tag {
	return Tag{Name: name, Category: defaultCategory, Order: 0, Score: 0, Dictionaries: map[string]bool{dictionary: true}}
}

// Cache is the Translator's per-dictionary tag cache: a
// bounded `dictionary → name → row-or-absent` map, safe for concurrent
// reads, last-writer-wins on concurrent writes. Cleared wholesale on
// dictionary import/delete.
type Cache struct {
	lru *lru.Cache[string, *store.TagRow]
}

// NewCache builds a Cache bounded to size entries.
func NewCache(size int) *Cache {
	c, err := lru.New[string, *store.TagRow](size)
	if err != nil {
		// Only returned for size <= 0; fall back to a minimally useful cache
		// rather than making every caller handle a constructor error for a
		// pure optimization structure.
		c, _ = lru.New[string, *store.TagRow](1)
	}
	return &Cache{lru: c}
}

func cacheKey(dictionary, name string) string { return dictionary + "\x00" + name }

// Get returns the cached row for (dictionary, name), and whether the
// pair has been cached at all (a cached absence returns ok=true,
// row=nil).
func (c *Cache) Get(dictionary, name string) (row *store.TagRow, ok bool) {
	row, ok = c.lru.Get(cacheKey(dictionary, name))
	return row, ok
}

// Put caches the resolution of (dictionary, name); row is nil for a
// confirmed absence.
func (c *Cache) Put(dictionary, name string, row *store.TagRow) {
	c.lru.Add(cacheKey(dictionary, name), row)
}

// Clear empties the cache. Called on dictionary import or delete.
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Slot is an opaque handle for one pending aggregation target.
type Slot int

type pendingGroup struct {
	dictionary string
	tagNames   []string
}

// Aggregator accumulates pending tag-expansion targets across a single
// assembly call and resolves them all in one batch. Never shared
// across calls.
type Aggregator struct {
	cache   *Cache
	owners  map[Slot]*[]Tag
	pending map[Slot][]pendingGroup
	next    Slot
}

// NewAggregator builds an Aggregator backed by the Translator's shared
// tag cache.
func NewAggregator(cache *Cache) *Aggregator {
	return &Aggregator{
		cache:   cache,
		owners:  make(map[Slot]*[]Tag),
		pending: make(map[Slot][]pendingGroup),
	}
}

// NewSlot registers owner as an expansion target and returns its Slot
// token. owner starts empty and is populated by Expand.
func (a *Aggregator) NewSlot(owner *[]Tag) Slot {
	slot := a.next
	a.next++
	a.owners[slot] = owner
	return slot
}

// AddTags records that slot's owner should receive the tags named by
// tagNames from dictionary, once expansion runs.
func (a *Aggregator) AddTags(slot Slot, dictionary string, tagNames []string) {
	if len(tagNames) == 0 {
		return
	}
	a.pending[slot] = append(a.pending[slot], pendingGroup{dictionary: dictionary, tagNames: tagNames})
}

// queryName is the part of a tag name used to look it up: the prefix
// before any ':'. Kanji stat names take the same path, being tag
// references of the form "stat:value".
func queryName(tagName string) string {
	if i := strings.IndexByte(tagName, ':'); i >= 0 {
		return tagName[:i]
	}
	return tagName
}

// Expand resolves every pending target in one batch: dedup
// (dictionary, tagName) pairs, consult the cache, bulk-fetch misses,
// then construct and push Tag objects into each owner, merging and
// sorting multi-tag owners.
func (a *Aggregator) Expand(ctx context.Context, s store.Store) error {
	type key struct{ dictionary, name string }

	seen := make(map[key]bool)
	var misses []store.TagQuery

	for _, groups := range a.pending {
		for _, g := range groups {
			for _, tagName := range g.tagNames {
				k := key{g.dictionary, queryName(tagName)}
				if seen[k] {
					continue
				}
				seen[k] = true
				if _, ok := a.cache.Get(k.dictionary, k.name); ok {
					continue
				}
				misses = append(misses, store.TagQuery{Dictionary: k.dictionary, Name: k.name})
			}
		}
	}

	if len(misses) > 0 {
		found, err := s.FindTagMetaBulk(ctx, misses)
		if err != nil {
			return fmt.Errorf("find tag meta bulk: %w", err)
		}
		byKey := make(map[key]store.TagRow, len(found))
		for _, row := range found {
			byKey[key{row.Dictionary, row.Name}] = row
		}
		for _, q := range misses {
			k := key{q.Dictionary, q.Name}
			if row, ok := byKey[k]; ok {
				r := row
				a.cache.Put(q.Dictionary, q.Name, &r)
			} else {
				a.cache.Put(q.Dictionary, q.Name, nil)
			}
		}
	}

	for slot, groups := range a.pending {
		owner := a.owners[slot]
		var resolved []Tag
		for _, g := range groups {
			for _, tagName := range g.tagNames {
				name := queryName(tagName)
				row, _ := a.cache.Get(g.dictionary, name)
				if row == nil {
					resolved = append(resolved, placeholderTag(name, g.dictionary))
					continue
				}
				resolved = append(resolved, Tag{
					Name:         row.Name,
					Category:     row.Category,
					Order:        row.Order,
					Score:        row.Score,
					Notes:        row.Notes,
					Dictionaries: map[string]bool{g.dictionary: true},
				})
			}
		}
		if len(resolved) > 1 {
			resolved = mergeSimilar(resolved)
		}
		sort.SliceStable(resolved, func(i, j int) bool {
			if resolved[i].Order != resolved[j].Order {
				return resolved[i].Order < resolved[j].Order
			}
			return collate.Compare(resolved[i].Name, resolved[j].Name) < 0
		})
		*owner = resolved
	}

	return nil
}

// mergeSimilar combines tags sharing (name, category): min order, max
// score, union of dictionaries and notes.
func mergeSimilar(in []Tag) []Tag {
	type key struct{ name, category string }
	order := make([]key, 0, len(in))
	byKey := make(map[key]*Tag, len(in))

	for _, t := range in {
		k := key{t.Name, t.Category}
		existing, ok := byKey[k]
		if !ok {
			cp := t
			cp.Dictionaries = cloneDictSet(t.Dictionaries)
			byKey[k] = &cp
			order = append(order, k)
			continue
		}
		if t.Order < existing.Order {
			existing.Order = t.Order
		}
		if t.Score > existing.Score {
			existing.Score = t.Score
		}
		for d := range t.Dictionaries {
			existing.Dictionaries[d] = true
		}
		existing.Notes = mergeNotes(existing.Notes, t.Notes)
	}

	out := make([]Tag, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out
}

func cloneDictSet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func mergeNotes(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" || a == b {
		return a
	}
	return a + "; " + b
}
