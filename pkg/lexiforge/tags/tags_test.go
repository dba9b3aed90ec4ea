package tags

import (
	"context"
	"testing"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store/memstore"
)

func TestExpandResolvesKnownTag(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTags(ctx, []store.TagRow{
		{Dictionary: "jmdict", Name: "n", Category: "partOfSpeech", Order: 1, Score: 0.5, Notes: "noun"},
	}); err != nil {
		t.Fatalf("InsertTags: %v", err)
	}

	cache := NewCache(64)
	agg := NewAggregator(cache)

	var owner []Tag
	slot := agg.NewSlot(&owner)
	agg.AddTags(slot, "jmdict", []string{"n"})

	if err := agg.Expand(ctx, s); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(owner) != 1 {
		t.Fatalf("len(owner) = %d, want 1", len(owner))
	}
	if owner[0].Category != "partOfSpeech" || owner[0].Notes != "noun" {
		t.Fatalf("owner[0] = %+v, want resolved partOfSpeech/noun", owner[0])
	}
}

func TestExpandUnknownNameGetsPlaceholder(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	cache := NewCache(64)
	agg := NewAggregator(cache)

	var owner []Tag
	slot := agg.NewSlot(&owner)
	agg.AddTags(slot, "jmdict", []string{"does-not-exist"})

	if err := agg.Expand(ctx, s); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(owner) != 1 {
		t.Fatalf("len(owner) = %d, want 1", len(owner))
	}
	if owner[0].Category != defaultCategory || owner[0].Order != 0 || owner[0].Score != 0 {
		t.Fatalf("owner[0] = %+v, want placeholder default/0/0", owner[0])
	}
}

func TestExpandUsesColonPrefixAsQueryName(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTags(ctx, []store.TagRow{
		{Dictionary: "kanjidic", Name: "freq", Category: "stat", Order: 2},
	}); err != nil {
		t.Fatalf("InsertTags: %v", err)
	}

	cache := NewCache(64)
	agg := NewAggregator(cache)
	var owner []Tag
	slot := agg.NewSlot(&owner)
	agg.AddTags(slot, "kanjidic", []string{"freq:1234"})

	if err := agg.Expand(ctx, s); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(owner) != 1 || owner[0].Name != "freq" {
		t.Fatalf("owner = %+v, want resolved tag named freq", owner)
	}
}

func TestExpandMergesSimilarTagsWithinOneTarget(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTags(ctx, []store.TagRow{
		{Dictionary: "a", Name: "n", Category: "pos", Order: 5, Score: 1},
		{Dictionary: "b", Name: "n", Category: "pos", Order: 2, Score: 3},
	}); err != nil {
		t.Fatalf("InsertTags: %v", err)
	}

	cache := NewCache(64)
	agg := NewAggregator(cache)
	var owner []Tag
	slot := agg.NewSlot(&owner)
	agg.AddTags(slot, "a", []string{"n"})
	agg.AddTags(slot, "b", []string{"n"})

	if err := agg.Expand(ctx, s); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(owner) != 1 {
		t.Fatalf("len(owner) = %d, want 1 merged tag", len(owner))
	}
	merged := owner[0]
	if merged.Order != 2 {
		t.Errorf("Order = %d, want min(5,2)=2", merged.Order)
	}
	if merged.Score != 3 {
		t.Errorf("Score = %v, want max(1,3)=3", merged.Score)
	}
	if !merged.Dictionaries["a"] || !merged.Dictionaries["b"] {
		t.Errorf("Dictionaries = %+v, want union of a,b", merged.Dictionaries)
	}
}

func TestExpandCachesAcrossCalls(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	if err := s.InsertTags(ctx, []store.TagRow{{Dictionary: "a", Name: "n", Category: "pos"}}); err != nil {
		t.Fatalf("InsertTags: %v", err)
	}
	cache := NewCache(64)

	agg1 := NewAggregator(cache)
	var owner1 []Tag
	slot1 := agg1.NewSlot(&owner1)
	agg1.AddTags(slot1, "a", []string{"n"})
	if err := agg1.Expand(ctx, s); err != nil {
		t.Fatalf("Expand: %v", err)
	}

	if err := s.DeleteDictionary(ctx, "a"); err != nil {
		t.Fatalf("DeleteDictionary: %v", err)
	}
	// Row is gone from the store, but the cache wasn't cleared, so a
	// second aggregation (a distinct per-call Aggregator, same cache)
	// should still resolve it from cache rather than re-querying.
	agg2 := NewAggregator(cache)
	var owner2 []Tag
	slot2 := agg2.NewSlot(&owner2)
	agg2.AddTags(slot2, "a", []string{"n"})
	if err := agg2.Expand(ctx, s); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(owner2) != 1 || owner2[0].Category != "pos" {
		t.Fatalf("owner2 = %+v, want cached resolution to survive store deletion", owner2)
	}
}
