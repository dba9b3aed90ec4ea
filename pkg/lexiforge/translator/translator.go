package translator

import (
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/condition"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/rules"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/tags"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/textproc"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/transform"
)

// ReadingNormalizer maps a reading to its grouping-equivalence class:
// pure, idempotent, and collision-only among
// readings that should be treated as the same headword (e.g.
// katakana/hiragana variants of one Japanese reading).
type ReadingNormalizer func(reading string) string

// IdentityReadingNormalizer is the default normalizer used for
// languages that register none: every reading is its own class.
func IdentityReadingNormalizer(reading string) string { return reading }

// LanguagePack bundles one language's compiled machinery: its
// deinflection transformer, pre/post text processors, and reading
// normalizer.
type LanguagePack struct {
	Language            string
	Transformer         *transform.Transformer
	Preprocessors       []textproc.Processor
	Postprocessors      []textproc.Processor
	ReadingNormalizer   ReadingNormalizer
	RuleCatalog         map[string]RuleRef
	DictionaryFormFlags map[string]condition.Flags
}

// ruleCatalogFrom builds a transform-id -> RuleRef catalog from a
// compiled rule set, for presentation.
func ruleCatalogFrom(ruleSet *rules.RuleSet) map[string]RuleRef {
	catalog := make(map[string]RuleRef, len(ruleSet.Transforms))
	for _, tr := range ruleSet.Transforms {
		catalog[tr.ID] = RuleRef{ID: tr.ID, Name: tr.Name}
	}
	return catalog
}

// NewLanguagePack builds a LanguagePack from a compiled rule set and
// processor lists. If normalizer is nil, IdentityReadingNormalizer is
// used.
func NewLanguagePack(ruleSet *rules.RuleSet, pre, post []textproc.Processor, normalizer ReadingNormalizer) *LanguagePack {
	if normalizer == nil {
		normalizer = IdentityReadingNormalizer
	}
	return &LanguagePack{
		Language:            ruleSet.Language,
		Transformer:         transform.New(ruleSet),
		Preprocessors:       pre,
		Postprocessors:      post,
		ReadingNormalizer:   normalizer,
		RuleCatalog:         ruleCatalogFrom(ruleSet),
		DictionaryFormFlags: ruleSet.DictionaryFormFlags,
	}
}

// Translator is the lookup core's public facade: FindTerms/FindKanji,
// backed by a Store and a set of registered LanguagePacks. A
// Translator's tag cache is shared and safe for concurrent
// lookups; every other piece of per-call state (the
// deinflection dedup map, the variant-expansion memo, the tag
// aggregator) is allocated fresh inside each FindTerms/FindKanji call.
type Translator struct {
	store     store.Store
	languages map[string]*LanguagePack
	tagCache  *tags.Cache

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New builds a Translator over store s with the given language packs,
// keyed by their own Language. tagCacheSize bounds the shared
// per-dictionary tag cache.
func New(s store.Store, tagCacheSize int, packs ...*LanguagePack) *Translator {
	languages := make(map[string]*LanguagePack, len(packs))
	for _, p := range packs {
		languages[p.Language] = p
	}
	return &Translator{
		store:     s,
		languages: languages,
		tagCache:  tags.NewCache(tagCacheSize),
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
}

// ClearDatabaseCaches empties the shared tag cache. Must be called
// whenever any dictionary is imported or deleted.
func (t *Translator) ClearDatabaseCaches() {
	t.tagCache.Clear()
}

// correlationID mints a ULID used to tag the CycleDetected log lines of
// one FindTerms call (DOMAIN STACK: oklog/ulid/v2). MalformedRow log
// lines carry no correlation id.
func (t *Translator) correlationID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ulid.MustNew(ulid.Now(), t.entropy).String()
}

func (t *Translator) languagePack(language string) (*LanguagePack, error) {
	if p, ok := t.languages[language]; ok {
		return p, nil
	}
	return nil, unsupportedLanguage(language)
}
