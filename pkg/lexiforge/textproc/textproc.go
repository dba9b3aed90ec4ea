// Package textproc implements text-processor variant expansion: folding
// an input string through an ordered list of pre/post processors, each
// with an enumerated option set, to produce every distinct surface
// variant together with the rule-chain candidates that would produce it.
package textproc

import (
	"fmt"
	"regexp"
	"strings"
)

// Option is one enumerated setting of a Processor, e.g. "false"/"true"
// or "off"/"direct"/"inverse". Plain strings are sufficient: no
// processor in this repo's language packs needs option values richer
// than a label.
type Option string

// Processor is one named, pure text transformation with an enumerated
// option set.
type Processor interface {
	ID() string
	Options() []Option
	Process(text string, option Option) string
}

// funcProcessor adapts a plain function into a Processor.
type funcProcessor struct {
	id      string
	options []Option
	fn      func(text string, option Option) string
}

func (p *funcProcessor) ID() string        { return p.id }
func (p *funcProcessor) Options() []Option { return p.options }

func (p *funcProcessor) Process(text string, option Option) string {
	return p.fn(text, option)
}

// NewProcessor builds a Processor from a plain function, the common case
// for language-pack-declared processors (capitalization, collapsing
// emphasis, full-width/half-width conversion, and the like).
func NewProcessor(id string, options []Option, fn func(text string, option Option) string) Processor {
	return &funcProcessor{id: id, options: options, fn: fn}
}

// BoolOptions is the enumerated option set for a simple on/off
// processor.
var BoolOptions = []Option{"false", "true"}

// BidirectionalOptions is the enumerated option set for a processor that
// can be skipped, applied, or applied in reverse.
var BidirectionalOptions = []Option{"off", "direct", "inverse"}

// NewTextReplacementProcessor builds the identity-style processor for
// one user-supplied text-replacement rule: option "false" is the
// identity, option "true" applies pattern.ReplaceAllString. Its id is
// always the fixed label "Text Replacement {index}" so Expand treats
// it like any other processor with no special-casing.
func NewTextReplacementProcessor(index int, pattern *regexp.Regexp, replacement string) Processor {
	id := fmt.Sprintf("Text Replacement %d", index)
	return NewProcessor(id, BoolOptions, func(text string, option Option) string {
		if option == "false" {
			return text
		}
		return pattern.ReplaceAllString(text, replacement)
	})
}

// memoKey is the per-call memoization key: the input variant, the
// processor applying to it, and the chosen option.
type memoKey struct {
	text      string
	processor string
	option    Option
}

// Memo is a per-call memoization table. Callers create one per lookup
// call and never share it across calls.
type Memo struct {
	cache map[memoKey]string
}

// NewMemo builds an empty per-call memoization table.
func NewMemo() *Memo {
	return &Memo{cache: make(map[memoKey]string)}
}

func (m *Memo) get(key memoKey) (string, bool) {
	v, ok := m.cache[key]
	return v, ok
}

func (m *Memo) put(key memoKey, value string) {
	m.cache[key] = value
}

// Chain is an ordered list of processor ids, recording which processors
// (in application order) produced a variant from the original text.
type Chain []string

// Variants maps each distinct produced string to the set of rule-chain
// candidates that would generate it.
type Variants map[string][]Chain

// Expand folds text through processors in order,
// using memo for per-call caching. The returned Variants always
// contains at least the original text (candidate: a single empty
// chain) when processors is empty.
func Expand(text string, processors []Processor, memo *Memo) Variants {
	current := Variants{text: {{}}}

	for _, p := range processors {
		next := Variants{}
		for variant, candidates := range current {
			for _, opt := range p.Options() {
				key := memoKey{text: variant, processor: p.ID(), option: opt}
				processed, ok := memo.get(key)
				if !ok {
					processed = p.Process(variant, opt)
					memo.put(key, processed)
				}

				if processed == variant {
					next.merge(processed, candidates)
					continue
				}
				next.merge(processed, appendID(candidates, p.ID()))
			}
		}
		current = next
	}

	return current
}

func appendID(chains []Chain, id string) []Chain {
	out := make([]Chain, len(chains))
	for i, c := range chains {
		nc := make(Chain, len(c)+1)
		copy(nc, c)
		nc[len(c)] = id
		out[i] = nc
	}
	return out
}

// merge union-merges candidate chains into v[key], deduplicating exact
// chain sequences.
func (v Variants) merge(key string, chains []Chain) {
	existing := v[key]
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[chainKey(c)] = true
	}
	for _, c := range chains {
		k := chainKey(c)
		if seen[k] {
			continue
		}
		seen[k] = true
		existing = append(existing, c)
	}
	v[key] = existing
}

func chainKey(c Chain) string {
	return strings.Join(c, "\x00")
}
