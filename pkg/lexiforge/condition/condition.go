// Package condition implements the bitmask-based condition system that
// every language's rule set is built on: a named part-of-speech-like
// attribute resolves to a fixed-width flag, and composite conditions are
// the bitwise-OR of their resolved children.
package condition

import (
	"fmt"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/internalerr"
)

// MaxLeafConditions is the hard cap on distinct leaf conditions a single
// language may declare — the mask is a 32-bit integer.
const MaxLeafConditions = 32

// Flags is a 32-bit condition mask. Each bit is an assigned leaf
// condition; a composite condition is the bitwise-OR of its children.
type Flags uint32

// Def describes one named condition as declared by a language pack.
type Def struct {
	Name             string
	IsDictionaryForm bool
	SubConditions    []string // empty => leaf condition
}

// Table holds the resolved condition flags for one language: every
// declared condition name (leaf or composite) mapped to its resolved
// Flags value.
type Table struct {
	byName map[string]Flags
	leaves int
}

// Resolve assigns each leaf condition a unique bit and resolves every
// composite condition to the bitwise-OR of its (possibly also
// composite) children, running to a fixed point. It is a
// ConfigurationError for a composite to be cyclic or to reference an
// undefined name, or for a language to declare more than
// MaxLeafConditions leaves.
func Resolve(defs map[string]Def) (*Table, error) {
	byName := make(map[string]Flags, len(defs))
	resolved := make(map[string]bool, len(defs))

	var nextBit uint
	// Leaves first; they don't depend on each other, so pass order
	// doesn't matter.
	for name, def := range defs {
		if len(def.SubConditions) != 0 {
			continue
		}
		if nextBit >= MaxLeafConditions {
			return nil, internalerr.New(internalerr.KindConfiguration,
				fmt.Sprintf("more than %d leaf conditions declared", MaxLeafConditions))
		}
		byName[name] = 1 << nextBit
		resolved[name] = true
		nextBit++
	}

	// Resolve composites to a fixed point: a composite becomes resolved
	// once every sub-condition it names is resolved.
	remaining := len(defs) - len(resolved)
	for remaining > 0 {
		progress := false
		for name, def := range defs {
			if resolved[name] {
				continue
			}
			var mask Flags
			ready := true
			for _, sub := range def.SubConditions {
				if _, ok := defs[sub]; !ok {
					return nil, internalerr.New(internalerr.KindConfiguration,
						fmt.Sprintf("condition %q references undefined sub-condition %q", name, sub))
				}
				if !resolved[sub] {
					ready = false
					break
				}
				mask |= byName[sub]
			}
			if !ready {
				continue
			}
			byName[name] = mask
			resolved[name] = true
			remaining--
			progress = true
		}
		if !progress && remaining > 0 {
			return nil, internalerr.New(internalerr.KindConfiguration,
				"cyclic or unresolvable composite condition")
		}
	}

	return &Table{byName: byName, leaves: int(nextBit)}, nil
}

// Flags returns the resolved mask for name, and whether it was found
// (the strict lookup used at rule-compilation time).
func (t *Table) Flags(name string) (Flags, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// FlagsLenient returns the resolved mask for name, or 0 for an unknown
// name — the lenient lookup used when interpreting rule-token strings
// from stored term rows.
func (t *Table) FlagsLenient(name string) Flags {
	return t.byName[name]
}

// ConditionTypeToFlags returns every declared condition name mapped to
// its resolved flags.
func (t *Table) ConditionTypeToFlags() map[string]Flags {
	out := make(map[string]Flags, len(t.byName))
	for k, v := range t.byName {
		out[k] = v
	}
	return out
}

// PartsOfSpeechToFlags returns only the dictionary-form conditions,
// mapped to their resolved flags — used to interpret the `rules` token
// list on a stored term row.
func (t *Table) PartsOfSpeechToFlags(defs map[string]Def) map[string]Flags {
	out := make(map[string]Flags)
	for name, def := range defs {
		if !def.IsDictionaryForm {
			continue
		}
		if f, ok := t.byName[name]; ok {
			out[name] = f
		}
	}
	return out
}

// Match implements the condition match predicate: a zero "current" means
// no constraint yet and matches any rule; otherwise current and next
// must share at least one bit.
func Match(current, next Flags) bool {
	return current == 0 || current&next != 0
}

// LeafCount returns the number of leaf conditions assigned a bit.
func (t *Table) LeafCount() int { return t.leaves }
