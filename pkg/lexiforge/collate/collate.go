// Package collate provides the invariant-locale string ordering used
// by the tag expander and the global entry comparator, both of
// which call for a locale-aware but
// language-neutral collator rather than a byte-wise string compare.
package collate

import (
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// A Collator keeps internal buffers across calls, so the shared
// instance is guarded by a mutex; concurrent lookups all compare
// through Compare.
var (
	mu        sync.Mutex
	invariant = collate.New(language.Und)
)

// Compare returns -1, 0, or 1 as a sorts before, equals, or sorts
// after b under the language-neutral collator.
func Compare(a, b string) int {
	mu.Lock()
	defer mu.Unlock()
	return invariant.CompareString(a, b)
}
