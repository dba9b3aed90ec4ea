// Package transform implements the language transformer: a
// breadth-first deinflection search that walks a surface form backward
// through a language's rule set to every reachable dictionary-adjacent
// form, each tagged with the chain of transforms used to reach it.
package transform

import (
	"fmt"
	"log"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/condition"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/internalerr"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/rules"
)

// Frame is one step of a derivation trace: the transform and rule that
// produced Text from the previous step's text.
type Frame struct {
	TransformID string
	TransformAt string // Transform.Name, carried for presentation
	RuleIndex   int
	Text        string
}

// Result is one element produced by the transform loop: a reachable
// form, the conditions it leaves the search in, and the trace of rules
// applied to reach it (most recent first).
type Result struct {
	Text       string
	Conditions condition.Flags
	Trace      []Frame
}

// Transformer runs the breadth-first deinflection loop for a single
// language's compiled rule set.
type Transformer struct {
	ruleSet *rules.RuleSet
}

// New builds a Transformer from a compiled rule set.
func New(ruleSet *rules.RuleSet) *Transformer {
	return &Transformer{ruleSet: ruleSet}
}

// Language returns the language tag this transformer was built for.
func (t *Transformer) Language() string { return t.ruleSet.Language }

// item is a worklist entry: text paired with the conditions the search
// has reached and the trace of frames used to get there.
type item struct {
	text       string
	conditions condition.Flags
	trace      []Frame
}

// Transform runs the breadth-first deinflection search starting from a
// single initial text with zero conditions and an empty
// trace. It always includes the initial, untransformed text as the
// first Result. correlationID is used only to tag CycleDetected log
// lines and may be empty.
func (t *Transformer) Transform(text string, correlationID string) []Result {
	worklist := []item{{text: text, conditions: 0, trace: nil}}
	results := make([]Result, 0, len(worklist))

	for i := 0; i < len(worklist); i++ {
		cur := worklist[i]
		results = append(results, Result{Text: cur.text, Conditions: cur.conditions, Trace: cur.trace})

		for ti := range t.ruleSet.Transforms {
			tr := &t.ruleSet.Transforms[ti]
			if !tr.Heuristic(cur.text) {
				continue
			}
			for ri := range tr.Rules {
				rule := &tr.Rules[ri]
				if !condition.Match(cur.conditions, rule.ConditionsIn) {
					continue
				}
				if !rule.IsInflected.MatchString(cur.text) {
					continue
				}

				produced := rule.Deinflect(cur.text)
				frame := Frame{
					TransformID: tr.ID,
					TransformAt: tr.Name,
					RuleIndex:   ri,
					Text:        produced,
				}

				if hasCycle(cur.trace, frame) {
					log.Printf("lexiforge: cycle_detected corr=%s transform=%s rule=%d text=%q",
						correlationID, tr.ID, ri, produced)
					continue
				}

				newTrace := make([]Frame, len(cur.trace)+1)
				newTrace[0] = frame
				copy(newTrace[1:], cur.trace)

				worklist = append(worklist, item{
					text:       produced,
					conditions: rule.ConditionsOut,
					trace:      newTrace,
				})
			}
		}
	}

	return results
}

// hasCycle reports whether a frame with the same (transformId, ruleIndex,
// text) as candidate already appears anywhere in trace.
func hasCycle(trace []Frame, candidate Frame) bool {
	for _, f := range trace {
		if f.TransformID == candidate.TransformID && f.RuleIndex == candidate.RuleIndex && f.Text == candidate.Text {
			return true
		}
	}
	return false
}

// Dispatcher selects a Transformer by language tag. Built once and
// immutable thereafter, so concurrent lookups can share it freely.
type Dispatcher struct {
	byLanguage map[string]*Transformer
}

// NewDispatcher builds a Dispatcher over the given transformers, keyed
// by their own Language().
func NewDispatcher(transformers ...*Transformer) *Dispatcher {
	d := &Dispatcher{byLanguage: make(map[string]*Transformer, len(transformers))}
	for _, t := range transformers {
		d.byLanguage[t.Language()] = t
	}
	return d
}

// For returns the Transformer registered for language, or an
// UnsupportedLanguage error if none was registered.
func (d *Dispatcher) For(language string) (*Transformer, error) {
	t, ok := d.byLanguage[language]
	if !ok {
		return nil, internalerr.New(internalerr.KindUnsupportedLanguage,
			fmt.Sprintf("no rule set registered for language %q", language))
	}
	return t, nil
}
