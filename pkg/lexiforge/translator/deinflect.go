package translator

import (
	"regexp"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/condition"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/textproc"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/transform"
)

// databaseDeinflection is one transient candidate produced during
// deinflection, before it has been matched against any stored row.
type databaseDeinflection struct {
	originalText    string
	transformedText string
	deinflectedText string
	conditions      condition.Flags

	textProcessorRuleChainCandidates []textproc.Chain
	inflectionRuleChainCandidates    []InflectionRuleChain
}

// wordBoundary matches a non-letter followed by a run of letters/digits
// at the end of a string — the boundary used to chop a prefix down to
// its previous word.
var wordBoundary = regexp.MustCompile(`[^\p{L}][\p{L}\p{N}]*$`)

// enumeratePrefixes returns text's prefix substrings of decreasing
// length, from the full text down to a single unit, per the configured
// SearchResolution. An empty text yields no prefixes.
func enumeratePrefixes(text string, resolution SearchResolution) []string {
	if text == "" {
		return nil
	}
	if resolution == ResolutionWord {
		var prefixes []string
		current := text
		prefixes = append(prefixes, current)
		for {
			loc := wordBoundary.FindStringIndex(current)
			if loc == nil || loc[0] == 0 {
				break
			}
			current = current[:loc[0]]
			prefixes = append(prefixes, current)
		}
		return prefixes
	}

	runes := []rune(text)
	prefixes := make([]string, 0, len(runes))
	for i := len(runes); i >= 1; i-- {
		prefixes = append(prefixes, string(runes[:i]))
	}
	return prefixes
}

// generateDeinflections handles a single prefix candidate rawSource:
// expand preprocessor variants, run the
// language transformer (or its identity bypass when deinflect is
// false), expand postprocessor variants on the result, and emit one
// databaseDeinflection per cross-product element.
func generateDeinflections(rawSource string, pack *LanguagePack, deinflect bool, correlationID string, memo *textproc.Memo) []databaseDeinflection {
	var out []databaseDeinflection

	preVariants := textproc.Expand(rawSource, pack.Preprocessors, memo)
	for preprocessedText, preChains := range preVariants {
		var results []transform.Result
		if deinflect {
			results = pack.Transformer.Transform(preprocessedText, correlationID)
		} else {
			results = []transform.Result{{Text: preprocessedText, Conditions: 0, Trace: nil}}
		}

		for _, r := range results {
			postVariants := textproc.Expand(r.Text, pack.Postprocessors, memo)
			for finalText, postChains := range postVariants {
				inflectionRules := make([]RuleRef, len(r.Trace))
				for i, frame := range r.Trace {
					inflectionRules[i] = RuleRef{ID: frame.TransformID}
				}
				var inflectionCandidates []InflectionRuleChain
				if len(inflectionRules) > 0 || !deinflect {
					inflectionCandidates = []InflectionRuleChain{{Source: SourceAlgorithm, Rules: inflectionRules}}
				} else {
					inflectionCandidates = []InflectionRuleChain{{Source: SourceAlgorithm, Rules: nil}}
				}

				for _, preChain := range preChains {
					for _, postChain := range postChains {
						chain := make(textproc.Chain, 0, len(preChain)+len(postChain))
						chain = append(chain, preChain...)
						chain = append(chain, postChain...)

						out = append(out, databaseDeinflection{
							originalText:                     rawSource,
							transformedText:                  preprocessedText,
							deinflectedText:                  finalText,
							conditions:                       r.Conditions,
							textProcessorRuleChainCandidates: []textproc.Chain{chain},
							inflectionRuleChainCandidates:    inflectionCandidates,
						})
					}
				}
			}
		}
	}

	return out
}
