// Package rules compiles a language's declared transforms (named groups
// of inflection rules, e.g. "past", "plural") from a plain YAML
// description into executable Rule/Transform values: a compiled regex
// test, a deterministic deinflect function, and condition masks
// resolved from names at load time.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/condition"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/internalerr"
)

// Type is informational only — it never changes matching behavior.
type Type string

const (
	TypeSuffix    Type = "suffix"
	TypePrefix    Type = "prefix"
	TypeWholeWord Type = "wholeWord"
	TypeOther     Type = "other"
)

// Rule is one compiled inflection rule within a Transform.
type Rule struct {
	Type          Type
	IsInflected   *regexp.Regexp
	Deinflect     func(string) string
	ConditionsIn  condition.Flags
	ConditionsOut condition.Flags
}

// Transform is a named group of rules, e.g. "past" or "plural".
type Transform struct {
	ID        string
	Name      string
	Rules     []Rule
	heuristic *regexp.Regexp // disjunction of this transform's rule patterns; nil if it failed to compile
}

// Heuristic reports whether text could plausibly be matched by any rule
// in this transform. It is purely a fast-path optimization: a nil
// heuristic (compile failure) always returns true so correctness never
// depends on it.
func (t *Transform) Heuristic(text string) bool {
	if t.heuristic == nil {
		return true
	}
	return t.heuristic.MatchString(text)
}

// RuleSet is one language's full collection of transforms plus its
// resolved condition table.
type RuleSet struct {
	Language   string
	Conditions *condition.Table
	Transforms []Transform

	// DictionaryFormFlags is PartsOfSpeechToFlags: only
	// the dictionary-form conditions, used to interpret the `rules`
	// token list on a stored term row.
	DictionaryFormFlags map[string]condition.Flags
}

// Spec is the plain, YAML-decodable description of a language pack's
// condition table and transforms. See langpack.File (read by
// langpack.Load/LoadBytes) for the file shape this is decoded from.
type Spec struct {
	Language   string              `yaml:"language"`
	Conditions map[string]CondSpec `yaml:"conditions"`
	Transforms []TransformSpec     `yaml:"transforms"`
}

// CondSpec is the YAML shape of one condition.Def.
type CondSpec struct {
	IsDictionaryForm bool     `yaml:"isDictionaryForm"`
	SubConditions    []string `yaml:"subConditions"`
}

// TransformSpec is the YAML shape of one Transform, with rules
// expressed as plain suffix/prefix/pattern replacements rather than Go
// closures.
type TransformSpec struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec is the YAML shape of one Rule. Exactly one of
// (Suffix,Replacement), (Prefix,Replacement), or (Pattern,Replacement)
// should be set, matching Type.
type RuleSpec struct {
	Type          Type     `yaml:"type"`
	IsInflected   string   `yaml:"isInflected"`
	Suffix        string   `yaml:"suffix"`
	Prefix        string   `yaml:"prefix"`
	Pattern       string   `yaml:"pattern"`
	Replacement   string   `yaml:"replacement"`
	ConditionsIn  []string `yaml:"conditionsIn"`
	ConditionsOut []string `yaml:"conditionsOut"`
}

// Compile resolves a Spec's condition table and builds every Transform's
// compiled rules. Unknown condition names in conditionsIn/conditionsOut
// are a ConfigurationError (the strict lookup used at compile time).
func Compile(spec Spec) (*RuleSet, error) {
	defs := make(map[string]condition.Def, len(spec.Conditions))
	for name, c := range spec.Conditions {
		defs[name] = condition.Def{
			Name:             name,
			IsDictionaryForm: c.IsDictionaryForm,
			SubConditions:    c.SubConditions,
		}
	}

	table, err := condition.Resolve(defs)
	if err != nil {
		return nil, err
	}

	rs := &RuleSet{
		Language:            spec.Language,
		Conditions:          table,
		Transforms:          make([]Transform, 0, len(spec.Transforms)),
		DictionaryFormFlags: table.PartsOfSpeechToFlags(defs),
	}

	for _, ts := range spec.Transforms {
		transform, err := compileTransform(table, ts)
		if err != nil {
			return nil, err
		}
		rs.Transforms = append(rs.Transforms, transform)
	}

	return rs, nil
}

func compileTransform(table *condition.Table, ts TransformSpec) (Transform, error) {
	transform := Transform{ID: ts.ID, Name: ts.Name}
	patterns := make([]string, 0, len(ts.Rules))

	for i, rspec := range ts.Rules {
		rule, err := compileRule(table, ts.ID, i, rspec)
		if err != nil {
			return Transform{}, err
		}
		transform.Rules = append(transform.Rules, rule)
		patterns = append(patterns, rule.IsInflected.String())
	}

	if len(patterns) > 0 {
		if h, err := regexp.Compile(strings.Join(patterns, "|")); err == nil {
			transform.heuristic = h
		}
		// A heuristic compile failure is tolerated: Heuristic() treats a
		// nil heuristic as "always matches" so output is unaffected.
	}

	return transform, nil
}

func compileRule(table *condition.Table, transformID string, index int, spec RuleSpec) (Rule, error) {
	conditionsIn, err := flagsFor(table, transformID, index, spec.ConditionsIn)
	if err != nil {
		return Rule{}, err
	}
	conditionsOut, err := flagsFor(table, transformID, index, spec.ConditionsOut)
	if err != nil {
		return Rule{}, err
	}

	isInflectedSrc := spec.IsInflected
	var deinflect func(string) string

	switch spec.Type {
	case TypeSuffix:
		if isInflectedSrc == "" {
			isInflectedSrc = regexp.QuoteMeta(spec.Suffix) + "$"
		}
		suffix, replacement := spec.Suffix, spec.Replacement
		deinflect = func(text string) string {
			return strings.TrimSuffix(text, suffix) + replacement
		}
	case TypePrefix:
		if isInflectedSrc == "" {
			isInflectedSrc = "^" + regexp.QuoteMeta(spec.Prefix)
		}
		prefix, replacement := spec.Prefix, spec.Replacement
		deinflect = func(text string) string {
			return replacement + strings.TrimPrefix(text, prefix)
		}
	case TypeWholeWord:
		if isInflectedSrc == "" {
			isInflectedSrc = "^" + regexp.QuoteMeta(spec.Pattern) + "$"
		}
		replacement := spec.Replacement
		deinflect = func(string) string { return replacement }
	case TypeOther:
		if isInflectedSrc == "" {
			return Rule{}, internalerr.New(internalerr.KindConfiguration,
				fmt.Sprintf("transform %q rule %d: type other requires isInflected", transformID, index))
		}
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return Rule{}, internalerr.Wrap(internalerr.KindConfiguration,
				fmt.Sprintf("transform %q rule %d: compile pattern", transformID, index), err)
		}
		replacement := spec.Replacement
		deinflect = func(text string) string { return re.ReplaceAllString(text, replacement) }
	default:
		return Rule{}, internalerr.New(internalerr.KindConfiguration,
			fmt.Sprintf("transform %q rule %d: unknown rule type %q", transformID, index, spec.Type))
	}

	isInflected, err := regexp.Compile(isInflectedSrc)
	if err != nil {
		return Rule{}, internalerr.Wrap(internalerr.KindConfiguration,
			fmt.Sprintf("transform %q rule %d: compile isInflected", transformID, index), err)
	}

	return Rule{
		Type:          spec.Type,
		IsInflected:   isInflected,
		Deinflect:     deinflect,
		ConditionsIn:  conditionsIn,
		ConditionsOut: conditionsOut,
	}, nil
}

func flagsFor(table *condition.Table, transformID string, ruleIndex int, names []string) (condition.Flags, error) {
	var flags condition.Flags
	for _, name := range names {
		f, ok := table.Flags(name)
		if !ok {
			return 0, internalerr.New(internalerr.KindConfiguration,
				fmt.Sprintf("transform %q rule %d: undefined condition %q", transformID, ruleIndex, name))
		}
		flags |= f
	}
	return flags, nil
}
