package rules

import "testing"

func testSpec() Spec {
	return Spec{
		Language: "en-test",
		Conditions: map[string]CondSpec{
			"v":  {IsDictionaryForm: true},
			"vp": {},
		},
		Transforms: []TransformSpec{
			{
				ID:   "past",
				Name: "past tense",
				Rules: []RuleSpec{
					{
						Type:          TypeSuffix,
						Suffix:        "ed",
						Replacement:   "",
						ConditionsIn:  []string{"vp"},
						ConditionsOut: []string{"v"},
					},
				},
			},
		},
	}
}

func TestCompileSuffixRule(t *testing.T) {
	rs, err := Compile(testSpec())
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if len(rs.Transforms) != 1 {
		t.Fatalf("len(Transforms) = %d, want 1", len(rs.Transforms))
	}

	tr := rs.Transforms[0]
	if len(tr.Rules) != 1 {
		t.Fatalf("len(Rules) = %d, want 1", len(tr.Rules))
	}

	rule := tr.Rules[0]
	if !rule.IsInflected.MatchString("walked") {
		t.Fatalf("IsInflected should match %q", "walked")
	}
	if rule.IsInflected.MatchString("walk") {
		t.Fatalf("IsInflected should not match %q", "walk")
	}
	if got := rule.Deinflect("walked"); got != "walk" {
		t.Fatalf("Deinflect(walked) = %q, want %q", got, "walk")
	}

	vp, _ := rs.Conditions.Flags("vp")
	v, _ := rs.Conditions.Flags("v")
	if rule.ConditionsIn != vp {
		t.Fatalf("ConditionsIn = %d, want %d", rule.ConditionsIn, vp)
	}
	if rule.ConditionsOut != v {
		t.Fatalf("ConditionsOut = %d, want %d", rule.ConditionsOut, v)
	}
}

func TestCompileUnknownConditionRejected(t *testing.T) {
	spec := testSpec()
	spec.Transforms[0].Rules[0].ConditionsIn = []string{"nope"}

	if _, err := Compile(spec); err == nil {
		t.Fatalf("expected undefined condition to be rejected")
	}
}

func TestCompileUnknownTypeRejected(t *testing.T) {
	spec := testSpec()
	spec.Transforms[0].Rules[0].Type = "bogus"

	if _, err := Compile(spec); err == nil {
		t.Fatalf("expected unknown rule type to be rejected")
	}
}

func TestHeuristicNeverFalseNegative(t *testing.T) {
	rs, err := Compile(testSpec())
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	tr := &rs.Transforms[0]
	if !tr.Heuristic("walked") {
		t.Fatalf("Heuristic should match %q", "walked")
	}
}

func TestCompilePrefixRule(t *testing.T) {
	spec := Spec{
		Language: "en-test",
		Transforms: []TransformSpec{
			{
				ID:   "negate",
				Name: "negation prefix",
				Rules: []RuleSpec{
					{Type: TypePrefix, Prefix: "un", Replacement: ""},
				},
			},
		},
	}

	rs, err := Compile(spec)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	rule := rs.Transforms[0].Rules[0]
	if got := rule.Deinflect("undo"); got != "do" {
		t.Fatalf("Deinflect(undo) = %q, want %q", got, "do")
	}
	if !rule.IsInflected.MatchString("undo") {
		t.Fatalf("IsInflected should match %q", "undo")
	}
}

func TestCompileWholeWordRule(t *testing.T) {
	spec := Spec{
		Language: "en-test",
		Transforms: []TransformSpec{
			{
				ID:   "irregular",
				Name: "irregular past",
				Rules: []RuleSpec{
					{Type: TypeWholeWord, Pattern: "went", Replacement: "go"},
				},
			},
		},
	}

	rs, err := Compile(spec)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	rule := rs.Transforms[0].Rules[0]
	if !rule.IsInflected.MatchString("went") {
		t.Fatalf("IsInflected should match %q", "went")
	}
	if rule.IsInflected.MatchString("awent") {
		t.Fatalf("IsInflected should not match %q", "awent")
	}
	if got := rule.Deinflect("went"); got != "go" {
		t.Fatalf("Deinflect(went) = %q, want %q", got, "go")
	}
}
