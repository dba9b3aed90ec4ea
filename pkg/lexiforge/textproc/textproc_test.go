package textproc

import (
	"regexp"
	"sort"
	"testing"
)

func upperProcessor() Processor {
	return NewProcessor("upper", BoolOptions, func(text string, option Option) string {
		if option == "false" {
			return text
		}
		upper := ""
		for _, r := range text {
			if r >= 'a' && r <= 'z' {
				r -= 'a' - 'A'
			}
			upper += string(r)
		}
		return upper
	})
}

func keys(v Variants) []string {
	out := make([]string, 0, len(v))
	for k := range v {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestExpandNoProcessorsYieldsOnlyInput(t *testing.T) {
	v := Expand("cat", nil, NewMemo())
	if len(v) != 1 {
		t.Fatalf("len(variants) = %d, want 1", len(v))
	}
	chains, ok := v["cat"]
	if !ok {
		t.Fatalf("missing identity variant")
	}
	if len(chains) != 1 || len(chains[0]) != 0 {
		t.Fatalf("chains = %+v, want single empty chain", chains)
	}
}

func TestExpandIdentityOptionMergesWithoutAppendingID(t *testing.T) {
	v := Expand("cat", []Processor{upperProcessor()}, NewMemo())

	got := keys(v)
	want := []string{"CAT", "cat"}
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}

	// "cat" (identity option) keeps the empty chain; it must not carry
	// "upper" in its candidate list.
	for _, c := range v["cat"] {
		if len(c) != 0 {
			t.Fatalf("identity variant chain = %+v, want empty", c)
		}
	}
	// "CAT" was actually transformed, so its chain must record "upper".
	for _, c := range v["CAT"] {
		if len(c) != 1 || c[0] != "upper" {
			t.Fatalf("transformed variant chain = %+v, want [upper]", c)
		}
	}
}

func TestExpandTextReplacementFixedLabel(t *testing.T) {
	pattern := regexp.MustCompile(`foo`)
	p := NewTextReplacementProcessor(0, pattern, "bar")

	v := Expand("foobar", []Processor{p}, NewMemo())
	chains, ok := v["barbar"]
	if !ok {
		t.Fatalf("expected replaced variant %q, got keys %v", "barbar", keys(v))
	}
	if len(chains) != 1 || chains[0][0] != "Text Replacement 0" {
		t.Fatalf("chains = %+v, want [[Text Replacement 0]]", chains)
	}
}

func TestExpandMemoReusesComputation(t *testing.T) {
	calls := 0
	counting := NewProcessor("count", BoolOptions, func(text string, option Option) string {
		calls++
		if option == "false" {
			return text
		}
		return text + "!"
	})

	memo := NewMemo()
	Expand("x", []Processor{counting}, memo)
	before := calls
	Expand("x", []Processor{counting}, memo)
	if calls != before {
		t.Fatalf("calls after reuse = %d, want %d (memo should prevent recomputation)", calls, before)
	}
}

func TestExpandChainOrderAcrossMultipleProcessors(t *testing.T) {
	reverse := NewProcessor("reverse", BoolOptions, func(text string, option Option) string {
		if option == "false" {
			return text
		}
		runes := []rune(text)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes)
	})

	v := Expand("ab", []Processor{upperProcessor(), reverse}, NewMemo())
	chains, ok := v["BA"]
	if !ok {
		t.Fatalf("expected variant %q, got keys %v", "BA", keys(v))
	}
	found := false
	for _, c := range chains {
		if len(c) == 2 && c[0] == "upper" && c[1] == "reverse" {
			found = true
		}
	}
	if !found {
		t.Fatalf("chains for BA = %+v, want one chain [upper reverse]", chains)
	}
}
