package freq

import "testing"

func TestHarmonicMeanTwoDictionaries(t *testing.T) {
	// freq 10 in dict A, 1000 in dict B -> round(2 / (1/10 + 1/1000)) = 20.
	values := []Value{
		{Dictionary: "A", Number: 10},
		{Dictionary: "B", Number: 1000},
	}

	got := HarmonicMean(values)
	if got.HarmonicMean != 20 {
		t.Fatalf("HarmonicMean = %v, want 20", got.HarmonicMean)
	}
	if len(got.Frequencies) != 2 {
		t.Fatalf("len(Frequencies) = %d, want 2", len(got.Frequencies))
	}
}

func TestHarmonicMeanExcludesNonPositive(t *testing.T) {
	values := []Value{
		{Dictionary: "A", Number: 0},
		{Dictionary: "B", Number: -5},
		{Dictionary: "C", Number: 4},
	}

	got := HarmonicMean(values)
	if len(got.Frequencies) != 1 {
		t.Fatalf("len(Frequencies) = %d, want 1 (only C)", len(got.Frequencies))
	}
	if got.HarmonicMean != 4 {
		t.Fatalf("HarmonicMean = %v, want 4", got.HarmonicMean)
	}
}

func TestHarmonicMeanEmpty(t *testing.T) {
	got := HarmonicMean(nil)
	if got.HarmonicMean != 0 || len(got.Frequencies) != 0 {
		t.Fatalf("got = %+v, want zero Ranking", got)
	}
}

func TestParseFreqDataBareNumber(t *testing.T) {
	v, err := ParseFreqData("jmdict", []byte(`1234`))
	if err != nil {
		t.Fatalf("ParseFreqData: %v", err)
	}
	if v.Number != 1234 || v.DisplayValue != "1234" {
		t.Fatalf("v = %+v, want Number=1234 DisplayValue=1234", v)
	}
}

func TestParseFreqDataObjectWithReading(t *testing.T) {
	v, err := ParseFreqData("jmdict", []byte(`{"value":500,"displayValue":"500　common","reading":"ねこ"}`))
	if err != nil {
		t.Fatalf("ParseFreqData: %v", err)
	}
	if v.Number != 500 || v.Reading != "ねこ" {
		t.Fatalf("v = %+v, want Number=500 Reading=ねこ", v)
	}
}
