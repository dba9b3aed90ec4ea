// Package freq decodes per-dictionary frequency records and aggregates
// them into a single harmonic mean score.
package freq

import (
	"encoding/json"
	"math"
	"strconv"
)

// Value is one dictionary's frequency record for a term, decoded from a
// term-meta row's freq-mode payload: either a bare scalar
// or a {value, displayValue, reading} object.
type Value struct {
	Dictionary   string
	Number       float64
	DisplayValue string
	Reading      string
}

// ParseFreqData decodes a term-meta row's freq-mode data payload: a
// bare number, a bare string, or an object carrying
// value/displayValue/reading.
func ParseFreqData(dictionary string, raw []byte) (Value, error) {
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return Value{Dictionary: dictionary, Number: asNumber, DisplayValue: formatNumber(asNumber)}, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		n, _ := strconv.ParseFloat(asString, 64)
		return Value{Dictionary: dictionary, Number: n, DisplayValue: asString}, nil
	}

	var obj struct {
		Value        json.RawMessage `json:"value"`
		DisplayValue string          `json:"displayValue"`
		Reading      string          `json:"reading"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Value{}, err
	}

	var n float64
	_ = json.Unmarshal(obj.Value, &n)
	display := obj.DisplayValue
	if display == "" {
		display = formatNumber(n)
	}
	return Value{Dictionary: dictionary, Number: n, DisplayValue: display, Reading: obj.Reading}, nil
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// Ranking is the result of HarmonicMean: the contributing frequency
// records (in no guaranteed order) and their combined score.
type Ranking struct {
	Frequencies  []Value
	HarmonicMean float64
}

// HarmonicMean computes the harmonic mean of every positive frequency
// value present: n / sum(1/f_i), rounded to the nearest integer. Values
// that are zero or negative (frequency unknown) are excluded. An empty
// or all-excluded input yields a zero Ranking.
func HarmonicMean(values []Value) Ranking {
	var reciprocalSum float64
	var count int
	contributing := make([]Value, 0, len(values))

	for _, v := range values {
		if v.Number <= 0 {
			continue
		}
		reciprocalSum += 1 / v.Number
		count++
		contributing = append(contributing, v)
	}

	if count == 0 {
		return Ranking{Frequencies: contributing}
	}

	return Ranking{
		Frequencies:  contributing,
		HarmonicMean: math.Round(float64(count) / reciprocalSum),
	}
}
