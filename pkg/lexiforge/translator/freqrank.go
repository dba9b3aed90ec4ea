package translator

import (
	"context"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/freq"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/store"
)

// GetFrequencyRanking fetches term's freq-mode meta rows from the named
// dictionaries and combines them into a harmonic mean ranking. A row
// that fails to decode is logged and skipped.
func (t *Translator) GetFrequencyRanking(ctx context.Context, term string, dictionaries []string) (freq.Ranking, error) {
	dictSet := make(store.DictSet, len(dictionaries))
	for _, d := range dictionaries {
		dictSet[d] = true
	}

	rows, err := t.store.FindTermMetaBulk(ctx, []string{term}, dictSet)
	if err != nil {
		return freq.Ranking{}, err
	}

	var values []freq.Value
	for _, row := range rows {
		if row.Mode != "freq" {
			continue
		}
		v, err := freq.ParseFreqData(row.Dictionary, row.Data)
		if err != nil {
			logMalformedRow(row, err)
			continue
		}
		values = append(values, v)
	}
	return freq.HarmonicMean(values), nil
}
