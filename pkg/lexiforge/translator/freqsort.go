package translator

// maxSafeInteger is the sentinel order for "no frequency recorded"
// under ascending sort: absent terms sink below every recorded one.
const maxSafeInteger = 1<<53 - 1

// injectSortFrequency: when opts names a
// sortFrequencyDictionary, every entry's FrequencyOrder and every one
// of its Definitions' FrequencyOrder is computed from that
// dictionary's recorded frequencies across the relevant headwords:
// ascending order takes the minimum frequency (present) or
// maxSafeInteger (absent); descending order takes the negated
// maximum (present) or 0 (absent). Definitions use only their own
// HeadwordIndices; the entry uses every headword.
func injectSortFrequency(e *TermDictionaryEntry, opts Options) {
	if opts.SortFrequencyDictionary == "" {
		return
	}

	ascending := opts.SortFrequencyDictionaryOrder != FrequencyDescending
	e.FrequencyOrder = frequencyOrderForHeadwords(e, allHeadwordIndices(e), opts.SortFrequencyDictionary, ascending)

	for di := range e.Definitions {
		def := &e.Definitions[di]
		def.FrequencyOrder = frequencyOrderForHeadwords(e, def.HeadwordIndices, opts.SortFrequencyDictionary, ascending)
	}
}

func allHeadwordIndices(e *TermDictionaryEntry) []int {
	indices := make([]int, len(e.Headwords))
	for i, hw := range e.Headwords {
		indices[i] = hw.Index
	}
	return indices
}

// frequencyOrderForHeadwords computes one scope's order value over the
// entry's recorded frequencies restricted to headwordIndices.
func frequencyOrderForHeadwords(e *TermDictionaryEntry, headwordIndices []int, dictionary string, ascending bool) int {
	want := make(map[int]bool, len(headwordIndices))
	for _, hi := range headwordIndices {
		want[hi] = true
	}

	found := false
	min, max := 0, 0
	for _, f := range e.Frequencies {
		if f.Dictionary != dictionary || !want[f.HeadwordIndex] {
			continue
		}
		n := int(f.Number)
		if !found {
			min, max, found = n, n, true
			continue
		}
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}

	if !found {
		if ascending {
			return maxSafeInteger
		}
		return 0
	}
	if ascending {
		return min
	}
	return -max
}
