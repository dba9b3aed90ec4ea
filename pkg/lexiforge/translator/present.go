package translator

// presentInflectionChains fills in each RuleRef's user-facing Name and
// Description from pack's catalog: a chain built
// during deinflection carries only a rule's stable id, since the
// catalog lookup is deferred until a result actually survives to
// presentation. An id absent from the catalog (a dictionary-author
// rule name with no matching transform) presents as Name == ID.
func presentInflectionChains(chains []InflectionRuleChain, catalog map[string]RuleRef) {
	for ci := range chains {
		rules := chains[ci].Rules
		for ri := range rules {
			ref, ok := catalog[rules[ri].ID]
			if !ok {
				rules[ri].Name = rules[ri].ID
				continue
			}
			rules[ri].Name = ref.Name
			rules[ri].Description = ref.Description
		}
	}
}

// presentEntry runs presentInflectionChains over every rule-chain
// candidate attached to e.
func presentEntry(e *TermDictionaryEntry, catalog map[string]RuleRef) {
	presentInflectionChains(e.InflectionRuleChainCandidates, catalog)
}
