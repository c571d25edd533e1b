package xmaplib

// OvertakingPolicy builds, lazily and once, a map of exclusivity group id to
// the mapping-table indices belonging to that group. Given an index about to
// go Down, it returns the TranslationResults needed to release ("overtake")
// every other Down/Repeat mapping sharing that group, in mapping-table order.
type OvertakingPolicy struct {
	groups map[int][]int
	built  bool
}

// NewOvertakingPolicy returns an empty policy; build populates it from a
// mapping table on first use.
func NewOvertakingPolicy() *OvertakingPolicy {
	return &OvertakingPolicy{groups: make(map[int][]int)}
}

func (o *OvertakingPolicy) build(mappings []Mapping) {
	if o.built {
		return
	}
	for i, m := range mappings {
		if m.Config.ExclusivityGroup != nil {
			g := *m.Config.ExclusivityGroup
			o.groups[g] = append(o.groups[g], i)
		}
	}
	o.built = true
}

// OvertakenResultsFor returns the key-up results required to release every
// other Down/Repeat mapping in the same exclusivity group as mappings[idx].
// Returns nil if mappings[idx] has no exclusivity group.
func (o *OvertakingPolicy) OvertakenResultsFor(mappings []Mapping, idx int) []TranslationResult {
	o.build(mappings)

	group := mappings[idx].Config.ExclusivityGroup
	if group == nil {
		return nil
	}

	var results []TranslationResult
	for _, other := range o.groups[*group] {
		if other == idx {
			continue
		}
		m := &mappings[other]
		if m.State.IsDown() || m.State.IsRepeating() {
			results = append(results, overtakenUpResult(m))
		}
	}
	return results
}
