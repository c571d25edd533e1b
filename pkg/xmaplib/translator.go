package xmaplib

import (
	"github.com/thoas/go-funk"
)

// KeyboardActionTranslator owns a table of Mappings and translates one
// ControllerState tick at a time into an ordered TranslationPack. It is the
// only type in this package whose construction can fail; per-tick
// translation never fails (see errors.go, ConfigError).
type KeyboardActionTranslator struct {
	mappings   []Mapping
	overtaking *OvertakingPolicy
}

// New validates and constructs a translator over mappings. Each mapping is
// copied into the translator's internal table; the caller's slice is not
// retained. Validation rejects:
//   - two mappings sharing a ButtonVK but disagreeing on ExclusivityGroup
//   - a mapping with both UsesInfiniteRepeat and SendsFirstRepeatOnly set
func New(configs []MappingConfig) (*KeyboardActionTranslator, error) {
	if err := checkExclusivityConsistency(configs); err != nil {
		return nil, err
	}

	mappings := make([]Mapping, 0, len(configs))
	for _, cfg := range configs {
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		mappings = append(mappings, NewMapping(cfg))
	}

	return &KeyboardActionTranslator{
		mappings:   mappings,
		overtaking: NewOvertakingPolicy(),
	}, nil
}

func checkExclusivityConsistency(configs []MappingConfig) error {
	groupByVK := make(map[uint16]*int)
	for _, cfg := range configs {
		existing, seen := groupByVK[cfg.ButtonVK]
		if !seen {
			groupByVK[cfg.ButtonVK] = cfg.ExclusivityGroup
			continue
		}
		if !sameGroup(existing, cfg.ExclusivityGroup) {
			return newInconsistentExclusivityError(cfg.ButtonVK)
		}
	}
	return nil
}

func sameGroup(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// vkMatchIndices returns the indices of mappings listening to vk, in table order.
func (t *KeyboardActionTranslator) vkMatchIndices(vk uint16) []int {
	var out []int
	for i, m := range t.mappings {
		if m.Config.ButtonVK == vk {
			out = append(out, i)
		}
	}
	return out
}

// updateIndices returns indices whose Up phase is ready to reset: either the
// mapping doesn't use infinite repeat (an immediate reset), or its repeat
// timer has elapsed.
func (t *KeyboardActionTranslator) updateIndices() []int {
	var out []int
	for i, m := range t.mappings {
		if !m.State.IsUp() {
			continue
		}
		if !m.Config.UsesInfiniteRepeat || m.State.RepeatTimer.IsElapsed() {
			out = append(out, i)
		}
	}
	return out
}

// repeatIndices returns indices due for a key-repeat emission this tick.
func (t *KeyboardActionTranslator) repeatIndices(s ControllerState) []int {
	var out []int
	for i, m := range t.mappings {
		infinite := m.Config.UsesInfiniteRepeat
		single := m.Config.SendsFirstRepeatOnly
		down := m.State.IsDown()
		rep := m.State.IsRepeating()
		te := m.State.RepeatTimer.IsElapsed()
		fe := m.State.FirstRepeatDelay.IsElapsed()

		doInitial := infinite && down && fe
		doRepeatRepeat := infinite && rep && te
		doSingle := !infinite && single && down && fe

		if doInitial || doRepeatRepeat || doSingle {
			out = append(out, i)
		}
	}

	if s.KeyUp {
		filtered := out[:0:0]
		for _, i := range out {
			if t.mappings[i].Config.ButtonVK != s.VirtualKey {
				filtered = append(filtered, i)
			}
		}
		out = filtered
	}

	return out
}

// newDownIndices returns matches for this tick's VK that aren't already
// accounted for by a due repeat (a release overrides a due repeat for the
// same key; see repeatIndices).
func newDownIndices(matches, repeats []int) []int {
	var out []int
	for _, i := range matches {
		if !funk.ContainsInt(repeats, i) {
			out = append(out, i)
		}
	}
	return out
}

// Translate consumes one ControllerState tick and returns the ordered
// TranslationPack of results implied by it. Translation never fails; an
// unrecognized VirtualKey simply produces no NextState results.
func (t *KeyboardActionTranslator) Translate(s ControllerState) TranslationPack {
	matches := t.vkMatchIndices(s.VirtualKey)
	updates := t.updateIndices()
	repeats := t.repeatIndices(s)
	newDowns := newDownIndices(matches, repeats)

	var pack TranslationPack

	for _, i := range updates {
		pack.Updates = append(pack.Updates, resetResult(&t.mappings[i]))
	}

	for _, i := range repeats {
		pack.Repeats = append(pack.Repeats, repeatResult(&t.mappings[i]))
	}

	if s.KeyDown {
		for _, i := range newDowns {
			pack.Overtaken = append(pack.Overtaken, t.overtaking.OvertakenResultsFor(t.mappings, i)...)
		}
	}

	for _, i := range newDowns {
		m := &t.mappings[i]
		switch {
		case s.KeyDown && m.State.IsInitial():
			pack.NextState = append(pack.NextState, downResult(m))
		case s.KeyUp && (m.State.IsDown() || m.State.IsRepeating()):
			pack.NextState = append(pack.NextState, upResult(m))
		}
	}

	return pack
}

// CleanupActions returns one round of results that moves every mapping a
// step toward Initial: a key-up for anything Down/Repeat, and a reset for
// anything Up. A mapping that is Down or Repeat therefore reaches Initial
// after two applied rounds (key-up, then reset). Once every mapping is
// Initial, CleanupActions returns nil.
func (t *KeyboardActionTranslator) CleanupActions() []TranslationResult {
	var results []TranslationResult
	for i := range t.mappings {
		m := &t.mappings[i]
		if m.State.IsDown() || m.State.IsRepeating() {
			results = append(results, upResult(m))
		}
		if m.State.IsUp() {
			results = append(results, resetResult(m))
		}
	}
	return results
}

// Mappings exposes a read-only view of the translator's mapping table, for
// introspection (e.g. by a service layer reporting current phases).
func (t *KeyboardActionTranslator) Mappings() []Mapping {
	return t.mappings
}
