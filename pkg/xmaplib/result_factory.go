package xmaplib

// resetResult returns to Initial: calls OnReset, then sets Initial and
// re-arms the repeat timer for the next cycle.
func resetResult(m *Mapping) TranslationResult {
	return TranslationResult{
		Kind:     ResultReset,
		ButtonVK: m.Config.ButtonVK,
		Operation: func() {
			if m.Config.OnReset != nil {
				m.Config.OnReset()
			}
		},
		Advance: func() {
			m.State.SetInitial()
			m.State.RepeatTimer.ResetLast()
		},
	}
}

// repeatResult fires a key-repeat: calls OnRepeat, re-arms the repeat timer,
// and moves the mapping into Repeat.
func repeatResult(m *Mapping) TranslationResult {
	return TranslationResult{
		Kind:     ResultRepeat,
		ButtonVK: m.Config.ButtonVK,
		Operation: func() {
			if m.Config.OnRepeat != nil {
				m.Config.OnRepeat()
			}
		},
		Advance: func() {
			m.State.RepeatTimer.ResetLast()
			m.State.SetRepeat()
		},
	}
}

// downResult is the initial Down transition: calls OnDown, arms both timers,
// and moves the mapping into Down.
func downResult(m *Mapping) TranslationResult {
	return TranslationResult{
		Kind:     ResultDown,
		ButtonVK: m.Config.ButtonVK,
		Operation: func() {
			if m.Config.OnDown != nil {
				m.Config.OnDown()
			}
		},
		Advance: func() {
			m.State.RepeatTimer.ResetLast()
			m.State.FirstRepeatDelay.ResetLast()
			m.State.SetDown()
		},
	}
}

// upResult is a direct key-up transition driven by the tick's own input event.
func upResult(m *Mapping) TranslationResult {
	return TranslationResult{
		Kind:     ResultUp,
		ButtonVK: m.Config.ButtonVK,
		Operation: func() {
			if m.Config.OnUp != nil {
				m.Config.OnUp()
			}
		},
		Advance: func() {
			m.State.SetUp()
			m.State.RepeatTimer.ResetLast()
		},
	}
}

// overtakenUpResult releases a mapping displaced by another mapping in the
// same exclusivity group going Down. Same effect as upResult, tagged
// differently so callers/tests can tell the two apart.
func overtakenUpResult(m *Mapping) TranslationResult {
	return TranslationResult{
		Kind:     ResultOvertakenUp,
		ButtonVK: m.Config.ButtonVK,
		Operation: func() {
			if m.Config.OnUp != nil {
				m.Config.OnUp()
			}
		},
		Advance: func() {
			m.State.SetUp()
			m.State.RepeatTimer.ResetLast()
		},
	}
}
