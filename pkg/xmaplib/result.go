package xmaplib

// ResultKind tags the effect a TranslationResult represents, mostly useful
// for tests and logging; it does not change call semantics.
type ResultKind int

const (
	ResultReset ResultKind = iota
	ResultRepeat
	ResultDown
	ResultUp
	ResultOvertakenUp
)

func (k ResultKind) String() string {
	switch k {
	case ResultReset:
		return "reset"
	case ResultRepeat:
		return "repeat"
	case ResultDown:
		return "down"
	case ResultUp:
		return "up"
	case ResultOvertakenUp:
		return "overtaken_up"
	default:
		return "unknown"
	}
}

// TranslationResult is a committed effect: an external side-effect thunk
// (Operation) paired with a state-advance thunk (Advance). Calling it
// invokes Operation then Advance. The two are kept separate so a caller can
// inspect a TranslationPack's shape before committing to its effects.
type TranslationResult struct {
	Kind      ResultKind
	ButtonVK  uint16
	Operation func()
	Advance   func()
}

// Call invokes Operation then Advance, in that order.
func (r TranslationResult) Call() {
	if r.Operation != nil {
		r.Operation()
	}
	if r.Advance != nil {
		r.Advance()
	}
}

// TranslationPack is the ordered set of results produced by one
// KeyboardActionTranslator.Translate call. Calling Apply (or calling each
// bucket in order) commits updates, then repeats, then overtaken releases,
// then the direct next-state transition implied by the tick's input event.
type TranslationPack struct {
	Updates   []TranslationResult
	Repeats   []TranslationResult
	Overtaken []TranslationResult
	NextState []TranslationResult
}

// Apply commits every result in the pack, in the documented bucket order.
// There are no partial-commit points beyond what the caller does manually by
// invoking individual results instead of Apply.
func (p TranslationPack) Apply() {
	for _, r := range p.Updates {
		r.Call()
	}
	for _, r := range p.Repeats {
		r.Call()
	}
	for _, r := range p.Overtaken {
		r.Call()
	}
	for _, r := range p.NextState {
		r.Call()
	}
}

// IsEmpty reports whether the pack carries no results at all.
func (p TranslationPack) IsEmpty() bool {
	return len(p.Updates) == 0 && len(p.Repeats) == 0 && len(p.Overtaken) == 0 && len(p.NextState) == 0
}
