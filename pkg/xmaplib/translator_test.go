package xmaplib

import (
	"testing"
	"time"
)

type callCounter struct {
	downs, ups, repeats, resets int
}

func (c *callCounter) config(vk uint16, infinite bool) (MappingConfig, *callCounter) {
	return MappingConfig{
		ButtonVK:           vk,
		UsesInfiniteRepeat: infinite,
		OnDown:             func() { c.downs++ },
		OnUp:               func() { c.ups++ },
		OnRepeat:           func() { c.repeats++ },
		OnReset:            func() { c.resets++ },
	}, c
}

func shortDelays(cfg MappingConfig, repeat, first time.Duration) MappingConfig {
	cfg.CustomRepeatDelay = &repeat
	cfg.CustomFirstRepeatDelay = &first
	return cfg
}

func TestSingleMappingProgression(t *testing.T) {
	c := &callCounter{}
	cfg, _ := c.config(0x5B, true)
	cfg = shortDelays(cfg, 10*time.Millisecond, 10*time.Millisecond)

	tr, err := New([]MappingConfig{cfg})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}

	pack := tr.Translate(ControllerState{VirtualKey: 0x5B, KeyDown: true})
	pack.Apply()
	if c.downs != 1 {
		t.Fatalf("expected 1 on_down call, got %d", c.downs)
	}

	time.Sleep(20 * time.Millisecond)

	pack = tr.Translate(ControllerState{})
	pack.Apply()
	if c.repeats != 1 {
		t.Fatalf("expected 1 on_repeat call after first delay elapses, got %d", c.repeats)
	}

	time.Sleep(20 * time.Millisecond)

	pack = tr.Translate(ControllerState{VirtualKey: 0x5B, KeyUp: true})
	pack.Apply()
	if c.ups != 1 {
		t.Fatalf("expected 1 on_up call, got %d", c.ups)
	}

	m := tr.Mappings()[0]
	if !m.State.IsUp() {
		t.Fatalf("expected final phase Up, got %v", m.State.GetPhase())
	}
}

func TestInfiniteRepeatCounts(t *testing.T) {
	c := &callCounter{}
	cfg, _ := c.config(0x5B, true)
	cfg = shortDelays(cfg, 10*time.Millisecond, 10*time.Millisecond)

	tr, err := New([]MappingConfig{cfg})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}

	tr.Translate(ControllerState{VirtualKey: 0x5B, KeyDown: true}).Apply()

	const k = 3
	for i := 0; i < k+1; i++ {
		time.Sleep(15 * time.Millisecond)
		tr.Translate(ControllerState{}).Apply()
	}

	if c.repeats != k+1 {
		t.Fatalf("expected %d repeats, got %d", k+1, c.repeats)
	}
	if c.ups != 0 {
		t.Fatalf("expected no on_up before release, got %d", c.ups)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	c := &callCounter{}
	cfg, _ := c.config(0x5B, true)
	cfg = shortDelays(cfg, 10*time.Millisecond, 10*time.Millisecond)

	tr, err := New([]MappingConfig{cfg})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}

	tr.Translate(ControllerState{VirtualKey: 0x5B, KeyDown: true}).Apply()

	results := tr.CleanupActions()
	if len(results) != 1 || results[0].Kind != ResultUp {
		t.Fatalf("expected exactly one key-up cleanup result, got %#v", results)
	}
	results[0].Call()

	results = tr.CleanupActions()
	if len(results) != 1 || results[0].Kind != ResultReset {
		t.Fatalf("expected exactly one reset cleanup result, got %#v", results)
	}
	results[0].Call()

	if results := tr.CleanupActions(); len(results) != 0 {
		t.Fatalf("expected empty cleanup on a fully idle translator, got %#v", results)
	}
}

func TestOvertakingWithinGroup(t *testing.T) {
	ca := &callCounter{}
	cb := &callCounter{}
	group := 101

	cfgA, _ := ca.config(0x5B, true)
	cfgA.ExclusivityGroup = &group
	cfgB, _ := cb.config(0x5C, true)
	cfgB.ExclusivityGroup = &group

	tr, err := New([]MappingConfig{cfgA, cfgB})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}

	tr.Translate(ControllerState{VirtualKey: 0x5B, KeyDown: true}).Apply()

	pack := tr.Translate(ControllerState{VirtualKey: 0x5C, KeyDown: true})
	if len(pack.Overtaken) != 1 {
		t.Fatalf("expected exactly one overtaken result, got %d", len(pack.Overtaken))
	}
	if pack.Overtaken[0].ButtonVK != 0x5B {
		t.Fatalf("expected overtaken result to target A (0x5B), got %x", pack.Overtaken[0].ButtonVK)
	}
	if len(pack.NextState) != 1 || pack.NextState[0].ButtonVK != 0x5C || pack.NextState[0].Kind != ResultDown {
		t.Fatalf("expected next_state to contain B's down, got %#v", pack.NextState)
	}

	pack.Apply()
	if ca.ups != 1 {
		t.Fatalf("expected A's on_up to be called once, got %d", ca.ups)
	}
	if cb.downs != 1 {
		t.Fatalf("expected B's on_down to be called once, got %d", cb.downs)
	}
}

func TestNoOvertakingAcrossGroups(t *testing.T) {
	ca := &callCounter{}
	cb := &callCounter{}
	groupA := 101
	groupB := 100

	cfgA, _ := ca.config(0x5B, true)
	cfgA.ExclusivityGroup = &groupA
	cfgB, _ := cb.config(0x5C, true)
	cfgB.ExclusivityGroup = &groupB

	tr, err := New([]MappingConfig{cfgA, cfgB})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}

	tr.Translate(ControllerState{VirtualKey: 0x5B, KeyDown: true}).Apply()

	pack := tr.Translate(ControllerState{VirtualKey: 0x5C, KeyDown: true})
	if len(pack.Overtaken) != 0 {
		t.Fatalf("expected no overtaken results across distinct groups, got %d", len(pack.Overtaken))
	}
	if len(pack.NextState) != 1 || pack.NextState[0].ButtonVK != 0x5C {
		t.Fatalf("expected B's down in next_state, got %#v", pack.NextState)
	}
}

func TestExclusivityValidationRejectsInconsistentGroups(t *testing.T) {
	g1, g2 := 101, 102
	cfgs := []MappingConfig{
		{ButtonVK: 1, ExclusivityGroup: &g1},
		{ButtonVK: 1, ExclusivityGroup: &g2},
	}

	_, err := New(cfgs)
	if err == nil {
		t.Fatalf("expected ConfigError, got nil")
	}
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if cfgErr.Kind != InconsistentExclusivity {
		t.Fatalf("expected InconsistentExclusivity, got %v", cfgErr.Kind)
	}
}

func TestInvalidRepeatPolicyRejected(t *testing.T) {
	cfgs := []MappingConfig{
		{ButtonVK: 1, UsesInfiniteRepeat: true, SendsFirstRepeatOnly: true},
	}
	_, err := New(cfgs)
	if err == nil {
		t.Fatalf("expected ConfigError, got nil")
	}
	cfgErr, ok := err.(*ConfigError)
	if !ok || cfgErr.Kind != InvalidRepeatPolicy {
		t.Fatalf("expected InvalidRepeatPolicy ConfigError, got %#v", err)
	}
}

func TestRepeatCancelledByUp(t *testing.T) {
	c := &callCounter{}
	cfg, _ := c.config(0x5B, true)
	cfg = shortDelays(cfg, 10*time.Millisecond, 10*time.Millisecond)

	tr, err := New([]MappingConfig{cfg})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}

	tr.Translate(ControllerState{VirtualKey: 0x5B, KeyDown: true}).Apply()
	time.Sleep(20 * time.Millisecond)
	tr.Translate(ControllerState{}).Apply() // now Repeat, timer elapsed again below
	time.Sleep(20 * time.Millisecond)

	pack := tr.Translate(ControllerState{VirtualKey: 0x5B, KeyUp: true})
	if len(pack.Repeats) != 0 {
		t.Fatalf("expected no repeats bucket entry when the same tick carries key-up, got %d", len(pack.Repeats))
	}
	if len(pack.NextState) != 1 || pack.NextState[0].Kind != ResultUp {
		t.Fatalf("expected next_state up, got %#v", pack.NextState)
	}
}

func TestMissingCallbacksAreNoOps(t *testing.T) {
	cfg := MappingConfig{ButtonVK: 7, UsesInfiniteRepeat: true}
	tr, err := New([]MappingConfig{cfg})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}
	pack := tr.Translate(ControllerState{VirtualKey: 7, KeyDown: true})
	pack.Apply()
	if !tr.Mappings()[0].State.IsDown() {
		t.Fatalf("expected phase Down even without callbacks set")
	}
}

func TestUnrecognizedVKProducesNoNextState(t *testing.T) {
	cfg := MappingConfig{ButtonVK: 7}
	tr, err := New([]MappingConfig{cfg})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}
	pack := tr.Translate(ControllerState{VirtualKey: 9999, KeyDown: true})
	if len(pack.NextState) != 0 {
		t.Fatalf("expected no next_state results for an unrecognized VK, got %#v", pack.NextState)
	}
}
