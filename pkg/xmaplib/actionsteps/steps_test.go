package actionsteps

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSequenceValidateRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name string
		seq  Sequence
		ok   bool
	}{
		{"valid delay", Sequence{Steps: []Step{{Type: TypeDelay, Ms: 10}}}, true},
		{"delay zero ms", Sequence{Steps: []Step{{Type: TypeDelay, Ms: 0}}}, false},
		{"execute missing app", Sequence{Steps: []Step{{Type: TypeExecute}}}, false},
		{"keystroke missing keys", Sequence{Steps: []Step{{Type: TypeKeystroke}}}, false},
		{"typing missing text", Sequence{Steps: []Step{{Type: TypeTyping}}}, false},
		{"unknown type", Sequence{Steps: []Step{{Type: "bogus"}}}, false},
		{
			"wait_timeout without wait",
			Sequence{Steps: []Step{{Type: TypeExecute, App: "x", WaitTimeout: 500}}},
			false,
		},
		{
			"wait_wnd with wait true",
			Sequence{Steps: []Step{{Type: TypeExecute, App: "x", Wait: true, WaitWnd: &WaitWnd{Timeout: 500}}}},
			false,
		},
		{
			"wait_wnd with non-positive timeout",
			Sequence{Steps: []Step{{Type: TypeExecute, App: "x", WaitWnd: &WaitWnd{Timeout: 0}}}},
			false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.seq.Validate()
			if c.ok && err != nil {
				t.Fatalf("expected valid, got error: %v", err)
			}
			if !c.ok && err == nil {
				t.Fatalf("expected an error, got nil")
			}
		})
	}
}

func TestRunnerCompileRunsDelaySequence(t *testing.T) {
	logger := zap.NewNop().Sugar()
	r := NewRunner(logger, nil)

	var ran int32
	seq := Sequence{Steps: []Step{{Type: TypeDelay, Ms: 5}}}
	fn := r.Compile("test-key", seq)
	fn()

	for i := 0; i < 50 && atomic.LoadInt32(&ran) == 0; i++ {
		time.Sleep(5 * time.Millisecond)
		r.runningMu.Lock()
		_, busy := r.running["test-key"]
		r.runningMu.Unlock()
		if !busy {
			atomic.StoreInt32(&ran, 1)
		}
	}

	if atomic.LoadInt32(&ran) == 0 {
		t.Fatalf("expected sequence to finish and clear running map within timeout")
	}
}

func TestRunnerExclusiveSkipsConcurrentRun(t *testing.T) {
	logger := zap.NewNop().Sugar()
	r := NewRunner(logger, nil)

	seq := Sequence{Exclusive: true, Steps: []Step{{Type: TypeDelay, Ms: 50}}}
	fn := r.Compile("exclusive-key", seq)

	fn()
	time.Sleep(30 * time.Millisecond)

	r.runningMu.Lock()
	_, busyBefore := r.running["exclusive-key"]
	r.runningMu.Unlock()
	if !busyBefore {
		t.Fatalf("expected first run to still be in flight")
	}

	fn() // should be a no-op: skipped because exclusive and already running

	// ~65ms in: the first run (0-50ms) is done, while a second run started at
	// ~30ms would still be in flight until ~80ms had it not been skipped.
	time.Sleep(35 * time.Millisecond)

	r.runningMu.Lock()
	_, busyAfter := r.running["exclusive-key"]
	r.runningMu.Unlock()
	if busyAfter {
		t.Fatalf("expected the original run to have completed and no second run to have started")
	}
}

func TestRunnerEmptySequenceIsNoOp(t *testing.T) {
	logger := zap.NewNop().Sugar()
	r := NewRunner(logger, nil)
	fn := r.Compile("empty", Sequence{})
	fn() // must not panic or block
}
