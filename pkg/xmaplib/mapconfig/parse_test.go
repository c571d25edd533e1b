package mapconfig

import (
	"testing"

	"go.uber.org/zap"

	"github.com/stalexteam/xmaplib_go/pkg/xmaplib/actionsteps"
)

func TestParseMappingEntryBuildsConfig(t *testing.T) {
	logger := zap.NewNop().Sugar()
	runner := actionsteps.NewRunner(logger, nil)

	entry := map[string]interface{}{
		"uses_infinite_repeat":  true,
		"exclusivity_group":     1,
		"repeat_delay_ms":       "25",
		"first_repeat_delay_ms": 400.0,
		"on_down": map[string]interface{}{
			"exclusive": true,
			"steps": []interface{}{
				map[string]interface{}{"type": "keystroke", "keys": "ctrl+c"},
			},
		},
	}

	cfg, err := parseMappingEntry(91, entry, logger, runner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ButtonVK != 91 {
		t.Fatalf("expected button vk 91, got %d", cfg.ButtonVK)
	}
	if !cfg.UsesInfiniteRepeat {
		t.Fatalf("expected uses_infinite_repeat to be true")
	}
	if cfg.ExclusivityGroup == nil || *cfg.ExclusivityGroup != 1 {
		t.Fatalf("expected exclusivity_group 1, got %v", cfg.ExclusivityGroup)
	}
	if cfg.CustomRepeatDelay == nil || *cfg.CustomRepeatDelay != 25_000_000 {
		t.Fatalf("expected a 25ms custom repeat delay, got %v", cfg.CustomRepeatDelay)
	}
	if cfg.CustomFirstRepeatDelay == nil || *cfg.CustomFirstRepeatDelay != 400_000_000 {
		t.Fatalf("expected a 400ms custom first repeat delay, got %v", cfg.CustomFirstRepeatDelay)
	}
	if cfg.OnDown == nil {
		t.Fatalf("expected on_down to compile to a non-nil callback")
	}
	if cfg.OnUp != nil || cfg.OnRepeat != nil || cfg.OnReset != nil {
		t.Fatalf("expected unspecified slots to remain nil")
	}
}

func TestParseMappingEntryRejectsInvalidSteps(t *testing.T) {
	logger := zap.NewNop().Sugar()
	runner := actionsteps.NewRunner(logger, nil)

	entry := map[string]interface{}{
		"on_down": map[string]interface{}{
			"steps": []interface{}{
				map[string]interface{}{"type": "execute"}, // missing app
			},
		},
	}

	if _, err := parseMappingEntry(1, entry, logger, runner); err == nil {
		t.Fatalf("expected an error for a step missing required fields")
	}
}

func TestToStringMapToleratesInterfaceKeyedMaps(t *testing.T) {
	m, ok := toStringMap(map[interface{}]interface{}{"a": 1, "b": "x"})
	if !ok {
		t.Fatalf("expected conversion to succeed")
	}
	if m["a"] != 1 || m["b"] != "x" {
		t.Fatalf("unexpected map contents: %+v", m)
	}
}

func TestIntFromAnyHandlesNumericTriad(t *testing.T) {
	cases := []interface{}{5, int64(5), float64(5), "5"}
	for _, c := range cases {
		n, ok := intFromAny(c)
		if !ok || n != 5 {
			t.Fatalf("expected 5 from %#v, got %d (ok=%v)", c, n, ok)
		}
	}

	if _, ok := intFromAny("not a number"); ok {
		t.Fatalf("expected a non-numeric string to fail")
	}
}
