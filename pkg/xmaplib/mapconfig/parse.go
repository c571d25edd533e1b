package mapconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stalexteam/xmaplib_go/pkg/xmaplib"
	"github.com/stalexteam/xmaplib_go/pkg/xmaplib/actionsteps"
)

// parseMappingsSection walks the "mappings" section of v, tolerant of the
// loose types viper hands back for nested YAML maps, mirroring the
// teacher's parseActionConfig.
func parseMappingsSection(v *viper.Viper, logger *zap.SugaredLogger, runner *actionsteps.Runner) ([]xmaplib.MappingConfig, error) {
	raw, ok := v.Get(configKeyMappings).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("mappings section must be a map of button vk to config")
	}

	mappings := make([]xmaplib.MappingConfig, 0, len(raw))
	for key, value := range raw {
		vk, err := strconv.ParseUint(key, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("mapping key %q is not a numeric virtual-key code: %w", key, err)
		}

		entry, ok := toStringMap(value)
		if !ok {
			return nil, fmt.Errorf("mapping %s: expected a map of settings", key)
		}

		cfg, err := parseMappingEntry(uint16(vk), entry, logger, runner)
		if err != nil {
			return nil, fmt.Errorf("mapping %s: %w", key, err)
		}
		mappings = append(mappings, cfg)
	}

	return mappings, nil
}

func parseMappingEntry(vk uint16, entry map[string]interface{}, logger *zap.SugaredLogger, runner *actionsteps.Runner) (xmaplib.MappingConfig, error) {
	cfg := xmaplib.MappingConfig{ButtonVK: vk}

	if b, ok := entry["uses_infinite_repeat"].(bool); ok {
		cfg.UsesInfiniteRepeat = b
	}
	if b, ok := entry["sends_first_repeat_only"].(bool); ok {
		cfg.SendsFirstRepeatOnly = b
	}

	if group, ok := intFromAny(entry["exclusivity_group"]); ok {
		cfg.ExclusivityGroup = &group
	}

	if ms, ok := intFromAny(entry["repeat_delay_ms"]); ok {
		d := time.Duration(ms) * time.Millisecond
		cfg.CustomRepeatDelay = &d
	}
	if ms, ok := intFromAny(entry["first_repeat_delay_ms"]); ok {
		d := time.Duration(ms) * time.Millisecond
		cfg.CustomFirstRepeatDelay = &d
	}

	onDown, err := compileSlot(entry, "on_down", vk, runner)
	if err != nil {
		return cfg, err
	}
	onUp, err := compileSlot(entry, "on_up", vk, runner)
	if err != nil {
		return cfg, err
	}
	onRepeat, err := compileSlot(entry, "on_repeat", vk, runner)
	if err != nil {
		return cfg, err
	}
	onReset, err := compileSlot(entry, "on_reset", vk, runner)
	if err != nil {
		return cfg, err
	}

	cfg.OnDown = onDown
	cfg.OnUp = onUp
	cfg.OnRepeat = onRepeat
	cfg.OnReset = onReset

	return cfg, nil
}

// compileSlot parses the named callback slot (on_down, on_up, ...) into a
// Sequence and compiles it via runner. A missing slot is left nil: the
// translator treats a nil ActionFn as a no-op.
func compileSlot(entry map[string]interface{}, name string, vk uint16, runner *actionsteps.Runner) (xmaplib.ActionFn, error) {
	raw, present := entry[name]
	if !present {
		return nil, nil
	}

	slotMap, ok := toStringMap(raw)
	if !ok {
		return nil, fmt.Errorf("%s must be a map", name)
	}

	seq, err := parseSequence(slotMap)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := seq.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(seq.Steps) == 0 {
		return nil, nil
	}

	key := fmt.Sprintf("%d:%s", vk, name)
	return runner.Compile(key, seq), nil
}

func parseSequence(slotMap map[string]interface{}) (actionsteps.Sequence, error) {
	var seq actionsteps.Sequence

	if b, ok := slotMap["exclusive"].(bool); ok {
		seq.Exclusive = b
	}

	rawSteps, ok := slotMap["steps"].([]interface{})
	if !ok {
		return seq, fmt.Errorf("steps must be a list")
	}

	for i, rawStep := range rawSteps {
		stepMap, ok := toStringMap(rawStep)
		if !ok {
			return seq, fmt.Errorf("step %d must be a map", i)
		}
		step, err := parseStep(stepMap)
		if err != nil {
			return seq, fmt.Errorf("step %d: %w", i, err)
		}
		seq.Steps = append(seq.Steps, step)
	}

	return seq, nil
}

func parseStep(m map[string]interface{}) (actionsteps.Step, error) {
	var step actionsteps.Step

	if s, ok := m["type"].(string); ok {
		step.Type = s
	}
	if s, ok := m["app"].(string); ok {
		step.App = s
	}
	if args, ok := m["args"].([]interface{}); ok {
		for _, a := range args {
			if s, ok := a.(string); ok {
				step.Args = append(step.Args, s)
			}
		}
	}
	if b, ok := m["wait"].(bool); ok {
		step.Wait = b
	}
	if ms, ok := intFromAny(m["wait_timeout_ms"]); ok {
		step.WaitTimeout = ms
	}
	if b, ok := m["singleton"].(bool); ok {
		step.Singleton = b
	}
	if ms, ok := intFromAny(m["ms"]); ok {
		step.Ms = ms
	}
	if s, ok := m["keys"].(string); ok {
		step.Keys = s
	}
	if s, ok := m["text"].(string); ok {
		step.Text = s
	}
	if ms, ok := intFromAny(m["char_delay_ms"]); ok {
		step.CharDelay = ms
	}

	if rawWnd, present := m["wait_wnd"]; present {
		wndMap, ok := toStringMap(rawWnd)
		if !ok {
			return step, fmt.Errorf("wait_wnd must be a map")
		}
		wnd := &actionsteps.WaitWnd{}
		if ms, ok := intFromAny(wndMap["timeout_ms"]); ok {
			wnd.Timeout = ms
		}
		if b, ok := wndMap["focused"].(bool); ok {
			wnd.Focused = b
		}
		if s, ok := wndMap["title"].(string); ok {
			wnd.Title = s
		}
		step.WaitWnd = wnd
	}

	return step, nil
}

// toStringMap tolerates both map[string]interface{} and
// map[interface{}]interface{}, the two shapes viper produces depending on
// whether a section round-tripped through YAML or was set programmatically.
func toStringMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// intFromAny tolerates the int/float64/string triad viper hands back for
// numeric YAML scalars depending on how they were quoted.
func intFromAny(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
