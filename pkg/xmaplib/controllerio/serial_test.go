package controllerio

import (
	"testing"

	"go.uber.org/zap"

	"github.com/stalexteam/xmaplib_go/pkg/xmaplib"
)

func TestParseButtonEventDown(t *testing.T) {
	state, err := parseButtonEvent([]byte(`{"vk":91,"down":true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.VirtualKey != 91 || !state.KeyDown || state.KeyUp || state.KeyRepeat {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestParseButtonEventUp(t *testing.T) {
	state, err := parseButtonEvent([]byte(`{"vk":91,"up":true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.VirtualKey != 91 || !state.KeyUp || state.KeyDown || state.KeyRepeat {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestParseButtonEventRepeat(t *testing.T) {
	state, err := parseButtonEvent([]byte(`{"vk":5,"repeat":true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.VirtualKey != 5 || !state.KeyRepeat {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestParseButtonEventRejectsNoTransition(t *testing.T) {
	if _, err := parseButtonEvent([]byte(`{"vk":5}`)); err == nil {
		t.Fatalf("expected an error for an event with no transition field")
	}
}

func TestParseButtonEventRejectsInvalidJSON(t *testing.T) {
	if _, err := parseButtonEvent([]byte(`not json`)); err == nil {
		t.Fatalf("expected an error for invalid JSON")
	}
}

func TestHandleLineStripsANSIAndIgnoresNonJSON(t *testing.T) {
	sio := &SerialIO{logger: zap.NewNop().Sugar()}
	c := make(chan xmaplib.ControllerState, 2)
	sio.consumers = append(sio.consumers, c)

	sio.handleLine("\x1b[32m{\"vk\":7,\"down\":true}\x1b[0m\n")

	select {
	case state := <-c:
		if state.VirtualKey != 7 || !state.KeyDown {
			t.Fatalf("unexpected state: %+v", state)
		}
	default:
		t.Fatalf("expected an event to be published")
	}

	sio.handleLine("this is just firmware boot chatter")
	select {
	case state := <-c:
		t.Fatalf("expected no event for non-JSON line, got %+v", state)
	default:
	}
}
