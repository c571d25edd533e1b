// Package controllerio reads controller button events off a serial link and
// publishes them as xmaplib.ControllerState ticks, modeled on the teacher's
// pkg/deej/serial.go SerialIO.
package controllerio

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"

	"github.com/stalexteam/xmaplib_go/pkg/xmaplib"
)

const (
	// serialRetryDelay is the pause between reconnection attempts.
	serialRetryDelay = 2 * time.Second

	// serialInterCharacterTimeout is the timeout (ms) between characters
	// before a read operation returns.
	serialInterCharacterTimeout = 50
)

var ansiRegexp = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRegexp.ReplaceAllString(s, "")
}

// Notifier surfaces a user-facing message. SerialIO keeps the notifier it is
// given but sends nothing through it; connection failures are only logged.
type Notifier interface {
	Notify(title, message string)
}

// SerialIO manages a serial connection to the controller firmware, parses
// its line-delimited JSON button events, and fans them out to subscribers.
type SerialIO struct {
	portName string
	baudRate uint

	logger   *zap.SugaredLogger
	notifier Notifier

	stopChannel chan bool
	mu          sync.Mutex
	connected   bool
	conn        io.ReadWriteCloser

	consumersMu sync.RWMutex
	consumers   []chan xmaplib.ControllerState
}

// NewSerialIO builds a SerialIO bound to portName/baudRate. notifier may be
// nil.
func NewSerialIO(logger *zap.SugaredLogger, notifier Notifier, portName string, baudRate uint) (*SerialIO, error) {
	if portName == "" {
		return nil, errors.New("controllerio: port name is required")
	}

	return &SerialIO{
		portName:    portName,
		baudRate:    baudRate,
		logger:      logger.Named("controllerio"),
		notifier:    notifier,
		stopChannel: make(chan bool),
	}, nil
}

// IsConnected reports whether the serial link is currently open.
func (sio *SerialIO) IsConnected() bool {
	sio.mu.Lock()
	defer sio.mu.Unlock()
	return sio.connected
}

// Subscribe returns an unbuffered channel that receives a ControllerState
// for each button event read off the wire. Events are sent without
// blocking: an event that arrives while the subscriber is not ready to
// receive is dropped.
func (sio *SerialIO) Subscribe() chan xmaplib.ControllerState {
	c := make(chan xmaplib.ControllerState)
	sio.consumersMu.Lock()
	sio.consumers = append(sio.consumers, c)
	sio.consumersMu.Unlock()
	return c
}

// Start opens the connection and, on disconnect, retries indefinitely until
// Stop is called.
func (sio *SerialIO) Start() error {
	sio.mu.Lock()
	if sio.connected {
		sio.mu.Unlock()
		return errors.New("controllerio: already running")
	}
	sio.mu.Unlock()

	if err := sio.connect(); err != nil {
		return fmt.Errorf("controllerio: initial connect: %w", err)
	}

	go func() {
		for {
			sio.mu.Lock()
			connected := sio.connected
			conn := sio.conn
			sio.mu.Unlock()

			if connected && conn != nil {
				if err := sio.run(); err != nil {
					sio.logger.Warnw("serial connection lost", "error", err)
				}
			}

			sio.close()

			select {
			case <-sio.stopChannel:
				return
			case <-time.After(serialRetryDelay):
			}

			if err := sio.connect(); err != nil {
				sio.logger.Warnw("serial reconnect failed", "error", err)
				continue
			}
		}
	}()

	return nil
}

func (sio *SerialIO) connect() error {
	sio.mu.Lock()
	if sio.connected {
		sio.mu.Unlock()
		return errors.New("already connected")
	}
	sio.mu.Unlock()

	opts := serial.OpenOptions{
		PortName:              sio.portName,
		BaudRate:              sio.baudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       0,
		InterCharacterTimeout: serialInterCharacterTimeout,
	}

	sio.logger.Debugw("attempting serial connection", "port", sio.portName, "baud", sio.baudRate)

	conn, err := serial.Open(opts)
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "access is denied") || strings.Contains(msg, "permission denied"):
			return fmt.Errorf("serial port %s is busy or access denied: %w", sio.portName, err)
		case strings.Contains(msg, "no such file") || strings.Contains(msg, "cannot find"):
			return fmt.Errorf("serial port %s does not exist: %w", sio.portName, err)
		default:
			return fmt.Errorf("open serial port %s: %w", sio.portName, err)
		}
	}

	sio.mu.Lock()
	sio.conn = conn
	sio.connected = true
	sio.mu.Unlock()

	sio.logger.Infow("connected to serial port", "port", sio.portName)
	return nil
}

func (sio *SerialIO) run() error {
	sio.mu.Lock()
	conn := sio.conn
	sio.mu.Unlock()
	if conn == nil {
		return errors.New("cannot run: connection is nil")
	}

	reader := bufio.NewReader(conn)
	lines := sio.readLines(reader)

	for {
		select {
		case <-sio.stopChannel:
			return nil
		case line, ok := <-lines:
			if !ok {
				return errors.New("serial connection lost")
			}
			sio.handleLine(line)
		}
	}
}

// Stop shuts down the connection, if one is active, and ends Start's retry
// loop.
func (sio *SerialIO) Stop() {
	select {
	case <-sio.stopChannel:
		return
	default:
	}

	sio.logger.Debug("shutting down serial connection")
	close(sio.stopChannel)
}

func (sio *SerialIO) close() {
	sio.mu.Lock()
	conn := sio.conn
	sio.conn = nil
	sio.connected = false
	sio.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			sio.logger.Warnw("failed to close serial connection", "error", err)
		} else {
			sio.logger.Infow("serial connection closed", "port", sio.portName)
		}
	}
}

func (sio *SerialIO) readLines(reader *bufio.Reader) chan string {
	ch := make(chan string)

	go func() {
		defer close(ch)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					sio.logger.Infow("serial read error, connection may be lost", "error", err)
				}
				return
			}

			select {
			case ch <- line:
			case <-sio.stopChannel:
				return
			}
		}
	}()

	return ch
}

// handleLine parses one line of input as a button event and publishes it.
// Expected wire format: {"vk":91,"down":true} / {"vk":91,"up":true} /
// {"vk":91,"repeat":true}, optionally wrapped in ANSI color codes the
// firmware's own logging emits.
func (sio *SerialIO) handleLine(line string) {
	trimmed := strings.TrimSpace(stripANSI(line))
	if trimmed == "" || trimmed[0] != '{' {
		return
	}

	state, err := parseButtonEvent([]byte(trimmed))
	if err != nil {
		sio.logger.Debugw("ignoring unparseable line", "line", trimmed, "error", err)
		return
	}

	sio.consumersMu.RLock()
	consumers := make([]chan xmaplib.ControllerState, len(sio.consumers))
	copy(consumers, sio.consumers)
	sio.consumersMu.RUnlock()

	for _, c := range consumers {
		select {
		case c <- state:
		default:
		}
	}
}

func parseButtonEvent(data []byte) (xmaplib.ControllerState, error) {
	var raw struct {
		VK     uint16 `json:"vk"`
		Down   bool   `json:"down"`
		Up     bool   `json:"up"`
		Repeat bool   `json:"repeat"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return xmaplib.ControllerState{}, err
	}
	if !raw.Down && !raw.Up && !raw.Repeat {
		return xmaplib.ControllerState{}, errors.New("event has no recognized transition field")
	}

	return xmaplib.ControllerState{
		VirtualKey: raw.VK,
		KeyDown:    raw.Down,
		KeyUp:      raw.Up,
		KeyRepeat:  raw.Repeat,
	}, nil
}
