// Package service wires the mapping config, controller link, and action
// runner into a running process, modeled on the teacher's pkg/deej.Deej.
package service

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stalexteam/xmaplib_go/pkg/xmaplib"
	"github.com/stalexteam/xmaplib_go/pkg/xmaplib/actionsteps"
	"github.com/stalexteam/xmaplib_go/pkg/xmaplib/controllerio"
	"github.com/stalexteam/xmaplib_go/pkg/xmaplib/mapconfig"
	"github.com/stalexteam/xmaplib_go/pkg/xmaplib/notify"
	"github.com/stalexteam/xmaplib_go/pkg/xmaplib/util"
)

const (
	// envNoTray disables the tray icon when set to anything.
	envNoTray = "XMAPLIB_NO_TRAY_ICON"

	// tickInterval drives periodic re-translation so repeat timers fire even
	// between controller events.
	tickInterval = 10 * time.Millisecond
)

// Service is the main entity managing the translator, its controller input,
// and the action runner that executes its callbacks.
type Service struct {
	logger   *zap.SugaredLogger
	notifier notify.Notifier
	config   *mapconfig.CanonicalConfig
	runner   *actionsteps.Runner
	serial   *controllerio.SerialIO

	translatorMu sync.RWMutex
	translator   *xmaplib.KeyboardActionTranslator

	stopChannel chan bool
	stopping    sync.Once
	version     string
	verbose     bool
}

// Options configures the serial link this Service reads controller events
// from.
type Options struct {
	Port     string
	BaudRate uint
	Verbose  bool
}

// New builds a Service. Notification, config, runner, and serial I/O are
// constructed together the way NewDeej wires its sub-components.
func New(logger *zap.SugaredLogger, opts Options) (*Service, error) {
	logger = logger.Named("service")

	notifier, err := notify.NewToastNotifier(logger)
	if err != nil {
		return nil, fmt.Errorf("create notifier: %w", err)
	}

	runner := actionsteps.NewRunner(logger, notifier)

	cfg, err := mapconfig.New(logger, notifier, runner)
	if err != nil {
		return nil, fmt.Errorf("create mapping config: %w", err)
	}

	serial, err := controllerio.NewSerialIO(logger, notifier, opts.Port, opts.BaudRate)
	if err != nil {
		return nil, fmt.Errorf("create serial i/o: %w", err)
	}

	return &Service{
		logger:      logger,
		notifier:    notifier,
		config:      cfg,
		runner:      runner,
		serial:      serial,
		stopChannel: make(chan bool),
		verbose:     opts.Verbose,
	}, nil
}

// SetVersion records a version string shown in the tray menu, if called
// before Initialize.
func (s *Service) SetVersion(version string) {
	s.version = version
}

// Verbose reports whether the service was started with verbose logging.
func (s *Service) Verbose() bool {
	return s.verbose
}

// Initialize loads the mapping config, builds the initial translator, and
// starts the run loop (with or without a tray icon).
func (s *Service) Initialize() error {
	s.logger.Debug("initializing")

	if err := s.config.Load(); err != nil {
		return fmt.Errorf("load mapping config during init: %w", err)
	}

	if err := s.rebuildTranslator(); err != nil {
		return fmt.Errorf("build translator during init: %w", err)
	}

	if _, noTraySet := os.LookupEnv(envNoTray); noTraySet {
		s.logger.Debugw("running without tray icon", "reason", "envvar set")
		s.setupInterruptHandler()
		s.run()
	} else {
		s.setupInterruptHandler()
		s.initializeTray(s.run)
	}

	return nil
}

func (s *Service) setupInterruptHandler() {
	interrupt := util.SetupCloseHandler()
	go func() {
		sig := <-interrupt
		s.logger.Debugw("interrupted", "signal", sig)
		s.signalStop()
	}()
}

// rebuildTranslator compiles the loaded mapping config into a fresh
// translator, swaps it in, and then applies one round of CleanupActions to
// the previous one, so every mapping still held there gets its on_up call.
// It does not cancel in-flight action sequences; the file-watch reload path
// in run calls Runner.Cancel before calling it.
func (s *Service) rebuildTranslator() error {
	translator, err := xmaplib.New(s.config.Mappings)
	if err != nil {
		return err
	}

	s.translatorMu.Lock()
	old := s.translator
	s.translator = translator
	s.translatorMu.Unlock()

	if old != nil {
		for _, r := range old.CleanupActions() {
			r.Call()
		}
	}

	return nil
}

func (s *Service) run() {
	s.logger.Info("run loop starting")

	go s.config.WatchConfigFileChanges()

	reloaded := s.config.SubscribeToChanges()
	go func() {
		for range reloaded {
			s.runner.Cancel()
			if err := s.rebuildTranslator(); err != nil {
				s.logger.Warnw("failed to rebuild translator after config reload", "error", err)
			}
		}
	}()

	if err := s.serial.Start(); err != nil {
		s.logger.Errorw("failed to start serial i/o", "error", err)
		s.notifier.Notify("Can't connect to controller!", "Check the logs for details.")
	}

	events := s.serial.Subscribe()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChannel:
			s.logger.Debug("stop channel signaled, terminating")
			s.stop()
			return
		case ev := <-events:
			s.translate(ev)
		case <-ticker.C:
			s.translate(xmaplib.ControllerState{})
		}
	}
}

func (s *Service) translate(state xmaplib.ControllerState) {
	s.translatorMu.RLock()
	t := s.translator
	s.translatorMu.RUnlock()
	if t == nil {
		return
	}
	t.Translate(state).Apply()
}

func (s *Service) signalStop() {
	s.stopping.Do(func() {
		s.logger.Debug("signalling stop channel")
		select {
		case s.stopChannel <- true:
		default:
		}
	})
}

func (s *Service) stop() {
	s.logger.Info("stopping")

	s.config.StopWatchingConfigFile()
	s.serial.Stop()
	s.runner.Cancel()
	s.stopTray()

	s.translatorMu.RLock()
	t := s.translator
	s.translatorMu.RUnlock()
	if t != nil {
		for _, r := range t.CleanupActions() {
			r.Call()
		}
	}

	s.logger.Sync()
	os.Exit(0)
}
