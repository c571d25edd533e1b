// Package mapconfig loads the button-to-action mapping table from a YAML
// file and keeps it hot-reloadable, modeled directly on the teacher's
// pkg/deej/config.go CanonicalConfig.
package mapconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stalexteam/xmaplib_go/pkg/xmaplib"
	"github.com/stalexteam/xmaplib_go/pkg/xmaplib/actionsteps"
	"github.com/stalexteam/xmaplib_go/pkg/xmaplib/util"
)

const (
	userConfigFilepath = "mappings.yaml"
	userConfigName     = "mappings"
	userConfigType     = "yaml"
	userConfigPath     = "."

	configKeyMappings = "mappings"

	minTimeBetweenReloadAttempts = 500 * time.Millisecond
	delayBetweenEventAndReload   = 50 * time.Millisecond
)

// Notifier is the subset of notify.Notifier this package needs.
type Notifier interface {
	Notify(title, message string)
}

// CanonicalConfig owns the viper-backed mapping file, its fsnotify watch,
// and the compiled []xmaplib.MappingConfig derived from it.
type CanonicalConfig struct {
	Mappings []xmaplib.MappingConfig

	logger   *zap.SugaredLogger
	notifier Notifier
	runner   *actionsteps.Runner

	userConfig         *viper.Viper
	stopWatcherChannel chan bool
	reloadConsumers    []chan bool
}

// New builds a CanonicalConfig. runner compiles each mapping's action-step
// sequences into the func() callbacks xmaplib.MappingConfig expects.
func New(logger *zap.SugaredLogger, notifier Notifier, runner *actionsteps.Runner) (*CanonicalConfig, error) {
	logger = logger.Named("mapconfig")

	if err := util.EnsureDirExists(userConfigPath); err != nil {
		return nil, fmt.Errorf("ensure mapping config directory exists: %w", err)
	}

	userConfig := viper.New()
	userConfig.SetConfigName(userConfigName)
	userConfig.SetConfigType(userConfigType)
	userConfig.AddConfigPath(userConfigPath)
	userConfig.SetDefault(configKeyMappings, map[string]interface{}{})

	return &CanonicalConfig{
		logger:             logger,
		notifier:           notifier,
		runner:             runner,
		userConfig:         userConfig,
		stopWatcherChannel: make(chan bool),
	}, nil
}

// Load reads mappings.yaml from disk and (re)populates Mappings.
func (cc *CanonicalConfig) Load() error {
	cc.logger.Debugw("loading mapping config", "path", userConfigFilepath)

	if !util.FileExists(userConfigFilepath) {
		cc.logger.Warnw("mapping config file not found", "path", userConfigFilepath)
		cc.notifier.Notify("Can't find configuration!",
			fmt.Sprintf("%s must be in the same directory as the binary.", userConfigFilepath))
		return fmt.Errorf("mapping config file doesn't exist: %s", userConfigFilepath)
	}

	if err := cc.userConfig.ReadInConfig(); err != nil {
		cc.logger.Warnw("viper failed to read mapping config", "error", err)
		if strings.Contains(err.Error(), "yaml:") {
			cc.notifier.Notify("Invalid configuration!",
				fmt.Sprintf("Please make sure %s is valid YAML.", userConfigFilepath))
		} else {
			cc.notifier.Notify("Error loading configuration!", "Check the logs for details.")
		}
		return fmt.Errorf("read mapping config: %w", err)
	}

	mappings, err := parseMappingsSection(cc.userConfig, cc.logger, cc.runner)
	if err != nil {
		cc.logger.Warnw("failed to parse mapping config", "error", err)
		return fmt.Errorf("parse mapping config: %w", err)
	}

	cc.Mappings = mappings
	cc.logger.Infow("loaded mapping config", "mappings_count", len(mappings))
	return nil
}

// SubscribeToChanges returns a channel that fires whenever the mapping file
// is successfully reloaded.
func (cc *CanonicalConfig) SubscribeToChanges() chan bool {
	c := make(chan bool)
	cc.reloadConsumers = append(cc.reloadConsumers, c)
	return c
}

// WatchConfigFileChanges watches mappings.yaml for writes and reloads on
// change, debounced exactly like the teacher's WatchConfigFileChanges.
func (cc *CanonicalConfig) WatchConfigFileChanges() {
	cc.logger.Debugw("watching mapping config for changes", "path", userConfigFilepath)

	lastAttempt := time.Now()

	cc.userConfig.WatchConfig()
	cc.userConfig.OnConfigChange(func(event fsnotify.Event) {
		if event.Op&fsnotify.Write != fsnotify.Write {
			return
		}

		now := time.Now()
		if !lastAttempt.Add(minTimeBetweenReloadAttempts).Before(now) {
			return
		}

		<-time.After(delayBetweenEventAndReload)

		if err := cc.Load(); err != nil {
			cc.logger.Warnw("failed to reload mapping config", "error", err)
		} else {
			cc.logger.Info("reloaded mapping config")
			cc.notifier.Notify("Configuration reloaded!", "Your changes have been applied.")
			cc.onReloaded()
		}
		lastAttempt = now
	})

	<-cc.stopWatcherChannel
	cc.logger.Debug("stopping mapping config watcher")
	cc.userConfig.OnConfigChange(nil)
}

// StopWatchingConfigFile signals the watcher goroutine to stop.
func (cc *CanonicalConfig) StopWatchingConfigFile() {
	cc.stopWatcherChannel <- true
	for _, ch := range cc.reloadConsumers {
		close(ch)
	}
	cc.reloadConsumers = nil
}

func (cc *CanonicalConfig) onReloaded() {
	for _, consumer := range cc.reloadConsumers {
		func() {
			defer func() { recover() }()
			select {
			case consumer <- true:
			default:
			}
		}()
	}
}
