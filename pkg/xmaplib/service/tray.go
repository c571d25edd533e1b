package service

import (
	"os"

	"github.com/getlantern/systray"

	"github.com/stalexteam/xmaplib_go/pkg/xmaplib/util"
)

const mappingConfigFilepath = "mappings.yaml"

func (s *Service) initializeTray(onDone func()) {
	logger := s.logger.Named("tray")

	onReady := func() {
		logger.Debug("tray instance ready")

		systray.SetTitle("xmaplib")
		systray.SetTooltip("xmaplib gamepad mapper")

		editConfig := systray.AddMenuItem("Edit configuration", "Open mappings.yaml for editing")
		reload := systray.AddMenuItem("Reload mapping", "Reload mappings.yaml now")

		var dumpStack *systray.MenuItem
		if s.verbose {
			dumpStack = systray.AddMenuItem("Dump stack trace", "Output all goroutines stack trace to log")
		}

		if s.version != "" {
			systray.AddSeparator()
			versionInfo := systray.AddMenuItem(s.version, "")
			versionInfo.Disable()
		}

		systray.AddSeparator()
		quit := systray.AddMenuItem("Quit", "Stop xmaplib and quit")

		go func() {
			for {
				select {
				case <-quit.ClickedCh:
					logger.Info("quit menu item clicked, stopping")
					s.signalStop()

				case <-editConfig.ClickedCh:
					logger.Info("edit config menu item clicked, opening mapping file for editing")

					editor := "notepad.exe"
					if util.Linux() {
						if editorEnv := os.Getenv("EDITOR"); editorEnv != "" {
							editor = editorEnv
						} else {
							editor = "xdg-open"
						}
					}

					if err := util.OpenExternal(logger, editor, mappingConfigFilepath); err != nil {
						logger.Warnw("failed to open mapping file for editing", "error", err)
					}

				case <-reload.ClickedCh:
					logger.Info("reload menu item clicked, reloading mapping config")

					if err := s.config.Load(); err != nil {
						logger.Warnw("manual reload failed", "error", err)
						continue
					}
					if err := s.rebuildTranslator(); err != nil {
						logger.Warnw("failed to rebuild translator after manual reload", "error", err)
					}
				}
			}
		}()

		if s.verbose && dumpStack != nil {
			go func() {
				for {
					<-dumpStack.ClickedCh
					logger.Info("dump stack trace menu item clicked")
					util.DumpAllGoroutines(logger)
				}
			}()
		}

		onDone()
	}

	onExit := func() {
		logger.Debug("tray exited")
	}

	logger.Debug("running in tray")
	systray.Run(onReady, onExit)
}

func (s *Service) stopTray() {
	s.logger.Debug("quitting tray")
	systray.Quit()
}
