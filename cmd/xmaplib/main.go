package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/stalexteam/xmaplib_go/pkg/xmaplib/service"
)

const version = "1.0.0"

func main() {
	verbose := flag.Bool("verbose", false, "show debug logs")
	port := flag.String("port", "", "serial port the controller firmware is attached to")
	baud := flag.Uint("baud", 115200, "serial baud rate")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	logger := buildLogger(*verbose)
	defer logger.Sync()

	sugar := logger.Sugar()

	svc, err := service.New(sugar, service.Options{
		Port:     *port,
		BaudRate: uint(*baud),
		Verbose:  *verbose,
	})
	if err != nil {
		sugar.Fatalw("failed to create service", "error", err)
	}

	svc.SetVersion(version)

	if err := svc.Initialize(); err != nil {
		sugar.Fatalw("failed to initialize service", "error", err)
		os.Exit(1)
	}
}

func buildLogger(verbose bool) *zap.Logger {
	var logger *zap.Logger
	var err error

	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}

	return logger
}
