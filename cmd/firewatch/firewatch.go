package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/firewatch/server"
	"github.com/cyclopcam/firewatch/server/config"
	"github.com/cyclopcam/logs"
)

func main() {
	parser := argparse.NewParser("firewatch", "Fire and smoke alarm for webcams")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Config file path", Default: "firewatch.json"})
	envFile := parser.String("e", "env", &argparse.Options{Help: "Environment file with secrets (eg TELEGRAM_BOT_TOKEN)", Default: ""})
	listen := parser.String("", "listen", &argparse.Options{Help: "HTTP listen address, overriding the config file (eg :8080)", Default: ""})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	// A .env next to the binary is picked up automatically
	if *envFile == "" {
		if _, err := os.Stat(".env"); err == nil {
			*envFile = ".env"
		}
	}

	cfg, err := config.LoadConfig(*configFile, *envFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	srv, err := server.NewServer(logger, cfg)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	srv.ListenForKillSignals()

	// Tell systemd that we're alive
	daemon.SdNotify(false, daemon.SdNotifyReady)

	err = srv.ListenHTTP(cfg.Listen)
	if !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("ListenHTTP returned: %v", err)
		os.Exit(1)
	}
	<-srv.ShutdownComplete
}
