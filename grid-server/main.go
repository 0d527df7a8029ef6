package main

import (
	"flag"
	"fmt"

	"github.com/ContextoAbierto/contexto-abierto/common"
	"github.com/ContextoAbierto/contexto-abierto/common/config"
	"github.com/ContextoAbierto/contexto-abierto/common/site"
	"github.com/ContextoAbierto/contexto-abierto/grid-server/server"

	"github.com/sirupsen/logrus"
)

var (
	configFile = flag.String("config", "config.yaml", "Configuration file")
	envFile    = flag.String("env", ".env", "File to load environment variables from")
	debug      = flag.Bool("debug", false, "Print debugging messages")
)

func main() {
	// Parse the command line arguments.
	flag.Parse()

	// Configure the logger.
	common.LogConfig(*debug)

	// Load the configuration from the provided configuration file.
	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Panic(fmt.Errorf("Couldn't load config: %s", err.Error()))
	}

	// Check if there's a "feeds" section in the configuration file.
	if cfg.FeedsConfig == nil {
		logrus.Panic(fmt.Errorf("No 'feeds' configuration found, please provide one"))
	}

	if err = config.ApplyEnv(cfg, *envFile); err != nil {
		logrus.Panic(fmt.Errorf("Couldn't load environment: %s", err.Error()))
	}

	// Open the host page and the database, and instantiate the loader.
	s, err := site.New(cfg)
	if err != nil {
		logrus.Panic(fmt.Errorf("Couldn't set up the site: %s", err.Error()))
	}
	defer s.Close()

	srv := server.NewServer(s, cfg)

	if err = srv.SetupAndServe(); err != nil {
		logrus.Panic(fmt.Errorf("Something went wrong with the web server: %s", err.Error()))
	}
}
