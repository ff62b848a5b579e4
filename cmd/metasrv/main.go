package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/streamhouse/streamhouse/internal/common/logtrace"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalogmanager"
	"github.com/streamhouse/streamhouse/internal/metasrv/config"
	"github.com/streamhouse/streamhouse/internal/metasrv/notifier"
	"github.com/streamhouse/streamhouse/internal/metasrv/server"
	"github.com/streamhouse/streamhouse/internal/metasrv/store"
	"github.com/streamhouse/streamhouse/internal/metasrv/store/pebblestore"
)

func init() {
	logtrace.InitLogger()
}

type cmdoptions struct {
	configFile *string
	debug      *bool
}

func main() {

	slog := log.With().Str("state", "init").Logger()
	opt := parseFlags()
	logtrace.SetDebug(*opt.debug)

	slog.Info().Str("config_file", *opt.configFile).Msg("loading config file")
	if err := config.LoadConfig(*opt.configFile); err != nil {
		slog.Error().Str("config_file", *opt.configFile).Err(err).Msg("unable to load config file")
		os.Exit(1)
	}
	if config.Config().ServerPort == "" {
		slog.Error().Msg("server port not defined")
		os.Exit(1)
	}

	st, err := openStore()
	if err != nil {
		slog.Error().Err(err).Msg("unable to open catalog store")
		os.Exit(1)
	}
	defer st.Close()

	b := notifier.NewWithBuffer(config.Config().NotifyBufferSize)
	ctx := log.Logger.WithContext(context.Background())
	m, merr := catalogmanager.New(ctx, st, b)
	if merr != nil {
		slog.Error().Err(merr).Msg("unable to recover catalog")
		os.Exit(1)
	}

	s, serr := server.CreateNewServer(m)
	if serr != nil {
		slog.Error().Err(serr).Msg("unable to create server")
		os.Exit(1)
	}
	s.MountHandlers()
	slog.Info().Str("port", config.Config().ServerPort).Str("store", config.Config().StoreBackend).Msg("meta server listening")
	if err := http.ListenAndServe(":"+config.Config().ServerPort, s.Router); err != nil {
		slog.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func openStore() (store.Store, error) {
	switch config.Config().StoreBackend {
	case "pebble":
		return pebblestore.Open(config.Config().StorePath)
	case "memory", "":
		return store.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", config.Config().StoreBackend)
	}
}

func parseFlags() cmdoptions {
	var opt cmdoptions
	opt.configFile = flag.String("config", "", "Path to the config file")
	opt.debug = flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}
