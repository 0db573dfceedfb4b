package main

import (
	"cmp"
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	_ "sqlviz/internal/db/dialects"
	"sqlviz/internal/logger"

	"sqlviz/internal/db"
	"sqlviz/internal/graph"
	"sqlviz/internal/server"
	"sqlviz/internal/store"
	"sqlviz/pkg/config"
)

// options are the flags shared by every command.
type options struct {
	cfgPath   string
	driver    string
	dsn       string
	port      int
	timeout   int
	webdir    string
	storePath string
	logLevel  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Fatal("%v", err)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "sqlviz",
		Short:         "Diagram the tables, joins and values of SQL statements",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logger.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			logger.SetLevel(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.cfgPath, "config", filepath.Join(".", "configs", "example.yaml"), "path to config YAML")
	pf.StringVar(&opts.storePath, "store", "", "path to the SQLite store (overrides config, default "+config.DefaultStorePath+")")
	pf.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	root.Flags().AddFlagSet(serveFlags(opts))
	root.AddCommand(newServeCmd(opts), newParseCmd(opts), newExportCmd(opts))
	return root
}

// loadConfig reads the config file, if any, and applies the CLI overrides.
func loadConfig(opts *options) (config.AppConfig, error) {
	var appCfg config.AppConfig
	if opts.cfgPath != "" {
		logger.Debug("config file %s", opts.cfgPath)
		if c, err := config.LoadFile(opts.cfgPath); err == nil {
			appCfg = c
		} else {
			logger.Warn("error reading config file: %v", err)
		}
	}

	if opts.driver != "" && opts.dsn != "" {
		appCfg.Database = config.DBConfig{Type: opts.driver, DSN: opts.dsn}
	}
	appCfg.Server.Port = cmp.Or(opts.port, appCfg.Server.Port)
	appCfg.Server.TimeoutSec = cmp.Or(opts.timeout, appCfg.Server.TimeoutSec)
	appCfg.Store.Path = cmp.Or(opts.storePath, appCfg.Store.Path)
	appCfg.Log.Level = cmp.Or(opts.logLevel, appCfg.Log.Level)

	appCfg = appCfg.WithDefaults()
	if err := appCfg.Validate(); err != nil {
		return appCfg, err
	}
	level, err := logger.ParseLevel(appCfg.Log.Level)
	if err != nil {
		return appCfg, err
	}
	logger.SetLevel(level)
	return appCfg, nil
}

func runServe(ctx context.Context, opts *options) error {
	appCfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	st, err := store.Open(appCfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	active := appCfg.Database
	if active.Type == "" {
		if saved, ok, err := st.GetConnection(ctx); err != nil {
			logger.Error("reading saved connection: %v", err)
		} else if ok {
			active = saved
		}
	}
	if active.Type != "" {
		if _, _, err := config.BuildDriverAndDSN(active); err != nil {
			logger.Error("error building DSN: %v", err)
			active = config.DBConfig{}
		} else {
			logger.Info("active connection: %s", config.NormalizeDriver(active.Type))
		}
	}

	logger.Info("store %s, serving %s", st.Path(), opts.webdir)
	logger.Info("registered dialects: %v", db.RegisteredDialects())

	srv := server.New(server.Config{
		Port:       appCfg.Server.Port,
		TimeoutSec: appCfg.Server.TimeoutSec,
		WebDir:     opts.webdir,
		Layout:     graph.Layout(appCfg.Layout),
		Store:      st,
		Database:   active,
	})
	return srv.Serve(ctx)
}
