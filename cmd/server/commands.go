package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sqlviz/internal/graph"
	"sqlviz/internal/logger"
	"sqlviz/internal/report"
	"sqlviz/internal/sqlparse"
	"sqlviz/internal/store"
)

func serveFlags(opts *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.StringVar(&opts.driver, "driver", "", "db driver override (postgres,mysql,sqlite,sqlserver,godror)")
	fs.StringVar(&opts.dsn, "dsn", "", "dsn override")
	fs.IntVar(&opts.port, "port", 0, fmt.Sprintf("http port (overrides config, default %d)", 8080))
	fs.IntVar(&opts.timeout, "timeout", 0, "db connect timeout seconds (overrides config, default 5)")
	fs.StringVar(&opts.webdir, "web", "", "web ui directory, not served when empty")
	return fs
}

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().AddFlagSet(serveFlags(opts))
	return cmd
}

func newParseCmd(opts *options) *cobra.Command {
	var format string
	var watch bool
	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Print the structure of a SQL statement",
		Long: `Parse reads one statement from a file, or from stdin when the file is
omitted or "-", and prints its tables, columns and joins.

With --watch the file is parsed again every time it changes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			appCfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			layout := graph.Layout(appCfg.Layout)
			builder := graph.Builder{Layout: &layout}

			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			if watch {
				if path == "-" {
					return errors.New("--watch needs a file")
				}
				return watchFile(cmd.Context(), path, func() error {
					return parseFile(cmd.OutOrStdout(), cmd.InOrStdin(), path, f, builder)
				})
			}
			return parseFile(cmd.OutOrStdout(), cmd.InOrStdin(), path, f, builder)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatTable), "output format (table|json)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "parse again whenever the file changes")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(report.FormatTable), string(report.FormatJSON)}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

// parseFile parses the statement at path ("-" for stdin) and prints it.
func parseFile(w io.Writer, stdin io.Reader, path string, f report.Format, builder graph.Builder) error {
	var text []byte
	var err error
	if path == "-" {
		text, err = io.ReadAll(stdin)
	} else {
		text, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	result := sqlparse.Parse(string(text))
	return report.Write(w, f, result, builder.Build(result))
}

// watchFile runs fn once, then again after each write to path, until ctx
// ends. The parent directory is watched so editors that replace the file
// are followed.
func watchFile(ctx context.Context, path string, fn func() error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		logger.Error("%v", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != abs || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				logger.Debug("file changed, parsing %s", abs)
				if err := fn(); err != nil {
					logger.Error("%v", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error: %v", err)
		}
	}
}

func newExportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Copy the store to a new SQLite file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			st, err := store.Open(appCfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Export(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", st.Path(), args[0])
			return nil
		},
	}
}
