// CLAUDE:SUMMARY CLI entry point: run, sync, stats, errors, export, reset, and serve subcommands.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/sigharv/dbopen"
	"github.com/hazyhaar/sigharv/harvest"
)

var (
	dbPath     string
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sigharv",
		Short: "Harvester for the municipal signal register",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "data/signals.db", "database path")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(errorsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

func openDB() (*sql.DB, error) {
	return dbopen.Open(dbPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(harvest.Schema),
	)
}

func openService(overrides func(*harvest.Config)) (*harvest.Service, *sql.DB, error) {
	cfg, err := harvest.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if overrides != nil {
		overrides(cfg)
	}
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	svc, err := harvest.New(db, cfg, slog.Default())
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return svc, db, nil
}

// signalContext cancels on SIGINT/SIGTERM so long runs stop at the next
// batch boundary with the watermark intact.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCmd() *cobra.Command {
	var (
		startID int64
		endID   int64
		resume  bool
		skip    bool
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Harvest the configured id range",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := openService(func(c *harvest.Config) {
				if startID > 0 {
					c.StartID = startID
				}
				if endID > 0 {
					c.EndID = endID
				}
				if cmd.Flags().Changed("resume") {
					c.Resume = resume
				}
				if cmd.Flags().Changed("skip-existing") {
					c.SkipExisting = skip
				}
				if cmd.Flags().Changed("force") {
					c.Force = force
				}
			})
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := signalContext()
			defer cancel()

			sum, err := svc.Run(ctx)
			if errors.Is(err, harvest.ErrEmptyPlan) {
				fmt.Println("nothing to harvest")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("planned %d, scraped %d, not found %d, skipped %d, errors %d, excluded %d\n",
				sum.Planned, sum.Scraped, sum.NotFound, sum.Skipped, sum.Errors, sum.Excluded)
			return nil
		},
	}
	cmd.Flags().Int64Var(&startID, "start", 0, "override range start id")
	cmd.Flags().Int64Var(&endID, "end", 0, "override range end id")
	cmd.Flags().BoolVar(&resume, "resume", false, "resume from the stored watermark")
	cmd.Flags().BoolVar(&skip, "skip-existing", false, "drop stored ids from the plan up front")
	cmd.Flags().BoolVar(&force, "force", false, "re-fetch ids already stored")
	return cmd
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh the classification snapshot from the register",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := openService(nil)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := signalContext()
			defer cancel()

			cats, subs, err := svc.SyncTaxonomy(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("synced %d categories, %d subcategories\n", cats, subs)
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show stored record counts and progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := openService(nil)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := svc.Stats(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("records:   %d\n", stats.Records)
			fmt.Printf("watermark: %d\n", stats.Progress.LastID)
			fmt.Printf("errors:    %d\n", stats.Errors)
			fmt.Printf("outcomes:  scraped %d, skipped %d, not found %d, errors %d\n",
				stats.Progress.Scraped, stats.Progress.Skipped,
				stats.Progress.NotFound, stats.Progress.Errors)
			if stats.Progress.StartedAt > 0 {
				fmt.Printf("last run:  %s\n",
					time.UnixMilli(stats.Progress.StartedAt).Format("2006-01-02 15:04:05"))
			}
			if len(stats.ByStatus) > 0 {
				fmt.Println("by status:")
				w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
				for status, n := range stats.ByStatus {
					if status == "" {
						status = "(none)"
					}
					fmt.Fprintf(w, "  %s\t%d\n", status, n)
				}
				w.Flush()
			}
			if len(stats.ByCategory) > 0 {
				fmt.Println("by category:")
				w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
				for name, n := range stats.ByCategory {
					if name == "" {
						name = "(none)"
					}
					fmt.Fprintf(w, "  %s\t%d\n", name, n)
				}
				w.Flush()
			}
			return nil
		},
	}
}

func errorsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Show recent harvest failures",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := openService(nil)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := svc.Errors(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no errors logged")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tID\tSTAGE\tMESSAGE")
			for _, e := range entries {
				ts := time.UnixMilli(e.OccurredAt).Format("2006-01-02 15:04:05")
				msg := e.Message
				if i := strings.IndexByte(msg, '\n'); i >= 0 {
					msg = msg[:i]
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", ts, e.RecordID, e.Stage, msg)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")
	return cmd
}

func exportCmd() *cobra.Command {
	var format string
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored records as CSV or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := openService(nil)
			if err != nil {
				return err
			}
			defer db.Close()

			var w = os.Stdout
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			switch format {
			case "csv":
				return svc.ExportCSV(context.Background(), w)
			case "json":
				return svc.ExportJSON(context.Background(), w)
			default:
				return fmt.Errorf("unknown format %q (want csv or json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "output format (csv|json)")
	cmd.Flags().StringVar(&out, "out", "-", "output file, - for stdout")
	return cmd
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Zero the progress watermark",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := openService(nil)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := svc.ResetProgress(context.Background()); err != nil {
				return err
			}
			fmt.Println("progress reset")
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := openService(nil)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := signalContext()
			defer cancel()

			srv := &http.Server{Addr: addr, Handler: svc.Router()}
			go func() {
				<-ctx.Done()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				srv.Shutdown(shutdownCtx)
			}()

			slog.Info("status API listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8090", "listen address")
	return cmd
}
