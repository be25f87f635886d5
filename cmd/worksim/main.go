package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"worksim/internal/app"
	"worksim/internal/config"
	"worksim/internal/db"
	"worksim/internal/domain"
	"worksim/internal/engine"
	"worksim/internal/repo"
	"worksim/internal/report"
	"worksim/internal/roster"
	"worksim/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "worksim",
	Short: "Workday simulation",
	Long: `worksim simulates employees working through their task queues one
eight-hour day at a time. Each employee runs concurrently against a shared
clock; random breaks interrupt the work and count as idle time. Days repeat
until every assigned task is completed.

- Workspace: a directory with worksim.yml and the .worksim run history.
- Roster: employees, tasks and assignments from worksim.yml or an xlsx workbook.
- Runs: every simulation is recorded; inspect with 'worksim runs' or 'worksim serve'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(viper.GetString("log-level"))
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("WORKSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(serveCmd())
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// simulationFlags are bound to viper so WORKSIM_* variables override the
// file settings too.
var simulationFlags = []string{"seed", "break-probability", "hour-interval", "hour-timeout", "join-timeout", "max-days"}

func runCmd() *cobra.Command {
	var rosterPath, xlsxOut string
	var noRecord, showTasks bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate days until every task is completed",
		Long: `Run loads the roster from worksim.yml, or from --roster (yaml or xlsx),
then simulates work days until all assigned tasks are done. Daily statistics
go to the console, to --xlsx-out as Day_<n> sheets, and to the run history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			workspace := viper.GetString("workspace")
			cfg, err := app.ResolveConfig(workspace, rosterPath)
			if err != nil {
				return err
			}
			settings := applyOverrides(cfg.Simulation)
			if err := settings.Validate(); err != nil {
				return err
			}
			if settings.Seed == 0 {
				settings.Seed = time.Now().UnixNano()
			}
			employees, err := roster.Build(cfg.Roster)
			if err != nil {
				return err
			}
			if skipped := roster.Unassigned(cfg.Roster); len(skipped) > 0 {
				slog.Warn("tasks without assignment are not simulated", "tasks", skipped)
			}
			_, totalTasks := engine.Progress(employees)

			var sinks report.Multi
			if !viper.GetBool("json") {
				tbl := report.NewTable(os.Stdout)
				tbl.Tasks = showTasks
				sinks = append(sinks, tbl)
			}
			if xlsxOut != "" {
				sinks = append(sinks, report.NewWorkbook(xlsxOut))
			}
			var store *report.Store
			if !noRecord {
				conn, err := app.OpenStore(workspace)
				if err != nil {
					return err
				}
				defer conn.Close()
				store = report.NewStore(conn)
				if _, err := store.Begin(ctx, settings, len(employees), totalTasks); err != nil {
					return fmt.Errorf("record run: %w", err)
				}
				sinks = append(sinks, store)
			}

			if !viper.GetBool("json") {
				fmt.Printf("Simulating %d employees, %d tasks (seed %d)\n", len(employees), totalTasks, settings.Seed)
			}
			summary, runErr := engine.New(settings, sinks).NewSimulation(employees).Run(ctx)
			if store != nil {
				// the run context may be cancelled already
				if err := store.Finish(context.Background(), summary, runErr); err != nil {
					slog.Error("recording run result failed", "run", store.RunID(), "error", err)
				}
			}
			if runErr != nil {
				return runErr
			}
			if viper.GetBool("json") {
				out := struct {
					RunID string `json:"run_id,omitempty"`
					Seed  int64  `json:"seed"`
					engine.Summary
				}{Seed: settings.Seed, Summary: summary}
				if store != nil {
					out.RunID = store.RunID()
				}
				return printJSON(out)
			}
			report.RenderSummary(os.Stdout, summary)
			if store != nil {
				fmt.Printf("Recorded run %s\n", store.RunID())
			}
			for _, err := range summary.SinkErrors {
				fmt.Fprintln(os.Stderr, "warning:", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rosterPath, "roster", "", "roster file (.yml or .xlsx); defaults to the workspace worksim.yml")
	cmd.Flags().StringVar(&xlsxOut, "xlsx-out", "", "write daily statistics to this xlsx workbook")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "do not record the run in the workspace history")
	cmd.Flags().BoolVar(&showTasks, "tasks", false, "print per-task progress after each day")
	cmd.Flags().Int64("seed", 0, "random seed (0 picks one)")
	cmd.Flags().Float64("break-probability", 0, "chance per hour that an employee starts a break")
	cmd.Flags().Duration("hour-interval", 0, "wall-clock pause between simulated hours")
	cmd.Flags().Duration("hour-timeout", 0, "how long a worker may take for one hour")
	cmd.Flags().Duration("join-timeout", 0, "how long to wait for workers to stop at end of day")
	cmd.Flags().Int("max-days", 0, "stop after this many days (0 means no limit)")
	for _, name := range simulationFlags {
		_ = viper.BindPFlag(name, cmd.Flags().Lookup(name))
	}
	return cmd
}

// applyOverrides replaces file settings with flags or WORKSIM_* variables
// that were set explicitly.
func applyOverrides(s config.Simulation) config.Simulation {
	if viper.IsSet("seed") {
		s.Seed = viper.GetInt64("seed")
	}
	if viper.IsSet("break-probability") {
		s.BreakProbability = viper.GetFloat64("break-probability")
	}
	if viper.IsSet("hour-interval") {
		s.HourInterval = viper.GetDuration("hour-interval")
	}
	if viper.IsSet("hour-timeout") {
		s.HourTimeout = viper.GetDuration("hour-timeout")
	}
	if viper.IsSet("join-timeout") {
		s.JoinTimeout = viper.GetDuration("join-timeout")
	}
	if viper.IsSet("max-days") {
		s.MaxDays = viper.GetInt("max-days")
	}
	return s.WithDefaults()
}

func generateCmd() *cobra.Command {
	var out string
	var employees int
	var seed int64
	var stock bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a sample roster workbook",
		Long:  "Generate writes Employees, Tasks and Assignments sheets that 'worksim run --roster' can read.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r config.Roster
			if stock {
				r = config.Default().Roster
			} else {
				if employees <= 0 {
					return fmt.Errorf("--employees must be positive")
				}
				if seed == 0 {
					seed = time.Now().UnixNano()
				}
				r = roster.Sample(rand.New(rand.NewPCG(uint64(seed), uint64(seed))), employees)
			}
			if err := roster.WriteWorkbook(out, r); err != nil {
				return err
			}
			fmt.Printf("Wrote %s: %d employees, %d tasks, %d assignments\n", out, len(r.Employees), len(r.Tasks), len(r.Assignments))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "work_data.xlsx", "output workbook")
	cmd.Flags().IntVar(&employees, "employees", 4, "number of employees")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().BoolVar(&stock, "default", false, "write the built-in roster instead of a random one")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage worksim.yml",
		Long:  "worksim.yml holds the simulation settings and the default roster of a workspace.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default worksim.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	var rosterPath string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective settings and roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"), rosterPath)
			if err != nil {
				return err
			}
			cfg.Simulation = applyOverrides(cfg.Simulation)
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			s := cfg.Simulation
			fmt.Printf("seed=%d break_probability=%.2f hour_interval=%s hour_timeout=%s join_timeout=%s max_days=%d\n",
				s.Seed, s.BreakProbability, s.HourInterval, s.HourTimeout, s.JoinTimeout, s.MaxDays)
			employees, err := roster.Build(cfg.Roster)
			if err != nil {
				return err
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Employee", "Task", "Duration"})
			for _, e := range employees {
				for _, t := range e.Tasks() {
					tw.AppendRow(table.Row{e.Name(), t.Name(), domain.FormatMinutes(t.TotalMinutes())})
				}
				if len(e.Tasks()) == 0 {
					tw.AppendRow(table.Row{e.Name(), "-", "-"})
				}
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&rosterPath, "roster", "", "roster file (.yml or .xlsx)")
	return cmd
}

func configValidateCmd() *cobra.Command {
	var rosterPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate settings and roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"), rosterPath)
			if err != nil {
				return err
			}
			if err := applyOverrides(cfg.Simulation).Validate(); err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&rosterPath, "roster", "", "roster file (.yml or .xlsx)")
	return cmd
}

func runsCmd() *cobra.Command {
	runs := &cobra.Command{Use: "runs", Short: "Inspect recorded runs"}
	runs.AddCommand(runsListCmd())
	runs.AddCommand(runsShowCmd())
	return runs
}

func runsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				report.RenderRuns(os.Stdout, items)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to show")
	return cmd
}

func runsShowCmd() *cobra.Command {
	var day int
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the daily statistics of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				run, err := r.GetRun(ctx, args[0])
				if errors.Is(err, repo.ErrNotFound) {
					return fmt.Errorf("run %s not found", args[0])
				}
				if err != nil {
					return err
				}
				stats, err := r.ListDayStats(ctx, run.ID, day)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(struct {
						domain.Run
						Stats []domain.DayStats `json:"day_stats"`
					}{run, stats})
				}
				report.RenderRuns(os.Stdout, []domain.Run{run})
				if run.Error != "" {
					fmt.Println("error:", run.Error)
				}
				tbl := report.NewTable(os.Stdout)
				for _, group := range groupByDay(stats) {
					if err := tbl.WriteDay(ctx, group[0].Day, group); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&day, "day", 0, "only this day")
	return cmd
}

func groupByDay(stats []domain.DayStats) [][]domain.DayStats {
	var groups [][]domain.DayStats
	for _, s := range stats {
		if n := len(groups); n > 0 && groups[n-1][0].Day == s.Day {
			groups[n-1] = append(groups[n-1], s)
			continue
		}
		groups = append(groups, []domain.DayStats{s})
	}
	return groups
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only run history API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				handler, err := server.New(server.Config{Repo: r, BasePath: basePath})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving worksim API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return err
	}
	conn, err := app.OpenStore(workspace)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
