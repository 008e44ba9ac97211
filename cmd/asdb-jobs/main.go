// Command asdb-jobs runs the background analysis job pool: a
// supervisor that reconciles a dispatcher pool against a shared
// Postgres queue (spec §1–§6).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/antismash/asdb-jobs/internal/buildinfo"
	"github.com/antismash/asdb-jobs/internal/config"
	"github.com/antismash/asdb-jobs/internal/data/repos/control"
	"github.com/antismash/asdb-jobs/internal/data/repos/jobs"
	"github.com/antismash/asdb-jobs/internal/jobs/dispatcher"
	"github.com/antismash/asdb-jobs/internal/jobs/metadata"
	jobruntime "github.com/antismash/asdb-jobs/internal/jobs/runtime"
	"github.com/antismash/asdb-jobs/internal/jobs/supervisor"
	"github.com/antismash/asdb-jobs/internal/metrics"
	"github.com/antismash/asdb-jobs/internal/notify"
	"github.com/antismash/asdb-jobs/internal/platform/dbctx"
	"github.com/antismash/asdb-jobs/internal/platform/db"
	"github.com/antismash/asdb-jobs/internal/platform/env"
	"github.com/antismash/asdb-jobs/internal/platform/logger"
)

const (
	defaultMaxJobs = 5
	defaultName    = "asdb-jobs"
)

func defaultCPUs() int {
	if c := runtime.NumCPU() / defaultMaxJobs; c > 1 {
		return c
	}
	return 1
}

type flags struct {
	configFile string
	cpus       int
	dbDir      string
	maxJobs    int
	name       string
	workdir    string
	metricsAddr string
}

func main() {
	if err := buildRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:     "asdb-jobs",
		Short:   "Background job runner for antiSMASH database sequence analyses",
		Version: buildinfo.Version(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}

	root.PersistentFlags().StringVarP(&f.configFile, "configfile", "c", "./asdb-jobs.toml", "location of the configuration file to use")
	root.PersistentFlags().IntVarP(&f.cpus, "cpus", "C", defaultCPUs(), "how many CPUs to use per job")
	root.PersistentFlags().StringVarP(&f.dbDir, "db-dir", "D", "./databases", "directory containing the database files to use")
	root.PersistentFlags().IntVarP(&f.maxJobs, "max-jobs", "j", defaultMaxJobs, "how many background jobs to run")
	root.PersistentFlags().StringVarP(&f.name, "name", "n", defaultName, "name of the job runner")
	root.PersistentFlags().StringVarP(&f.workdir, "workdir", "w", "./workdir", "working directory to keep the job files in")
	root.PersistentFlags().StringVar(&f.metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")

	root.AddCommand(buildStatusCommand(f))
	return root
}

func run(f *flags) error {
	log, err := logger.New(env.Get("ASDB_JOBS_LOG_MODE", "development", nil))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	cfg := config.New(f.configFile, f.dbDir, f.workdir, f.name, connParamsFromEnv(log), f.cpus, f.maxJobs)
	if err := cfg.ReadFile(log); err != nil {
		log.Warn("failed to read initial config file, continuing with CLI flags only", "error", err)
	}

	database, err := db.Open(cfg.Conn, log)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	md, err := metadata.Load(cfg.DBDir)
	if err != nil {
		return fmt.Errorf("load comparippson metadata: %w", err)
	}

	reg := jobruntime.NewRegistry()
	if err := reg.Register(&jobruntime.ComparippsonHandler{Log: log, Metadata: md}); err != nil {
		return err
	}
	if err := reg.Register(&jobruntime.ClusterBlastHandler{Log: log}); err != nil {
		return err
	}

	notifier := buildNotifier(log, f.name)
	collector := metrics.NewCollector()

	queueGW := jobs.NewQueueGateway(database, log)
	controlGW := control.NewControlGateway(database, log)
	disp := dispatcher.New(cfg, queueGW, reg, notifier, collector, log)
	sup := supervisor.New(cfg, controlGW, disp, collector, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := collector.Serve(ctx, f.metricsAddr); err != nil {
			log.Warn("metrics server stopped", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal, draining dispatcher pool")
		cancel()
	}()

	return sup.Run(ctx)
}

func connParamsFromEnv(log *logger.Logger) config.ConnParams {
	return config.ConnParams{
		Host:     env.Get("ASDB_JOBS_DB_HOST", "localhost", log),
		Port:     env.GetInt("ASDB_JOBS_DB_PORT", 5432, log),
		User:     env.Get("ASDB_JOBS_DB_USER", "asdb", log),
		Password: env.Get("ASDB_JOBS_DB_PASSWORD", "", log),
		Database: env.Get("ASDB_JOBS_DB_NAME", "asdb", log),
	}
}

func buildNotifier(log *logger.Logger, runnerName string) notify.JobNotifier {
	addr := env.Get("REDIS_ADDR", "", log)
	if addr == "" {
		return notify.NewNoop()
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return notify.NewRedis(client, runnerName, log)
}

func buildStatusCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the control row for --name",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New("production")
			if err != nil {
				return err
			}
			defer log.Sync()

			database, err := db.Open(connParamsFromEnv(log), log)
			if err != nil {
				return err
			}

			controlGW := control.NewControlGateway(database, log)
			ctrl, err := controlGW.Get(dbctx.Context{Ctx: context.Background()}, f.name)
			if err != nil {
				return err
			}

			fmt.Printf("runner:         %s\n", ctrl.Name)
			fmt.Printf("status:         %s\n", ctrl.Status)
			fmt.Printf("stop_scheduled: %t\n", ctrl.StopScheduled)
			fmt.Printf("version:        %s\n", ctrl.Version)
			return nil
		},
	}
}
