package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"convertd/internal/app"
	"convertd/internal/config"
	"convertd/internal/engine"
	"convertd/internal/httpapi"
	"convertd/internal/job"
	"convertd/internal/resource"
)

// workerStack is the cached "loaded" resource: a verified conversion
// toolchain. Releasing it has nothing device-side to free here.
type workerStack struct {
	workerBin string
}

func (workerStack) Close() error { return nil }

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true")
	}
	return def
}

// splitCSV splits a comma-separated flag value, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newRootCmd() *cobra.Command {
	var (
		addr       string
		configFile string
		uploadDir  string
		workerBin  string

		maxJobs        int
		cancelGraceSec int

		engineBin      string
		engineArgs     string
		engineHost     string
		enginePort     int
		engineStartSec int
		engineStopSec  int

		corsEnabled bool
		corsOrigins string

		logLevel  string
		logFormat string

		bodyLimit int64
	)

	root := &cobra.Command{
		Use:           "convertd",
		Short:         "Document conversion daemon: isolated worker jobs over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{
				Addr:                  addr,
				UploadDir:             uploadDir,
				WorkerBin:             workerBin,
				MaxJobs:               maxJobs,
				CancelGraceSec:        cancelGraceSec,
				EngineBin:             engineBin,
				EngineArgs:            splitCSV(engineArgs),
				EngineHost:            engineHost,
				EnginePort:            enginePort,
				EngineStartTimeoutSec: engineStartSec,
				EngineStopGraceSec:    engineStopSec,
			}
			if configFile != "" {
				fileCfg, err := config.Load(configFile)
				if err != nil {
					return fmt.Errorf("load config %s: %w", configFile, err)
				}
				// Explicit flags win over the file.
				cfg = mergeConfig(fileCfg, cfg, cmd)
			}
			return run(cfg, runtimeOptions{
				corsEnabled: corsEnabled,
				corsOrigins: splitCSV(corsOrigins),
				logLevel:    logLevel,
				logFormat:   logFormat,
				bodyLimit:   bodyLimit,
			})
		},
	}

	f := root.Flags()
	f.StringVar(&addr, "addr", envStr("CONVERTD_ADDR", ":8000"), "HTTP listen address")
	f.StringVar(&configFile, "config", envStr("CONVERTD_CONFIG", ""), "Optional config file (.yaml/.json/.toml)")
	f.StringVar(&uploadDir, "upload-dir", envStr("CONVERTD_UPLOAD_DIR", "/tmp/convertd/uploads"), "Directory holding uploaded input files")
	f.StringVar(&workerBin, "worker-bin", envStr("CONVERTD_WORKER_BIN", "convert-worker"), "Path to the convert-worker binary")
	f.IntVar(&maxJobs, "max-jobs", envInt("CONVERTD_MAX_JOBS", 4), "Maximum concurrently running conversion jobs")
	f.IntVar(&cancelGraceSec, "cancel-grace-sec", envInt("CONVERTD_CANCEL_GRACE_SEC", 5), "Seconds to wait for graceful worker exit before kill")
	f.StringVar(&engineBin, "engine-bin", envStr("CONVERTD_ENGINE_BIN", ""), "External inference engine binary (empty disables the engine)")
	f.StringVar(&engineArgs, "engine-args", envStr("CONVERTD_ENGINE_ARGS", ""), "Comma-separated extra engine arguments")
	f.StringVar(&engineHost, "engine-host", envStr("CONVERTD_ENGINE_HOST", "127.0.0.1"), "Engine bind host")
	f.IntVar(&enginePort, "engine-port", envInt("CONVERTD_ENGINE_PORT", 0), "Engine port (0 picks a free port)")
	f.IntVar(&engineStartSec, "engine-start-timeout-sec", envInt("CONVERTD_ENGINE_START_TIMEOUT_SEC", 300), "Seconds to wait for the engine to become healthy")
	f.IntVar(&engineStopSec, "engine-stop-grace-sec", envInt("CONVERTD_ENGINE_STOP_GRACE_SEC", 30), "Seconds to wait for graceful engine exit before kill")
	f.BoolVar(&corsEnabled, "cors", envBool("CONVERTD_CORS", false), "Enable CORS middleware")
	f.StringVar(&corsOrigins, "cors-origins", envStr("CONVERTD_CORS_ORIGINS", "*"), "Comma-separated allowed CORS origins")
	f.StringVar(&logLevel, "log-level", envStr("CONVERTD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error|off")
	f.StringVar(&logFormat, "log-format", envStr("CONVERTD_LOG_FORMAT", "console"), "Log format: console|json")
	f.Int64Var(&bodyLimit, "max-body-bytes", int64(envInt("CONVERTD_MAX_BODY_BYTES", 1<<20)), "Maximum JSON request body size")

	return root
}

// mergeConfig overlays flag values on top of the file config; only flags
// the user actually set override the file.
func mergeConfig(file, flags config.Config, cmd *cobra.Command) config.Config {
	out := file
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if set("addr") || out.Addr == "" {
		out.Addr = flags.Addr
	}
	if set("upload-dir") || out.UploadDir == "" {
		out.UploadDir = flags.UploadDir
	}
	if set("worker-bin") || out.WorkerBin == "" {
		out.WorkerBin = flags.WorkerBin
	}
	if set("max-jobs") || out.MaxJobs == 0 {
		out.MaxJobs = flags.MaxJobs
	}
	if set("cancel-grace-sec") || out.CancelGraceSec == 0 {
		out.CancelGraceSec = flags.CancelGraceSec
	}
	if set("engine-bin") || out.EngineBin == "" {
		out.EngineBin = flags.EngineBin
	}
	if set("engine-args") || len(out.EngineArgs) == 0 {
		out.EngineArgs = flags.EngineArgs
	}
	if set("engine-host") || out.EngineHost == "" {
		out.EngineHost = flags.EngineHost
	}
	if set("engine-port") || out.EnginePort == 0 {
		out.EnginePort = flags.EnginePort
	}
	if set("engine-start-timeout-sec") || out.EngineStartTimeoutSec == 0 {
		out.EngineStartTimeoutSec = flags.EngineStartTimeoutSec
	}
	if set("engine-stop-grace-sec") || out.EngineStopGraceSec == 0 {
		out.EngineStopGraceSec = flags.EngineStopGraceSec
	}
	return out
}

type runtimeOptions struct {
	corsEnabled bool
	corsOrigins []string
	logLevel    string
	logFormat   string
	bodyLimit   int64
}

func newLogger(opts runtimeOptions) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil || opts.logLevel == "off" {
		lvl = zerolog.InfoLevel
		if opts.logLevel == "off" {
			lvl = zerolog.Disabled
		}
	}
	var logger zerolog.Logger
	if opts.logFormat == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(lvl).With().Timestamp().Logger()
}

func run(cfg config.Config, opts runtimeOptions) error {
	logger := newLogger(opts)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	cache := resource.NewCache(func(ctx context.Context) (resource.Handle, error) {
		if _, err := os.Stat(cfg.WorkerBin); err != nil {
			return nil, fmt.Errorf("worker binary %s: %w", cfg.WorkerBin, err)
		}
		return workerStack{workerBin: cfg.WorkerBin}, nil
	})

	var eng *engine.Supervisor
	var orchEngine job.Engine
	if cfg.EngineBin != "" {
		eng = engine.New(engine.Config{
			Bin:          cfg.EngineBin,
			Args:         cfg.EngineArgs,
			Host:         cfg.EngineHost,
			Port:         cfg.EnginePort,
			StartTimeout: time.Duration(cfg.EngineStartTimeoutSec) * time.Second,
			StopGrace:    time.Duration(cfg.EngineStopGraceSec) * time.Second,
		})
		orchEngine = eng
	}

	orch := job.New(job.Config{
		WorkerBin:   cfg.WorkerBin,
		CancelGrace: time.Duration(cfg.CancelGraceSec) * time.Second,
		MaxJobs:     int64(cfg.MaxJobs),
	}, orchEngine)

	a := app.New(cache, eng, orch, app.Options{UploadDir: cfg.UploadDir})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpapi.SetLogger(logger)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(opts.bodyLimit)
	if opts.corsEnabled {
		httpapi.SetCORSOptions(true, opts.corsOrigins,
			[]string{"GET", "POST", "OPTIONS"},
			[]string{"Accept", "Content-Type"})
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("upload_dir", cfg.UploadDir).Msg("convertd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	if err := a.Shutdown(shutCtx); err != nil {
		logger.Warn().Err(err).Msg("app shutdown")
		return err
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "convertd:", err)
		os.Exit(1)
	}
}
