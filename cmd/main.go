package main

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linewatch/internal/handlers"
	"linewatch/internal/ingest"
	"linewatch/internal/logger"
	"linewatch/internal/pipeline"
	"linewatch/internal/repository"
	"linewatch/internal/repository/db"
	"linewatch/internal/server"
	"linewatch/internal/service"

	"github.com/spf13/viper"
)

const defaultArtifactDir = "artifacts"

func main() {
	// load config.yml first so the log level is configurable
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log.level"))

	// open DB
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// reconstruct the scoring pipeline from saved artifacts, or start cold
	artifactDir := artifactDirFromConfig()
	cfg := pipelineConfigFromViper()
	pipe, err := loadOrNewPipeline(artifactDir, cfg, log.Named("pipeline"))
	if err != nil {
		log.Fatalw("failed to init pipeline", "err", err)
	}

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	services := service.NewService(service.Deps{
		Repos:       repos,
		Pipe:        pipe,
		Cfg:         cfg,
		ArtifactDir: artifactDir,
		Log:         log,
	})
	apiHandler := handlers.NewHandler(services, log)

	// optional cold-start calibration from a CSV history
	if !pipe.Fitted() {
		bootstrapFromCSV(services, log)
	}

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	setConfigDefaults()
	return viper.ReadInConfig()
}

func setConfigDefaults() {
	viper.SetDefault("log.level", logger.InfoLevel)
	viper.SetDefault("artifacts.dir", defaultArtifactDir)

	def := pipeline.DefaultConfig()
	viper.SetDefault("pipeline.short_win", def.ShortWin)
	viper.SetDefault("pipeline.mid_win", def.MidWin)
	viper.SetDefault("pipeline.long_win", def.LongWin)
	viper.SetDefault("pipeline.psd_seg_len", def.PSDSegLen)
	viper.SetDefault("pipeline.psd_overlap", def.PSDOverlap)
	viper.SetDefault("pipeline.w_vibration", def.WVibration)
	viper.SetDefault("pipeline.w_temperature", def.WTemperature)
	viper.SetDefault("pipeline.w_strain", def.WStrain)
	viper.SetDefault("pipeline.use_quantile_zones", def.UseQuantileZones)
	viper.SetDefault("pipeline.yellow_q", def.YellowQ)
	viper.SetDefault("pipeline.red_q", def.RedQ)
	viper.SetDefault("pipeline.fixed_yellow", def.FixedYellow)
	viper.SetDefault("pipeline.fixed_red", def.FixedRed)
	viper.SetDefault("pipeline.trend_lookback", def.TrendLookback)
	viper.SetDefault("pipeline.max_time_left_hours", def.MaxTimeLeftHours)
	viper.SetDefault("pipeline.sample_gap_hint_hours", def.SampleGapHintHours)
}

// pipelineConfigFromViper maps the pipeline.* config keys onto a validated-later Config.
func pipelineConfigFromViper() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	if err := viper.UnmarshalKey("pipeline", &cfg); err != nil {
		// Defaults still apply; Validate in pipeline.New catches the rest.
		logger.Get(logger.InfoLevel).Warnw("failed to parse pipeline config, using defaults", "err", err)
	}
	return cfg
}

func artifactDirFromConfig() string {
	if dir := viper.GetString("artifacts.dir"); dir != "" {
		return dir
	}
	return defaultArtifactDir
}

// loadOrNewPipeline restores the last saved calibration when artifacts
// exist. A missing artifact directory means the service starts unfitted and
// scores 409 until a fit is posted; any other load failure is fatal rather
// than silently recalibrating.
func loadOrNewPipeline(dir string, cfg pipeline.Config, log *logger.Logger) (*pipeline.Pipeline, error) {
	pipe, err := pipeline.Load(dir, pipeline.WithLogger(log))
	if err == nil {
		meta, merr := pipeline.ReadMetadata(dir)
		if merr == nil {
			log.Infow("loaded pipeline artifacts", "dir", dir, "artifact_id", meta.ArtifactID)
		}
		return pipe, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		log.Infow("no saved artifacts; starting with unfitted pipeline", "dir", dir)
		return pipeline.New(cfg, pipeline.WithLogger(log))
	}
	return nil, err
}

// bootstrapFromCSV fits the pipeline from bootstrap.csv when the service
// would otherwise start cold. A bad bootstrap file is a warning, not a fatal:
// the service still comes up and accepts a fit over the API.
func bootstrapFromCSV(services *service.Service, log *logger.Logger) {
	path := viper.GetString("bootstrap.csv")
	if path == "" {
		return
	}
	rows, stats, err := ingest.LoadCSV(path)
	if err != nil {
		log.Warnw("bootstrap csv unreadable; starting unfitted", "path", path, "err", err)
		return
	}
	if stats.Skipped > 0 {
		log.Warnw("bootstrap csv had bad rows", "path", path, "skipped", stats.Skipped)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	run, err := services.Calibration.Fit(ctx, rows)
	if err != nil {
		log.Warnw("bootstrap calibration failed; starting unfitted", "path", path, "err", err)
		return
	}
	log.Infow("calibrated from bootstrap csv",
		"path", path, "rows", stats.Rows, "artifact_id", run.ArtifactID)
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "linewatch.db")
		dbPath = "linewatch.db"
	}
	return db.InitDB(dbPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
