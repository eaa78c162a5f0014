package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spectrostation/internal/autointeg"
	"spectrostation/internal/device"
	"spectrostation/internal/handlers"
	"spectrostation/internal/logger"
	"spectrostation/internal/repository"
	"spectrostation/internal/repository/db"
	"spectrostation/internal/server"
	"spectrostation/internal/service"
	"spectrostation/internal/spectral"

	"github.com/spf13/viper"

	"spectrostation"
)

func main() {
	// init logger
	log := logger.Get(logger.InfoLevel)

	// load config.yml
	if err := loadConfig(); err != nil {
		log.Fatalw("error reading config", "err", err)
	}

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

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	dev := buildDevice()
	refs := &spectral.ReferenceSet{}

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// re-seed calibration references from the newest committed captures
	seedReferences(ctx, repos.Spectra, refs, log)

	services := service.NewService(repos, dev, refs, service.Config{
		Controller:   controllerConfig(),
		TickOverhead: viper.GetDuration("runner.tick_overhead"),
	})
	apiHandler := handlers.NewHandler(services, log)

	// start the station tick loop
	go services.Runner.Run(ctx)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "station.db")
		dbPath = "station.db"
	}
	return db.InitDB(dbPath)
}

// buildDevice constructs the spectrometer. Only the simulator backend exists
// here; a hardware backend plugs in behind the same interface.
func buildDevice() device.Device {
	cfg := device.DefaultSimulatorConfig()
	if v := viper.GetFloat64("device.responsivity"); v > 0 {
		cfg.Responsivity = v
	}
	if v := viper.GetFloat64("device.noise_amplitude"); v > 0 {
		cfg.NoiseAmplitude = v
	}
	cfg.Seed = viper.GetInt64("device.seed")
	return device.NewSimulator(cfg)
}

// controllerConfig reads the auto-integration tuning, falling back to the
// package defaults for unset keys.
func controllerConfig() autointeg.Config {
	cfg := autointeg.DefaultConfig()
	if v := viper.GetFloat64("controller.target_low_frac"); v > 0 {
		cfg.TargetLowFrac = v
	}
	if v := viper.GetFloat64("controller.target_high_frac"); v > 0 {
		cfg.TargetHighFrac = v
	}
	if v := viper.GetInt("controller.max_iterations"); v > 0 {
		cfg.MaxIterations = v
	}
	if v := viper.GetFloat64("controller.gain"); v > 0 {
		cfg.Gain = v
	}
	if v := viper.GetFloat64("controller.damping"); v > 0 {
		cfg.Damping = v
	}
	if v := viper.GetDuration("controller.min_adjustment"); v > 0 {
		cfg.MinAdjustment = v
	}
	return cfg
}

// seedReferences reloads the newest committed dark/white captures so a
// restart does not lose calibration.
func seedReferences(ctx context.Context, spectra repository.SpectrumRepo, refs *spectral.ReferenceSet, log *logger.Logger) {
	if dark, err := spectra.LatestByKind(ctx, spectrostation.KindDark); err != nil {
		log.Warnw("failed to load dark reference", "err", err)
	} else if dark != nil {
		refs.SetDark(*dark)
	}
	if white, err := spectra.LatestByKind(ctx, spectrostation.KindWhite); err != nil {
		log.Warnw("failed to load white reference", "err", err)
	} else if white != nil {
		refs.SetWhite(*white)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
