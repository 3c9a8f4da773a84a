// Package server initializes and runs the clock-in service: it opens both
// attendance stores, checks that they agree, and serves the TCP listener
// alongside the optional health endpoint and workbook archiver.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/punchclock/internal/logging"
	"github.com/dmitrijs2005/punchclock/internal/server/archive"
	"github.com/dmitrijs2005/punchclock/internal/server/config"
	"github.com/dmitrijs2005/punchclock/internal/server/health"
	"github.com/dmitrijs2005/punchclock/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/punchclock/internal/server/repositories/sheet"
	"github.com/dmitrijs2005/punchclock/internal/server/services"
	"github.com/dmitrijs2005/punchclock/internal/server/storage"
	"github.com/dmitrijs2005/punchclock/internal/server/tcp"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *storage.Database
	sheet        *sheet.Store
	registration *services.RegistrationService
	consistency  *services.ConsistencyService
	tcp          *tcp.Server
	health       *health.Server
	archiver     *archive.Archiver
}

// NewApp opens the stores (creating schema and workbook header when absent)
// and builds every component enabled in c.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := storage.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	sh := sheet.NewStore(c.SheetPath)
	if err := sh.Init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sheet init error: %w", err)
	}

	rm := repomanager.NewSQLRepositoryManager(db.Dialect)
	reg := services.NewRegistrationService(db.DB, rm, sh, logger)
	cons := services.NewConsistencyService(db.DB, rm, sh, logger, reg.Locker())

	app := &App{
		config:       c,
		logger:       logger,
		db:           db,
		sheet:        sh,
		registration: reg,
		consistency:  cons,
		tcp: tcp.NewServer(tcp.Config{
			Address:        c.ListenAddr,
			Workers:        c.Workers,
			ReadTimeout:    c.ReadTimeout,
			WriteTimeout:   c.WriteTimeout,
			MaxMessageSize: c.MaxMessageSize,
		}, reg, logger),
	}

	if c.HealthAddr != "" {
		app.health = health.NewServer(c.HealthAddr, logger)
	}

	if c.S3Bucket != "" {
		a, err := archive.New(ctx, archive.Config{
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
			Endpoint:  c.S3BaseEndpoint,
			AccessKey: c.S3RootUser,
			SecretKey: c.S3RootPassword,
			Prefix:    c.S3Prefix,
			Interval:  c.ArchiveInterval,
		}, c.SheetPath, logger)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		app.archiver = a
	}

	return app, nil
}

// Close releases the database.
func (app *App) Close() error {
	return app.db.Close()
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Signal received, shutting down", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// CheckStores compares both stores and logs the outcome. Divergence is
// reported, never repaired.
func (app *App) CheckStores(ctx context.Context) (services.Report, error) {
	rep, err := app.consistency.Check(ctx)
	if err != nil {
		return services.Report{}, err
	}
	app.consistency.LogReport(ctx, rep)
	return rep, nil
}

// RebuildSheet rewrites the workbook from the relational store.
func (app *App) RebuildSheet(ctx context.Context) (int, error) {
	return app.consistency.Rebuild(ctx)
}

// Run serves until ctx is cancelled, a termination signal arrives, or the
// listener fails. In-flight connections are drained before it returns.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	if _, err := app.CheckStores(ctx); err != nil {
		app.logger.Error(ctx, "consistency check failed", "error", err)
	}

	var (
		wg      sync.WaitGroup
		errMu   sync.Mutex
		runErrs []error
	)
	fail := func(name string, err error) {
		app.logger.Error(ctx, name+" stopped with error", "error", err)
		errMu.Lock()
		runErrs = append(runErrs, fmt.Errorf("%s: %w", name, err))
		errMu.Unlock()
		cancelFunc()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.tcp.Run(ctx); err != nil {
			fail("tcp server", err)
		}
	}()

	if app.health != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := app.health.Run(ctx); err != nil {
				fail("health server", err)
			}
		}()
		go func() {
			defer wg.Done()
			select {
			case <-app.tcp.Ready():
				app.health.SetServing(true)
			case <-ctx.Done():
			}
		}()
	}

	if app.archiver != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.archiver.Run(ctx); err != nil {
				fail("archiver", err)
			}
		}()
	}

	wg.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")

	return errors.Join(runErrs...)
}
