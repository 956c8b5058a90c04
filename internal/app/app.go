package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/JiHungLin/Skalds/internal/app/config"
	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/app/registry"
)

// App is the composition root: it loads configuration, runs every registered
// component builder, and drives the lifecycle until a shutdown signal.
type App struct {
	container        *core.Container
	lifecycleManager *core.LifecycleManager
	configManager    *config.ConfigManager

	bootOnce sync.Once
	bootErr  error

	shutdownTimeout time.Duration
}

func NewApp(env, configPath string) *App {
	if configPath != "" {
		if p, err := filepath.Abs(configPath); err == nil {
			configPath = p
		}
	}
	container := core.NewContainer()
	return &App{
		configManager:    config.NewConfigManager(env, configPath),
		container:        container,
		lifecycleManager: core.NewLifecycleManager(container),
		shutdownTimeout:  30 * time.Second,
	}
}

// SetShutdownTimeout customizes the graceful shutdown window.
func (app *App) SetShutdownTimeout(d time.Duration) { app.shutdownTimeout = d }

func (app *App) boot() error {
	app.bootOnce.Do(func() {
		if err := app.configManager.LoadConfig(); err != nil {
			app.bootErr = fmt.Errorf("load config failed: %w", err)
			return
		}
		cfg := app.configManager.GetConfig()
		if err := registry.BuildAndRegisterAll(cfg, app.container); err != nil {
			app.bootErr = fmt.Errorf("register components failed: %w", err)
			return
		}
	})
	return app.bootErr
}

func (app *App) GetComponent(name string) (core.Component, error) {
	return app.container.Resolve(name)
}

func (app *App) Container() *core.Container { return app.container }

func (app *App) GetConfig() *config.AppConfig {
	return app.configManager.GetConfig()
}

// Run blocks until SIGINT/SIGTERM, then performs graceful shutdown.
func (app *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.RunWithContext(ctx)
}

// RunWithContext starts components and blocks until the context is done.
func (app *App) RunWithContext(ctx context.Context) error {
	if err := app.boot(); err != nil {
		return err
	}
	app.lifecycleManager.SetTimeout(app.shutdownTimeout)
	if err := app.lifecycleManager.StartAll(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
	defer cancel()
	app.lifecycleManager.StopAll(shutdownCtx)
	return nil
}

func (app *App) Shutdown(ctx context.Context) {
	app.lifecycleManager.StopAll(ctx)
}
