package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/spf13/cobra"

	"github.com/omeister/jpegbatch/internal/api"
	"github.com/omeister/jpegbatch/internal/app"
	"github.com/omeister/jpegbatch/internal/infra/config"
	"github.com/omeister/jpegbatch/internal/infra/logger"
	"github.com/omeister/jpegbatch/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run history over HTTP",
	Long:  "Exposes recorded batch runs as JSON under /api/runs.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Store.SQLitePath == "" {
		return fmt.Errorf("store.sqlite_path must be configured for serve mode")
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	st, err := store.Open(cfg.Store.SQLitePath)
	if err != nil {
		return err
	}
	defer st.Close()

	appCtx := app.NewContext(cfg, log)
	appCtx.Store = st

	e := echo.New()
	api.RegisterRoutes(e, appCtx)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: e,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown: %v", err)
		}
	}()

	log.Info("serving run history on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
