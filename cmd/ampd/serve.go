package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ampd/internal/config"
	"ampd/internal/engine"
	"ampd/internal/httpapi"
)

func buildServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the processing daemon with the HTTP control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8080")
	return cmd
}

func runServe(cfg config.Config) error {
	log := newLogger(cfg.LogLevel)

	eng := engine.New(engine.Config{
		SampleRate: cfg.SampleRate,
		BlockSize:  cfg.BlockSize,
		Blend:      cfg.Blend,
		Mix:        cfg.Mix,
		RTPriority: cfg.RTPriority,
		RTPolicy:   cfg.RTPolicy,
		Logger:     &log,
	})
	defer eng.Close()

	svc := &service{
		eng:        eng,
		modelsDir:  cfg.ModelsDir,
		irsDir:     cfg.IRsDir,
		presetsDir: cfg.PresetsDir,
	}

	httpapi.SetLogger(log)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	mux := httpapi.NewMux(svc)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	// With no host audio callback attached, a silent block pump keeps the
	// control protocol moving: events drain, loads apply, notify passes run.
	pumpStop := make(chan struct{})
	pumpDone := make(chan struct{})
	go blockPump(eng, pumpStop, pumpDone)

	// A listener failure must travel the same shutdown path as a signal so
	// the pump stops and the engine's worker is joined, not os.Exit'd past.
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Str("irs_dir", cfg.IRsDir).Msg("ampd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM) or server failure
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case <-stop:
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Error().Err(serveErr).Msg("server error")
		}
	}

	close(pumpStop)
	<-pumpDone

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return serveErr
}

// blockPump processes silent blocks at real-time pace.
func blockPump(eng *engine.Engine, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	in := make([]float64, eng.BlockSize())
	out := make([]float64, eng.BlockSize())
	interval := time.Duration(float64(eng.BlockSize()) / eng.SampleRate() * float64(time.Second))
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			eng.ProcessBlock(in, out)
		}
	}
}
