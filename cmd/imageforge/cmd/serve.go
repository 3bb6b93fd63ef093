package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/imageforge/imageforge/pkg/api"
	"github.com/imageforge/imageforge/pkg/metrics"
)

var serveListen string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conversion HTTP service",
	Long: `Start the HTTP API with conversion, batch, telemetry, report and
Prometheus metrics endpoints. Shuts down gracefully on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if cfg.Sampling {
		if eng, ok := rt.loader.Engine(); ok {
			rt.collector.StartSampling(eng, cfg.SampleInterval)
		}
	}

	exporter := metrics.NewExporter(rt.orch, rt.batch, rt.loader, rt.collector)
	handler := api.NewHandler(rt.orch, rt.batch, rt.loader, rt.collector, exporter, log)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	addr := serveListen
	if addr == "" {
		addr = cfg.Listen
	}
	srv := api.NewServer(addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("Shutdown signal received", map[string]interface{}{
			"signal": sig.String(),
		})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
