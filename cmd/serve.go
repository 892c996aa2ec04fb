package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/api"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the research API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mem, err := initMemory(ctx)
		if err != nil {
			return err
		}
		defer mem.Close()

		checkpoints, err := initCheckpoints(ctx)
		if err != nil {
			return err
		}
		defer checkpoints.Close()

		if err := mem.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		if err := checkpoints.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate checkpoints")
		}

		broker, err := initBroker()
		if err != nil {
			return err
		}

		runner := initRunner(checkpoints, mem)
		server := api.NewServer(runner, broker, mem)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: server.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("events_backend", cfg.Events.Backend),
			zap.String("store_driver", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
