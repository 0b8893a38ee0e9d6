package cli

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LoopringSecondary/protocol2-js/internal/grpc"
	"github.com/LoopringSecondary/protocol2-js/internal/ringserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the report service (gRPC health check + websocket event stream)",
	Long: `serve starts the long-running report service: a gRPC health-check
endpoint a host process can poll, and a websocket endpoint for
RingMined/InvalidRingEvent frames. serve runs no simulation itself, and
nothing publishes frames to that endpoint. It blocks until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	grpcCfg := grpc.DefaultServerConfig()
	if cfg.Server.GRPCAddress != "" {
		grpcCfg.Address = cfg.Server.GRPCAddress
	}

	srv, err := ringserver.New(grpcCfg)
	if err != nil {
		return fmt.Errorf("build report service: %w", err)
	}

	wsAddr := cfg.Server.WebsocketAddress
	if wsAddr == "" {
		wsAddr = "127.0.0.1:8546"
	}

	httpSrv := &http.Server{Addr: wsAddr, Handler: srv.ServeHTTP()}

	errCh := make(chan error, 2)
	go func() {
		if err := srv.StartGRPC(); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		log.Printf("ringsim: websocket event stream listening on %s", wsAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("websocket server: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("ringsim: received %s, shutting down", sig)
	case err := <-errCh:
		log.Printf("ringsim: %v", err)
	}

	srv.StopGRPC()
	return httpSrv.Close()
}
