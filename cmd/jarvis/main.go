package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/b4llu97/jarvis"
	"github.com/b4llu97/jarvis/stores"
	"github.com/b4llu97/jarvis/toolserver"
	"github.com/spf13/cobra"
)

var (
	version  = "0.1.0"
	cfg      *jarvis.Config
	embedded bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jarvis",
		Short: "Household assistant that answers from your own facts and documents",
		Long: `Jarvis answers questions about your household by letting a language
model call tools against a fact store and a document index.

  jarvis serve        Run the orchestrator API
  jarvis toolserver   Run the fact and document provider API
  jarvis ask <text>   Ask one question and print the answer
  jarvis remind       Run the proactive reminder scheduler`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = jarvis.LoadConfig()
			return err
		},
	}

	rootCmd.PersistentFlags().BoolVar(&embedded, "embedded", false, "Serve tools from the local store instead of TOOLSERVER_URL")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(toolserverCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jarvis %s\n", version)
		},
	}
}

func openStore() (*stores.GORMStore, error) {
	store, err := stores.NewStore(stores.NewStoreConfig(cfg.StoreType, cfg.StoreDSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreType, err)
	}
	return store, nil
}

// toolBackend returns the in-process provider when running embedded, and the
// toolserver client otherwise.
func toolBackend(store *stores.GORMStore) jarvis.ToolBackend {
	if embedded && store != nil {
		return toolserver.NewLocal(store)
	}
	client := toolserver.NewClient(cfg.ToolserverURL)
	client.Retry = cfg.Retry
	return client
}

func toolserverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toolserver",
		Short: "Run the fact and document provider API",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			srv := toolserver.NewServer(store)
			log.Printf("[TOOLSERVER] Listening on %s (%s store)", cfg.ToolserverAddr, cfg.StoreType)
			return listen(cmd.Context(), cfg.ToolserverAddr, srv.Router())
		},
	}
}

// listen serves handler on addr until ctx ends or SIGINT/SIGTERM arrives.
func listen(ctx context.Context, addr string, handler http.Handler) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	server := &http.Server{Addr: addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down %s", addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
