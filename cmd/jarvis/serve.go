package main

import (
	"log"

	"github.com/b4llu97/jarvis"
	"github.com/b4llu97/jarvis/sessions"
	"github.com/b4llu97/jarvis/stores"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator API",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := jarvis.NewModel(cfg)
			if err != nil {
				return err
			}

			var store *stores.GORMStore
			if cfg.AuditEnabled || embedded {
				store, err = openStore()
				if err != nil {
					return err
				}
				defer store.Close()
			}

			var audit jarvis.AuditRecorder
			var lookup sessions.QueryLookup
			if store != nil && cfg.AuditEnabled {
				audit = store
				lookup = store
			}

			orchestrator := jarvis.Build(cfg, toolBackend(store), model, audit, log.Default())
			session := sessions.NewHTTPSession(orchestrator, lookup)
			if store != nil {
				session.Health = store.Ping
			}

			log.Printf("[ORCHESTRATOR] Listening on %s (provider %s, toolserver %s, embedded=%t)",
				cfg.ListenAddr, cfg.LLMProvider, cfg.ToolserverURL, embedded)
			return listen(cmd.Context(), cfg.ListenAddr, session.Router())
		},
	}
}
