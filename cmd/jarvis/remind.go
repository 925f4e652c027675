package main

import (
	"fmt"
	"log"

	"github.com/b4llu97/jarvis/proactivity"
	"github.com/b4llu97/jarvis/stores"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func remindCmd() *cobra.Command {
	var once string
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run the proactive reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := proactivity.LoadRules(cfg.ProactivityConfig)
			if err != nil {
				log.Printf("[PROACTIVITY] Failed to load rules, using defaults: %v", err)
			}

			var store *stores.GORMStore
			if embedded {
				store, err = openStore()
				if err != nil {
					return err
				}
				defer store.Close()
			}

			engine := proactivity.NewEngine(rules, toolBackend(store))
			engine.FactTimeout = cfg.FactTimeout
			notifier := proactivity.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, log.Default())
			scheduler := proactivity.NewScheduler(engine, notifier)

			if once != "" {
				if once != proactivity.WindowMorning && once != proactivity.WindowEvening {
					return fmt.Errorf("--once must be %q or %q", proactivity.WindowMorning, proactivity.WindowEvening)
				}
				sent := scheduler.RunWindow(cmd.Context(), once)
				fmt.Printf("%d reminder(s) sent for the %s window\n", sent, once)
				return nil
			}

			if err := scheduler.Start(); err != nil {
				return err
			}
			defer scheduler.Stop()

			router := gin.Default()
			scheduler.Register(router)
			log.Printf("[PROACTIVITY] Status API on %s", listenAddr)
			return listen(cmd.Context(), listenAddr, router)
		},
	}

	cmd.Flags().StringVar(&once, "once", "", "Run one check (morning|evening) and exit")
	cmd.Flags().StringVar(&listenAddr, "listen", ":8003", "Address of the scheduler status API")
	return cmd
}
