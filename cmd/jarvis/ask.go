package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/b4llu97/jarvis"
	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/stores"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func askCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := jarvis.NewModel(cfg)
			if err != nil {
				return err
			}

			var store *stores.GORMStore
			var audit jarvis.AuditRecorder
			if embedded {
				store, err = openStore()
				if err != nil {
					return err
				}
				defer store.Close()
				if cfg.AuditEnabled {
					audit = store
				}
			}

			logger := log.New(io.Discard, "", 0)
			if verbose {
				logger = log.New(os.Stderr, "", log.LstdFlags)
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			orchestrator := jarvis.Build(cfg, toolBackend(store), model, audit, logger)
			result, err := orchestrator.ProcessQuery(ctx, strings.Join(args, " "), nil)
			if err != nil {
				fmt.Fprintln(os.Stderr, color.RedString("✗ %v", err))
				return err
			}

			if verbose {
				printTrail(result)
			}
			if result.Degraded {
				fmt.Println(color.YellowString("⚠ second pass failed, showing first answer: %s", result.SecondPassError))
			}
			fmt.Printf("%s %s\n", color.CyanString("Jarvis:"), result.FinalResponse)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print tool calls, results and the raw first answer")
	return cmd
}

// printTrail writes the audit view of one query.
func printTrail(result *models.QueryResult) {
	fmt.Println(color.CyanString("Query %s (%s)", result.ID, result.Duration.Round(time.Millisecond)))
	if len(result.Requests) == 0 {
		fmt.Println("  no tool calls")
	}
	for i, req := range result.Requests {
		marker := color.GreenString("✓")
		if !result.Outcomes[i].Success {
			marker = color.RedString("✗")
		}
		fmt.Printf("  [%s] %s %v\n", marker, color.YellowString(req.Function), req.Arguments)
		for _, line := range strings.Split(result.Outcomes[i].String(), "\n") {
			fmt.Printf("      %s\n", line)
		}
	}
	fmt.Println(color.CyanString("Raw first pass:"))
	fmt.Println(result.RawFirstPass)
	fmt.Println()
}
