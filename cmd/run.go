package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/logger"
	"github.com/mohammad-safakhou/learnpath/internal/service"
)

func runCMD(cfgPath *string) *cobra.Command {
	var in core.Input
	var prefs core.Prefs

	var run = &cobra.Command{
		Use:   "run",
		Short: "Generate learning paths once and print the JSON response",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			if cfg.General.RequestTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.General.RequestTimeout)
				defer cancel()
			}

			audit := core.RunRecorderFunc(func(_ context.Context, rec core.AuditRecord) error {
				log.Info("agent run",
					logger.String("agent", string(rec.AgentName)),
					logger.Int("raw_leads", rec.Summary.Counts.RawLeads),
					logger.Int("extracted_programs", rec.Summary.Counts.ExtractedPrograms),
					logger.Strings("warnings", rec.Warnings))
				return nil
			})
			orch, err := buildOrchestrator(cfg, log, audit, nil)
			if err != nil {
				return err
			}
			lp, err := service.NewLearningPaths(orch, service.WithLogger(log))
			if err != nil {
				return err
			}

			if prefs != (core.Prefs{}) {
				in.Prefs = &prefs
			}
			resp, err := lp.Generate(ctx, in)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	run.Flags().StringVarP(&in.Query, "query", "q", "", "what you want to learn")
	run.Flags().StringVar(&prefs.Format, "format", "", "online, in-person or hybrid")
	run.Flags().StringVar(&prefs.Goal, "goal", "", "hobby, career or skill improvement")
	run.Flags().StringVar(&prefs.Budget, "budget", "", "free, low-cost or paid")
	run.Flags().StringVar(&prefs.City, "city", "", "preferred city for in-person programs")
	_ = run.MarkFlagRequired("query")

	return run
}
