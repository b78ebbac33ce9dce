package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"QuantDesk/internal/model"
	"QuantDesk/internal/notifier"
	"QuantDesk/internal/scheduler"
	"QuantDesk/internal/server"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the scheduler, the admin server and the Telegram command listener",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(!dryRun)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.sched.RegisterAll(cfg.Schedule.TickCron, cfg.Schedule.AnalysisCron, cfg.Location()); err != nil {
			return err
		}
		a.sched.Start()
		defer a.sched.Stop()

		var srv *server.Server
		if !cfg.Server.Disabled {
			srv = newAdminServer(a)
			go func() {
				if err := srv.Start(cfg.Server.Addr); err != nil {
					log.Error().Err(err).Msg("admin server stopped")
				}
			}()
		}

		if a.telegram != nil && !cfg.Telegram.NoPolling {
			go a.telegram.StartPolling(ctx, a.sched.HandleCommand)
			log.Info().Msg("telegram command polling enabled")
		}

		if cfg.Schedule.RunOnStart {
			log.Info().Msg("RUN_ON_START set, running signal tick now")
			go a.sched.RunNow()
		}

		log.Info().
			Str("tick", cfg.Schedule.TickCron).
			Str("analysis", cfg.Schedule.AnalysisCron).
			Str("timezone", cfg.Schedule.Timezone).
			Bool("dry_run", dryRun).
			Msg("QuantDesk running")

		<-ctx.Done()
		log.Info().Msg("shutting down")
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("admin server shutdown")
			}
		}
		return nil
	},
}

var regimeCmd = &cobra.Command{
	Use:   "regime",
	Short: "Print the current risk-on/risk-off regime",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		reg, err := a.sched.RegimeCheck(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), notifier.FormatRegimeCheck(cfg.Strategies.Defensive.Label, cfg.Strategies.Benchmark, reg))
		return nil
	},
}

var (
	rankStrategy string
	rankTop      int
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Print the momentum ranking for a strategy without publishing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := model.ParseStrategy(rankStrategy)
		if err != nil {
			return err
		}
		if rankTop < 1 {
			return errors.New("--top must be at least 1")
		}
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		picks, err := a.sched.Rankings(cmd.Context(), st, rankTop)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), notifier.FormatRankedReport(notifier.RankedReport{
			Label:         string(st),
			Title:         "Ranking",
			Benchmark:     cfg.Strategies.Benchmark,
			Picks:         picks,
			Weight:        notifier.EqualWeight(len(picks)),
			NextRebalance: "n/a",
			AsOf:          time.Now().In(cfg.Location()),
		}))
		return nil
	},
}

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Compute and publish every signal once, ignoring run markers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(!dryRun)
		if err != nil {
			return err
		}
		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		rep := a.sched.ForceRun(cmd.Context(), time.Now().In(cfg.Location()))
		logCycle("daily", rep.Daily)
		logCycle("monthly", rep.Monthly)
		return rep.Err()
	},
}

func logCycle(name string, res scheduler.CycleResult) {
	log.Info().
		Str("cycle", name).
		Str("outcome", string(res.Outcome)).
		Strs("published", res.Published).
		AnErr("error", res.Err).
		Msg("forced run")
}

func init() {
	rankCmd.Flags().StringVar(&rankStrategy, "strategy", "TMEM", "strategy to rank: TMEM or MEC")
	rankCmd.Flags().IntVar(&rankTop, "top", 10, "number of picks to print")
}
