package scheduler

import (
	"context"
	"fmt"
	"strings"

	"QuantDesk/internal/notifier"
)

const helpText = "Available commands:\n• /signals - run all signals now\n• /regime - check the market regime\n• /state - show the last run markers"

// HandleCommand processes an operator command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if i := strings.IndexAny(cmd, " @"); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/signals", "!signals":
		rep := s.ForceRun(ctx, s.Clock.Now())
		if err := rep.Err(); err != nil {
			return fmt.Sprintf("❌ Signal run failed: %v", err)
		}
		return "✅ Signals posted!"
	case "/regime", "!regime":
		reg, err := s.RegimeCheck(ctx)
		if err != nil {
			return fmt.Sprintf("❌ Error: %v", err)
		}
		return notifier.FormatRegimeCheck(s.Settings.Defensive.Label, s.Collector.Benchmark, reg)
	case "/state", "!state":
		st := s.State()
		return fmt.Sprintf("Last daily run: %s\nLast monthly run: %s\nLast analysis: %s",
			orNever(st.LastDailyRunDate), orNever(st.LastMonthlyRunMonth), orNever(st.LastAnalysisDate))
	default:
		return helpText
	}
}

func orNever(s string) string {
	if s == "" {
		return "never"
	}
	return s
}
