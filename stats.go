package main

import (
	"fmt"
	"os"

	"aichannel-bot/internal/analytics"
	"aichannel-bot/internal/logging"
	"aichannel-bot/internal/postlog"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// newStatsCmd computes the best posting hour from the post log without starting the bot.
func newStatsCmd() *cobra.Command {
	var logFile, plotFile, fallback string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the best posting hour and render the hourly chart from the post log",
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(os.Stderr, os.Getenv("LOG_LEVEL"), false)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := postlog.NewStore(logFile, 0, nil).ReadAll()
			if err != nil {
				return err
			}
			best := analytics.BestPostingTime(records, fallback)

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Posts in log: %d\n", len(records))
			if best.Fallback {
				_, _ = fmt.Fprintf(out, "Best time: %s UTC (default, no timestamped posts)\n", best.Time)
				return nil
			}
			_, _ = fmt.Fprintf(out, "Best time: %s UTC (mean %.1f reactions)\n", best.Time, best.MeanReactions)
			for _, st := range best.Stats {
				_, _ = fmt.Fprintf(out, "  %02d:00  posts=%d  mean=%.1f\n", st.Hour, st.Posts, st.MeanReactions)
			}

			if err := analytics.RenderHourlyChart(best.Stats, plotFile); err != nil {
				return fmt.Errorf("render chart: %w", err)
			}
			log.Infof("[Stats] Chart written to %s", plotFile)
			return nil
		},
	}

	_ = godotenv.Load()
	cmd.Flags().StringVar(&logFile, "log-file", envOr("LOG_FILE", "../data/telegram_channel_log.csv"), "Post log CSV.")
	cmd.Flags().StringVar(&plotFile, "plot-file", envOr("PLOT_FILE", "../data/posting_time_stats.png"), "Where to write the chart PNG.")
	cmd.Flags().StringVar(&fallback, "default-time", envOr("DEFAULT_POST_TIME", "10:00"), "Time reported when the log has no timestamps.")
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
