package cmd

import (
	"github.com/okian/standings/internal/devboard"
	"github.com/okian/standings/pkg/logger"
	"github.com/spf13/cobra"
)

var serveCfg = devboard.DefaultConfig()

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveCfg.Addr, "addr", serveCfg.Addr, "listen address")
	f.IntVar(&serveCfg.Players, "players", serveCfg.Players, "number of rows on the board")
	f.IntVar(&serveCfg.MaxGain, "max-gain", serveCfg.MaxGain, "maximum points a player gains per round")
	f.Uint64Var(&serveCfg.Seed, "seed", serveCfg.Seed, "seed for score movement")
	f.DurationVar(&serveCfg.AdvanceEvery, "advance-every", 0, "advance scores on a timer instead of on every page fetch")
	f.BoolVar(&serveCfg.Duplicates, "duplicates", false, "repeat the leader at the bottom of the page")
	f.Int64Var(&serveCfg.QuotaAfter, "quota-after", 0, "answer RESOURCE_EXHAUSTED after this many extraction calls (0 never)")
	f.StringVar(&serveCfg.APIKey, "api-key", "", "require this x-goog-api-key on extraction calls")

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves GET /leaderboard and POST /v1beta/models/{model}:generateContent.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		l := logger.Named("devboard")
		l.Info(cmd.Context(), "dev board listening",
			logger.String("addr", serveCfg.Addr),
			logger.Int("players", serveCfg.Players),
			logger.Int64("quota_after", serveCfg.QuotaAfter),
		)
		return devboard.NewServer(serveCfg, l).Run(cmd.Context())
	},
}
