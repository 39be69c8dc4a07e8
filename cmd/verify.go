package cmd

import (
	"context"

	"github.com/linklab/linkhub/internal/config"
	"github.com/linklab/linkhub/internal/store"
	"github.com/linklab/linkhub/internal/verifier"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "probe every published link once and update trust flags",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		st := store.NewGormStore(config.GetDB(cfg))

		checker := verifier.NewLinkChecker(st, cfg.VerifySchedule)
		if err := checker.Check(context.Background()); err != nil {
			logrus.Fatalf("link verification failed: %v", err)
		}
	},
}
