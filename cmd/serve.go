package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/linklab/linkhub/internal/config"
	"github.com/linklab/linkhub/internal/jobs"
	"github.com/linklab/linkhub/internal/queue"
	"github.com/linklab/linkhub/internal/storage"
	"github.com/linklab/linkhub/internal/store"
	"github.com/linklab/linkhub/internal/verifier"
	"github.com/linklab/linkhub/internal/worker"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the image worker and scheduled jobs",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		st := store.NewGormStore(config.GetDB(cfg))
		if err := st.Migrate(); err != nil {
			logrus.Fatalf("migration failed: %v", err)
		}

		gateway, err := storage.NewS3Gateway(context.Background(), cfg.Storage)
		if err != nil {
			logrus.Fatalf("storage gateway init failed: %v", err)
		}

		processor := worker.NewImageProcessor(st, gateway)

		srv := queue.NewServer(cfg.RedisAddr, cfg.WorkerConcurrency, processor.MarkFailed)
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TypeImageProcess, processor.HandleTask)

		executor := jobs.NewTaskExecutor([]jobs.CronJob{
			verifier.NewLinkChecker(st, cfg.VerifySchedule),
		})
		executor.Run()

		if err := srv.Start(mux); err != nil {
			logrus.Fatalf("queue server failed to start: %v", err)
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logrus.Info("shutting down")
		srv.Shutdown()
		executor.Stop()
	},
}
