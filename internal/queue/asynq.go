package queue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

const retryBase = 5 * time.Second

var _ Queue = (*AsynqQueue)(nil)

// AsynqQueue enqueues processing jobs onto a Redis-backed asynq queue.
type AsynqQueue struct {
	client *asynq.Client
}

func NewAsynqQueue(redisAddr string) *AsynqQueue {
	return &AsynqQueue{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
	}
}

func (q *AsynqQueue) EnqueueProcessing(ctx context.Context, job ProcessingJob) error {
	payload, err := job.Marshal()
	if err != nil {
		return err
	}

	task := asynq.NewTask(TypeImageProcess, payload)
	_, err = q.client.EnqueueContext(ctx, task, asynq.MaxRetry(MaxAttempts-1))
	return err
}

func (q *AsynqQueue) Close() error {
	return q.client.Close()
}

// RetryDelay is the pipeline's backoff policy: exponential from 5s
// (5s, 10s, 20s for the default attempt budget).
func RetryDelay(n int, err error, task *asynq.Task) time.Duration {
	return retryBase << n
}

// handleTaskError fires onExhausted exactly once, when a job burns its last
// attempt. The hook runs detached from the failed attempt's context, so a
// job killed by timeout can still reach the database.
func handleTaskError(ctx context.Context, retried, maxRetry int, taskType string, payload []byte, err error, onExhausted func(ctx context.Context, job ProcessingJob)) {
	if retried < maxRetry {
		return
	}

	job, jerr := UnmarshalProcessingJob(payload)
	if jerr != nil {
		logrus.Errorf("undecodable %s payload after retry exhaustion: %v", taskType, jerr)
		return
	}

	logrus.Errorf("job %s for image %d exhausted %d attempts: %v", taskType, job.LinkImageID, MaxAttempts, err)
	if onExhausted != nil {
		onExhausted(context.WithoutCancel(ctx), job)
	}
}

// NewServer builds the consumer side with the pipeline's retry policy:
// exponential backoff from 5s, exhausted tasks archived, onExhausted invoked
// once when a job burns its last attempt.
func NewServer(redisAddr string, concurrency int, onExhausted func(ctx context.Context, job ProcessingJob)) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency:    concurrency,
			RetryDelayFunc: RetryDelay,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				handleTaskError(ctx, retried, maxRetry, task.Type(), task.Payload(), err, onExhausted)
			}),
		},
	)
}
