package queue

import (
	"context"
	"encoding/json"
)

// TypeImageProcess is the task type for image processing jobs.
const TypeImageProcess = "image:process"

// MaxAttempts is the total delivery budget per job; exhausted jobs are
// archived for inspection, never silently dropped.
const MaxAttempts = 3

// ProcessingJob is the queue payload produced by the command service and
// consumed by the image worker. Delivery is at-least-once, so consumers must
// tolerate redelivery.
type ProcessingJob struct {
	LinkID           uint   `json:"linkId"`
	LinkImageID      uint   `json:"linkImageId"`
	SourceStorageKey string `json:"sourceStorageKey"`
}

func (j ProcessingJob) Marshal() ([]byte, error) {
	return json.Marshal(j)
}

func UnmarshalProcessingJob(data []byte) (ProcessingJob, error) {
	var job ProcessingJob
	err := json.Unmarshal(data, &job)
	return job, err
}

// Queue is the durable work queue the command service enqueues into.
type Queue interface {
	EnqueueProcessing(ctx context.Context, job ProcessingJob) error
}
