package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/hibiken/asynq"
	"github.com/linklab/linkhub/internal/queue"
	"github.com/linklab/linkhub/internal/storage"
	"github.com/linklab/linkhub/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	maxWidth    = 400
	maxHeight   = 300
	jpegQuality = 80
)

// NewImageProcessor creates a new ImageProcessor.
func NewImageProcessor(store store.Store, gateway storage.Gateway) *ImageProcessor {
	return &ImageProcessor{
		store:   store,
		storage: gateway,
	}
}

// ImageProcessor turns a pending original image into a normalized derived
// asset and flips the image record to READY. It does not loop on failure;
// any error propagates to the queue, which retries per its backoff policy.
type ImageProcessor struct {
	store   store.Store
	storage storage.Gateway
}

// Process runs one job end to end. Redelivery is safe: the derived key is
// deterministic in the source bytes and image id, so reprocessing overwrites
// the same object and rewrites the record with equivalent values.
func (p *ImageProcessor) Process(ctx context.Context, job queue.ProcessingJob) error {
	data, err := p.storage.Download(ctx, job.SourceStorageKey)
	if err != nil {
		return err
	}

	// AutoOrientation bakes the EXIF orientation in, so the output is
	// upright regardless of source camera orientation.
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode %s: %w", job.SourceStorageKey, err)
	}

	// Fit preserves aspect ratio and never upscales past the original.
	resized := imaging.Fit(src, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("encode %s: %w", job.SourceStorageKey, err)
	}
	encoded := buf.Bytes()

	key := storage.DerivedKey(job.SourceStorageKey, job.LinkImageID, data)
	obj, err := p.storage.UploadPublicKey(ctx, key, encoded, "image/jpeg", true)
	if err != nil {
		return err
	}

	// Re-measure from the encoded output rather than trusting the resize
	// target, so encoder-level rounding cannot drift the stored dimensions.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("measure %s: %w", key, err)
	}

	logrus.Infof("processed image %d (%s -> %s, %dx%d)", job.LinkImageID, job.SourceStorageKey, obj.Key, cfg.Width, cfg.Height)

	return p.store.MarkImageReady(ctx, job.LinkImageID, obj.Key, obj.URL, cfg.Width, cfg.Height)
}

// HandleTask adapts Process to the queue transport.
func (p *ImageProcessor) HandleTask(ctx context.Context, task *asynq.Task) error {
	job, err := queue.UnmarshalProcessingJob(task.Payload())
	if err != nil {
		return fmt.Errorf("bad %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return p.Process(ctx, job)
}

// MarkFailed flips the image record to FAILED. Wired as the queue server's
// retry-exhaustion hook; the archived job stays inspectable.
func (p *ImageProcessor) MarkFailed(ctx context.Context, job queue.ProcessingJob) {
	if err := p.store.MarkImageFailed(ctx, job.LinkImageID); err != nil {
		logrus.Errorf("failed to mark image %d as failed: %v", job.LinkImageID, err)
	}
}
