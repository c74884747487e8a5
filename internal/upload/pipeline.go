// Package upload runs the sequential creative upload of the campaign wizard.
package upload

import (
	"context"
	"time"

	"github.com/radiusdt/campaign-studio/internal/apperr"
	"github.com/radiusdt/campaign-studio/internal/metrics"
	"github.com/radiusdt/campaign-studio/internal/models"
	"go.uber.org/zap"
)

// Uploader sends one file to its hosting backend.
type Uploader interface {
	UploadFile(ctx context.Context, file models.PendingFile) (*models.UploadResponse, error)
}

// ProgressFunc is called after each file settles.
type ProgressFunc func(completed, total int)

// Pipeline uploads a batch one file at a time, in order, without stopping
// at the first failure.
type Pipeline struct {
	uploader Uploader
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewPipeline creates a pipeline over uploader.
func NewPipeline(uploader Uploader, logger *zap.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		uploader: uploader,
		logger:   logger,
		metrics:  m,
	}
}

// Filter splits files into those whose MIME type starts with one of prefixes
// and the rest. Order is preserved in both.
func Filter(files []models.PendingFile, prefixes []string) (accepted, rejected []models.PendingFile) {
	for _, f := range files {
		if f.HasMIMEPrefix(prefixes) {
			accepted = append(accepted, f)
		} else {
			rejected = append(rejected, f)
		}
	}
	return accepted, rejected
}

// Run uploads files and returns one outcome per file, in input order. A
// partial failure is not an error; use models.AllFulfilled on the result.
// The only error is a ValidationError for an empty batch.
func (p *Pipeline) Run(ctx context.Context, files []models.PendingFile, progress ProgressFunc) ([]models.UploadOutcome, error) {
	if len(files) == 0 {
		return nil, apperr.Validation("files", "no files selected")
	}

	start := time.Now()
	total := len(files)
	outcomes := make([]models.UploadOutcome, 0, total)
	failed := 0

	for i, f := range files {
		outcome := p.uploadOne(ctx, f)
		if !outcome.Fulfilled() {
			failed++
		}
		outcomes = append(outcomes, outcome)

		if progress != nil {
			progress(i+1, total)
		}
	}

	p.logger.Info("upload batch settled",
		zap.Int("total", total),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)),
	)
	return outcomes, nil
}

func (p *Pipeline) uploadOne(ctx context.Context, f models.PendingFile) models.UploadOutcome {
	meta := f.Meta()

	resp, err := p.uploader.UploadFile(ctx, f)
	if err != nil {
		p.metrics.RecordUpload(string(models.UploadRejected), meta.ByteSize)
		p.logger.Warn("file upload failed",
			zap.String("file", meta.Name),
			zap.Int64("bytes", meta.ByteSize),
			zap.Error(err),
		)
		return models.UploadOutcome{
			Status: models.UploadRejected,
			File:   meta,
			Reason: failureReason(err),
		}
	}

	p.metrics.RecordUpload(string(models.UploadFulfilled), meta.ByteSize)
	outcome := models.UploadOutcome{
		Status: models.UploadFulfilled,
		File:   meta,
	}
	if resp != nil {
		outcome.File.URL = resp.URL
		outcome.Response = resp.Raw
	}
	return outcome
}

// failureReason is the user-facing reason of a rejected upload.
func failureReason(err error) string {
	if apperr.CodeOf(err) == apperr.CodeRemoteCall {
		return apperr.UserMessage(err)
	}
	return err.Error()
}
