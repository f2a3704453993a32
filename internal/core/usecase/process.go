package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
	"github.com/kirillkom/solar-equipment-parser/internal/core/ports"
)

// resultSaveTimeout bounds the final write, which runs after the job context may have expired.
const resultSaveTimeout = 10 * time.Second

// ProcessParseJobUseCase runs queued parse jobs through the pipeline and stores the envelope.
type ProcessParseJobUseCase struct {
	repo     ports.ParseJobRepository
	storage  ports.ObjectStorage
	parser   ports.EquipmentParser
	maxBytes int64
	logger   *slog.Logger
}

func NewProcessParseJobUseCase(
	repo ports.ParseJobRepository,
	storage ports.ObjectStorage,
	parser ports.EquipmentParser,
	maxUploadBytes int64,
	logger *slog.Logger,
) *ProcessParseJobUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessParseJobUseCase{
		repo:     repo,
		storage:  storage,
		parser:   parser,
		maxBytes: maxUploadBytes,
		logger:   logger,
	}
}

// ProcessByID returns an error only when job state could not be loaded or stored.
// Pipeline failures, including an expired job context, are recorded on the job as a terminal status.
func (uc *ProcessParseJobUseCase) ProcessByID(ctx context.Context, jobID string) error {
	job, err := uc.repo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("fetch parse job by id: %w", err)
	}
	if job.Finished() {
		uc.logger.Info("parse_job.already_finished", "job_id", jobID, "status", job.Status)
		return nil
	}

	if err := uc.repo.MarkProcessing(ctx, jobID); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	result := uc.runPipeline(ctx, job)

	status := domain.JobStatusSucceeded
	code := ""
	if !result.Success {
		status = domain.JobStatusFailed
		code = domain.ErrorCode(result.Cause())
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resultSaveTimeout)
	defer cancel()
	if err := uc.repo.SaveResult(saveCtx, jobID, status, result, code); err != nil {
		return fmt.Errorf("save parse result: %w", err)
	}

	uc.cleanup(saveCtx, job)
	return nil
}

func (uc *ProcessParseJobUseCase) runPipeline(ctx context.Context, job *domain.ParseJob) domain.ParseResult {
	if job.SourceURL != "" {
		return uc.parser.Parse(ctx, job.SourceURL)
	}

	data, err := uc.loadUpload(ctx, job.StorageKey)
	if err != nil {
		var pe *domain.PipelineError
		if errors.As(err, &pe) {
			return domain.FailedResult(pe, nil)
		}
		return domain.FailedResult(domain.NewPipelineError(domain.ErrInternal, domain.GenericInternalMessage, err), nil)
	}
	return uc.parser.ParseUpload(ctx, data)
}

func (uc *ProcessParseJobUseCase) loadUpload(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("parse job has neither url nor upload")
	}
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open staged upload: %w", err)
	}
	defer rc.Close()

	reader := io.Reader(rc)
	if uc.maxBytes > 0 {
		reader = io.LimitReader(rc, uc.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read staged upload: %w", err)
	}
	if uc.maxBytes > 0 && int64(len(data)) > uc.maxBytes {
		return nil, domain.NewPipelineError(domain.ErrInvalidInput, uploadTooLargeMessage(uc.maxBytes), nil)
	}
	return data, nil
}

func (uc *ProcessParseJobUseCase) cleanup(ctx context.Context, job *domain.ParseJob) {
	if job.StorageKey == "" {
		return
	}
	if err := uc.storage.Delete(ctx, job.StorageKey); err != nil {
		uc.logger.Warn("parse_job.cleanup_failed", "job_id", job.ID, "key", job.StorageKey, "error", err)
	}
}

func uploadTooLargeMessage(limit int64) string {
	return fmt.Sprintf("Upload is too large: the limit is %d bytes", limit)
}
