package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
	"github.com/kirillkom/solar-equipment-parser/internal/core/ports"
)

// SubmitParseJobUseCase accepts asynchronous parse requests and hands them to the worker.
type SubmitParseJobUseCase struct {
	repo    ports.ParseJobRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewSubmitParseJobUseCase(
	repo ports.ParseJobRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *SubmitParseJobUseCase {
	return &SubmitParseJobUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *SubmitParseJobUseCase) SubmitURL(ctx context.Context, organizationID, documentURL string) (*domain.ParseJob, error) {
	ref, err := parseReference(documentURL)
	if err != nil {
		return nil, err
	}

	job := newParseJob(organizationID)
	job.SourceURL = ref.String()
	return uc.enqueue(ctx, job)
}

func (uc *SubmitParseJobUseCase) SubmitUpload(
	ctx context.Context,
	organizationID, filename string,
	body io.Reader,
) (*domain.ParseJob, error) {
	job := newParseJob(organizationID)
	job.Filename = filename
	job.StorageKey = fmt.Sprintf("%s_%s", job.ID, sanitizeFilename(filename))

	if err := uc.storage.Save(ctx, job.StorageKey, body); err != nil {
		return nil, fmt.Errorf("save upload to object storage: %w", err)
	}
	return uc.enqueue(ctx, job)
}

// GetByID hides jobs owned by other organizations behind ErrNotFound.
func (uc *SubmitParseJobUseCase) GetByID(ctx context.Context, organizationID, jobID string) (*domain.ParseJob, error) {
	job, err := uc.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OrganizationID != organizationID {
		return nil, domain.WrapError(domain.ErrNotFound, "get parse job", errors.New("job belongs to another organization"))
	}
	return job, nil
}

func (uc *SubmitParseJobUseCase) enqueue(ctx context.Context, job *domain.ParseJob) (*domain.ParseJob, error) {
	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create parse job: %w", err)
	}
	if err := uc.queue.PublishParseRequested(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish parse request: %w", err)
	}
	return job, nil
}

func newParseJob(organizationID string) *domain.ParseJob {
	now := time.Now().UTC()
	return &domain.ParseJob{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Status:         domain.JobStatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "datasheet.pdf"
	}
	return base
}
