package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

// DocumentFetcher downloads a referenced document.
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL string) (domain.FetchedDocument, error)
}

// TextExtractor converts PDF bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// StructuredExtractor asks a hosted model for a schema-shaped answer.
type StructuredExtractor interface {
	Extract(ctx context.Context, prompt string, schema map[string]any) (domain.Extraction, error)
}

// EquipmentRepository persists an organization's equipment catalog.
type EquipmentRepository interface {
	Create(ctx context.Context, item *domain.Equipment) error
	ListByOrganization(ctx context.Context, organizationID string, limit int) ([]domain.Equipment, error)
}

// ParseJobRepository persists asynchronous parse job state.
type ParseJobRepository interface {
	Create(ctx context.Context, job *domain.ParseJob) error
	GetByID(ctx context.Context, id string) (*domain.ParseJob, error)
	MarkProcessing(ctx context.Context, id string) error
	SaveResult(ctx context.Context, id string, status domain.ParseJobStatus, result domain.ParseResult, errorCode string) error
}

// ObjectStorage stages uploaded documents for the worker.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes parse requests.
type MessageQueue interface {
	PublishParseRequested(ctx context.Context, jobID string) error
	SubscribeParseRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// ParseObserver records pipeline outcomes.
type ParseObserver interface {
	ObserveStage(stage string, elapsed time.Duration)
	ObserveOutcome(source, code string, elapsed time.Duration)
	ObserveConfidence(confidence float64)
}
