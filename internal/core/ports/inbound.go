package ports

import (
	"context"
	"io"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

// EquipmentParser is the inbound contract for synchronous datasheet parsing.
// Both methods always return an envelope; they never return an error.
type EquipmentParser interface {
	Parse(ctx context.Context, documentURL string) domain.ParseResult
	ParseUpload(ctx context.Context, data []byte) domain.ParseResult
}

// ParseJobService is the inbound contract for asynchronous parsing.
type ParseJobService interface {
	SubmitURL(ctx context.Context, organizationID, documentURL string) (*domain.ParseJob, error)
	SubmitUpload(ctx context.Context, organizationID, filename string, body io.Reader) (*domain.ParseJob, error)
	GetByID(ctx context.Context, organizationID, jobID string) (*domain.ParseJob, error)
}

// ParseJobProcessor runs a queued job to completion.
type ParseJobProcessor interface {
	ProcessByID(ctx context.Context, jobID string) error
}

// EquipmentCatalog is the inbound contract for the organization catalog.
type EquipmentCatalog interface {
	Add(ctx context.Context, organizationID, createdBy string, record domain.EquipmentRecord) (*domain.Equipment, error)
	List(ctx context.Context, organizationID string, limit int) ([]domain.Equipment, error)
}
