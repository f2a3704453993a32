package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
	"github.com/kirillkom/solar-equipment-parser/internal/core/ports"
	"github.com/kirillkom/solar-equipment-parser/internal/core/validation"
)

const (
	defaultCatalogLimit = 100
	maxCatalogLimit     = 1000
)

// EquipmentCatalogUseCase stores accepted records per organization.
type EquipmentCatalogUseCase struct {
	repo      ports.EquipmentRepository
	validator *validation.Validator
}

func NewEquipmentCatalogUseCase(repo ports.EquipmentRepository, validator *validation.Validator) *EquipmentCatalogUseCase {
	return &EquipmentCatalogUseCase{repo: repo, validator: validator}
}

func (uc *EquipmentCatalogUseCase) Add(
	ctx context.Context,
	organizationID, createdBy string,
	record domain.EquipmentRecord,
) (*domain.Equipment, error) {
	if strings.TrimSpace(organizationID) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "add equipment", errors.New("organization is required"))
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal equipment record: %w", err)
	}
	verdict := uc.validator.CheckStrict(raw)
	if !verdict.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "add equipment", errors.New(verdict.Message()))
	}

	now := time.Now().UTC()
	item := &domain.Equipment{
		ID:              uuid.NewString(),
		OrganizationID:  organizationID,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
		EquipmentRecord: *verdict.Record,
	}
	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create equipment: %w", err)
	}
	return item, nil
}

func (uc *EquipmentCatalogUseCase) List(ctx context.Context, organizationID string, limit int) ([]domain.Equipment, error) {
	if limit <= 0 {
		limit = defaultCatalogLimit
	}
	if limit > maxCatalogLimit {
		limit = maxCatalogLimit
	}
	items, err := uc.repo.ListByOrganization(ctx, organizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	return items, nil
}
