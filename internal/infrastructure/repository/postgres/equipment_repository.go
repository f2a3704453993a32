package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

type EquipmentRepository struct {
	db *sql.DB
}

func NewEquipmentRepository(db *sql.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

func (r *EquipmentRepository) Create(ctx context.Context, item *domain.Equipment) error {
	specs := item.Specifications
	if specs == nil {
		specs = []domain.Specification{}
	}
	specsJSON, err := json.Marshal(specs)
	if err != nil {
		return fmt.Errorf("marshal specifications: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO equipment (
	id, organization_id, created_by, name, category, manufacturer, model, description,
	price, specifications, warranty_period, is_active, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		item.ID, item.OrganizationID, item.CreatedBy, item.Name, string(item.Category),
		item.Manufacturer, item.Model, item.Description, item.Price, specsJSON,
		item.WarrantyPeriod, item.IsActive, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert equipment: %w", err)
	}
	return nil
}

func (r *EquipmentRepository) ListByOrganization(ctx context.Context, organizationID string, limit int) ([]domain.Equipment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, organization_id, created_by, name, category, manufacturer, model, description,
	price, specifications, warranty_period, is_active, created_at, updated_at
FROM equipment
WHERE organization_id = $1
ORDER BY created_at DESC
LIMIT $2
`, organizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query equipment: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Equipment, 0)
	for rows.Next() {
		var item domain.Equipment
		var createdBy, manufacturer, model, description, warranty sql.NullString
		var category string
		var specsRaw []byte
		if err := rows.Scan(
			&item.ID, &item.OrganizationID, &createdBy, &item.Name, &category,
			&manufacturer, &model, &description, &item.Price, &specsRaw,
			&warranty, &item.IsActive, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		item.CreatedBy = createdBy.String
		item.Category = domain.Category(category)
		item.Manufacturer = manufacturer.String
		item.Model = model.String
		item.Description = description.String
		item.WarrantyPeriod = warranty.String
		if err := json.Unmarshal(specsRaw, &item.Specifications); err != nil {
			return nil, fmt.Errorf("unmarshal specifications: %w", err)
		}
		if item.Specifications == nil {
			item.Specifications = []domain.Specification{}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equipment: %w", err)
	}
	return items, nil
}
