package domain

import "time"

type Category string

const (
	CategorySolarPanel     Category = "Solar Panel"
	CategoryInverter       Category = "Inverter"
	CategoryBattery        Category = "Battery"
	CategoryMountingSystem Category = "Mounting System"
	CategoryElectrical     Category = "Electrical"
	CategoryTools          Category = "Tools"
	CategoryOther          Category = "Other"
)

// Categories lists every accepted category in display order.
func Categories() []Category {
	return []Category{
		CategorySolarPanel,
		CategoryInverter,
		CategoryBattery,
		CategoryMountingSystem,
		CategoryElectrical,
		CategoryTools,
		CategoryOther,
	}
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

type Specification struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// EquipmentRecord is the structured description produced by the parser.
type EquipmentRecord struct {
	Name           string          `json:"name"`
	Category       Category        `json:"category"`
	Manufacturer   string          `json:"manufacturer,omitempty"`
	Model          string          `json:"model,omitempty"`
	Description    string          `json:"description,omitempty"`
	Price          float64         `json:"price"`
	Specifications []Specification `json:"specifications"`
	WarrantyPeriod string          `json:"warrantyPeriod,omitempty"`
	IsActive       bool            `json:"isActive"`
}

// Equipment is an accepted record stored in an organization's catalog.
type Equipment struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	CreatedBy      string    `json:"createdBy,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	EquipmentRecord
}
