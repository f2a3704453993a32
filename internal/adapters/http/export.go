package httpadapter

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

const equipmentSheet = "Equipment"

var equipmentHeaders = []string{
	"Name",
	"Category",
	"Manufacturer",
	"Model",
	"Price",
	"Warranty",
	"Active",
	"Specifications",
	"Description",
	"Created At",
}

type xlsxExporter struct {
	logger *slog.Logger
}

func newXLSXExporter(logger *slog.Logger) *xlsxExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &xlsxExporter{logger: logger}
}

// Equipment renders one row per catalog item.
func (e *xlsxExporter) Equipment(organizationID string, items []domain.Equipment) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", equipmentSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range equipmentHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(equipmentSheet, cell, h)
	}

	for i, item := range items {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(equipmentSheet, cell, v)
		}
		write(1, item.Name)
		write(2, string(item.Category))
		write(3, item.Manufacturer)
		write(4, item.Model)
		write(5, item.Price)
		write(6, item.WarrantyPeriod)
		write(7, item.IsActive)
		write(8, formatSpecifications(item.Specifications))
		write(9, item.Description)
		write(10, item.CreatedAt.UTC().Format(time.RFC3339))
	}

	_ = f.SetColWidth(equipmentSheet, "A", "A", 32)
	_ = f.SetColWidth(equipmentSheet, "B", "D", 20)
	_ = f.SetColWidth(equipmentSheet, "H", "I", 60)
	_ = f.SetColWidth(equipmentSheet, "J", "J", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"organization_id", organizationID,
		"rows", len(items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func formatSpecifications(specs []domain.Specification) string {
	parts := make([]string, 0, len(specs))
	for _, s := range specs {
		parts = append(parts, s.Key+": "+s.Value)
	}
	return strings.Join(parts, "; ")
}
