package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const sheet = "Devis"

// WriteExcel renders a detail view to <dir>/devis-<quoteNumber>.xlsx and
// returns the written path.
func WriteExcel(view DetailView, dir string) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")

	f.SetCellValue(sheet, "A1", "Devis N°")
	f.SetCellValue(sheet, "B1", view.QuoteNumber)
	f.SetCellValue(sheet, "A2", "Date")
	f.SetCellValue(sheet, "B2", view.QuoteDate)
	f.SetCellValue(sheet, "A4", "Client")
	f.SetCellValue(sheet, "B4", view.ClientName)
	f.SetCellValue(sheet, "A5", "Adresse")
	f.SetCellValue(sheet, "B5", view.ClientAddress)
	f.SetCellValue(sheet, "A6", "Email")
	f.SetCellValue(sheet, "B6", view.ClientEmail)

	headers := []string{"Description", "Qté", "Prix Achat", "Marge (%)", "Prix Unitaire", "Total"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 8)
		f.SetCellValue(sheet, cell, header)
	}

	row := 9
	for _, line := range view.Lines {
		values := []string{
			line.Description,
			line.Quantity,
			line.PurchasePrice,
			line.Margin,
			line.UnitPrice,
			line.Total,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, value)
		}
		row++
	}

	row++
	f.SetCellValue(sheet, fmt.Sprintf("E%d", row), "Sous-total")
	f.SetCellValue(sheet, fmt.Sprintf("F%d", row), view.Subtotal)
	row++
	f.SetCellValue(sheet, fmt.Sprintf("E%d", row), "TVA ("+view.TaxRate+")")
	f.SetCellValue(sheet, fmt.Sprintf("F%d", row), view.Tax)
	row++
	f.SetCellValue(sheet, fmt.Sprintf("E%d", row), "Total Général")
	f.SetCellValue(sheet, fmt.Sprintf("F%d", row), view.GrandTotal)

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellStyle(sheet, "A1", "A6", style)
	f.SetCellStyle(sheet, "A8", "F8", style)

	f.SetActiveSheet(index)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, view.Filename)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}

	return path, nil
}
