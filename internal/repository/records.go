package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/applymail/applymail/internal/models"
)

// recordSheet is the worksheet holding the application log.
const recordSheet = "Applications"

// recordHeader matches the column schema of the historical workbook; the
// order must not change, existing files depend on it.
var recordHeader = []interface{}{
	"Entreprise",
	"Poste",
	"Localisation",
	"Type de contrat",
	"Statut de candid",
	"Date de candid",
	"Site Web",
	"Remarques de reunion",
	"Email envoyé?",
	"Date d'envoi",
	"Message",
}

var recordColumnWidths = []float64{30, 30, 20, 20, 20, 20, 40, 40, 12, 24, 80}

// RecordsRepository appends send outcomes to an xlsx workbook. Rows are
// append-only: the log is an audit trail and existing rows are never touched.
type RecordsRepository struct {
	path string
}

// NewRecordsRepository creates a records repository writing to path.
func NewRecordsRepository(path string) *RecordsRepository {
	return &RecordsRepository{path: path}
}

// open loads the existing workbook or initializes a new one with the header
// row and column widths.
func (r *RecordsRepository) open() (*excelize.File, error) {
	if _, err := os.Stat(r.path); err == nil {
		f, err := excelize.OpenFile(r.path)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		return f, nil
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", recordSheet)
	if err := f.SetSheetRow(recordSheet, "A1", &recordHeader); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	for i, width := range recordColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(recordSheet, col, col, width); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Append adds one record row to the workbook, creating it if needed.
func (r *RecordsRepository) Append(record models.ApplicationRecord) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	f, err := r.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(recordSheet)
	if err != nil {
		return fmt.Errorf("read workbook rows: %w", err)
	}

	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return err
	}

	row := []interface{}{
		record.Company,
		record.Position,
		record.Location,
		record.ContractType,
		record.ApplicationStatus,
		record.AppliedAt,
		record.Website,
		record.Notes,
		record.EmailSent,
		record.SentAt,
		record.Message,
	}
	if err := f.SetSheetRow(recordSheet, cell, &row); err != nil {
		return fmt.Errorf("append record row: %w", err)
	}

	if err := f.SaveAs(r.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
