// Package report renders approval data as spreadsheets.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const queueSheet = "Approvals"

// QueueRow is one line of the approval queue export.
type QueueRow struct {
	ID           string
	Type         string
	Description  string
	Amount       float64
	Status       string
	ApprovedByPM bool
	CreatedAt    time.Time
}

var queueHeadings = []string{"ID", "Type", "Description", "Amount", "Status", "Approved by PM", "Created At"}

// WriteQueue writes rows as an XLSX workbook to w.
func WriteQueue(w io.Writer, rows []QueueRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", queueSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, h := range queueHeadings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(queueSheet, cell, h); err != nil {
			return err
		}
	}

	headStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(queueSheet, 1, 1, headStyle); err != nil {
		return err
	}

	for i, r := range rows {
		values := []interface{}{
			r.ID,
			r.Type,
			r.Description,
			r.Amount,
			r.Status,
			yesNo(r.ApprovedByPM),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(queueSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(queueSheet, "C", "C", 48); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
