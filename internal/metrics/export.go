package metrics

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// BuildWorkbook renders the retained diagnostic events plus a summary sheet
// as an xlsx workbook for download.
func BuildWorkbook(m *Monitor) (*excelize.File, error) {
	f := excelize.NewFile()

	const eventsSheet = "Events"
	if err := f.SetSheetName("Sheet1", eventsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headers := []string{"Time", "Kind", "Detail"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(eventsSheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, ev := range m.Events() {
		values := []interface{}{
			ev.At.Format(time.RFC3339),
			string(ev.Kind),
			ev.Detail,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(eventsSheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write event row: %w", err)
			}
		}
	}

	const summarySheet = "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to add summary sheet: %w", err)
	}

	s := m.Snapshot()
	summary := [][]interface{}{
		{"Attempts", s.Attempts},
		{"Successes", s.Successes},
		{"Errors", s.Errors},
		{"Flicker events", s.FlickerEvents},
		{"Camera restarts", s.CameraRestarts},
		{"Success rate", fmt.Sprintf("%.1f%%", s.SuccessRate*100)},
		{"FPS", s.FPS},
		{"Last processing (ms)", s.LastProcessingMS},
	}
	for row, pair := range summary {
		for col, v := range pair {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+1)
			if err := f.SetCellValue(summarySheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write summary row: %w", err)
			}
		}
	}

	return f, nil
}
