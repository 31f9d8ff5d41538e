// Package report exports proctoring activity for the admin report page: an
// XLSX workbook of students, flagged detections, and the local capture
// summary, plus a plain CSV of the detection table.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/examtrace/proctor-agent/internal/api"
	"github.com/examtrace/proctor-agent/internal/journal"
	"github.com/examtrace/proctor-agent/internal/model"
)

// Exporter writes report files.
type Exporter struct {
	log zerolog.Logger
}

// NewExporter creates an Exporter.
func NewExporter(log zerolog.Logger) *Exporter {
	return &Exporter{log: log.With().Str("component", "report_exporter").Logger()}
}

// WriteXLSX writes the full report workbook to path. summaries maps exam id
// to the local capture journal aggregate and may be nil when no journal is
// available.
func (e *Exporter) WriteXLSX(path string, students []api.User, detections []model.Detection, summaries map[int]journal.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	const studentsSheet = "Students"
	if err := f.SetSheetName("Sheet1", studentsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	setRow := func(sheet string, row int, values ...interface{}) error {
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}

	if err := setRow(studentsSheet, 1, "Student ID", "Username", "Role"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := 2
	for _, u := range students {
		if u.Role != string(model.RoleStudent) {
			continue
		}
		if err := setRow(studentsSheet, row, u.ID, u.Username, u.Role); err != nil {
			return fmt.Errorf("write student row: %w", err)
		}
		row++
	}

	const detectionsSheet = "Detections"
	if _, err := f.NewSheet(detectionsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := setRow(detectionsSheet, 1, "Student ID", "Exam ID", "Movement Type", "Timestamp"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, d := range detections {
		if err := setRow(detectionsSheet, i+2, d.UserID, d.ExamID, d.MovementType, d.Timestamp); err != nil {
			return fmt.Errorf("write detection row: %w", err)
		}
	}

	if len(summaries) > 0 {
		const captureSheet = "Capture Summary"
		if _, err := f.NewSheet(captureSheet); err != nil {
			return fmt.Errorf("create sheet: %w", err)
		}
		if err := setRow(captureSheet, 1, "Exam ID", "Ticks", "Failed Uploads", "Suspicious Ticks"); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		row = 2
		for examID, s := range summaries {
			if err := setRow(captureSheet, row, examID, s.Total, s.Failed, s.Suspicious); err != nil {
				return fmt.Errorf("write summary row: %w", err)
			}
			row++
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	e.log.Info().Str("path", path).Int("detections", len(detections)).Msg("Report exported")
	return nil
}

// WriteCSV writes the detection table as CSV, header first.
func (e *Exporter) WriteCSV(w io.Writer, detections []model.Detection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"student_id", "exam_id", "movement_type", "timestamp"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, d := range detections {
		record := []string{
			strconv.Itoa(d.UserID),
			strconv.Itoa(d.ExamID),
			d.MovementType,
			d.Timestamp,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
