package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportFormat enumerates supported plan export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// PlanExportJob is a persisted export request.
type PlanExportJob struct {
	ID           string           `db:"id" json:"id"`
	SessionID    string           `db:"session_id" json:"session_id"`
	Params       PlanExportParams `db:"params" json:"params"`
	Status       ExportStatus     `db:"status" json:"status"`
	Progress     int              `db:"progress" json:"progress"`
	ResultURL    *string          `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string           `db:"created_by" json:"created_by"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time       `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string          `db:"error_message" json:"error_message,omitempty"`
}

// PlanExportParams freezes the plan as it looked when the export was
// requested, so later edits do not leak into the file.
type PlanExportParams struct {
	Format     ExportFormat     `json:"format"`
	CourseCode string           `json:"courseCode"`
	Terms      []ExportTerm     `json:"terms"`
	Summary    ExportPlanTotals `json:"summary"`
}

// ExportTerm is one labelled term of a frozen plan.
type ExportTerm struct {
	Label    string          `json:"label"`
	Fixed    bool            `json:"fixed"`
	Subjects []ExportSubject `json:"subjects"`
}

// ExportSubject is a subject line of a frozen plan.
type ExportSubject struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Elective bool   `json:"elective"`
	Hours    int    `json:"hours"`
}

// ExportPlanTotals summarises a frozen plan.
type ExportPlanTotals struct {
	TermCount     int    `json:"termCount"`
	ElectiveHours int    `json:"electiveHours"`
	Status        string `json:"status"`
	Completion    string `json:"completion,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p PlanExportParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export job params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *PlanExportParams) Scan(value interface{}) error {
	if value == nil {
		*p = PlanExportParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for PlanExportParams", value)
	}
	if len(data) == 0 {
		*p = PlanExportParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal export job params: %w", err)
	}
	return nil
}
