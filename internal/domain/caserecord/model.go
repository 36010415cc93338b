package caserecord

import (
	"time"

	"github.com/google/uuid"
)

// ReportState is the derived lifecycle position of a case's report.
type ReportState string

const (
	// StateUnreported means no radiologist has written anything yet.
	StateUnreported ReportState = "unreported"
	// StateDrafted means report text exists but has not been validated.
	StateDrafted ReportState = "drafted"
	// StateValidated means the report is locked and eligible for release.
	StateValidated ReportState = "validated"
)

// CaseRecord maps to the case_records table. One row per imaging study;
// demographics come from the requisition form, the report fields are filled
// in by a radiologist later.
type CaseRecord struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	CaseNo          string     `db:"case_no" json:"case_no"`
	PatientName     string     `db:"patient_name" json:"patient_name"`
	Address         *string    `db:"address" json:"address,omitempty"`
	RequestedBy     *string    `db:"requested_by" json:"requested_by,omitempty"`
	ExaminationDone *string    `db:"examination_done" json:"examination_done,omitempty"`
	DatePerformed   *time.Time `db:"date_performed" json:"date_performed,omitempty"`
	Sex             string     `db:"sex" json:"sex"`
	Birthday        *time.Time `db:"birthday" json:"birthday,omitempty"`
	Age             *int       `db:"age" json:"age,omitempty"`
	ImageRef        *string    `db:"image_ref" json:"image_ref,omitempty"`
	Findings        *string    `db:"findings" json:"findings,omitempty"`
	Impression      *string    `db:"impression" json:"impression,omitempty"`
	Validated       bool       `db:"validated" json:"validated"`
	CreatedBy       uuid.UUID  `db:"created_by" json:"created_by"`
	ReportedBy      *uuid.UUID `db:"reported_by" json:"reported_by,omitempty"`
	ValidatedBy     *uuid.UUID `db:"validated_by" json:"validated_by,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Report bundles the narrative fields of a case.
type Report struct {
	Findings   string `json:"findings"`
	Impression string `json:"impression"`
}

// State derives the lifecycle position from the stored fields. The state is
// never stored directly; validated wins over any draft text.
func (r *CaseRecord) State() ReportState {
	if r.Validated {
		return StateValidated
	}
	if r.HasReport() {
		return StateDrafted
	}
	return StateUnreported
}

// HasReport reports whether any report text has been written.
func (r *CaseRecord) HasReport() bool {
	return (r.Findings != nil && *r.Findings != "") || (r.Impression != nil && *r.Impression != "")
}

// Report returns the narrative fields, or nil when nothing has been written.
func (r *CaseRecord) Report() *Report {
	if !r.HasReport() {
		return nil
	}
	rep := &Report{}
	if r.Findings != nil {
		rep.Findings = *r.Findings
	}
	if r.Impression != nil {
		rep.Impression = *r.Impression
	}
	return rep
}
