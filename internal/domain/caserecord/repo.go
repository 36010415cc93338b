package caserecord

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("case record not found")
	ErrDuplicateCaseNo = errors.New("case number already exists")

	// ErrInvalidCase marks demographic input the service rejects. Handlers
	// rely on it to tell caller mistakes apart from store failures.
	ErrInvalidCase = errors.New("invalid case record")

	// ErrInvalidTransition is the base error for every rejected lifecycle
	// move. More specific errors wrap it so handlers can match once.
	ErrInvalidTransition = errors.New("invalid report state transition")

	// ErrReportLocked rejects writes against a validated report.
	ErrReportLocked = fmt.Errorf("%w: report is validated and locked", ErrInvalidTransition)
	// ErrNotValidated rejects release of a report that is not validated.
	ErrNotValidated = fmt.Errorf("%w: report has not been validated", ErrInvalidTransition)
	// ErrNoReport rejects validation when no report text exists.
	ErrNoReport = fmt.Errorf("%w: no report has been written", ErrInvalidTransition)

	ErrEmptyReport = errors.New("report requires findings or impression")
)

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	State  ReportState
	Search string // matches case_no or patient_name
}

type Repository interface {
	Create(ctx context.Context, cr *CaseRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*CaseRecord, error)
	GetByCaseNo(ctx context.Context, caseNo string) (*CaseRecord, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*CaseRecord, int, error)
	Update(ctx context.Context, cr *CaseRecord) error
	UpdateReport(ctx context.Context, id uuid.UUID, findings, impression *string, validated bool, reportedBy, validatedBy *uuid.UUID) error
}
