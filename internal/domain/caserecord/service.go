package caserecord

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	cases Repository
}

func NewService(cases Repository) *Service {
	return &Service{cases: cases}
}

var validSexes = map[string]bool{
	"Male":   true,
	"Female": true,
	"Other":  true,
}

func checkDemographics(cr *CaseRecord) error {
	if strings.TrimSpace(cr.PatientName) == "" {
		return fmt.Errorf("%w: patient_name is required", ErrInvalidCase)
	}
	if !validSexes[cr.Sex] {
		return fmt.Errorf("%w: invalid sex %q", ErrInvalidCase, cr.Sex)
	}
	if cr.Age != nil && (*cr.Age < 0 || *cr.Age > 150) {
		return fmt.Errorf("%w: invalid age %d", ErrInvalidCase, *cr.Age)
	}
	return nil
}

// CreateCase registers a new imaging study. The record starts unreported;
// report fields can only be filled in through WriteReport.
func (s *Service) CreateCase(ctx context.Context, cr *CaseRecord, createdBy uuid.UUID) error {
	cr.CaseNo = strings.TrimSpace(cr.CaseNo)
	if cr.CaseNo == "" {
		return fmt.Errorf("%w: case_no is required", ErrInvalidCase)
	}
	if err := checkDemographics(cr); err != nil {
		return err
	}

	// Report fields never arrive through create.
	cr.Findings = nil
	cr.Impression = nil
	cr.Validated = false
	cr.ReportedBy = nil
	cr.ValidatedBy = nil
	cr.CreatedBy = createdBy

	return s.cases.Create(ctx, cr)
}

func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*CaseRecord, error) {
	return s.cases.GetByID(ctx, id)
}

func (s *Service) GetCaseByCaseNo(ctx context.Context, caseNo string) (*CaseRecord, error) {
	return s.cases.GetByCaseNo(ctx, caseNo)
}

func (s *Service) ListCases(ctx context.Context, filter ListFilter, limit, offset int) ([]*CaseRecord, int, error) {
	return s.cases.List(ctx, filter, limit, offset)
}

// UpdateDemographics rewrites the requisition fields of an existing case.
// The case number is immutable; report fields are untouched. Concurrent
// edits are last-write-wins.
func (s *Service) UpdateDemographics(ctx context.Context, id uuid.UUID, update *CaseRecord) (*CaseRecord, error) {
	existing, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkDemographics(update); err != nil {
		return nil, err
	}

	existing.PatientName = update.PatientName
	existing.Address = update.Address
	existing.RequestedBy = update.RequestedBy
	existing.ExaminationDone = update.ExaminationDone
	existing.DatePerformed = update.DatePerformed
	existing.Sex = update.Sex
	existing.Birthday = update.Birthday
	existing.Age = update.Age
	existing.ImageRef = update.ImageRef

	if err := s.cases.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// WriteReport sets or overwrites the report narrative. Allowed while the
// report is unreported or drafted; a validated report is locked until it is
// invalidated first.
func (s *Service) WriteReport(ctx context.Context, id uuid.UUID, findings, impression string) (*CaseRecord, error) {
	cr, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cr.State() == StateValidated {
		return nil, ErrReportLocked
	}
	if strings.TrimSpace(findings) == "" || strings.TrimSpace(impression) == "" {
		return nil, ErrEmptyReport
	}

	cr.Findings = &findings
	cr.Impression = &impression

	userID, _ := userIDFromContext(ctx)
	if userID != uuid.Nil {
		cr.ReportedBy = &userID
	}

	if err := s.cases.UpdateReport(ctx, cr.ID, cr.Findings, cr.Impression, false, cr.ReportedBy, nil); err != nil {
		return nil, err
	}
	cr.Validated = false
	cr.ValidatedBy = nil
	return cr, nil
}

// Validate locks a drafted report. Requires non-empty findings and
// impression; an unreported or already validated case is rejected.
func (s *Service) Validate(ctx context.Context, id uuid.UUID) (*CaseRecord, error) {
	cr, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch cr.State() {
	case StateUnreported:
		return nil, ErrNoReport
	case StateValidated:
		return nil, fmt.Errorf("%w: report is already validated", ErrInvalidTransition)
	}
	if cr.Findings == nil || strings.TrimSpace(*cr.Findings) == "" ||
		cr.Impression == nil || strings.TrimSpace(*cr.Impression) == "" {
		return nil, ErrEmptyReport
	}

	userID, _ := userIDFromContext(ctx)
	if userID != uuid.Nil {
		cr.ValidatedBy = &userID
	}

	if err := s.cases.UpdateReport(ctx, cr.ID, cr.Findings, cr.Impression, true, cr.ReportedBy, cr.ValidatedBy); err != nil {
		return nil, err
	}
	cr.Validated = true
	return cr, nil
}

// Invalidate unlocks a validated report for further editing. The narrative
// is retained; the case returns to drafted.
func (s *Service) Invalidate(ctx context.Context, id uuid.UUID) (*CaseRecord, error) {
	cr, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cr.State() != StateValidated {
		return nil, fmt.Errorf("%w: report is not validated", ErrInvalidTransition)
	}

	if err := s.cases.UpdateReport(ctx, cr.ID, cr.Findings, cr.Impression, false, cr.ReportedBy, nil); err != nil {
		return nil, err
	}
	cr.Validated = false
	cr.ValidatedBy = nil
	return cr, nil
}

// ReleaseForDownload returns the record only once its report is validated.
// Pure read gate; no state change.
func (s *Service) ReleaseForDownload(ctx context.Context, id uuid.UUID) (*CaseRecord, error) {
	cr, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cr.State() != StateValidated {
		return nil, ErrNotValidated
	}
	return cr, nil
}
