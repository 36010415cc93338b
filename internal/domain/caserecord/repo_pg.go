package caserecord

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type caseRepoPG struct{ pool *pgxpool.Pool }

func NewCaseRepoPG(pool *pgxpool.Pool) Repository {
	return &caseRepoPG{pool: pool}
}

const caseCols = `id, case_no, patient_name, address, requested_by, examination_done,
	date_performed, sex, birthday, age, image_ref,
	findings, impression, validated,
	created_by, reported_by, validated_by, created_at, updated_at`

func (r *caseRepoPG) scanCase(row pgx.Row) (*CaseRecord, error) {
	var cr CaseRecord
	err := row.Scan(&cr.ID, &cr.CaseNo, &cr.PatientName, &cr.Address, &cr.RequestedBy, &cr.ExaminationDone,
		&cr.DatePerformed, &cr.Sex, &cr.Birthday, &cr.Age, &cr.ImageRef,
		&cr.Findings, &cr.Impression, &cr.Validated,
		&cr.CreatedBy, &cr.ReportedBy, &cr.ValidatedBy, &cr.CreatedAt, &cr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cr, nil
}

func (r *caseRepoPG) Create(ctx context.Context, cr *CaseRecord) error {
	cr.ID = uuid.New()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO case_records (id, case_no, patient_name, address, requested_by, examination_done,
			date_performed, sex, birthday, age, image_ref, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		cr.ID, cr.CaseNo, cr.PatientName, cr.Address, cr.RequestedBy, cr.ExaminationDone,
		cr.DatePerformed, cr.Sex, cr.Birthday, cr.Age, cr.ImageRef, cr.CreatedBy,
	).Scan(&cr.CreatedAt, &cr.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateCaseNo
		}
		return err
	}
	return nil
}

func (r *caseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*CaseRecord, error) {
	return r.scanCase(r.pool.QueryRow(ctx, `SELECT `+caseCols+` FROM case_records WHERE id = $1`, id))
}

func (r *caseRepoPG) GetByCaseNo(ctx context.Context, caseNo string) (*CaseRecord, error) {
	return r.scanCase(r.pool.QueryRow(ctx, `SELECT `+caseCols+` FROM case_records WHERE case_no = $1`, caseNo))
}

// stateClause translates the derived state filter into SQL over the stored
// columns. Must stay in lockstep with CaseRecord.State.
func stateClause(state ReportState) (string, bool) {
	switch state {
	case StateUnreported:
		return `NOT validated AND COALESCE(findings, '') = '' AND COALESCE(impression, '') = ''`, true
	case StateDrafted:
		return `NOT validated AND (COALESCE(findings, '') <> '' OR COALESCE(impression, '') <> '')`, true
	case StateValidated:
		return `validated`, true
	default:
		return "", false
	}
}

func (r *caseRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*CaseRecord, int, error) {
	where := `TRUE`
	args := []interface{}{}

	if clause, ok := stateClause(filter.State); ok {
		where += ` AND ` + clause
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(` AND (case_no ILIKE $%d OR patient_name ILIKE $%d)`, len(args), len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM case_records WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM case_records WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		caseCols, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*CaseRecord
	for rows.Next() {
		cr, err := r.scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update writes the demographic fields. Report fields are deliberately not
// touched here; they only move through UpdateReport.
func (r *caseRepoPG) Update(ctx context.Context, cr *CaseRecord) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE case_records SET case_no=$2, patient_name=$3, address=$4, requested_by=$5,
			examination_done=$6, date_performed=$7, sex=$8, birthday=$9, age=$10,
			image_ref=$11, updated_at=NOW()
		WHERE id = $1`,
		cr.ID, cr.CaseNo, cr.PatientName, cr.Address, cr.RequestedBy,
		cr.ExaminationDone, cr.DatePerformed, cr.Sex, cr.Birthday, cr.Age,
		cr.ImageRef)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateCaseNo
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateReport writes the report fields and flag in a single statement so a
// lifecycle move is atomic.
func (r *caseRepoPG) UpdateReport(ctx context.Context, id uuid.UUID, findings, impression *string, validated bool, reportedBy, validatedBy *uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE case_records SET findings=$2, impression=$3, validated=$4,
			reported_by=$5, validated_by=$6, updated_at=NOW()
		WHERE id = $1`,
		id, findings, impression, validated, reportedBy, validatedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
