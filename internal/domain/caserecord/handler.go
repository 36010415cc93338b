package caserecord

import (
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/radcase/radcase/internal/platform/auth"
	"github.com/radcase/radcase/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the case record routes on the authenticated group.
// Role sets are declared here, next to the routes they guard.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	rt := auth.RequireRole(auth.RoleRT)
	rad := auth.RequireRole(auth.RoleRadiologist)

	api.POST("/cases", h.CreateCase, rt)
	api.GET("/cases", h.ListCases)
	api.GET("/cases/:id", h.GetCase)
	api.PUT("/cases/:id", h.UpdateCase, rt)
	api.PUT("/cases/:id/report", h.WriteReport, rad)
	api.POST("/cases/:id/validate", h.Validate, rad)
	api.POST("/cases/:id/invalidate", h.Invalidate, rad)
	api.GET("/cases/:id/download", h.Download, rt)
}

type casePayload struct {
	CaseNo          string     `json:"case_no"`
	PatientName     string     `json:"patient_name"`
	Address         *string    `json:"address"`
	RequestedBy     *string    `json:"requested_by"`
	ExaminationDone *string    `json:"examination_done"`
	DatePerformed   *time.Time `json:"date_performed"`
	Sex             string     `json:"sex"`
	Birthday        *time.Time `json:"birthday"`
	Age             *int       `json:"age"`
	ImageRef        *string    `json:"image_ref"`
}

func (p casePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.CaseNo, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.PatientName, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Sex, validation.Required, validation.In("Male", "Female", "Other")),
	)
}

func (p casePayload) toRecord() *CaseRecord {
	return &CaseRecord{
		CaseNo:          p.CaseNo,
		PatientName:     p.PatientName,
		Address:         p.Address,
		RequestedBy:     p.RequestedBy,
		ExaminationDone: p.ExaminationDone,
		DatePerformed:   p.DatePerformed,
		Sex:             p.Sex,
		Birthday:        p.Birthday,
		Age:             p.Age,
		ImageRef:        p.ImageRef,
	}
}

type reportPayload struct {
	Findings   string `json:"findings"`
	Impression string `json:"impression"`
}

func (p reportPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Findings, validation.Required),
		validation.Field(&p.Impression, validation.Required),
	)
}

// caseResponse decorates a record with its derived state so clients never
// re-implement the derivation.
type caseResponse struct {
	*CaseRecord
	State ReportState `json:"state"`
}

func respond(cr *CaseRecord) caseResponse {
	return caseResponse{CaseRecord: cr, State: cr.State()}
}

func respondList(items []*CaseRecord) []caseResponse {
	out := make([]caseResponse, 0, len(items))
	for _, cr := range items {
		out = append(out, respond(cr))
	}
	return out
}

func (h *Handler) CreateCase(c echo.Context) error {
	var p casePayload
	if err := c.Bind(&p); err != nil {
		return errorJSON(c, http.StatusBadRequest, "validation_failed", "invalid request body")
	}
	if err := p.Validate(); err != nil {
		return errorJSON(c, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	cr := p.toRecord()
	createdBy, _ := userIDFromContext(c.Request().Context())
	if err := h.svc.CreateCase(c.Request().Context(), cr, createdBy); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateCaseNo):
			return errorJSON(c, http.StatusConflict, "duplicate_case_no", "case number already exists")
		case errors.Is(err, ErrInvalidCase):
			return errorJSON(c, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		default:
			return errorJSON(c, http.StatusInternalServerError, "internal", "unexpected storage error")
		}
	}
	return c.JSON(http.StatusCreated, respond(cr))
}

func (h *Handler) ListCases(c echo.Context) error {
	pg := pagination.FromContext(c)

	// Exact case number lookup short-circuits the list query.
	if caseNo := c.QueryParam("case_no"); caseNo != "" {
		cr, err := h.svc.GetCaseByCaseNo(c.Request().Context(), caseNo)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return c.JSON(http.StatusOK, pagination.NewResponse([]caseResponse{}, 0, pg.Limit, pg.Offset))
			}
			return errorJSON(c, http.StatusInternalServerError, "internal", "failed to list cases")
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(respondList([]*CaseRecord{cr}), 1, pg.Limit, pg.Offset))
	}

	filter := ListFilter{
		State:  ReportState(c.QueryParam("state")),
		Search: c.QueryParam("q"),
	}

	items, total, err := h.svc.ListCases(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "internal", "failed to list cases")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(respondList(items), total, pg.Limit, pg.Offset))
}

func (h *Handler) GetCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "validation_failed", "invalid case id")
	}
	cr, err := h.svc.GetCase(c.Request().Context(), id)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(http.StatusOK, respond(cr))
}

func (h *Handler) UpdateCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "validation_failed", "invalid case id")
	}

	var p casePayload
	if err := c.Bind(&p); err != nil {
		return errorJSON(c, http.StatusBadRequest, "validation_failed", "invalid request body")
	}
	if err := p.Validate(); err != nil {
		return errorJSON(c, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	cr, err := h.svc.UpdateDemographics(c.Request().Context(), id, p.toRecord())
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return errorJSON(c, http.StatusNotFound, "not_found", "case record not found")
		case errors.Is(err, ErrDuplicateCaseNo):
			return errorJSON(c, http.StatusConflict, "duplicate_case_no", "case number already exists")
		case errors.Is(err, ErrInvalidCase):
			return errorJSON(c, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		default:
			return errorJSON(c, http.StatusInternalServerError, "internal", "unexpected storage error")
		}
	}
	return c.JSON(http.StatusOK, respond(cr))
}

func (h *Handler) WriteReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "validation_failed", "invalid case id")
	}

	var p reportPayload
	if err := c.Bind(&p); err != nil {
		return errorJSON(c, http.StatusBadRequest, "validation_failed", "invalid request body")
	}
	if err := p.Validate(); err != nil {
		return errorJSON(c, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	cr, err := h.svc.WriteReport(c.Request().Context(), id, p.Findings, p.Impression)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(http.StatusOK, respond(cr))
}

func (h *Handler) Validate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "validation_failed", "invalid case id")
	}
	cr, err := h.svc.Validate(c.Request().Context(), id)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(http.StatusOK, respond(cr))
}

func (h *Handler) Invalidate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "validation_failed", "invalid case id")
	}
	cr, err := h.svc.Invalidate(c.Request().Context(), id)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(http.StatusOK, respond(cr))
}

func (h *Handler) Download(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "validation_failed", "invalid case id")
	}
	cr, err := h.svc.ReleaseForDownload(c.Request().Context(), id)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(http.StatusOK, respond(cr))
}

// storeError maps the package sentinels onto the stable error kinds.
func (h *Handler) storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "not_found", "case record not found")
	case errors.Is(err, ErrEmptyReport):
		return errorJSON(c, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return errorJSON(c, http.StatusConflict, "invalid_transition", err.Error())
	default:
		return errorJSON(c, http.StatusInternalServerError, "internal", "unexpected storage error")
	}
}

func errorJSON(c echo.Context, status int, kind, message string) error {
	return c.JSON(status, map[string]string{"error": kind, "message": message})
}
