package caserecord

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/radcase/radcase/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e
}

func seedCase(t *testing.T, h *Handler, caseNo string) *CaseRecord {
	t.Helper()
	cr := newCase(caseNo)
	if err := h.svc.CreateCase(context.Background(), cr, uuid.New()); err != nil {
		t.Fatalf("seed case: %v", err)
	}
	return cr
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

func TestHandler_CreateCase(t *testing.T) {
	h, e := newTestHandler()
	body := `{"case_no":"C-001","patient_name":"Juan dela Cruz","sex":"Male"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.CreateCase(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var resp caseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != StateUnreported {
		t.Errorf("expected state %q, got %q", StateUnreported, resp.State)
	}
}

func TestHandler_CreateCase_Duplicate(t *testing.T) {
	h, e := newTestHandler()
	seedCase(t, h, "C-001")

	body := `{"case_no":"C-001","patient_name":"Someone Else","sex":"Female"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.CreateCase(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if kind := errorKind(t, rec); kind != "duplicate_case_no" {
		t.Errorf("expected duplicate_case_no, got %q", kind)
	}
}

func TestHandler_CreateCase_InvalidPayload(t *testing.T) {
	h, e := newTestHandler()
	body := `{"case_no":"","patient_name":"X","sex":"robot"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.CreateCase(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
	if kind := errorKind(t, rec); kind != "validation_failed" {
		t.Errorf("expected validation_failed, got %q", kind)
	}
}

func TestHandler_GetCase(t *testing.T) {
	h, e := newTestHandler()
	cr := seedCase(t, h, "C-002")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cr.ID.String())
	if err := h.GetCase(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetCase_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	if err := h.GetCase(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if kind := errorKind(t, rec); kind != "not_found" {
		t.Errorf("expected not_found, got %q", kind)
	}
}

func TestHandler_ListCases(t *testing.T) {
	h, e := newTestHandler()
	seedCase(t, h, "C-003")
	seedCase(t, h, "C-004")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.ListCases(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("expected total 2, got %d", resp.Total)
	}
}

func TestHandler_WriteReport(t *testing.T) {
	h, e := newTestHandler()
	cr := seedCase(t, h, "C-005")

	body := `{"findings":"Clear lung fields.","impression":"Normal chest."}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cr.ID.String())
	if err := h.WriteReport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var resp caseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != StateDrafted {
		t.Errorf("expected %q, got %q", StateDrafted, resp.State)
	}
}

func TestHandler_WriteReport_Locked(t *testing.T) {
	h, e := newTestHandler()
	cr := seedCase(t, h, "C-006")
	mustWriteReport(t, h.svc, cr.ID)
	mustValidate(t, h.svc, cr.ID)

	body := `{"findings":"New","impression":"New"}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cr.ID.String())
	if err := h.WriteReport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if kind := errorKind(t, rec); kind != "invalid_transition" {
		t.Errorf("expected invalid_transition, got %q", kind)
	}
}

func TestHandler_ValidateAndInvalidate(t *testing.T) {
	h, e := newTestHandler()
	cr := seedCase(t, h, "C-007")
	mustWriteReport(t, h.svc, cr.ID)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cr.ID.String())
	if err := h.Validate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cr.ID.String())
	if err := h.Invalidate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("invalidate: expected 200, got %d", rec.Code)
	}
	var resp caseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != StateDrafted {
		t.Errorf("expected %q, got %q", StateDrafted, resp.State)
	}
}

func TestHandler_Validate_Unreported(t *testing.T) {
	h, e := newTestHandler()
	cr := seedCase(t, h, "C-008")

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cr.ID.String())
	if err := h.Validate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestHandler_Download_Gated(t *testing.T) {
	h, e := newTestHandler()
	cr := seedCase(t, h, "C-009")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cr.ID.String())
	if err := h.Download(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("unvalidated download: expected 409, got %d", rec.Code)
	}

	mustWriteReport(t, h.svc, cr.ID)
	mustValidate(t, h.svc, cr.ID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cr.ID.String())
	if err := h.Download(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("validated download: expected 200, got %d", rec.Code)
	}
}

func TestHandler_UpdateCase(t *testing.T) {
	h, e := newTestHandler()
	cr := seedCase(t, h, "C-011")

	body := `{"case_no":"C-011","patient_name":"Maria Clara","sex":"Female"}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cr.ID.String())
	if err := h.UpdateCase(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var resp caseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PatientName != "Maria Clara" {
		t.Errorf("expected updated name, got %q", resp.PatientName)
	}
}

// failingCaseRepo simulates a broken storage backend: every write surfaces
// a raw driver error that must never reach a response body.
type failingCaseRepo struct {
	*mockCaseRepo
}

func (f *failingCaseRepo) Create(context.Context, *CaseRecord) error {
	return errStoreDown
}

func (f *failingCaseRepo) Update(context.Context, *CaseRecord) error {
	return errStoreDown
}

var errStoreDown = errors.New("pgx: connection refused host=10.0.0.5 dbname=radcase")

func TestHandler_CreateCase_StoreFailureIsGeneric500(t *testing.T) {
	h := NewHandler(NewService(&failingCaseRepo{newMockCaseRepo()}))
	e := echo.New()

	body := `{"case_no":"C-500","patient_name":"Juan dela Cruz","sex":"Male"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateCase(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if kind := errorKind(t, rec); kind != "internal" {
		t.Errorf("expected internal, got %q", kind)
	}
	if strings.Contains(rec.Body.String(), "pgx") || strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Errorf("store internals leaked: %s", rec.Body.String())
	}
}

func TestHandler_UpdateCase_StoreFailureIsGeneric500(t *testing.T) {
	repo := newMockCaseRepo()
	failing := &failingCaseRepo{repo}
	h := NewHandler(NewService(failing))
	e := echo.New()

	cr := newCase("C-501")
	if err := repo.Create(context.Background(), cr); err != nil {
		t.Fatalf("seed: %v", err)
	}

	body := `{"case_no":"C-501","patient_name":"Maria Clara","sex":"Female"}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cr.ID.String())

	if err := h.UpdateCase(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "pgx") {
		t.Errorf("store internals leaked: %s", rec.Body.String())
	}
}

func TestHandler_ListCases_CaseNoLookup(t *testing.T) {
	h, e := newTestHandler()
	seedCase(t, h, "C-070")
	seedCase(t, h, "C-071")

	req := httptest.NewRequest(http.MethodGet, "/?case_no=C-070", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.ListCases(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data  []caseResponse `json:"data"`
		Total int            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || len(resp.Data) != 1 || resp.Data[0].CaseNo != "C-070" {
		t.Errorf("unexpected lookup result: total=%d data=%+v", resp.Total, resp.Data)
	}

	req = httptest.NewRequest(http.MethodGet, "/?case_no=C-999", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	if err := h.ListCases(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 0 || len(resp.Data) != 0 {
		t.Errorf("expected empty page for unknown case_no, got total=%d", resp.Total)
	}
}

// Route-level check that the role gate holds: an RT session hitting the
// validate endpoint gets 403 and the record does not move.
func TestRoutes_RTCannotValidate(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)

	cr := newCase("C-060")
	if err := svc.CreateCase(context.Background(), cr, uuid.New()); err != nil {
		t.Fatalf("create: %v", err)
	}
	mustWriteReport(t, svc, cr.ID)

	e := echo.New()
	api := e.Group("/api/v1")
	api.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), auth.UserRoleKey, auth.RoleRT)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	h.RegisterRoutes(api)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases/"+cr.ID.String()+"/validate", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	reloaded, err := svc.GetCase(context.Background(), cr.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.State() != StateDrafted {
		t.Errorf("record must be unchanged, state %q", reloaded.State())
	}
}

func TestHandler_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	if err := h.GetCase(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
