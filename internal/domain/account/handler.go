package account

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/radcase/radcase/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public auth endpoints on root and the
// session-guarded identity endpoint on the authenticated group.
func (h *Handler) RegisterRoutes(public *echo.Group, authed *echo.Group) {
	public.POST("/auth/signup", h.SignUp)
	public.POST("/auth/login", h.Login)
	authed.GET("/auth/me", h.Me)
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r signUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
		validation.Field(&r.Role, validation.Required, validation.In(auth.RoleRT, auth.RoleRadiologist)),
	)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "validation_failed", "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return errorJSON(c, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	u, err := h.svc.SignUp(c.Request().Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			return errorJSON(c, http.StatusConflict, "duplicate_email", "email is already registered")
		case errors.Is(err, ErrInvalidRole):
			return errorJSON(c, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		default:
			return errorJSON(c, http.StatusInternalServerError, "internal", "failed to create account")
		}
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "validation_failed", "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return errorJSON(c, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	u, token, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return errorJSON(c, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		}
		return errorJSON(c, http.StatusInternalServerError, "internal", "failed to log in")
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, User: u})
}

// Me returns the account behind the current session, re-read from storage so
// the response reflects the row rather than the token snapshot.
func (h *Handler) Me(c echo.Context) error {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, "invalid_session", "invalid or expired session")
	}

	u, err := h.svc.GetUser(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return errorJSON(c, http.StatusUnauthorized, "invalid_session", "invalid or expired session")
		}
		return errorJSON(c, http.StatusInternalServerError, "internal", "failed to load account")
	}
	return c.JSON(http.StatusOK, u)
}

func errorJSON(c echo.Context, status int, kind, message string) error {
	return c.JSON(status, map[string]string{"error": kind, "message": message})
}
