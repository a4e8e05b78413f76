package identity

import (
	"encoding/json"
	"net/http"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/algostatus/statuspage/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the identity module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new identity handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// Login handles POST /login. It is registered by the caller so it can carry its own rate limit.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	token, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, LoginResponse{Message: "Login successful", Token: token})
}

// RegisterAdminRoutes registers user management routes.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.ListUsers)
	r.Post("/new", h.CreateUser)
	r.Get("/{id}", h.GetUser)
	r.Delete("/{id}", h.DeleteUser)
}

// CreateUserRequest represents the request body for adding a team member.
type CreateUserRequest struct {
	Email              string `json:"email" validate:"required,email"`
	Password           string `json:"password" validate:"required"`
	AssociatedServices string `json:"associatedServices" validate:"required"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// DeleteUserResponse is returned by DELETE /{id}.
type DeleteUserResponse struct {
	Message     string       `json:"message"`
	DeletedUser *domain.User `json:"deletedUser"`
}

// ListUsers handles GET /.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, users)
}

// GetUser handles GET /{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, user)
}

// CreateUser handles POST /new.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, err := h.service.CreateUser(r.Context(), CreateUserInput(req))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, user)
}

// DeleteUser handles DELETE /{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, DeleteUserResponse{
		Message:     "User deleted successfully",
		DeletedUser: user,
	})
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrUserNotFound, Status: http.StatusNotFound, Message: "User not found"},
	{Error: ErrEmailExists, Status: http.StatusBadRequest, Message: "Email already exists"},
	{Error: ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "Invalid credentials"},
	{Error: ErrMissingFields, Status: http.StatusBadRequest, Message: "Missing required fields"},
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, errorMappings)
}
