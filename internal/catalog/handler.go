// Package catalog manages the services shown on the status page.
package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/algostatus/statuspage/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the catalog module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterPublicRoutes registers read-only routes.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/getServices", h.ListServices)
	r.Get("/getServices/{id}", h.GetService)
}

// RegisterAdminRoutes registers routes that modify services.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/services", h.CreateService)
	r.Put("/services/{id}", h.UpdateService)
	r.Delete("/deleteService/{id}", h.DeleteService)
}

// CreateServiceRequest represents the request body for creating a service.
type CreateServiceRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
	Status      string `json:"status"`
}

// UpdateServiceRequest represents the request body for updating a service.
// Omitted fields keep their current value.
type UpdateServiceRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// DeleteServiceResponse is returned by DELETE /deleteService/{id}.
type DeleteServiceResponse struct {
	Message        string          `json:"message"`
	DeletedService *domain.Service `json:"deletedService"`
}

// ListServices handles GET /getServices.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.ListServices(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, services)
}

// GetService handles GET /getServices/{id}.
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	service, err := h.service.GetService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, service)
}

// CreateService handles POST /services.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	service, err := h.service.CreateService(r.Context(), CreateServiceInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      domain.ServiceStatus(req.Status),
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, service)
}

// UpdateService handles PUT /services/{id}.
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var req UpdateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input := UpdateServiceInput{Name: req.Name, Description: req.Description}
	if req.Status != nil {
		status := domain.ServiceStatus(*req.Status)
		input.Status = &status
	}

	service, err := h.service.UpdateService(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, service)
}

// DeleteService handles DELETE /deleteService/{id}.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	service, err := h.service.DeleteService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, DeleteServiceResponse{
		Message:        "Service deleted successfully",
		DeletedService: service,
	})
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrServiceNotFound, Status: http.StatusNotFound, Message: "Service not found"},
	{Error: ErrServiceNameExists, Status: http.StatusBadRequest, Message: "Service name must be unique"},
	{Error: ErrMissingFields, Status: http.StatusBadRequest, Message: "Name and description are required"},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest, Message: "Invalid service status"},
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, errorMappings)
}
