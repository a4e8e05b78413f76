// Package incidents records incidents and maintenance windows and keeps the
// status of the affected service in step with them.
package incidents

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/algostatus/statuspage/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for incidents.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterPublicRoutes registers read-only routes.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/incidents", h.ListIncidents)
	r.Get("/incidents/{id}", h.GetIncident)
}

// RegisterStaffRoutes registers routes that modify incidents.
// They expect an authenticated principal in the request context.
func (h *Handler) RegisterStaffRoutes(r chi.Router) {
	r.Post("/", h.CreateIncident)
	r.Put("/{id}", h.UpdateIncident)
	r.Delete("/deleteIncident/{id}", h.DeleteIncident)
}

// CreateIncidentRequest represents the request body for creating an incident.
type CreateIncidentRequest struct {
	ServiceName     string `json:"serviceName" validate:"required"`
	Type            string `json:"type" validate:"required"`
	Description     string `json:"description" validate:"required"`
	Status          string `json:"status"`
	ImpactOnService string `json:"impactOnService" validate:"required"`
}

// UpdateIncidentRequest represents the request body for updating an incident.
type UpdateIncidentRequest struct {
	Status          *string    `json:"status"`
	ImpactOnService *string    `json:"impactOnService"`
	ResolvedAt      *time.Time `json:"resolvedAt"`
}

// DeleteIncidentResponse is returned by DELETE /deleteIncident/{id}.
type DeleteIncidentResponse struct {
	Message         string           `json:"message"`
	DeletedIncident *domain.Incident `json:"deletedIncident"`
}

// ListIncidents handles GET /incidents.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	incidents, err := h.service.ListIncidents(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, incidents)
}

// GetIncident handles GET /incidents/{id}.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := h.service.GetIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, incident)
}

// CreateIncident handles POST /.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.CreateIncident(r.Context(), httputil.GetPrincipal(r.Context()), CreateIncidentInput{
		ServiceName:     req.ServiceName,
		Type:            domain.IncidentType(req.Type),
		Description:     req.Description,
		Status:          domain.IncidentStatus(req.Status),
		ImpactOnService: domain.Impact(req.ImpactOnService),
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, incident)
}

// UpdateIncident handles PUT /{id}.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	var req UpdateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	input := UpdateIncidentInput{ResolvedAt: req.ResolvedAt}
	if req.Status != nil {
		status := domain.IncidentStatus(*req.Status)
		input.Status = &status
	}
	if req.ImpactOnService != nil {
		impact := domain.Impact(*req.ImpactOnService)
		input.ImpactOnService = &impact
	}

	incident, err := h.service.UpdateIncident(r.Context(), httputil.GetPrincipal(r.Context()), chi.URLParam(r, "id"), input)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, incident)
}

// DeleteIncident handles DELETE /deleteIncident/{id}.
func (h *Handler) DeleteIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := h.service.DeleteIncident(r.Context(), httputil.GetPrincipal(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, DeleteIncidentResponse{
		Message:         "Incident deleted successfully",
		DeletedIncident: incident,
	})
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound, Message: "Incident not found"},
	{Error: ErrMissingFields, Status: http.StatusBadRequest, Message: "Missing required fields"},
	{Error: ErrInvalidType, Status: http.StatusBadRequest},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
	{Error: ErrInvalidImpact, Status: http.StatusBadRequest},
	{Error: ErrDescriptionTooShort, Status: http.StatusBadRequest},
	{Error: ErrForbidden, Status: http.StatusForbidden},
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, errorMappings)
}
