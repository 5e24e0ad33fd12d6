package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/estately/estately-server/internal/domain"
	"github.com/estately/estately-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getModerationDashboard",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/dashboard",
		Summary:     "Moderation dashboard",
		Description: "Every listing with its seller profile, plus the dashboard counters (admin only)",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetDashboard)

	huma.Register(s.api, huma.Operation{
		OperationID: "setPropertyStatus",
		Method:      http.MethodPut,
		Path:        "/api/v1/admin/properties/{id}/status",
		Summary:     "Change listing status",
		Description: "Approves, rejects or returns a listing to review and returns the refreshed dashboard (admin only)",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSetPropertyStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "togglePropertyFeatured",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/properties/{id}/featured",
		Summary:     "Toggle featured",
		Description: "Features or unfeatures an available listing and returns the refreshed dashboard (admin only)",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleFeatured)
}

// === DTOs ===

// DashboardOutput wraps the moderation dashboard.
type DashboardOutput struct {
	Body *service.Dashboard
}

// SetStatusRequest is the requested moderation state.
type SetStatusRequest struct {
	Status string `json:"status" enum:"pending,available,rejected" doc:"New status"`
}

// SetStatusInput wraps a status change for huma.
type SetStatusInput struct {
	ID   string `path:"id" doc:"Property ID"`
	Body SetStatusRequest
}

// === Handlers ===

func (s *Server) handleGetDashboard(ctx context.Context, _ *struct{}) (*DashboardOutput, error) {
	dash, err := s.services.Moderation.Dashboard(ctx, currentUser(ctx))
	if err != nil {
		return nil, s.handlerError(err, "load dashboard failed")
	}
	return &DashboardOutput{Body: dash}, nil
}

func (s *Server) handleSetPropertyStatus(ctx context.Context, input *SetStatusInput) (*DashboardOutput, error) {
	dash, err := s.services.Moderation.SetStatus(ctx, currentUser(ctx), input.ID, domain.Status(input.Body.Status))
	if err != nil {
		return nil, s.handlerError(err, "status change failed", "property_id", input.ID)
	}
	return &DashboardOutput{Body: dash}, nil
}

func (s *Server) handleToggleFeatured(ctx context.Context, input *PropertyIDInput) (*DashboardOutput, error) {
	dash, err := s.services.Moderation.ToggleFeatured(ctx, currentUser(ctx), input.ID)
	if err != nil {
		return nil, s.handlerError(err, "featured toggle failed", "property_id", input.ID)
	}
	return &DashboardOutput{Body: dash}, nil
}
