package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/upb/catering-erp/middleware"
	"github.com/upb/catering-erp/services/rights"
	"github.com/upb/catering-erp/utils"
	"go.uber.org/zap"
)

// RightsService defines the rights queries exposed over HTTP
type RightsService interface {
	Menus(ctx context.Context, userID int64, sidebarOnly bool) ([]rights.MenuNode, error)
	Check(ctx context.Context, userID int64, req rights.Requirement) (bool, error)
}

// CheckResponse is the body of GET /api/v1/rights/check
type CheckResponse struct {
	Allowed bool `json:"allowed"`
}

// RightsHandler handles rights-related HTTP requests
type RightsHandler struct {
	service RightsService
	logger  *zap.Logger
}

// NewRightsHandler creates a new RightsHandler
func NewRightsHandler(service RightsService, logger *zap.Logger) *RightsHandler {
	return &RightsHandler{
		service: service,
		logger:  logger,
	}
}

// HandleMenus handles GET /api/v1/rights/menus
func (h *RightsHandler) HandleMenus(w http.ResponseWriter, r *http.Request) {
	h.menus(w, r, false)
}

// HandleSidebar handles GET /api/v1/rights/sidebar
func (h *RightsHandler) HandleSidebar(w http.ResponseWriter, r *http.Request) {
	h.menus(w, r, true)
}

func (h *RightsHandler) menus(w http.ResponseWriter, r *http.Request, sidebarOnly bool) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	nodes, err := h.service.Menus(ctx, principal.UserID(), sidebarOnly)
	if err != nil {
		h.logger.Error("failed to load menus",
			zap.String("request_id", requestID),
			zap.Int64("user_id", principal.UserID()),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	_ = utils.WriteOK(w, "", nodes)
}

// HandleCheck handles GET /api/v1/rights/check?capability=a,b&modes=add,edit&matchAll=true&checkAll=false
func (h *RightsHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	q := r.URL.Query()
	capabilities := splitList(q.Get("capability"))
	if len(capabilities) == 0 {
		_ = utils.WriteBadRequest(w, "capability is required", nil)
		return
	}

	modes, err := rights.ParseModes(q.Get("modes"))
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	matchAll, err := parseBool(q.Get("matchAll"), true)
	if err != nil {
		_ = utils.WriteBadRequest(w, "matchAll must be a boolean", nil)
		return
	}
	checkAll, err := parseBool(q.Get("checkAll"), false)
	if err != nil {
		_ = utils.WriteBadRequest(w, "checkAll must be a boolean", nil)
		return
	}

	req := rights.Requirement{
		Capabilities:  capabilities,
		Modes:         modes,
		MatchAllModes: matchAll,
		CheckAll:      checkAll,
	}

	allowed, err := h.service.Check(ctx, principal.UserID(), req)
	if err != nil {
		h.logger.Error("failed to check rights",
			zap.String("request_id", requestID),
			zap.Int64("user_id", principal.UserID()),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	_ = utils.WriteOK(w, "", CheckResponse{Allowed: allowed})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseBool(s)
}
