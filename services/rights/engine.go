package rights

import (
	"context"
	"fmt"

	"github.com/upb/catering-erp/models"
	"github.com/upb/catering-erp/repositories"
	"github.com/upb/catering-erp/tenant"
	"go.uber.org/zap"
)

// Requirement describes the rights a guarded operation needs. Each listed
// capability is checked with Modes (all of them when MatchAllModes is set,
// any otherwise); across capabilities CheckAll demands every one, otherwise
// one suffices.
type Requirement struct {
	Capabilities  []string
	Modes         []Mode
	MatchAllModes bool
	CheckAll      bool
}

// Require builds a Requirement on capabilities with view access
func Require(capabilities ...string) Requirement {
	return Requirement{Capabilities: capabilities, Modes: []Mode{ModeView}, MatchAllModes: true}
}

// WithModes returns r requiring modes on each capability
func (r Requirement) WithModes(matchAll bool, modes ...Mode) Requirement {
	r.Modes = modes
	r.MatchAllModes = matchAll
	return r
}

// All returns r with every capability required
func (r Requirement) All() Requirement {
	r.CheckAll = true
	return r
}

// Permissions are the modes granted on a capability
type Permissions struct {
	View   bool `json:"view"`
	Add    bool `json:"add"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
	Print  bool `json:"print"`
}

// MenuNode is one capability in the two-level menu tree
type MenuNode struct {
	ID          int64       `json:"id"`
	Key         string      `json:"key"`
	Label       string      `json:"label"`
	Sidebar     bool        `json:"sidebar"`
	SortOrder   int         `json:"sortOrder"`
	Permissions Permissions `json:"permissions"`
	Children    []MenuNode  `json:"children,omitempty"`
}

// Engine answers rights questions for the tenant bound to the context
type Engine struct {
	repo   repositories.RightsRepository
	cache  *GrantCache
	logger *zap.Logger
}

// NewEngine creates a new Engine. cache may be nil to disable caching.
func NewEngine(repo repositories.RightsRepository, cache *GrantCache, logger *zap.Logger) *Engine {
	return &Engine{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// CheckCapability reports whether userID holds modes on capabilityKey.
// A missing grant or one without view is always denied.
func (e *Engine) CheckCapability(ctx context.Context, userID int64, capabilityKey string, modes []Mode, matchAll bool) (bool, error) {
	grant, err := e.grant(ctx, userID, capabilityKey)
	if err != nil {
		return false, err
	}
	return AllowsModes(grant, modes, matchAll), nil
}

// Check evaluates req for userID. An empty capability list is satisfied.
func (e *Engine) Check(ctx context.Context, userID int64, req Requirement) (bool, error) {
	if len(req.Capabilities) == 0 {
		return true, nil
	}

	for _, key := range req.Capabilities {
		ok, err := e.CheckCapability(ctx, userID, key, req.Modes, req.MatchAllModes)
		if err != nil {
			return false, err
		}
		if req.CheckAll && !ok {
			e.logger.Debug("rights check denied",
				zap.Int64("user_id", userID),
				zap.String("capability", key))
			return false, nil
		}
		if !req.CheckAll && ok {
			return true, nil
		}
	}

	if !req.CheckAll {
		e.logger.Debug("rights check denied",
			zap.Int64("user_id", userID),
			zap.Strings("capabilities", req.Capabilities))
	}
	return req.CheckAll, nil
}

// Menus returns the user's viewable capabilities as main entries with their
// sub entries. sidebarOnly restricts main entries to sidebar ones.
func (e *Engine) Menus(ctx context.Context, userID int64, sidebarOnly bool) ([]MenuNode, error) {
	mains, err := e.repo.MainCapabilities(ctx, userID, sidebarOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to load main capabilities: %w", err)
	}

	nodes := make([]MenuNode, 0, len(mains))
	for _, main := range mains {
		if !main.CanView || (sidebarOnly && !main.Sidebar) {
			continue
		}

		subs, err := e.repo.SubCapabilities(ctx, userID, main.CapabilityID)
		if err != nil {
			return nil, fmt.Errorf("failed to load sub capabilities of %s: %w", main.CapabilityKey, err)
		}

		node := newMenuNode(main)
		for _, sub := range subs {
			if !sub.CanView {
				continue
			}
			node.Children = append(node.Children, newMenuNode(sub))
		}
		nodes = append(nodes, node)
	}

	return nodes, nil
}

// InvalidateUser drops cached grants of userID in the tenant bound to ctx
func (e *Engine) InvalidateUser(ctx context.Context, userID int64) {
	if e.cache == nil {
		return
	}
	tc := tenant.FromContext(ctx)
	n := e.cache.InvalidateUser(tc.TenantID, userID)
	e.logger.Debug("rights cache invalidated",
		zap.Int64("tenant_id", tc.TenantID),
		zap.Int64("user_id", userID),
		zap.Int("entries", n))
}

// CacheStats returns grant cache statistics
func (e *Engine) CacheStats() CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.Stats()
}

func (e *Engine) grant(ctx context.Context, userID int64, capabilityKey string) (*models.RightsGrant, error) {
	key := CacheKey{
		TenantID:      tenant.FromContext(ctx).TenantID,
		UserID:        userID,
		CapabilityKey: capabilityKey,
	}

	if e.cache != nil {
		if g, ok := e.cache.Get(key); ok {
			return g, nil
		}
	}

	g, err := e.repo.GetGrant(ctx, userID, capabilityKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load grant %s: %w", capabilityKey, err)
	}

	if e.cache != nil {
		e.cache.Set(key, g)
	}
	return g, nil
}

func newMenuNode(g *models.RightsGrant) MenuNode {
	return MenuNode{
		ID:        g.CapabilityID,
		Key:       g.CapabilityKey,
		Label:     g.Label,
		Sidebar:   g.Sidebar,
		SortOrder: g.SortOrder,
		Permissions: Permissions{
			View:   g.CanView,
			Add:    g.CanAdd,
			Edit:   g.CanEdit,
			Delete: g.CanDelete,
			Print:  g.CanPrint,
		},
	}
}
