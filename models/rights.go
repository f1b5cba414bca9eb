package models

// RightsGrant is one row of the per-user rights table. Main capabilities have
// no parent; sub capabilities point at their main capability.
type RightsGrant struct {
	UserID        int64  `json:"user_id" db:"user_id"`
	CapabilityID  int64  `json:"capability_id" db:"capability_id"`
	CapabilityKey string `json:"capability_key" db:"capability_key"`
	Label         string `json:"label" db:"label"`
	ParentID      *int64 `json:"parent_id,omitempty" db:"parent_id"`
	Sidebar       bool   `json:"sidebar" db:"sidebar"`
	SortOrder     int    `json:"sort_order" db:"sort_order"`
	CanView       bool   `json:"can_view" db:"can_view"`
	CanAdd        bool   `json:"can_add" db:"can_add"`
	CanEdit       bool   `json:"can_edit" db:"can_edit"`
	CanDelete     bool   `json:"can_delete" db:"can_delete"`
	CanPrint      bool   `json:"can_print" db:"can_print"`
}

// TableName returns the table name for the RightsGrant model
func (RightsGrant) TableName() string {
	return "user_rights"
}

// IsMain reports whether the grant is a top-level capability
func (g *RightsGrant) IsMain() bool {
	return g.ParentID == nil
}
