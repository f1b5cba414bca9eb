package rights

import (
	"fmt"
	"strings"

	"github.com/upb/catering-erp/models"
)

// Mode is one action a grant may permit on a capability
type Mode string

const (
	ModeView   Mode = "view"
	ModeAdd    Mode = "add"
	ModeEdit   Mode = "edit"
	ModeDelete Mode = "delete"
	ModePrint  Mode = "print"
)

// ParseMode parses a mode name, case-insensitively
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeView, ModeAdd, ModeEdit, ModeDelete, ModePrint:
		return m, nil
	default:
		return "", fmt.Errorf("unknown rights mode %q", s)
	}
}

// ParseModes parses a comma separated list such as "add,edit"
func ParseModes(s string) ([]Mode, error) {
	var modes []Mode
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		m, err := ParseMode(part)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

// Allows reports whether grant permits mode. Without view nothing is
// permitted.
func Allows(grant *models.RightsGrant, mode Mode) bool {
	if grant == nil || !grant.CanView {
		return false
	}
	switch mode {
	case ModeView:
		return true
	case ModeAdd:
		return grant.CanAdd
	case ModeEdit:
		return grant.CanEdit
	case ModeDelete:
		return grant.CanDelete
	case ModePrint:
		return grant.CanPrint
	default:
		return false
	}
}

// AllowsModes evaluates modes against grant. An empty list means view.
func AllowsModes(grant *models.RightsGrant, modes []Mode, matchAll bool) bool {
	if len(modes) == 0 {
		return Allows(grant, ModeView)
	}
	for _, m := range modes {
		ok := Allows(grant, m)
		if matchAll && !ok {
			return false
		}
		if !matchAll && ok {
			return true
		}
	}
	return matchAll
}
