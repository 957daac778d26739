package auth

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

// AdminChecker decides who may control the bot. Only the configured administrator is allowed.
type AdminChecker struct {
	adminID int64
}

// NewAdminChecker creates a new AdminChecker.
// It requires a non-zero administrator user ID.
func NewAdminChecker(adminID int64) (*AdminChecker, error) {
	if adminID == 0 {
		return nil, fmt.Errorf("admin user ID cannot be zero")
	}
	return &AdminChecker{adminID: adminID}, nil
}

// AdminID returns the administrator's user ID, which is also the chat the bot reports to.
func (ac *AdminChecker) AdminID() int64 {
	return ac.adminID
}

// IsAdmin reports whether userID is the administrator.
func (ac *AdminChecker) IsAdmin(_ context.Context, userID int64) (bool, error) {
	if userID != ac.adminID {
		log.Debugf("[AdminCheck User:%d] Not the administrator", userID)
		return false, nil
	}
	return true, nil
}
