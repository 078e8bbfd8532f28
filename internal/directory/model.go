// Package directory indexes identities to the CID of their current payload so
// logins do not have to scan the content store.
package directory

import (
	"errors"
	"strings"
	"time"

	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

// ErrNotFound is returned when no entry exists for an identity and role.
var ErrNotFound = errors.New("directory entry not found")

// Entry maps one identity in one role to its payload.
type Entry struct {
	Address     wallet.Address
	Role        registry.Role
	ContentHash string
	DisplayName string
	Email       string
	UpdatedAt   time.Time
}

func lower(addr wallet.Address) string {
	return strings.ToLower(addr.String())
}
