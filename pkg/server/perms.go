package server

import (
	"github.com/duskhollow/comlink/pkg/chat"
	"github.com/duskhollow/comlink/pkg/prefstore"
)

// Perms answers capability checks from stored accounts. An explicit
// capability grant always passes; otherwise the account's numeric level
// must meet the fallback threshold for the check.
type Perms struct {
	store *prefstore.Store
}

// NewPerms creates a permission source over the account store.
func NewPerms(store *prefstore.Store) *Perms {
	return &Perms{store: store}
}

// HasPermission implements chat.PermissionSource.
func (p *Perms) HasPermission(id chat.PlayerID, capability string, fallbackLevel int) bool {
	a, err := p.store.GetAccount(string(id))
	if err != nil {
		return false
	}
	if a.HasCap(capability) {
		return true
	}
	return a.Level >= fallbackLevel
}

// IsAdmin reports whether the player may use moderation commands.
func (p *Perms) IsAdmin(id chat.PlayerID) bool {
	a, err := p.store.GetAccount(string(id))
	if err != nil {
		return false
	}
	return a.HasCap("admin") || a.Level >= chat.PermLevelAdmin
}
