package directory

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"chatroom-service/internal/models"
)

// Directory joins profile rows with the live last-seen marker.
type Directory struct {
	users    UserRepository
	presence Presence
	log      *slog.Logger
}

// New constructs a Directory.
func New(users UserRepository, presence Presence, log *slog.Logger) *Directory {
	if presence == nil {
		presence = NoopPresence{}
	}
	return &Directory{users: users, presence: presence, log: log}
}

// Lookup returns the known users among ids keyed by id. A newer presence
// marker overrides the stored last_active.
func (d *Directory) Lookup(ctx context.Context, ids []int) (map[int]models.User, error) {
	ids = lo.Uniq(ids)
	users, err := d.users.BulkUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(users, func(u models.User) int { return u.ID })

	seen, err := d.presence.LastSeen(ctx, ids)
	if err != nil {
		d.log.Warn("presence lookup failed", "error", err)
		return byID, nil
	}
	for id, at := range seen {
		u, ok := byID[id]
		if !ok {
			continue
		}
		if u.LastActive == nil || at.After(*u.LastActive) {
			at := at
			u.LastActive = &at
			byID[id] = u
		}
	}
	return byID, nil
}

// Touch refreshes the user's last-seen marker. Failures are logged only.
func (d *Directory) Touch(ctx context.Context, userID int) {
	if err := d.presence.Touch(ctx, userID); err != nil {
		d.log.Warn("presence touch failed", "user_id", userID, "error", err)
	}
}
