package repo

import (
	"context"
	"time"

	"github.com/hamed0406/davprobe/internal/domain"
)

// AlertRecord holds the last status we saw for a target and the last time a
// notification went out for it (used for cooldown).
type AlertRecord struct {
	TargetID   domain.TargetID
	LastStatus string
	LastSentAt *time.Time
}

// AlertStore is implemented by a persistence layer to store alert state.
type AlertStore interface {
	// Get returns nil, nil if there's no record yet.
	Get(ctx context.Context, id domain.TargetID) (*AlertRecord, error)
	// Set upserts the record. A zero sentAt keeps LastSentAt nil.
	Set(ctx context.Context, id domain.TargetID, status string, sentAt time.Time) error
}
