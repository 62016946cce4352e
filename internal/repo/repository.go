package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/davprobe/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Ports (interfaces): the watch loop and the API only talk to these.
type TargetStore interface {
	Add(ctx context.Context, t *domain.Target) error
	List(ctx context.Context) ([]*domain.Target, error)
	Get(ctx context.Context, id domain.TargetID) (*domain.Target, error)
}

type ResultStore interface {
	Append(ctx context.Context, r *domain.CheckResult) error
	Latest(ctx context.Context) ([]LatestRow, error)
	History(ctx context.Context, id domain.TargetID, limit int) ([]domain.CheckResult, error)
}

// LatestRow is the most recent result of a target joined with the target.
type LatestRow struct {
	Target domain.Target      `json:"target"`
	Result domain.CheckResult `json:"result"`
}
