package activity

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/familyhub/subscription-api/internal/core"
	"github.com/familyhub/subscription-api/internal/metrics"
)

// Sweep contains activities that reconcile subscription state against
// expiration timestamps.
type Sweep struct {
	sweeper *core.SweeperService
}

// NewSweep creates a new Sweep activity struct.
func NewSweep(db core.DB, tables []string, logger zerolog.Logger) *Sweep {
	return &Sweep{sweeper: core.NewSweeperService(db, tables, logger)}
}

// SweepExpiredSubscriptions transitions every overdue active subscription to
// expired and returns the number of records updated.
func (a *Sweep) SweepExpiredSubscriptions(ctx context.Context) (int, error) {
	expired, err := a.sweeper.SweepAll(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	metrics.RecordExpired(expired)
	return expired, nil
}

// SweepUserSubscription runs the expiration check for a single user.
func (a *Sweep) SweepUserSubscription(ctx context.Context, userID string) error {
	return a.sweeper.SweepOne(ctx, userID, time.Now())
}
