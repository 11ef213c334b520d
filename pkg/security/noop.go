package security

import (
	"context"

	"github.com/google/uuid"
)

// Noop is the documented "unavailable" state of the collaborator:
// events vanish and every user carries a neutral risk score. Used when
// no collaborator is configured and in tests.
type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) SubmitEvent(ctx context.Context, event Event) error { return nil }

func (Noop) GetUserRiskScore(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}

var _ Client = Noop{}
