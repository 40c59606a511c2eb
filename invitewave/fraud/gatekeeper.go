package fraud

import (
	"context"
	"log/slog"

	"github.com/hyewave/invitewave/invitewave/database/repositories"
)

// Gatekeeper is the single ban check consulted at the entry point of
// every user-facing mutating flow. A banned claimant is shadow-banned:
// callers that get Allowed == false respond exactly as if the action
// succeeded while writing nothing, so the ban cannot be probed.
type Gatekeeper struct {
	claimants repositories.ClaimantRepository
}

func NewGatekeeper(claimants repositories.ClaimantRepository) *Gatekeeper {
	return &Gatekeeper{claimants: claimants}
}

// Allowed reports whether real state mutation may proceed. Unknown
// claimants are allowed; lookup failures fail open with a log, since
// blocking everyone on a store hiccup is worse than one ban slipping.
func (g *Gatekeeper) Allowed(ctx context.Context, claimantID string) bool {
	claimant, err := g.claimants.GetByID(ctx, claimantID)
	if err != nil {
		if !repositories.IsNotFound(err) {
			slog.Warn("Gatekeeper lookup failed, allowing",
				slog.String("claimant_id", claimantID),
				slog.Any("error", err))
		}
		return true
	}

	if claimant.Banned {
		slog.Info("Shadow-banned claimant action simulated",
			slog.String("claimant_id", claimantID))
		return false
	}
	return true
}
