package sqlc

import (
	"context"
	"net"

	mb "github.com/saeidalz13/battleship-link/models/battleship"
	"github.com/sqlc-dev/pqtype"
)

type AnalyticsManager struct {
	queries Querier
	peerIp  pqtype.Inet
}

func NewAnalyticsManager(queries Querier, ipnet net.IPNet) *AnalyticsManager {
	return &AnalyticsManager{
		queries: queries,
		peerIp:  pqtype.Inet{IPNet: ipnet, Valid: ipnet.IP != nil},
	}
}

func (a *AnalyticsManager) RecordMatch(ctx context.Context, result mb.MatchResult) error {
	return a.queries.InsertMatchResult(ctx, InsertMatchResultParams{
		GameUuid:   result.GameUuid,
		Role:       result.Role,
		Outcome:    result.Outcome.String(),
		HitsScored: int32(result.HitsScored),
		HitsTaken:  int32(result.HitsTaken),
		PeerIp:     a.peerIp,
	})
}

func (a *AnalyticsManager) GetMatchCount(ctx context.Context) (int64, error) {
	return a.queries.CountMatches(ctx, a.peerIp)
}

func (a *AnalyticsManager) GetWinCount(ctx context.Context) (int64, error) {
	return a.queries.CountMatchesByOutcome(ctx, CountMatchesByOutcomeParams{
		PeerIp:  a.peerIp,
		Outcome: mb.StateWin.String(),
	})
}

func (a *AnalyticsManager) GetLossCount(ctx context.Context) (int64, error) {
	return a.queries.CountMatchesByOutcome(ctx, CountMatchesByOutcomeParams{
		PeerIp:  a.peerIp,
		Outcome: mb.StateLoss.String(),
	})
}
