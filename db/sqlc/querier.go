package sqlc

import (
	"context"

	"github.com/sqlc-dev/pqtype"
)

type Querier interface {
	InsertMatchResult(ctx context.Context, arg InsertMatchResultParams) error
	CountMatchesByOutcome(ctx context.Context, arg CountMatchesByOutcomeParams) (int64, error)
	CountMatches(ctx context.Context, peerIp pqtype.Inet) (int64, error)
}

var _ Querier = (*Queries)(nil)
