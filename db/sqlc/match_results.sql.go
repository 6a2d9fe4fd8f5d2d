package sqlc

import (
	"context"

	"github.com/sqlc-dev/pqtype"
)

const insertMatchResult = `INSERT INTO match_results (game_uuid, role, outcome, hits_scored, hits_taken, peer_ip)
VALUES ($1, $2, $3, $4, $5, $6)`

type InsertMatchResultParams struct {
	GameUuid   string
	Role       string
	Outcome    string
	HitsScored int32
	HitsTaken  int32
	PeerIp     pqtype.Inet
}

func (q *Queries) InsertMatchResult(ctx context.Context, arg InsertMatchResultParams) error {
	_, err := q.db.ExecContext(ctx, insertMatchResult,
		arg.GameUuid,
		arg.Role,
		arg.Outcome,
		arg.HitsScored,
		arg.HitsTaken,
		arg.PeerIp,
	)
	return err
}

const countMatchesByOutcome = `SELECT COUNT(*) FROM match_results WHERE peer_ip = $1 AND outcome = $2`

type CountMatchesByOutcomeParams struct {
	PeerIp  pqtype.Inet
	Outcome string
}

func (q *Queries) CountMatchesByOutcome(ctx context.Context, arg CountMatchesByOutcomeParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countMatchesByOutcome, arg.PeerIp, arg.Outcome)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countMatches = `SELECT COUNT(*) FROM match_results WHERE peer_ip = $1`

func (q *Queries) CountMatches(ctx context.Context, peerIp pqtype.Inet) (int64, error) {
	row := q.db.QueryRowContext(ctx, countMatches, peerIp)
	var count int64
	err := row.Scan(&count)
	return count, err
}
