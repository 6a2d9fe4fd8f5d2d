package sqlc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mb "github.com/saeidalz13/battleship-link/models/battleship"
	"github.com/sqlc-dev/pqtype"
)

var testIpNet = net.IPNet{IP: net.ParseIP("10.0.0.7"), Mask: net.CIDRMask(32, 32)}

func newTestDbManager(t *testing.T) (DbManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewDbManager(New(db), testIpNet), mock
}

func TestRecordMatch(t *testing.T) {
	dm, mock := newTestDbManager(t)
	peerIp := pqtype.Inet{IPNet: testIpNet, Valid: true}

	mock.ExpectExec(`INSERT INTO match_results \(game_uuid, role, outcome, hits_scored, hits_taken, peer_ip\)`).
		WithArgs("a1b2c3d4", mb.RoleHost, "win", int32(8), int32(5), peerIp).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	err := dm.Analytics.RecordMatch(ctx, mb.MatchResult{
		GameUuid:   "a1b2c3d4",
		Role:       mb.RoleHost,
		Outcome:    mb.StateWin,
		HitsScored: 8,
		HitsTaken:  5,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err = mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations were not met: %v", err)
	}
}

func TestMatchCounts(t *testing.T) {
	dm, mock := newTestDbManager(t)
	peerIp := pqtype.Inet{IPNet: testIpNet, Valid: true}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM match_results WHERE peer_ip = \$1 AND outcome = \$2`).
		WithArgs(peerIp, "win").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM match_results WHERE peer_ip = \$1 AND outcome = \$2`).
		WithArgs(peerIp, "loss").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM match_results WHERE peer_ip = \$1`).
		WithArgs(peerIp).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	ctx := context.Background()
	wins, err := dm.Analytics.GetWinCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	losses, err := dm.Analytics.GetLossCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	total, err := dm.Analytics.GetMatchCount(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if wins != 3 || losses != 2 || total != 5 {
		t.Fatalf("expected 3/2/5\tgot: %d/%d/%d", wins, losses, total)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations were not met: %v", err)
	}
}
