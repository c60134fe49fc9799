package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bingoclub/bingo-api/internal/pkg/database"
)

func newMockRepository(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return NewRepository(database.NewTxRunner(sqlx.NewDb(mockDB, "postgres"), time.Second)), mock
}

func expectGameLock(mock sqlmock.Sqlmock, gameID uuid.UUID, status string, round int) {
	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status, current_round FROM games WHERE id = \$1 FOR SHARE`).
		WithArgs(gameID).
		WillReturnRows(sqlmock.NewRows([]string{"status", "current_round"}).AddRow(status, round))
}

func TestInsertWinnerMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockRepository(t)
	gameID := uuid.New()

	expectGameLock(mock, gameID, "active", 1)
	mock.ExpectQuery(`INSERT INTO game_winners`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: constraintPrizeWinner})
	mock.ExpectRollback()

	err := repo.InsertWinner(context.Background(), &Winner{ID: uuid.New(), GameID: gameID, PrizeID: uuid.New(), RoundNumber: 1})
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertWinnerRejectsFinishedGame(t *testing.T) {
	repo, mock := newMockRepository(t)
	gameID := uuid.New()

	expectGameLock(mock, gameID, "finished", 1)
	mock.ExpectRollback()

	err := repo.InsertWinner(context.Background(), &Winner{ID: uuid.New(), GameID: gameID, PrizeID: uuid.New(), RoundNumber: 1})
	if !errors.Is(err, ErrGameNotActive) {
		t.Fatalf("expected ErrGameNotActive, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertDrawMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockRepository(t)
	gameID := uuid.New()

	expectGameLock(mock, gameID, "active", 1)
	mock.ExpectQuery(`INSERT INTO game_draws`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: constraintDraw})
	mock.ExpectRollback()

	err := repo.InsertDraw(context.Background(), &Draw{ID: uuid.New(), GameID: gameID, RoundNumber: 1, Number: 7})
	if !errors.Is(err, errDuplicateDraw) {
		t.Fatalf("expected errDuplicateDraw, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertDrawRejectsClosedRound(t *testing.T) {
	repo, mock := newMockRepository(t)
	gameID := uuid.New()

	expectGameLock(mock, gameID, "active", 2)
	mock.ExpectRollback()

	err := repo.InsertDraw(context.Background(), &Draw{ID: uuid.New(), GameID: gameID, RoundNumber: 1, Number: 7})
	if !errors.Is(err, ErrRoundClosed) {
		t.Fatalf("expected ErrRoundClosed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertDrawCommitsInActiveRound(t *testing.T) {
	repo, mock := newMockRepository(t)
	gameID := uuid.New()

	expectGameLock(mock, gameID, "active", 1)
	mock.ExpectQuery(`INSERT INTO game_draws`).
		WillReturnRows(sqlmock.NewRows([]string{"seq", "created_at"}).AddRow(int64(1), time.Now()))
	mock.ExpectCommit()

	d := &Draw{ID: uuid.New(), GameID: gameID, RoundNumber: 1, Number: 7}
	if err := repo.InsertDraw(context.Background(), d); err != nil {
		t.Fatalf("insert draw: %v", err)
	}
	if d.Seq != 1 {
		t.Fatalf("expected seq 1, got %d", d.Seq)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionStatusIsConditional(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE games\s+SET status = \$1::varchar`).
		WithArgs("active", id, "waiting").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.TransitionStatus(context.Background(), id, StatusWaiting, StatusActive)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAddPlayerRespectsSeatLimit(t *testing.T) {
	repo, mock := newMockRepository(t)
	gameID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM games WHERE id = \$1 FOR UPDATE`).
		WithArgs(gameID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("waiting"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM game_players`).
		WithArgs(gameID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	p := &Player{ID: uuid.New(), GameID: gameID, UserID: uuid.New()}
	c := &Card{ID: uuid.New(), GameID: gameID, PlayerID: p.ID}
	if err := repo.AddPlayer(context.Background(), p, c, 2); !errors.Is(err, ErrGameFull) {
		t.Fatalf("expected ErrGameFull, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateGameRollsBackWhenChargeFails(t *testing.T) {
	repo, mock := newMockRepository(t)
	chargeErr := errors.New("insufficient")

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO games`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))
	mock.ExpectRollback()

	g := &Game{ID: uuid.New(), Status: StatusDraft, DrawMode: DrawModeManual, CurrentRound: 1, MaxRounds: 1, InviteCode: "ABCDEFGH"}
	err := repo.CreateGame(context.Background(), g, func(ctx context.Context, tx *sqlx.Tx) error { return chargeErr })
	if !errors.Is(err, chargeErr) {
		t.Fatalf("expected charge error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
