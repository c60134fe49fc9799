package giftcard

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bingoclub/bingo-api/internal/domain/ledger"
	"github.com/bingoclub/bingo-api/internal/domain/notification"
	"github.com/bingoclub/bingo-api/internal/pkg/database"
)

const (
	getByCodeQuery  = `FROM gift_cards WHERE code = \$1$`
	lockByCodeQuery = `FROM gift_cards WHERE code = \$1 FOR UPDATE`
	lockByIDQuery   = `FROM gift_cards WHERE id = \$1 FOR UPDATE`
)

var cardColumnNames = []string{"id", "code", "credit_value", "status", "expires_at", "redeemed_by_user_id", "redeemed_at", "created_by", "created_at", "updated_at"}

// fakeLedger records credits instead of touching wallet tables.
type fakeLedger struct {
	mu      sync.Mutex
	credits map[uuid.UUID]int64
	balance int64
}

func (f *fakeLedger) CreditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, description string, source ledger.Source) (*ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.credits == nil {
		f.credits = make(map[uuid.UUID]int64)
	}
	f.credits[userID] += amount
	f.balance += amount
	return &ledger.Transaction{ID: uuid.New(), Type: ledger.TxTypeCredit, Amount: amount, BalanceAfter: f.balance}, nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockService(t *testing.T) (*Service, *fakeLedger, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	led := &fakeLedger{}
	svc := NewService(NewRepository(db), database.NewTxRunner(db, time.Second), led, notification.NewService(nil))
	svc.now = func() time.Time { return testNow }
	return svc, led, mock
}

func cardRow(id uuid.UUID, code string, value int64, status Status, expiresAt interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(cardColumnNames).
		AddRow(id.String(), code, value, string(status), expiresAt, nil, nil, nil, testNow, testNow)
}

func TestRedeemTwiceCreditsOnce(t *testing.T) {
	svc, led, mock := newMockService(t)
	userID, cardID := uuid.New(), uuid.New()
	const code = "ABCD-EFGH-JKMN"

	mock.ExpectQuery(getByCodeQuery).WithArgs(code).
		WillReturnRows(cardRow(cardID, code, 250, StatusActive, nil))
	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockByCodeQuery).WithArgs(code).
		WillReturnRows(cardRow(cardID, code, 250, StatusActive, nil))
	mock.ExpectExec(`UPDATE gift_cards\s+SET status = 'redeemed'`).
		WithArgs(userID, testNow, cardID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO gift_card_redemptions`).
		WithArgs(sqlmock.AnyArg(), cardID, userID, sqlmock.AnyArg(), "10.0.0.1", "test-agent").
		WillReturnRows(sqlmock.NewRows([]string{"redeemed_at"}).AddRow(testNow))
	mock.ExpectCommit()

	// second attempt sees the redeemed row and never opens a transaction
	mock.ExpectQuery(getByCodeQuery).WithArgs(code).
		WillReturnRows(cardRow(cardID, code, 250, StatusRedeemed, nil))

	in := RedeemInput{Code: " abcd-efgh-jkmn ", UserID: userID, IPAddress: "10.0.0.1", UserAgent: "test-agent"}
	res, err := svc.Redeem(context.Background(), in)
	if err != nil {
		t.Fatalf("first redeem failed: %v", err)
	}
	if res.GiftCard.Status != StatusRedeemed || res.Transaction.BalanceAfter != 250 {
		t.Fatalf("unexpected result %+v %+v", res.GiftCard, res.Transaction)
	}
	if !res.GiftCard.RedeemedByUserID.Valid || res.GiftCard.RedeemedByUserID.UUID != userID {
		t.Fatalf("redeemer not recorded: %+v", res.GiftCard.RedeemedByUserID)
	}

	if _, err := svc.Redeem(context.Background(), in); !errors.Is(err, ErrNotRedeemable) {
		t.Fatalf("expected ErrNotRedeemable on second redeem, got %v", err)
	}
	if led.credits[userID] != 250 {
		t.Fatalf("expected exactly one credit of 250, got %d", led.credits[userID])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRedeemRevalidatesUnderLock(t *testing.T) {
	svc, led, mock := newMockService(t)
	cardID := uuid.New()
	const code = "ABCD-EFGH-JKMN"

	mock.ExpectQuery(getByCodeQuery).WithArgs(code).
		WillReturnRows(cardRow(cardID, code, 100, StatusActive, nil))
	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockByCodeQuery).WithArgs(code).
		WillReturnRows(cardRow(cardID, code, 100, StatusRedeemed, nil))
	mock.ExpectRollback()

	_, err := svc.Redeem(context.Background(), RedeemInput{Code: code, UserID: uuid.New()})
	if !errors.Is(err, ErrNotRedeemable) {
		t.Fatalf("expected ErrNotRedeemable, got %v", err)
	}
	if len(led.credits) != 0 {
		t.Fatalf("ledger must not be touched, got %v", led.credits)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRedeemRejectsUnknownAndExpired(t *testing.T) {
	svc, _, mock := newMockService(t)

	mock.ExpectQuery(getByCodeQuery).WithArgs("ZZZZ-ZZZZ-ZZZZ").
		WillReturnRows(sqlmock.NewRows(cardColumnNames))
	mock.ExpectQuery(getByCodeQuery).WithArgs("ABCD-EFGH-JKMN").
		WillReturnRows(cardRow(uuid.New(), "ABCD-EFGH-JKMN", 100, StatusActive, testNow.Add(-time.Minute)))

	for _, code := range []string{"ZZZZ-ZZZZ-ZZZZ", "ABCD-EFGH-JKMN"} {
		if _, err := svc.Redeem(context.Background(), RedeemInput{Code: code, UserID: uuid.New()}); !errors.Is(err, ErrNotRedeemable) {
			t.Fatalf("%s: expected ErrNotRedeemable, got %v", code, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIssueRetriesOnCollision(t *testing.T) {
	svc, _, mock := newMockService(t)
	adminID := uuid.New()
	expires := testNow.Add(24 * time.Hour)

	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO gift_cards`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(500), "active", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(testNow, testNow))

	cards, err := svc.Issue(context.Background(), adminID, IssueInput{CreditValue: 500, ExpiresAt: &expires, Count: 1})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if !regexp.MustCompile(`^[A-Z2-9]{4}-[A-Z2-9]{4}-[A-Z2-9]{4}$`).MatchString(cards[0].Code) {
		t.Fatalf("unexpected code format %q", cards[0].Code)
	}
	if !cards[0].ExpiresAt.Valid || !cards[0].CreatedBy.Valid {
		t.Fatalf("expiry and issuer must be recorded: %+v", cards[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIssueValidatesInput(t *testing.T) {
	svc, _, _ := newMockService(t)
	past := testNow.Add(-time.Hour)

	cases := []struct {
		in   IssueInput
		want error
	}{
		{IssueInput{CreditValue: 0, Count: 1}, ErrInvalidCreditValue},
		{IssueInput{CreditValue: 10, Count: 0}, ErrInvalidCount},
		{IssueInput{CreditValue: 10, Count: 101}, ErrInvalidCount},
		{IssueInput{CreditValue: 10, Count: 1, ExpiresAt: &past}, ErrInvalidExpiry},
	}
	for _, tc := range cases {
		if _, err := svc.Issue(context.Background(), uuid.New(), tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%+v: expected %v, got %v", tc.in, tc.want, err)
		}
	}
}

func TestDisableRequiresActive(t *testing.T) {
	svc, _, mock := newMockService(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockByIDQuery).WithArgs(id).
		WillReturnRows(cardRow(id, "ABCD-EFGH-JKMN", 100, StatusRedeemed, nil))
	mock.ExpectRollback()

	if _, err := svc.Disable(context.Background(), id); !errors.Is(err, ErrCannotDisable) {
		t.Fatalf("expected ErrCannotDisable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReactivateExpiredCard(t *testing.T) {
	svc, _, mock := newMockService(t)
	id := uuid.New()
	newExpiry := testNow.Add(48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockByIDQuery).WithArgs(id).
		WillReturnRows(cardRow(id, "ABCD-EFGH-JKMN", 100, StatusExpired, testNow.Add(-time.Hour)))
	mock.ExpectRollback()

	if _, err := svc.Reactivate(context.Background(), id, nil); !errors.Is(err, ErrInvalidExpiry) {
		t.Fatalf("expected ErrInvalidExpiry without a new expiry, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockByIDQuery).WithArgs(id).
		WillReturnRows(cardRow(id, "ABCD-EFGH-JKMN", 100, StatusExpired, testNow.Add(-time.Hour)))
	mock.ExpectExec(`UPDATE gift_cards\s+SET status = \$1`).
		WithArgs("active", sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	g, err := svc.Reactivate(context.Background(), id, &newExpiry)
	if err != nil {
		t.Fatalf("reactivate failed: %v", err)
	}
	if g.Status != StatusActive || !g.ExpiresAt.Time.Equal(newExpiry) {
		t.Fatalf("unexpected card after reactivation: %+v", g)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestExpireOverdue(t *testing.T) {
	svc, _, mock := newMockService(t)

	mock.ExpectExec(`UPDATE gift_cards\s+SET status = 'expired'`).
		WithArgs(testNow).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := svc.ExpireOverdue(context.Background())
	if err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 expired cards, got %d", n)
	}
}

func TestRedeemableAt(t *testing.T) {
	g := &GiftCard{Status: StatusActive}
	if !g.RedeemableAt(testNow) {
		t.Fatal("active card without expiry is redeemable")
	}
	g.ExpiresAt.Valid, g.ExpiresAt.Time = true, testNow
	if g.RedeemableAt(testNow) {
		t.Fatal("card expiring now is not redeemable")
	}
	g.ExpiresAt.Time = testNow.Add(time.Second)
	g.Status = StatusDisabled
	if g.RedeemableAt(testNow) {
		t.Fatal("disabled card is not redeemable")
	}
}
