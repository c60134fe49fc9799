package refund

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/bingoclub/bingo-api/internal/domain/ledger"
	"github.com/bingoclub/bingo-api/internal/domain/notification"
	"github.com/bingoclub/bingo-api/internal/pkg/database"
)

const lockRefundQuery = `FROM refunds WHERE id = \$1 FOR UPDATE`

var refundColumnNames = []string{"id", "user_id", "credits", "amount_brl", "status", "reason", "approved_by", "approved_at", "rejected_at", "created_at", "updated_at"}

type fakeWallet struct {
	balance int64
	debits  []ledger.Source
	err     error
}

func (f *fakeWallet) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return f.balance, nil
}

func (f *fakeWallet) DebitTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, description string, source ledger.Source) (*ledger.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.balance < amount {
		return nil, ledger.ErrInsufficientBalance
	}
	f.balance -= amount
	f.debits = append(f.debits, source)
	return &ledger.Transaction{ID: uuid.New(), Type: ledger.TxTypeDebit, Amount: amount, BalanceAfter: f.balance}, nil
}

func newMockService(t *testing.T, wallet *fakeWallet) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	return NewService(NewRepository(db), database.NewTxRunner(db, time.Second), wallet, notification.NewService(nil)), mock
}

func refundRow(id, userID uuid.UUID, credits int64, status Status) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(refundColumnNames).
		AddRow(id.String(), userID.String(), credits, "25.00", string(status), "", nil, nil, nil, now, now)
}

func expectLock(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockRefundQuery).WillReturnRows(rows)
}

func TestApproveDebitsOnce(t *testing.T) {
	wallet := &fakeWallet{balance: 300}
	svc, mock := newMockService(t, wallet)
	id, userID, adminID := uuid.New(), uuid.New(), uuid.New()

	expectLock(mock, refundRow(id, userID, 100, StatusPending))
	mock.ExpectQuery(`UPDATE refunds\s+SET status = \$1`).
		WithArgs("approved", "", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), id).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	rf, err := svc.Approve(context.Background(), adminID, id)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if rf.Status != StatusApproved || rf.ApprovedBy.UUID != adminID || !rf.ApprovedAt.Valid {
		t.Fatalf("unexpected refund %+v", rf)
	}

	expectLock(mock, refundRow(id, userID, 100, StatusApproved))
	mock.ExpectRollback()

	if _, err := svc.Approve(context.Background(), adminID, id); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	if wallet.balance != 200 || len(wallet.debits) != 1 || wallet.debits[0] != ledger.FromRefund(id) {
		t.Fatalf("expected one refund debit, balance=%d debits=%v", wallet.balance, wallet.debits)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApproveInsufficientBalanceRollsBack(t *testing.T) {
	wallet := &fakeWallet{balance: 50}
	svc, mock := newMockService(t, wallet)
	id := uuid.New()

	expectLock(mock, refundRow(id, uuid.New(), 100, StatusPending))
	mock.ExpectRollback()

	if _, err := svc.Approve(context.Background(), uuid.New(), id); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if wallet.balance != 50 {
		t.Fatalf("balance must stay 50, got %d", wallet.balance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRejectLeavesWalletUntouched(t *testing.T) {
	wallet := &fakeWallet{balance: 500}
	svc, mock := newMockService(t, wallet)
	id := uuid.New()

	expectLock(mock, refundRow(id, uuid.New(), 100, StatusPending))
	mock.ExpectQuery(`UPDATE refunds`).
		WithArgs("rejected", "duplicate request", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), id).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	rf, err := svc.Reject(context.Background(), uuid.New(), id, " duplicate request ")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rf.Status != StatusRejected || !rf.RejectedAt.Valid || rf.ApprovedBy.Valid {
		t.Fatalf("unexpected refund %+v", rf)
	}
	if len(wallet.debits) != 0 {
		t.Fatal("reject must not debit")
	}

	expectLock(mock, refundRow(id, uuid.New(), 100, StatusRejected))
	mock.ExpectRollback()
	if _, err := svc.Reject(context.Background(), uuid.New(), id, "again"); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
}

func TestRequestValidation(t *testing.T) {
	svc, mock := newMockService(t, &fakeWallet{balance: 100})
	userID := uuid.New()

	if _, err := svc.Request(context.Background(), userID, RequestInput{Credits: 0}); !errors.Is(err, ErrInvalidCredits) {
		t.Fatalf("expected ErrInvalidCredits, got %v", err)
	}
	if _, err := svc.Request(context.Background(), userID, RequestInput{Credits: 10, AmountBRL: decimal.NewFromInt(-1)}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.Request(context.Background(), userID, RequestInput{Credits: 101}); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	mock.ExpectQuery(`INSERT INTO refunds`).
		WithArgs(sqlmock.AnyArg(), userID, int64(100), sqlmock.AnyArg(), "pending", "cashing out").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))

	rf, err := svc.Request(context.Background(), userID, RequestInput{Credits: 100, AmountBRL: decimal.RequireFromString("49.999"), Reason: "cashing out"})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if rf.AmountBRL.StringFixed(2) != "50.00" || rf.Status != StatusPending {
		t.Fatalf("unexpected refund %+v", rf)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetForUserHidesOtherUsers(t *testing.T) {
	svc, mock := newMockService(t, &fakeWallet{})
	id, owner := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM refunds WHERE id = \$1$`).WithArgs(id).
		WillReturnRows(refundRow(id, owner, 10, StatusPending))

	if _, err := svc.GetForUser(context.Background(), uuid.New(), id); !errors.Is(err, ErrRefundNotFound) {
		t.Fatalf("expected ErrRefundNotFound, got %v", err)
	}
}
