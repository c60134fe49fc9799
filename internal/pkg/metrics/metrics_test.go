package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordLedgerSplitsOutcomes(t *testing.T) {
	before := testutil.ToFloat64(ledgerOperations.WithLabelValues("debit", "error"))

	RecordLedger("debit", errors.New("insufficient"))
	RecordLedger("debit", nil)

	after := testutil.ToFloat64(ledgerOperations.WithLabelValues("debit", "error"))
	if after-before != 1 {
		t.Fatalf("expected one failed debit recorded, got %v", after-before)
	}
}

func TestRecordClaimLabels(t *testing.T) {
	RecordClaim("already_claimed")
	if v := testutil.ToFloat64(claims.WithLabelValues("already_claimed")); v < 1 {
		t.Fatalf("expected already_claimed counter to be incremented, got %v", v)
	}
}

func TestRecordPanic(t *testing.T) {
	before := testutil.ToFloat64(panics)
	RecordPanic()
	if after := testutil.ToFloat64(panics); after-before != 1 {
		t.Fatalf("expected one panic recorded, got %v", after-before)
	}
}
