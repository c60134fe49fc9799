package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []*Notification
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, n *Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return p.err
}

func TestNotifyPublishesToUser(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(pub)
	userID, gameID, cardID := uuid.New(), uuid.New(), uuid.New()

	svc.NotifyBingoCandidate(context.Background(), userID, gameID, cardID)

	if len(pub.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(pub.sent))
	}
	n := pub.sent[0]
	if n.UserID != userID || n.Type != TypeBingoCandidate {
		t.Fatalf("unexpected notification %+v", n)
	}
	if n.Data["card_id"] != cardID.String() {
		t.Fatalf("card id missing from data: %+v", n.Data)
	}
}

func TestNotifySurvivesPublisherFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	svc := NewService(pub)

	svc.NotifyGameFinished(context.Background(), []uuid.UUID{uuid.New(), uuid.New()}, uuid.New(), "Friday")

	if len(pub.sent) != 2 {
		t.Fatalf("expected both players to be attempted, got %d", len(pub.sent))
	}
}

func TestNotifyOnCancelledContext(t *testing.T) {
	pub := &recordingPublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewService(pub).NotifyPrizeWon(ctx, uuid.New(), uuid.New(), "Full house")

	if len(pub.sent) != 1 {
		t.Fatalf("expected notification despite cancelled request, got %d", len(pub.sent))
	}
}

func TestNilPublisherOnlyLogs(t *testing.T) {
	var svc *Service
	svc.Notify(context.Background(), uuid.New(), TypeWalletCredited, "t", "b", "")
	NewService(nil).NotifyRefundProcessed(context.Background(), uuid.New(), uuid.New(), true)
}

func TestChannelFor(t *testing.T) {
	id := uuid.MustParse("6f1f2a4e-0000-4000-8000-000000000001")
	if got := ChannelFor(id); got != "bingo:notifications:6f1f2a4e-0000-4000-8000-000000000001" {
		t.Fatalf("unexpected channel %q", got)
	}
}
