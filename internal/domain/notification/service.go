package notification

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 2 * time.Second

// Service dispatches user notifications. Every call is fire-and-forget:
// delivery errors are logged and never returned to the caller.
type Service struct {
	publisher RealtimePublisher
}

// NewService creates notification service. A nil publisher only logs.
func NewService(publisher RealtimePublisher) *Service {
	return &Service{publisher: publisher}
}

// Notify sends one notification to userID.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, notifType Type, title, body, url string) {
	s.send(ctx, &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Body:      body,
		URL:       url,
		CreatedAt: time.Now(),
	})
}

func (s *Service) send(ctx context.Context, n *Notification) {
	if s == nil || s.publisher == nil {
		log.Debug().Str("user_id", n.UserID.String()).Str("type", string(n.Type)).Str("title", n.Title).Msg("notification (no publisher)")
		return
	}

	// Detached from the request: a cancelled request must not drop the message.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, n); err != nil {
		log.Warn().Err(err).Str("user_id", n.UserID.String()).Str("type", string(n.Type)).Msg("Failed to publish notification")
	}
}

// --- Helper methods for creating specific notifications ---

// NotifyGameStarted notifies every player that the creator started the game.
func (s *Service) NotifyGameStarted(ctx context.Context, playerIDs []uuid.UUID, gameID uuid.UUID, gameName string) {
	for _, id := range playerIDs {
		s.Notify(ctx, id, TypeGameStarted, "Game started", "\""+gameName+"\" has started", gameURL(gameID))
	}
}

// NotifyBingoCandidate tells a player their card is complete and the prize can be claimed.
func (s *Service) NotifyBingoCandidate(ctx context.Context, userID, gameID, cardID uuid.UUID) {
	s.send(ctx, &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      TypeBingoCandidate,
		Title:     "Bingo!",
		Body:      "Your card is complete. Claim your prize.",
		URL:       gameURL(gameID),
		Data:      map[string]string{"game_id": gameID.String(), "card_id": cardID.String()},
		CreatedAt: time.Now(),
	})
}

// NotifyPrizeWon confirms an accepted claim.
func (s *Service) NotifyPrizeWon(ctx context.Context, userID, gameID uuid.UUID, prizeName string) {
	s.Notify(ctx, userID, TypePrizeWon, "You won!", "Prize \""+prizeName+"\" is yours", gameURL(gameID))
}

// NotifyGameFinished notifies every player that the game is over.
func (s *Service) NotifyGameFinished(ctx context.Context, playerIDs []uuid.UUID, gameID uuid.UUID, gameName string) {
	for _, id := range playerIDs {
		s.Notify(ctx, id, TypeGameFinished, "Game finished", "\""+gameName+"\" is over", gameURL(gameID))
	}
}

// NotifyWalletCredited notifies about credits added to the wallet.
func (s *Service) NotifyWalletCredited(ctx context.Context, userID uuid.UUID, notifType Type, amount, balance int64) {
	s.Notify(ctx, userID, notifType, "Credits added",
		strconv.FormatInt(amount, 10)+" credits added, balance "+strconv.FormatInt(balance, 10),
		"/wallet")
}

// NotifyRefundProcessed notifies about a refund decision.
func (s *Service) NotifyRefundProcessed(ctx context.Context, userID, refundID uuid.UUID, approved bool) {
	body := "Your refund request was rejected"
	if approved {
		body = "Your refund request was approved"
	}
	s.Notify(ctx, userID, TypeRefundProcessed, "Refund update", body, "/refunds/"+refundID.String())
}

func gameURL(gameID uuid.UUID) string {
	return "/games/" + gameID.String()
}
