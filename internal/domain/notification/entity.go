package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type represents notification type
type Type string

const (
	TypeGameStarted      Type = "game_started"       // Players: creator started the game
	TypeBingoCandidate   Type = "bingo_candidate"    // Player: card completed, claim pending
	TypePrizeWon         Type = "prize_won"          // Player: claim accepted
	TypeGameFinished     Type = "game_finished"      // Players: game is over
	TypeWalletCredited   Type = "wallet_credited"    // User: credits added
	TypeRefundProcessed  Type = "refund_processed"   // User: refund approved or rejected
	TypeGiftCardRedeemed Type = "gift_card_redeemed" // User: gift card redeemed
)

// Notification is the payload delivered to a user channel.
type Notification struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	Type      Type              `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body,omitempty"`
	URL       string            `json:"url,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
