package game

import "errors"

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrPackageNotFound    = errors.New("game package not found")
	ErrPackageInactive    = errors.New("game package is not available")
	ErrPrizeNotFound      = errors.New("prize not found")
	ErrCardNotFound       = errors.New("card not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrForbidden          = errors.New("only the game creator can do this")
	ErrNotEditable        = errors.New("game can only be edited in draft")
	ErrInvalidTransition  = errors.New("invalid game status transition")
	ErrGameNotActive      = errors.New("game is not active")
	ErrRoundClosed        = errors.New("round has already ended")
	ErrNoPrizesConfigured = errors.New("game has no prizes configured")
	ErrNoPlayersPresent   = errors.New("game has no players")
	ErrCannotJoin         = errors.New("game is not accepting players")
	ErrGameFull           = errors.New("game is full")
	ErrAlreadyClaimed     = errors.New("prize already claimed")
	ErrInvalidReference   = errors.New("card and prize belong to different games")
	ErrNotBingo           = errors.New("card has not completed bingo in this round")
	ErrMaxRoundsReached   = errors.New("maximum number of rounds reached")
	ErrDuplicatePosition  = errors.New("prize position already used")
	ErrInternal           = errors.New("internal error")
)
