package bingo

import "errors"

var (
	ErrNoNumbersRemaining = errors.New("all numbers have been drawn in this round")
	ErrInvalidCardSize    = errors.New("card size must be between 1 and 75")
	ErrNumberOutOfRange   = errors.New("number must be between 1 and 75")
)
