package game

// transitions lists the allowed status changes. finished is terminal.
var transitions = map[Status][]Status{
	StatusDraft:   {StatusWaiting},
	StatusWaiting: {StatusActive},
	StatusActive:  {StatusPaused, StatusFinished},
	StatusPaused:  {StatusActive, StatusFinished},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanJoin is true while the game is waiting and has free seats.
func CanJoin(g *Game, playerCount, maxPlayers int) bool {
	return g.Status == StatusWaiting && playerCount < maxPlayers
}
