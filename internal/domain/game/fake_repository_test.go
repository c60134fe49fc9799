package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRepository is an in-memory Repository enforcing the schema's unique
// keys: one winner per prize, one draw per (game, round, number).
type memRepository struct {
	mu       sync.Mutex
	packages map[uuid.UUID]*Package
	games    map[uuid.UUID]*Game
	prizes   map[uuid.UUID]*Prize
	players  map[uuid.UUID]*Player
	cards    map[uuid.UUID]*Card
	draws    []*Draw
	winners  []*Winner
	seq      int64
}

func newMemRepository() *memRepository {
	return &memRepository{
		packages: map[uuid.UUID]*Package{},
		games:    map[uuid.UUID]*Game{},
		prizes:   map[uuid.UUID]*Prize{},
		players:  map[uuid.UUID]*Player{},
		cards:    map[uuid.UUID]*Card{},
	}
}

func (m *memRepository) addPackage(p *Package) *Package {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packages[p.ID] = p
	return p
}

func copyGame(g *Game) *Game {
	c := *g
	return &c
}

func copyCard(c *Card) *Card {
	out := *c
	out.Numbers = append(out.Numbers[:0:0], c.Numbers...)
	out.Marked = append(out.Marked[:0:0], c.Marked...)
	return &out
}

func (m *memRepository) GetPackage(ctx context.Context, id uuid.UUID) (*Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.packages[id]
	if !ok {
		return nil, ErrPackageNotFound
	}
	c := *p
	return &c, nil
}

func (m *memRepository) CreateGame(ctx context.Context, g *Game, charge ChargeFunc) error {
	m.mu.Lock()
	for _, existing := range m.games {
		if existing.InviteCode == g.InviteCode {
			m.mu.Unlock()
			return errInviteCodeTaken
		}
	}
	m.mu.Unlock()

	if charge != nil {
		if err := charge(ctx, nil); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	m.games[g.ID] = copyGame(g)
	return nil
}

func (m *memRepository) GetGame(ctx context.Context, id uuid.UUID) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return copyGame(g), nil
}

func (m *memRepository) GetGameByInviteCode(ctx context.Context, code string) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.games {
		if g.InviteCode == code {
			return copyGame(g), nil
		}
	}
	return nil, ErrGameNotFound
}

func (m *memRepository) UpdateDraft(ctx context.Context, g *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.games[g.ID]
	if !ok || stored.Status != StatusDraft {
		return ErrNotEditable
	}
	stored.Name, stored.DrawMode, stored.AutoDrawSeconds = g.Name, g.DrawMode, g.AutoDrawSeconds
	return nil
}

func (m *memRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok || g.Status != from {
		return nil, ErrInvalidTransition
	}
	g.Status = to
	now := time.Now()
	if to == StatusActive && !g.StartedAt.Valid {
		g.StartedAt.Time, g.StartedAt.Valid = now, true
	}
	if to == StatusFinished {
		g.FinishedAt.Time, g.FinishedAt.Valid = now, true
	}
	return copyGame(g), nil
}

func (m *memRepository) AdvanceRound(ctx context.Context, id uuid.UUID, fromRound int) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok || g.Status != StatusActive || g.CurrentRound != fromRound || g.CurrentRound >= g.MaxRounds {
		return nil, ErrInvalidTransition
	}
	g.CurrentRound++
	for _, c := range m.cards {
		if c.GameID == id {
			c.IsBingo = false
			c.Marked = nil
		}
	}
	return copyGame(g), nil
}

func (m *memRepository) ListAutomaticActive(ctx context.Context) ([]*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Game
	for _, g := range m.games {
		if g.Status == StatusActive && g.DrawMode == DrawModeAutomatic {
			out = append(out, copyGame(g))
		}
	}
	return out, nil
}

func (m *memRepository) AddPrize(ctx context.Context, p *Prize) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.prizes {
		if existing.GameID == p.GameID && existing.Position == p.Position {
			return ErrDuplicatePosition
		}
	}
	p.CreatedAt = time.Now()
	c := *p
	m.prizes[p.ID] = &c
	return nil
}

func (m *memRepository) DeletePrize(ctx context.Context, gameID, prizeID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prizes[prizeID]
	if !ok || p.GameID != gameID {
		return ErrPrizeNotFound
	}
	delete(m.prizes, prizeID)
	return nil
}

func (m *memRepository) GetPrize(ctx context.Context, id uuid.UUID) (*Prize, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prizes[id]
	if !ok {
		return nil, ErrPrizeNotFound
	}
	c := *p
	return &c, nil
}

func (m *memRepository) ListPrizes(ctx context.Context, gameID uuid.UUID) ([]*Prize, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Prize
	for _, p := range m.prizes {
		if p.GameID == gameID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memRepository) MarkPrizeClaimed(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.prizes[id]; ok {
		p.IsClaimed = true
	}
	return nil
}

func (m *memRepository) CountUnclaimedPrizes(ctx context.Context, gameID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.prizes {
		if p.GameID == gameID && m.countWinners(p.ID) == 0 {
			n++
		}
	}
	return n, nil
}

func (m *memRepository) AddPlayer(ctx context.Context, p *Player, c *Card, maxPlayers int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[p.GameID]
	if !ok {
		return ErrGameNotFound
	}
	if g.Status != StatusWaiting {
		return ErrCannotJoin
	}
	count := 0
	for _, existing := range m.players {
		if existing.GameID != p.GameID {
			continue
		}
		if existing.UserID == p.UserID {
			return errAlreadyJoined
		}
		count++
	}
	if count >= maxPlayers {
		return ErrGameFull
	}
	p.JoinedAt = time.Now()
	c.CreatedAt = p.JoinedAt
	pc := *p
	m.players[p.ID] = &pc
	m.cards[c.ID] = copyCard(c)
	return nil
}

func (m *memRepository) GetPlayer(ctx context.Context, id uuid.UUID) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	c := *p
	return &c, nil
}

func (m *memRepository) GetPlayerByUser(ctx context.Context, gameID, userID uuid.UUID) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if p.GameID == gameID && p.UserID == userID {
			c := *p
			return &c, nil
		}
	}
	return nil, ErrPlayerNotFound
}

func (m *memRepository) CountPlayers(ctx context.Context, gameID uuid.UUID) (int, error) {
	players, _ := m.ListPlayers(ctx, gameID)
	return len(players), nil
}

func (m *memRepository) ListPlayers(ctx context.Context, gameID uuid.UUID) ([]*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Player
	for _, p := range m.players {
		if p.GameID == gameID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memRepository) GetCard(ctx context.Context, id uuid.UUID) (*Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, ErrCardNotFound
	}
	return copyCard(c), nil
}

func (m *memRepository) GetCardByPlayer(ctx context.Context, playerID uuid.UUID) (*Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.PlayerID == playerID {
			return copyCard(c), nil
		}
	}
	return nil, ErrCardNotFound
}

func (m *memRepository) ListCards(ctx context.Context, gameID uuid.UUID) ([]*Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Card
	for _, c := range m.cards {
		if c.GameID == gameID {
			out = append(out, copyCard(c))
		}
	}
	return out, nil
}

func (m *memRepository) UpdateMarked(ctx context.Context, cardID uuid.UUID, marked []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.cards[cardID]; ok {
		c.Marked = toInt64Array(marked)
	}
	return nil
}

// activeRound mirrors the game row check the SQL repository runs before
// writing draws, winners and bingo flags. Callers hold m.mu.
func (m *memRepository) activeRound(gameID uuid.UUID, round int) error {
	g, ok := m.games[gameID]
	if !ok {
		return ErrGameNotFound
	}
	if g.Status != StatusActive {
		return ErrGameNotActive
	}
	if g.CurrentRound != round {
		return ErrRoundClosed
	}
	return nil
}

func (m *memRepository) SetBingo(ctx context.Context, gameID uuid.UUID, round int, cardIDs []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.activeRound(gameID, round); err != nil {
		return err
	}
	for _, id := range cardIDs {
		if c, ok := m.cards[id]; ok {
			c.IsBingo = true
		}
	}
	return nil
}

func (m *memRepository) InsertDraw(ctx context.Context, d *Draw) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.activeRound(d.GameID, d.RoundNumber); err != nil {
		return err
	}
	for _, existing := range m.draws {
		if existing.GameID == d.GameID && existing.RoundNumber == d.RoundNumber && existing.Number == d.Number {
			return errDuplicateDraw
		}
	}
	m.seq++
	d.Seq = m.seq
	d.CreatedAt = time.Now()
	c := *d
	m.draws = append(m.draws, &c)
	return nil
}

func (m *memRepository) ListDraws(ctx context.Context, gameID uuid.UUID, round int) ([]*Draw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Draw
	for _, d := range m.draws {
		if d.GameID == gameID && d.RoundNumber == round {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memRepository) InsertWinner(ctx context.Context, w *Winner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.activeRound(w.GameID, w.RoundNumber); err != nil {
		return err
	}
	if m.countWinners(w.PrizeID) > 0 {
		return ErrAlreadyClaimed
	}
	w.WonAt = time.Now()
	c := *w
	m.winners = append(m.winners, &c)
	return nil
}

func (m *memRepository) ListWinners(ctx context.Context, gameID uuid.UUID) ([]*Winner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Winner
	for _, w := range m.winners {
		if w.GameID == gameID {
			c := *w
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memRepository) countWinners(prizeID uuid.UUID) int {
	n := 0
	for _, w := range m.winners {
		if w.PrizeID == prizeID {
			n++
		}
	}
	return n
}

func (m *memRepository) winnerCount(prizeID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countWinners(prizeID)
}

// setCard overwrites a dealt card's numbers so tests control when it wins.
func (m *memRepository) setCard(cardID uuid.UUID, numbers []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[cardID].Numbers = toInt64Array(numbers)
}

var _ Repository = (*memRepository)(nil)
