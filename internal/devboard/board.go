package devboard

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
)

var playerNames = []string{ //nolint:gochecknoglobals // fixed roster
	"Ada Lovelace", "Grace Hopper", "Alan Turing", "Edsger Dijkstra", "Barbara Liskov",
	"Donald Knuth", "Ken Thompson", "Margaret Hamilton", "Dennis Ritchie", "Frances Allen",
	"John McCarthy", "Radia Perlman", "Niklaus Wirth", "Leslie Lamport", "Jean Sammet",
}

// Player is one row of the board.
type Player struct {
	Name  string
	Score float64
}

// Board is an in-memory leaderboard whose scores only go up.
type Board struct {
	mu         sync.Mutex
	players    []Player
	rng        *rand.Rand
	maxGain    int
	duplicates bool
	round      int
}

// NewBoard seeds a board from cfg.
func NewBoard(cfg Config) *Board {
	cfg = cfg.withDefaults()
	b := &Board{
		rng:        rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		maxGain:    cfg.MaxGain,
		duplicates: cfg.Duplicates,
	}
	b.players = make([]Player, cfg.Players)
	for i := range b.players {
		name := playerNames[i%len(playerNames)]
		if i >= len(playerNames) {
			name = fmt.Sprintf("%s %d", name, i/len(playerNames)+1)
		}
		b.players[i] = Player{Name: name, Score: float64(100 + b.rng.IntN(50))}
	}
	return b
}

// Advance plays one round: each player gains up to MaxGain points with even
// odds.
func (b *Board) Advance() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.players {
		if b.rng.IntN(2) == 0 {
			b.players[i].Score += float64(b.rng.IntN(b.maxGain) + 1)
		}
	}
	b.round++
}

// Round returns the number of rounds played.
func (b *Board) Round() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.round
}

// Rows returns the board sorted by score, highest first. With duplicates
// enabled the leader is repeated at the end.
func (b *Board) Rows() []Player {
	b.mu.Lock()
	rows := make([]Player, len(b.players))
	copy(rows, b.players)
	dup := b.duplicates
	b.mu.Unlock()

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })
	if dup && len(rows) > 0 {
		rows = append(rows, rows[0])
	}
	return rows
}
