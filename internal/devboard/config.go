// Package devboard runs a local stand-in for the two remote collaborators of
// the standings service: a leaderboard page whose scores move on every fetch,
// and a Gemini-compatible generateContent endpoint that reads the rows back
// out of the page text. It also verifies a running service's published
// snapshot.
package devboard

import "time"

// Defaults for Config.
const (
	DefaultAddr    = ":9090"
	DefaultPlayers = 10
	DefaultMaxGain = 15
)

// Config configures the dev board server.
type Config struct {
	// Addr is the listen address.
	Addr string
	// Players is the number of rows on the board.
	Players int
	// MaxGain bounds the points a player can gain per round.
	MaxGain int
	// Seed makes score movement reproducible.
	Seed uint64
	// AdvanceEvery moves scores on a timer; zero advances on every page fetch.
	AdvanceEvery time.Duration
	// Duplicates repeats the leader at the bottom of the page.
	Duplicates bool
	// QuotaAfter answers generateContent with RESOURCE_EXHAUSTED after this
	// many calls; zero never runs out.
	QuotaAfter int64
	// APIKey, when set, must match the x-goog-api-key header.
	APIKey string
}

// DefaultConfig returns a Config with defaults applied.
func DefaultConfig() Config {
	return Config{
		Addr:    DefaultAddr,
		Players: DefaultPlayers,
		MaxGain: DefaultMaxGain,
		Seed:    1,
	}
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Players <= 0 {
		c.Players = DefaultPlayers
	}
	if c.MaxGain <= 0 {
		c.MaxGain = DefaultMaxGain
	}
	return c
}
