package service

import (
	"context"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/carcacity/game/engine"
)

// RobotifySpeed is the robot pace once every seat has been handed to a robot.
const RobotifySpeed = 100 * time.Millisecond

// LobbyOptions configures a new lobby.
type LobbyOptions struct {
	CatalogID  string
	Catalog    engine.Catalog // nil plays the classic variant
	BoardSize  int
	MaxPlayers int
	Colors     []string
	RobotSpeed time.Duration
	Sinks      SinkFactory // nil drops broadcasts
}

// Spectator watches a lobby without a seat.
type Spectator struct {
	ClientID  string `json:"client_id"`
	Connected bool   `json:"connected"`
}

// Lobby is one running game plus its presence bookkeeping. Every action on
// the game goes through Do, which serialises it against the robot loop.
type Lobby struct {
	ID        string
	CatalogID string
	CreatedAt time.Time

	mu           sync.Mutex
	game         *engine.GameSession
	spectators   map[string]*Spectator
	initialSpeed time.Duration
	speed        time.Duration
	lastAccessed atomic.Int64
	cancel       context.CancelFunc
	done         chan struct{}
}

// NewLobby builds a lobby and starts its robot loop. Call Close to stop it.
func NewLobby(id string, opts LobbyOptions) (*Lobby, error) {
	if opts.RobotSpeed <= 0 {
		opts.RobotSpeed = 1500 * time.Millisecond
	}

	var sink engine.Broadcaster
	if opts.Sinks != nil {
		sink = opts.Sinks(id)
	}

	game, err := engine.NewGameSession(engine.Options{
		BoardSize:  opts.BoardSize,
		MaxPlayers: opts.MaxPlayers,
		Catalog:    opts.Catalog,
		Colors:     opts.Colors,
		Sink:       sink,
		NewID:      uuid.NewString,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Lobby{
		ID:           id,
		CatalogID:    opts.CatalogID,
		CreatedAt:    time.Now(),
		game:         game,
		spectators:   make(map[string]*Spectator),
		initialSpeed: opts.RobotSpeed,
		speed:        opts.RobotSpeed,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	l.Touch()

	go l.runRobots(ctx)
	return l, nil
}

// Do runs fn with exclusive access to the game.
func (l *Lobby) Do(fn func(g *engine.GameSession) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.game)
}

// Touch records an access.
func (l *Lobby) Touch() {
	l.SetLastAccessed(time.Now())
}

// SetLastAccessed overrides the last access time.
func (l *Lobby) SetLastAccessed(t time.Time) {
	l.lastAccessed.Store(t.UnixNano())
}

// LastAccessed returns the last access time.
func (l *Lobby) LastAccessed() time.Time {
	return time.Unix(0, l.lastAccessed.Load())
}

// Speed returns the current pause between robot moves.
func (l *Lobby) Speed() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.speed
}

// Close stops the robot loop and waits for it to exit. Safe to call twice.
func (l *Lobby) Close() {
	l.cancel()
	<-l.done
}

// runRobots wakes every speed interval and lets a robot move if one holds the
// turn at that moment.
func (l *Lobby) runRobots(ctx context.Context) {
	defer close(l.done)

	timer := time.NewTimer(l.Speed())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		l.mu.Lock()
		if l.game.CurrentRobot() {
			name := l.game.Players[l.game.TurnIndex].Name
			if l.game.RobotStep() {
				log.Printf("[ROBOT] lobby=%s %s placed tile %d", l.ID, name, l.game.Sequence-1)
			}
		}
		next := l.speed
		l.mu.Unlock()

		timer.Reset(next)
	}
}

// The helpers below expect l.mu to be held.

func (l *Lobby) resetSpeed() {
	l.speed = l.initialSpeed
}

// hurryIfUnattended speeds robots up when no human is connected.
func (l *Lobby) hurryIfUnattended() {
	if l.game.ConnectedHumans() == 0 {
		l.speed = l.initialSpeed / 6
	}
}

func (l *Lobby) spectatorList() []Spectator {
	out := make([]Spectator, 0, len(l.spectators))
	for _, s := range l.spectators {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out
}
