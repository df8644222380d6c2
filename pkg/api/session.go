package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/game"
)

// maxComputerSteps bounds the computer actions driven after one intent.
const maxComputerSteps = 16

var errUnknownIntent = errors.New("unknown intent")

// Session is one engine served to one client.
type Session struct {
	ID     string
	Engine *game.Engine

	mu       sync.Mutex   // serializes intents with the computer's replies
	lastUsed atomic.Int64 // unix nanoseconds
}

func newSession(id string, e *game.Engine) *Session {
	s := &Session{ID: id, Engine: e}
	s.touch()
	return s
}

func (s *Session) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// Apply performs the named intent for the human and then lets the computer
// act until it is the human's turn again.
func (s *Session) Apply(ctx context.Context, intent string, req IntentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	e := s.Engine
	var err error
	switch intent {
	case "start":
		err = e.Start()
	case "roll":
		err = e.Roll()
	case "move":
		err = e.Move(engine.CheckerMove{From: req.From, To: req.To, Die: req.Die})
	case "undo":
		err = e.Undo()
	case "confirm":
		err = e.Confirm()
	case "double":
		err = e.OfferDouble()
	case "take":
		err = e.Take()
	case "drop":
		err = e.Drop()
	case "beaver":
		err = e.Beaver()
	case "next":
		err = e.NextGame()
	case "computer":
	default:
		return fmt.Errorf("%w %q", errUnknownIntent, intent)
	}
	if err != nil {
		return err
	}
	return s.drive(ctx)
}

// drive lets the computer act while it is on turn or owes a cube answer.
func (s *Session) drive(ctx context.Context) error {
	for range maxComputerSteps {
		snap := s.Engine.Snapshot()
		if !snap.ComputerToAct {
			return nil
		}
		var err error
		if snap.Phase == game.PhaseCubeOffered {
			err = s.Engine.ComputerCubeAction(ctx)
		} else {
			err = s.Engine.PlayComputerTurn(ctx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// registry holds the live sessions.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*Session)}
}

func (r *registry) add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
}

func (r *registry) get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *registry) remove(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	return s, ok
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// expire removes the sessions idle since before cutoff and returns them.
func (r *registry) expire(cutoff time.Time) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			out = append(out, s)
			delete(r.sessions, id)
		}
	}
	return out
}

// drain removes and returns every session.
func (r *registry) drain() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, s)
		delete(r.sessions, id)
	}
	return out
}
