package game

import (
	"go.uber.org/zap"

	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/match"
)

// EventType names an engine notification.
type EventType string

const (
	EventGameStarted   EventType = "game_started"
	EventOpeningRoll   EventType = "opening_roll"
	EventRoll          EventType = "roll"
	EventMove          EventType = "move"
	EventUndo          EventType = "undo"
	EventTurnCompleted EventType = "turn_completed"
	EventCubeOffered   EventType = "cube_offered"
	EventCubeAccepted  EventType = "cube_accepted"
	EventCubeBeavered  EventType = "cube_beavered"
	EventCubeDeclined  EventType = "cube_declined"
	EventGameOver      EventType = "game_over"
	EventMatchOver     EventType = "match_over"
	EventAnnotation    EventType = "annotation"
	EventCoaching      EventType = "coaching"
	EventSummary       EventType = "summary"
)

// Event is emitted after every state transition and every annotation. The
// presentation layer owns all timing; the engine never waits on a consumer.
type Event struct {
	Type     EventType             `json:"type"`
	GameID   string                `json:"game_id"`
	Player   engine.Player         `json:"player"`
	Dice     engine.Dice           `json:"dice,omitempty"`
	Move     *engine.CheckerMove   `json:"move,omitempty"`
	Play     engine.Play           `json:"play,omitempty"`
	Turn     int                   `json:"turn,omitempty"`
	Cube     engine.CubeState      `json:"cube"`
	Result   *match.GameResult     `json:"result,omitempty"`
	Eval     *match.EvalAnnotation `json:"eval,omitempty"`
	Coaching *match.Coaching       `json:"coaching,omitempty"`
	Summary  *match.Summary        `json:"summary,omitempty"`
}

const subscriberBuffer = 64

// Subscribe returns a channel receiving every event from now on and a
// function that cancels the subscription. A subscriber that falls more than
// subscriberBuffer events behind misses events.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSub
	e.nextSub++
	ch := make(chan Event, subscriberBuffer)
	e.subs[id] = ch

	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
	}
}

// emit fans ev out to the subscribers. Must be called with e.mu held.
func (e *Engine) emit(ev Event) {
	if ev.GameID == "" && e.cur != nil {
		ev.GameID = e.cur.rec.ID
	}
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.log.Debug("subscriber lagging, event dropped", zap.String("event", string(ev.Type)))
		}
	}
}
