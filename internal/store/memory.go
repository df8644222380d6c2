package store

import (
	"context"
	"sync"

	"github.com/yourusername/bgtutor/pkg/match"
)

// Memory keeps everything in process memory. It implements StatsStore,
// PreferenceStore and Archive and is safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	stats map[string]*Stats
	prefs map[string]Preferences
	games map[string]*match.GameRecord
}

func NewMemory() *Memory {
	return &Memory{
		stats: make(map[string]*Stats),
		prefs: make(map[string]Preferences),
		games: make(map[string]*match.GameRecord),
	}
}

func (m *Memory) RecordOutcome(_ context.Context, o match.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[o.Difficulty]
	if !ok {
		s = &Stats{Difficulty: o.Difficulty, Rating: InitialRating}
		m.stats[o.Difficulty] = s
	}
	s.apply(o)
	return nil
}

func (m *Memory) Stats(_ context.Context, difficulty string) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.stats[difficulty]; ok {
		return *s, nil
	}
	return Stats{Difficulty: difficulty, Rating: InitialRating}, nil
}

func (m *Memory) Preferences(_ context.Context, user string) (Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.prefs[user]; ok {
		return p, nil
	}
	return DefaultPreferences(), nil
}

func (m *Memory) SavePreferences(_ context.Context, user string, p Preferences) error {
	m.mu.Lock()
	m.prefs[user] = p
	m.mu.Unlock()
	return nil
}

// ArchiveGame stores rec as given. Callers hand over ownership.
func (m *Memory) ArchiveGame(_ context.Context, rec *match.GameRecord) error {
	m.mu.Lock()
	m.games[rec.ID] = rec
	m.mu.Unlock()
	return nil
}

func (m *Memory) Game(_ context.Context, id string) (*match.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}
