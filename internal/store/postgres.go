package store

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourusername/bgtutor/pkg/match"
)

const (
	statsTable     = "difficulty_stats"
	colDifficulty  = "difficulty"
	colGames       = "games"
	colWins        = "wins"
	colLosses      = "losses"
	colGammons     = "gammons"
	colGammonsLost = "gammons_lost"
	colMatches     = "matches"
	colMatchWins   = "match_wins"
	colRating      = "rating" // rating * 100

	outcomeTable = "game_outcome"
	colGameID    = "game_id"
	colHuman     = "human"
	colWon       = "won"
	colKind      = "kind"
	colPoints    = "points"
	colMatchOver = "match_over"
	colAt        = "at"
)

const schema = `
CREATE TABLE IF NOT EXISTS difficulty_stats (
	difficulty   text PRIMARY KEY,
	games        integer NOT NULL DEFAULT 0,
	wins         integer NOT NULL DEFAULT 0,
	losses       integer NOT NULL DEFAULT 0,
	gammons      integer NOT NULL DEFAULT 0,
	gammons_lost integer NOT NULL DEFAULT 0,
	matches      integer NOT NULL DEFAULT 0,
	match_wins   integer NOT NULL DEFAULT 0,
	rating       integer NOT NULL DEFAULT 150000
);
CREATE TABLE IF NOT EXISTS game_outcome (
	game_id    text PRIMARY KEY,
	difficulty text NOT NULL,
	human      text NOT NULL,
	won        boolean NOT NULL,
	kind       text NOT NULL,
	points     integer NOT NULL,
	match_over boolean NOT NULL,
	at         timestamptz NOT NULL
);
`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres keeps statistics in PostgreSQL.
type Postgres struct {
	dbc *pgxpool.Pool
}

// OpenPostgres connects to dsn and creates the tables if needed.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	dbc, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := dbc.Ping(ctx); err != nil {
		dbc.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := dbc.Exec(ctx, schema); err != nil {
		dbc.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Postgres{dbc: dbc}, nil
}

func (p *Postgres) Close() {
	p.dbc.Close()
}

// RecordOutcome logs the game and updates the counters for its difficulty
// in one transaction. A game already recorded is ignored.
func (p *Postgres) RecordOutcome(ctx context.Context, o match.Outcome) error {
	tx, err := p.dbc.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insert, args, err := psql.Insert(outcomeTable).
		Columns(colGameID, colDifficulty, colHuman, colWon, colKind, colPoints, colMatchOver, colAt).
		Values(o.GameID, o.Difficulty, o.Human.String(), o.Won, o.Kind, o.Points, o.MatchOver, o.At).
		Suffix("ON CONFLICT (" + colGameID + ") DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, insert, args...)
	if err != nil {
		return fmt.Errorf("inserting outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	// FOR UPDATE only locks a row that exists, so the first outcome for a
	// difficulty creates it before reading.
	seed, args, err := seedStats(o.Difficulty)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, seed, args...); err != nil {
		return fmt.Errorf("seeding stats: %w", err)
	}

	s, err := selectStats(ctx, tx, o.Difficulty, true)
	if err != nil {
		return err
	}
	s.apply(o)

	update, args, err := updateStats(s)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, update, args...); err != nil {
		return fmt.Errorf("updating stats: %w", err)
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Stats(ctx context.Context, difficulty string) (Stats, error) {
	return selectStats(ctx, p.dbc, difficulty, false)
}

func seedStats(difficulty string) (string, []any, error) {
	return psql.Insert(statsTable).
		Columns(colDifficulty, colRating).
		Values(difficulty, InitialRating*100).
		Suffix("ON CONFLICT (" + colDifficulty + ") DO NOTHING").
		ToSql()
}

func updateStats(s Stats) (string, []any, error) {
	return psql.Update(statsTable).
		SetMap(map[string]any{
			colGames:       s.Games,
			colWins:        s.Wins,
			colLosses:      s.Losses,
			colGammons:     s.Gammons,
			colGammonsLost: s.GammonsLost,
			colMatches:     s.Matches,
			colMatchWins:   s.MatchWins,
			colRating:      int(s.Rating * 100),
		}).
		Where(sq.Eq{colDifficulty: s.Difficulty}).
		ToSql()
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func selectStats(ctx context.Context, q querier, difficulty string, lock bool) (Stats, error) {
	query := psql.Select(colGames, colWins, colLosses, colGammons, colGammonsLost, colMatches, colMatchWins, colRating).
		From(statsTable).
		Where(sq.Eq{colDifficulty: difficulty})
	if lock {
		query = query.Suffix("FOR UPDATE")
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return Stats{}, err
	}

	s := Stats{Difficulty: difficulty}
	var rating int
	err = q.QueryRow(ctx, sqlStr, args...).
		Scan(&s.Games, &s.Wins, &s.Losses, &s.Gammons, &s.GammonsLost, &s.Matches, &s.MatchWins, &rating)
	if errors.Is(err, pgx.ErrNoRows) {
		s.Rating = InitialRating
		return s, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("reading stats: %w", err)
	}
	s.Rating = float64(rating) / 100
	return s, nil
}
