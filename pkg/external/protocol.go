// Package external implements gnubg's external player protocol.
// This lets other backgammon programs play against the tutor's computer
// opponent over a TCP socket using FIBS board format.
//
// Protocol overview:
// - Server listens on a TCP port
// - Client connects and sends one command per line
// - Commands include: fibsboard, evaluation, set, version, exit
// - Positions are sent in FIBS board format
// - Responses are a play, a cube action or an evaluation
package external

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/game"
)

// ServerOptions configures the external player server.
type ServerOptions struct {
	Addr          string                  // TCP address to listen on
	Plies         int                     // Evaluator search depth
	PromptEnabled bool                    // Send prompts after responses
	Heuristic     engine.HeuristicWeights // Play choice without an evaluator
}

// DefaultServerOptions returns sensible defaults.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Addr:          ":1234",
		Plies:         2,
		PromptEnabled: true,
		Heuristic:     engine.DefaultHeuristicWeights(),
	}
}

// Server implements the external player protocol server.
type Server struct {
	eval game.Evaluator // nil plays by heuristic
	log  *zap.Logger

	mu       sync.Mutex
	options  ServerOptions
	listener net.Listener
}

// NewServer creates a new external player server. eval may be nil.
func NewServer(eval game.Evaluator, opts ServerOptions, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{eval: eval, options: opts, log: logger}
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts().Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts().Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.listener != nil {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.listener = ln
	s.mu.Unlock()

	s.log.Info("external player listening", zap.String("addr", ln.Addr().String()))
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

func (s *Server) opts() ServerOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

// handleConnection handles a single client connection.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	log := s.log.With(zap.String("remote", conn.RemoteAddr().String()))
	log.Debug("external player connected")

	w := bufio.NewWriter(conn)
	prompt := func() {
		if s.opts().PromptEnabled {
			w.WriteString("> ")
		}
		w.Flush()
	}

	prompt()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		w.WriteString(s.processCommand(ctx, line))
		if cmd := strings.ToLower(line); cmd == "exit" || cmd == "quit" {
			w.Flush()
			return
		}
		prompt()
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Debug("external player read failed", zap.Error(err))
	}
}

// processCommand processes a single command and returns the response.
func (s *Server) processCommand(ctx context.Context, cmd string) string {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return "Error: empty command\n"
	}

	switch command := strings.ToLower(parts[0]); command {
	case "version":
		return "bgtutor external player protocol 1.0\n"

	case "help":
		return helpResponse

	case "exit", "quit":
		return "Goodbye\n"

	case "set":
		return s.handleSet(parts[1:])

	case "evaluation", "eval":
		return s.handleEvaluation(ctx, cmd)

	case "fibsboard":
		return s.handleFIBSBoard(ctx, cmd)

	default:
		if strings.HasPrefix(cmd, "board:") {
			return s.handleFIBSBoard(ctx, cmd)
		}
		return fmt.Sprintf("Error: unknown command '%s'\n", command)
	}
}

const helpResponse = `Available commands:
  version     - Show version information
  help        - Show this help
  set <opt>   - Set option (plies, prompt)
  evaluation  - Evaluate a position (with FIBS board)
  fibsboard   - Get the play or cube action for a position
  exit        - Close connection
`

// handleSet handles the set command.
func (s *Server) handleSet(args []string) string {
	if len(args) < 2 {
		return "Error: set requires option and value\n"
	}

	option := strings.ToLower(args[0])
	value := args[1]

	s.mu.Lock()
	defer s.mu.Unlock()
	switch option {
	case "plies":
		plies, err := strconv.Atoi(value)
		if err != nil || plies < 0 || plies > 4 {
			return "Error: plies must be 0-4\n"
		}
		s.options.Plies = plies
		return fmt.Sprintf("plies set to %d\n", plies)

	case "prompt":
		s.options.PromptEnabled = value == "on" || value == "true" || value == "1"
		return fmt.Sprintf("prompt set to %v\n", s.options.PromptEnabled)

	default:
		return fmt.Sprintf("Error: unknown option '%s'\n", option)
	}
}

func parseBoardArg(cmd string) (*FIBSBoard, engine.Board, error) {
	boardStart := strings.Index(cmd, "board:")
	if boardStart < 0 {
		return nil, engine.Board{}, errors.New("no board specified")
	}
	fb, err := ParseFIBSBoard(strings.Fields(cmd[boardStart:])[0])
	if err != nil {
		return nil, engine.Board{}, err
	}
	b, err := fb.ToBoard()
	if err != nil {
		return nil, b, err
	}
	return fb, b, nil
}

// handleEvaluation returns the cubeful equity and win probability of the
// side on roll. It needs an evaluator.
func (s *Server) handleEvaluation(ctx context.Context, cmd string) string {
	_, b, err := parseBoardArg(cmd)
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}
	if s.eval == nil {
		return "Error: no evaluator configured\n"
	}

	d, err := s.eval.Cube(ctx, b, s.opts().Plies)
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}
	return fmt.Sprintf("%.6f %.6f %.6f\n", d.NoDoubleEquity, d.WinProbability, d.GammonThreat)
}

// handleFIBSBoard answers a position: take or drop after a double, double
// or roll before rolling, otherwise the play for the dice.
func (s *Server) handleFIBSBoard(ctx context.Context, cmd string) string {
	fb, b, err := parseBoardArg(cmd)
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}

	if fb.Doubled {
		if s.shouldTake(ctx, b) {
			return "take\n"
		}
		return "drop\n"
	}

	if fb.Dice[0] == 0 || fb.Dice[1] == 0 {
		if fb.CanDouble && s.shouldDouble(ctx, b) {
			return "double\n"
		}
		return "roll\n"
	}

	dice := engine.Dice{fb.Dice[0], fb.Dice[1]}
	if !dice.Valid() {
		return "Error: invalid dice\n"
	}
	play := s.choosePlay(ctx, b, dice)
	if len(play) == 0 {
		return "cannot move\n"
	}
	return fb.FormatPlay(play) + "\n"
}

// choosePlay returns the evaluator's best play when it is one of the legal
// plays and the heuristic's choice otherwise.
func (s *Server) choosePlay(ctx context.Context, b engine.Board, dice engine.Dice) engine.Play {
	legal := engine.GenerateMoves(b, dice)
	if legal.MaxMoves == 0 {
		return nil
	}
	opts := s.opts()
	if s.eval != nil && len(legal.Plays) > 1 {
		ev, err := s.eval.Evaluate(ctx, b, dice, opts.Plies)
		if err != nil {
			s.log.Warn("evaluator unavailable, using heuristic", zap.Error(err))
		} else {
			after := b.ApplyPlay(ev.Best, b.Turn)
			for i, r := range legal.Results {
				if r == after {
					return legal.Plays[i]
				}
			}
			s.log.Info("evaluator play rejected", zap.Stringer("play", ev.Best), zap.Stringer("dice", dice))
		}
	}
	return legal.Plays[opts.Heuristic.BestPlay(b, legal.Plays)]
}

// shouldDouble asks the evaluator; without one the computer never doubles.
func (s *Server) shouldDouble(ctx context.Context, b engine.Board) bool {
	if s.eval == nil {
		return false
	}
	d, err := s.eval.Cube(ctx, b, s.opts().Plies)
	if err != nil {
		s.log.Warn("cube advice unavailable", zap.Error(err))
		return false
	}
	return d.ShouldDouble()
}

// shouldTake asks the evaluator from the doubler's side; without one the
// computer takes.
func (s *Server) shouldTake(ctx context.Context, b engine.Board) bool {
	if s.eval == nil {
		return true
	}
	b.Turn = engine.Black
	d, err := s.eval.Cube(ctx, b, s.opts().Plies)
	if err != nil {
		s.log.Warn("cube advice unavailable", zap.Error(err))
		return true
	}
	return d.ShouldTake()
}
