// bgengine - command line tools for the backgammon tutor engine
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/yourusername/bgtutor/internal/logging"
	"github.com/yourusername/bgtutor/internal/met"
	"github.com/yourusername/bgtutor/internal/positionid"
	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/evaluator"
	"github.com/yourusername/bgtutor/pkg/external"
	"github.com/yourusername/bgtutor/pkg/game"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "move":
		cmdMove(args)
	case "eval":
		cmdEval(args)
	case "cube":
		cmdCube(args)
	case "pips":
		cmdPips(args)
	case "met":
		cmdMET(args)
	case "selfplay":
		cmdSelfplay(args)
	case "external":
		cmdExternal(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`bgengine - Backgammon Tutor Engine Tools

Usage: bgengine <command> [options]

Commands:
  move      List the legal plays for a roll, best heuristic play first
  eval      Rank the plays for a roll with the evaluator service
  cube      Ask the evaluator service for cube advice
  pips      Show pip counts and checker totals
  met       Look up match equity
  selfplay  Play heuristic against heuristic and report statistics
  external  Serve gnubg's external player protocol

Use "bgengine <command> -h" for command-specific help.

Position ID Format:
  The position is specified using gnubg's position ID format.
  Example: "4HPwATDgc/ABMA:cIkqAAAAAAAA" (position:match)
  Only the position part (before :) is required. Omitting the
  position uses the starting position.`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// positionFlags registers -position/-p and -turn on fs.
func positionFlags(fs *flag.FlagSet) func() engine.Board {
	posFlag := fs.String("position", "", "Position ID (gnubg format)")
	posShort := fs.String("p", "", "Position ID (short form)")
	turn := fs.String("turn", "white", "Player on roll (white or black)")
	return func() engine.Board {
		pos := *posFlag
		if pos == "" {
			pos = *posShort
		}
		p, err := engine.ParsePlayer(*turn)
		if err != nil || p == engine.NoPlayer {
			fatalf("turn must be white or black")
		}
		b, err := parsePosition(pos, p)
		if err != nil {
			fatalf("%v", err)
		}
		return b
	}
}

func parsePosition(posStr string, turn engine.Player) (engine.Board, error) {
	if posStr == "" {
		b := engine.StartingPosition()
		b.Turn = turn
		return b, nil
	}
	// Handle gnubg format "positionID:matchID" - we only need the position part
	if idx := strings.Index(posStr, ":"); idx >= 0 {
		posStr = posStr[:idx]
	}
	b, err := positionid.Decode(posStr, turn)
	if err != nil {
		return b, fmt.Errorf("invalid position ID: %w", err)
	}
	return b, nil
}

func parseDice(diceStr string) (engine.Dice, error) {
	parts := strings.Split(diceStr, ",")
	if len(parts) != 2 {
		parts = strings.Split(diceStr, "-")
	}
	if len(parts) != 2 {
		return engine.Dice{}, fmt.Errorf("dice should be in format '3,1' or '3-1'")
	}

	d1, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	d2, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || d1 < 1 || d1 > 6 || d2 < 1 || d2 > 6 {
		return engine.Dice{}, fmt.Errorf("dice values must be 1-6")
	}

	return engine.Dice{d1, d2}, nil
}

func diceFlags(fs *flag.FlagSet) func() engine.Dice {
	diceFlag := fs.String("dice", "", "Dice roll (e.g., 3,1 or 3-1)")
	diceShort := fs.String("d", "", "Dice roll (short form)")
	return func() engine.Dice {
		s := *diceFlag
		if s == "" {
			s = *diceShort
		}
		if s == "" {
			fatalf("dice required")
		}
		d, err := parseDice(s)
		if err != nil {
			fatalf("%v", err)
		}
		return d
	}
}

func evaluatorFlags(fs *flag.FlagSet) func() (*evaluator.Client, int) {
	def := evaluator.DefaultConfig()
	url := fs.String("url", def.URL, "Evaluator service URL")
	ply := fs.Int("ply", def.Ply, "Search depth (0-4)")
	timeout := fs.Duration("timeout", def.Timeout, "Request timeout")
	return func() (*evaluator.Client, int) {
		cfg := evaluator.Config{URL: *url, Timeout: *timeout, Ply: *ply}
		return evaluator.New(cfg, zap.NewNop()), *ply
	}
}

func cmdMove(args []string) {
	fs := flag.NewFlagSet("move", flag.ExitOnError)
	board := positionFlags(fs)
	dice := diceFlags(fs)
	numMoves := fs.Int("n", 5, "Number of plays to show (0 = all)")
	fs.Parse(args)

	b, roll := board(), dice()
	list := engine.GenerateMoves(b, roll)
	if list.MaxMoves == 0 {
		fmt.Println("No legal moves (forced to pass)")
		return
	}

	weights := engine.DefaultHeuristicWeights()
	type scored struct {
		play  engine.Play
		after engine.Board
		score float64
	}
	plays := make([]scored, len(list.Plays))
	for i, p := range list.Plays {
		plays[i] = scored{p, list.Results[i], weights.ScorePlay(b, p)}
	}
	sort.SliceStable(plays, func(i, j int) bool { return plays[i].score > plays[j].score })
	if *numMoves > 0 && len(plays) > *numMoves {
		plays = plays[:*numMoves]
	}

	fmt.Printf("%d legal plays for %s %s:\n", len(list.Plays), b.Turn, roll)
	for i, p := range plays {
		fmt.Printf("  %d. %-20s  Score: %+.3f  %s\n", i+1, p.play, p.score, positionid.Encode(p.after))
	}
}

func cmdEval(args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	board := positionFlags(fs)
	dice := diceFlags(fs)
	client := evaluatorFlags(fs)
	numMoves := fs.Int("n", 5, "Number of plays to show")
	fs.Parse(args)

	b, roll := board(), dice()
	c, ply := client()
	eval, err := c.Evaluate(context.Background(), b, roll, ply)
	if err != nil {
		fatalf("evaluating position: %v", err)
	}
	if len(eval.Plays) == 0 {
		fmt.Println("No legal moves (forced to pass)")
		return
	}

	fmt.Printf("Best plays for %s %s (%d-ply):\n", b.Turn, roll, ply)
	for i, p := range eval.Plays {
		if i == *numMoves {
			break
		}
		fmt.Printf("  %d. %-20s  Eq: %+.3f  (%+.3f)  Win: %.1f%%\n",
			p.Rank, p.Notation, p.Equity, p.EquityDifference, p.WinProbability*100)
	}
}

func cmdCube(args []string) {
	fs := flag.NewFlagSet("cube", flag.ExitOnError)
	board := positionFlags(fs)
	client := evaluatorFlags(fs)
	fs.Parse(args)

	b := board()
	c, ply := client()
	d, err := c.Cube(context.Background(), b, ply)
	if err != nil {
		fatalf("analyzing cube: %v", err)
	}

	decisionStr := "No Double"
	switch d.Recommendation {
	case evaluator.DoubleTake:
		decisionStr = "Double, Take"
	case evaluator.DoublePass:
		decisionStr = "Double, Pass"
	}

	fmt.Printf("Cube Decision: %s\n", decisionStr)
	if d.ProperCubeAction != "" {
		fmt.Printf("  Proper action:      %s\n", d.ProperCubeAction)
	}
	fmt.Printf("  No double equity:   %+.3f\n", d.NoDoubleEquity)
	fmt.Printf("  Double/Take equity: %+.3f\n", d.DoubleTakeEquity)
	fmt.Printf("  Double/Pass equity: %+.3f\n", d.DoublePassEquity)
	fmt.Printf("  Win: %.1f%%  Gammon threat: %.1f%%\n", d.WinProbability*100, d.GammonThreat*100)
}

func cmdPips(args []string) {
	fs := flag.NewFlagSet("pips", flag.ExitOnError)
	board := positionFlags(fs)
	fs.Parse(args)

	b := board()
	fmt.Printf("Position ID: %s\n", positionid.Encode(b))
	for _, p := range []engine.Player{engine.White, engine.Black} {
		fmt.Printf("  %-5s  pips %3d  checkers %2d  bar %d  off %2d\n",
			p, b.PipCount(p), b.CheckerCount(p), b.Bar[p], b.Off[p])
	}
	diff := b.PipCount(b.Turn) - b.PipCount(b.Turn.Opponent())
	fmt.Printf("%s on roll, %+d pips\n", b.Turn, diff)
}

func cmdMET(args []string) {
	fs := flag.NewFlagSet("met", flag.ExitOnError)
	file := fs.String("file", "", "gnubg XML match equity table (default: built-in)")
	score := fs.String("score", "", "Score as white,black (e.g., 2,4)")
	length := fs.Int("length", 7, "Match length")
	size := fs.Int("size", 7, "Rows and columns to print when no score is given")
	fs.Parse(args)

	table := met.Default()
	if *file != "" {
		t, err := met.LoadXML(*file)
		if err != nil {
			fatalf("%v", err)
		}
		table = t
	}

	if *score != "" {
		parts := strings.Split(*score, ",")
		if len(parts) != 2 {
			fatalf("score should be in format 'white,black'")
		}
		w, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		k, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil || w < 0 || k < 0 || w >= *length || k >= *length {
			fatalf("scores must be 0 to length-1")
		}
		eq := table.ScoreEquity(w, k, *length)
		fmt.Printf("%d-%d in a %d point match (%d-away, %d-away)\n", w, k, *length, *length-w, *length-k)
		fmt.Printf("  White: %.1f%%  Black: %.1f%%\n", eq*100, (1-eq)*100)
		return
	}

	fmt.Println(table.Name)
	fmt.Print("      ")
	for b := 1; b <= *size; b++ {
		fmt.Printf("%6d", b)
	}
	fmt.Println()
	for a := 1; a <= *size; a++ {
		fmt.Printf("%6d", a)
		for b := 1; b <= *size; b++ {
			fmt.Printf("%6.1f", table.Equity(a, b)*100)
		}
		fmt.Println()
	}
}

// selfplayStats accumulates the results of heuristic games.
type selfplayStats struct {
	mu          sync.Mutex
	games       int
	wins        [2]int
	gammons     [2]int
	backgammons [2]int
	rolls       int
	doubles     int
	passes      int
}

func (s *selfplayStats) add(g selfplayGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games++
	s.wins[g.winner]++
	switch g.multiplier {
	case 2:
		s.gammons[g.winner]++
	case 3:
		s.backgammons[g.winner]++
	}
	s.rolls += g.rolls
	s.doubles += g.doubles
	s.passes += g.passes
}

type selfplayGame struct {
	winner     engine.Player
	multiplier int
	rolls      int
	doubles    int
	passes     int
}

// playHeuristicGame plays one cubeless game with both sides choosing the
// best heuristic play.
func playHeuristicGame(ctx context.Context, dice game.DiceSource, w engine.HeuristicWeights) (selfplayGame, error) {
	var g selfplayGame
	b := engine.StartingPosition()

	roll := dice.Roll()
	for roll.IsDoubles() {
		roll = dice.Roll()
	}
	b.Turn = engine.White
	if roll[1] > roll[0] {
		b.Turn = engine.Black
	}

	for {
		if err := ctx.Err(); err != nil {
			return g, err
		}
		g.rolls++
		if roll.IsDoubles() {
			g.doubles++
		}

		list := engine.GenerateMoves(b, roll)
		if list.MaxMoves == 0 {
			g.passes++
		} else {
			b = list.Results[w.BestPlay(b, list.Plays)]
		}
		if b.IsGameOver() {
			g.winner, g.multiplier = b.GameResult()
			return g, nil
		}
		b.Turn = b.Turn.Opponent()
		roll = dice.Roll()
	}
}

func cmdSelfplay(args []string) {
	fs := flag.NewFlagSet("selfplay", flag.ExitOnError)
	games := fs.Int("games", 1000, "Number of games to play")
	workers := fs.Int("workers", 0, "Number of worker goroutines (0 = auto)")
	seed := fs.Uint64("seed", 0, "Random seed (0 = random)")
	fs.Parse(args)

	if *games < 1 {
		fatalf("games must be positive")
	}
	if *workers <= 0 {
		*workers = runtime.NumCPU()
	}
	base := *seed
	if base == 0 {
		base = uint64(time.Now().UnixNano())
	}

	weights := engine.DefaultHeuristicWeights()
	stats := &selfplayStats{}
	start := time.Now()

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*workers)
	for i := 0; i < *games; i++ {
		dice := game.NewRandomDice(base + uint64(i))
		g.Go(func() error {
			res, err := playHeuristicGame(ctx, dice, weights)
			if err != nil {
				return err
			}
			stats.add(res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fatalf("%v", err)
	}
	elapsed := time.Since(start)

	percent := func(n, of int) float64 {
		if of == 0 {
			return 0
		}
		return float64(n) / float64(of) * 100
	}
	p := message.NewPrinter(language.English)
	p.Printf("Played %d games in %.1fs (seed %d).\n", stats.games, elapsed.Seconds(), base)
	for _, pl := range []engine.Player{engine.White, engine.Black} {
		p.Printf("  %-5s won %d (%.1f%%), gammons %d, backgammons %d\n",
			pl, stats.wins[pl], percent(stats.wins[pl], stats.games), stats.gammons[pl], stats.backgammons[pl])
	}
	p.Printf("Rolled %d pairs of dice.\nDoubles: %d (%.0f%%). Forced passes: %d (%.1f%%).\n",
		stats.rolls, stats.doubles, percent(stats.doubles, stats.rolls), stats.passes, percent(stats.passes, stats.rolls))
	p.Printf("Average game length: %.1f rolls.\n", float64(stats.rolls)/float64(stats.games))
}

func cmdExternal(args []string) {
	fs := flag.NewFlagSet("external", flag.ExitOnError)
	def := external.DefaultServerOptions()
	addr := fs.String("addr", def.Addr, "TCP address to listen on")
	url := fs.String("url", "", "Evaluator service URL (default: heuristic play)")
	plies := fs.Int("ply", def.Plies, "Evaluator search depth (0-4)")
	noPrompt := fs.Bool("no-prompt", false, "Do not send prompts")
	level := fs.String("log-level", "info", "Log level")
	fs.Parse(args)

	logger, err := logging.New(*level, true)
	if err != nil {
		fatalf("%v", err)
	}
	defer logger.Sync()

	opts := def
	opts.Addr = *addr
	opts.Plies = *plies
	opts.PromptEnabled = !*noPrompt

	var eval game.Evaluator
	if *url != "" {
		cfg := evaluator.DefaultConfig()
		cfg.URL = *url
		cfg.Ply = *plies
		eval = evaluator.New(cfg, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := external.NewServer(eval, opts, logger).ListenAndServe(ctx); err != nil {
		logger.Fatal("external player failed", zap.Error(err))
	}
}
