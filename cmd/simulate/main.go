// Command simulate plays headless robot-only games in-process and prints the
// final scores. It is handy for tuning robot difficulty and for checking how a
// tile catalog plays out on a given board size.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/carcacity/game/engine"
)

// SimConfig controls a batch of games.
type SimConfig struct {
	Games        int
	Difficulties []int
	BoardSize    int
	Catalog      *engine.TileCatalog
	Seed         int64
}

// GameResult is the outcome of one game.
type GameResult struct {
	Players    []engine.Player
	Placements int
	Discarded  int
	Winners    []string
}

// Summary aggregates a batch.
type Summary struct {
	Games      int
	Wins       map[string]float64
	TotalScore map[string]int
	Placements int
	Discarded  int
}

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Play robot-only games and print final scores",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "games", Aliases: []string{"n"}, Value: 10, Usage: "number of games"},
			&cli.IntSliceFlag{Name: "difficulty", Aliases: []string{"d"}, Value: []int{0, 1, 2, 3}, Usage: "one robot per difficulty (0-3)"},
			&cli.IntFlag{Name: "board-size", Aliases: []string{"s"}, Value: engine.DefaultBoardSize, Usage: "odd board size"},
			&cli.StringFlag{Name: "catalog", Aliases: []string{"c"}, Usage: "catalog JSON file (built-in set when empty)"},
			&cli.BoolFlag{Name: "classic", Usage: "play without tiles or fitment"},
			&cli.Int64Flag{Name: "seed", Usage: "random seed (time based when 0)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := SimConfig{
				Games:        cmd.Int("games"),
				Difficulties: cmd.IntSlice("difficulty"),
				BoardSize:    cmd.Int("board-size"),
				Seed:         cmd.Int64("seed"),
			}
			if cfg.Seed == 0 {
				cfg.Seed = time.Now().UnixNano()
			}
			if !cmd.Bool("classic") {
				cfg.Catalog = engine.DefaultCatalog()
				if path := cmd.String("catalog"); path != "" {
					catalog, err := engine.LoadCatalog(path)
					if err != nil {
						return fmt.Errorf("load catalog: %w", err)
					}
					cfg.Catalog = catalog
				}
			}

			summary, err := simulate(cfg)
			if err != nil {
				return err
			}
			printSummary(out, cfg, summary)
			return nil
		},
	}
}

func validate(cfg SimConfig) error {
	if cfg.Games <= 0 {
		return fmt.Errorf("games must be positive, got %d", cfg.Games)
	}
	if len(cfg.Difficulties) == 0 || len(cfg.Difficulties) > engine.MaxPlayers {
		return fmt.Errorf("need between 1 and %d robots, got %d", engine.MaxPlayers, len(cfg.Difficulties))
	}
	for _, d := range cfg.Difficulties {
		if d < 0 || d > engine.MaxDifficulty {
			return fmt.Errorf("difficulty must be between 0 and %d, got %d", engine.MaxDifficulty, d)
		}
	}
	return engine.ValidateBoardSize(cfg.BoardSize)
}

func simulate(cfg SimConfig) (*Summary, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	summary := &Summary{
		Wins:       make(map[string]float64),
		TotalScore: make(map[string]int),
	}
	for i := 0; i < cfg.Games; i++ {
		result, err := playGame(cfg, rng)
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i+1, err)
		}
		summary.Games++
		summary.Placements += result.Placements
		summary.Discarded += result.Discarded
		for _, p := range result.Players {
			summary.TotalScore[p.Name] += p.Score
		}
		// Ties split the win.
		for _, name := range result.Winners {
			summary.Wins[name] += 1 / float64(len(result.Winners))
		}
	}
	return summary, nil
}

func playGame(cfg SimConfig, rng *rand.Rand) (*GameResult, error) {
	opts := engine.Options{
		BoardSize: cfg.BoardSize,
		Rand:      rand.New(rand.NewSource(rng.Int63())),
	}
	if cfg.Catalog != nil {
		opts.Catalog = cfg.Catalog
	}
	g, err := engine.NewGameSession(opts)
	if err != nil {
		return nil, err
	}
	return run(g, cfg.Difficulties, cfg.BoardSize*cfg.BoardSize)
}

// run seats one robot per difficulty and steps until checkmate. Every step
// fills a cell, so limit bounds the loop.
func run(g engine.Engine, difficulties []int, limit int) (*GameResult, error) {
	for _, d := range difficulties {
		if _, err := g.AddRobot(d); err != nil {
			return nil, err
		}
	}
	if err := g.Start(); err != nil {
		return nil, err
	}

	for step := 0; g.Status().Started && step < limit; step++ {
		if !g.RobotStep() {
			return nil, fmt.Errorf("robot could not move at step %d", step)
		}
	}
	state := g.Snapshot()
	if !state.Status.Ended {
		return nil, fmt.Errorf("game did not finish after %d placements", limit)
	}

	result := &GameResult{
		Players:    state.Players,
		Placements: state.Sequence,
		Discarded:  state.Discarded,
	}
	best := -1
	for _, p := range result.Players {
		switch {
		case p.Score > best:
			best = p.Score
			result.Winners = []string{p.Name}
		case p.Score == best:
			result.Winners = append(result.Winners, p.Name)
		}
	}
	return result, nil
}

func printSummary(out io.Writer, cfg SimConfig, s *Summary) {
	variant := "classic"
	if cfg.Catalog != nil {
		variant = cfg.Catalog.Name
	}
	fmt.Fprintf(out, "=== %d games, %dx%d board, %s, seed %d ===\n", s.Games, cfg.BoardSize, cfg.BoardSize, variant, cfg.Seed)

	names := make([]string, 0, len(s.TotalScore))
	for name := range s.TotalScore {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.Wins[names[i]] != s.Wins[names[j]] {
			return s.Wins[names[i]] > s.Wins[names[j]]
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		avg := float64(s.TotalScore[name]) / float64(s.Games)
		fmt.Fprintf(out, "  %-10s wins=%5.1f  avg score=%6.2f\n", name, s.Wins[name], avg)
	}
	fmt.Fprintf(out, "Placements per game: %.1f\n", float64(s.Placements)/float64(s.Games))
	if cfg.Catalog != nil {
		fmt.Fprintf(out, "Discarded tiles per game: %.1f\n", float64(s.Discarded)/float64(s.Games))
	}
}
