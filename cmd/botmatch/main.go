package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/freeeve/hexfront/internal/bot"
	"github.com/freeeve/hexfront/internal/logger"
	"github.com/freeeve/hexfront/internal/repository"
	"github.com/freeeve/hexfront/internal/repository/sqlrepo"
	"github.com/freeeve/hexfront/pkg/hexgame"
)

type options struct {
	civCfg    string
	matchup   string
	numGames  int
	workers   int
	dbURL     string
	maxTurns  int
	seed      int64
	dryRun    bool
	jsonOut   bool
	generated bool
	movement  string
	verbose   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "botmatch",
		Short: "Play bot-vs-bot hexfront games and summarize the results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
		SilenceUsage: true,
	}
	f := cmd.Flags()
	f.StringVarP(&opts.civCfg, "civs", "p", "", "Civ config (e.g. rome=hard,*=easy)")
	f.StringVar(&opts.matchup, "matchup", "", "Shorthand tier-vs-tier (e.g. hard-vs-easy)")
	f.IntVarP(&opts.numGames, "games", "n", 1, "Number of games to run")
	f.IntVar(&opts.workers, "workers", 1, "Concurrency (parallel games)")
	f.StringVar(&opts.dbURL, "db", "", "Postgres URL or SQLite path (defaults to DATABASE_URL, then hexfront-arena.db)")
	f.IntVar(&opts.maxTurns, "max-turns", bot.DefaultMaxTurns, "Max turns before a draw")
	f.Int64Var(&opts.seed, "seed", 0, "Base seed (0 = random)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Skip database writes")
	f.BoolVar(&opts.jsonOut, "json", false, "Output results as JSON")
	f.BoolVar(&opts.generated, "generated", false, "Play on generated maps instead of the skirmish board")
	f.StringVar(&opts.movement, "movement", "adjacent", "Movement mode: adjacent or reachable")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every game event")
	return cmd
}

func run(ctx context.Context, opts options) error {
	level := "info"
	if opts.verbose {
		level = "debug"
	}
	// Results go to stdout, so logs stay on stderr.
	logger.Init(logger.Options{Level: level, Dev: true, Out: os.Stderr})

	if opts.workers < 1 {
		opts.workers = 1
	}
	if opts.movement != "adjacent" && opts.movement != "reachable" {
		return fmt.Errorf("unknown movement mode %q", opts.movement)
	}

	civs := resolveCivConfig(opts.civCfg, opts.matchup)
	label := bot.Label(civs)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Interface-typed so dry-run passes real nils to RunGame.
	var (
		gameRepo    repository.GameRepository
		historyRepo repository.HistoryRepository
		userRepo    repository.UserRepository
	)
	if !opts.dryRun {
		dbURL := opts.dbURL
		if dbURL == "" {
			dbURL = os.Getenv("DATABASE_URL")
		}
		if dbURL == "" {
			dbURL = "hexfront-arena.db"
		}
		db, err := repository.OpenDB(dbURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()
		gameRepo = sqlrepo.NewGameRepo(db)
		historyRepo = sqlrepo.NewHistoryRepo(db)
		userRepo = sqlrepo.NewUserRepo(db)
	}

	var scenario hexgame.Scenario
	if !opts.generated {
		scenario = hexgame.Skirmish()
	}

	results := make([]*bot.ArenaResult, opts.numGames)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, opts.workers)
	errCount := 0

	for i := range opts.numGames {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			gameSeed := opts.seed
			if opts.seed != 0 {
				gameSeed = opts.seed + int64(idx)
			}
			cfg := bot.ArenaConfig{
				GameName:  fmt.Sprintf("%s #%d", label, idx+1),
				Scenario:  scenario,
				CivConfig: civs,
				MaxTurns:  opts.maxTurns,
				Seed:      gameSeed,
				DryRun:    opts.dryRun,
				Movement:  hexgame.ParseMovementMode(opts.movement),
			}

			result, err := bot.RunGame(ctx, cfg, gameRepo, historyRepo, userRepo)
			if err != nil {
				log.Error().Err(err).Int("game", idx+1).Msg("Game failed")
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}

			mu.Lock()
			results[idx] = result
			mu.Unlock()

			log.Info().Int("game", idx+1).Str("winner", result.Winner).Int("turns", result.Turns).
				Int("combats", result.Combats).Msg("Game completed")
		}(i)
	}
	wg.Wait()

	if opts.jsonOut {
		return printJSON(os.Stdout, results, opts.numGames, errCount)
	}
	printSummary(os.Stdout, summarize(results, civs), opts.maxTurns, errCount)
	if !opts.dryRun && errCount < opts.numGames {
		fmt.Printf("\nGames saved to database as %q #1 through #%d\n", label, opts.numGames)
	}
	return nil
}

// resolveCivConfig picks the explicit civ config, then the matchup shorthand,
// then all-easy.
func resolveCivConfig(civCfg, matchup string) map[string]string {
	switch {
	case civCfg != "":
		return bot.ParseCivConfig(civCfg)
	case matchup != "":
		return parseTierVsTier(matchup)
	default:
		return bot.ParseCivConfig("*=easy")
	}
}

// parseTierVsTier handles "hard-vs-easy" style matchup strings. The first
// tier plays Rome, everyone else gets the second.
func parseTierVsTier(s string) map[string]string {
	first, second, ok := strings.Cut(s, "-vs-")
	if !ok {
		return bot.ParseCivConfig("*=" + s)
	}
	return bot.ParseCivConfig(fmt.Sprintf("rome=%s,*=%s", first, second))
}

func printJSON(w io.Writer, results []*bot.ArenaResult, total, errCount int) error {
	out := struct {
		Total   int                `json:"total"`
		Errors  int                `json:"errors"`
		Results []*bot.ArenaResult `json:"results"`
	}{
		Total:   total,
		Errors:  errCount,
		Results: results,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
