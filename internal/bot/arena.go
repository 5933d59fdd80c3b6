package bot

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/hexfront/internal/mapgen"
	"github.com/freeeve/hexfront/internal/model"
	"github.com/freeeve/hexfront/internal/repository"
	"github.com/freeeve/hexfront/pkg/hexgame"
)

// DefaultMaxTurns caps an arena game before it is scored as a draw.
const DefaultMaxTurns = 200

// ArenaConfig configures a single bot-vs-bot game.
type ArenaConfig struct {
	GameName string
	// Scenario is played as given. A scenario with no width is generated
	// from Seed.
	Scenario  hexgame.Scenario
	CivConfig map[string]string // civ name -> difficulty; "*" sets the default
	MaxTurns  int
	Seed      int64 // 0 = random
	DryRun    bool  // skip DB writes
	Movement  hexgame.MovementMode
}

// ArenaResult describes the outcome of a completed arena game.
type ArenaResult struct {
	GameID     string
	Winner     string // civ name or "" for draw
	Turns      int
	Combats    int
	Kills      int
	UnitCounts map[string]int // civ -> surviving units
}

// RunGame plays a full game with every civilization driven by a bot
// strategy, recording history through the repositories. Pass nil repos for
// dry-run mode.
func RunGame(
	ctx context.Context,
	cfg ArenaConfig,
	gameRepo repository.GameRepository,
	historyRepo repository.HistoryRepository,
	userRepo repository.UserRepository,
) (*ArenaResult, error) {
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int64()
	}

	cat := hexgame.DefaultCatalog()
	sc := cfg.Scenario
	if sc.Width == 0 {
		var err error
		sc, err = mapgen.Generate(mapgen.DefaultConfig(seed), cat)
		if err != nil {
			return nil, fmt.Errorf("generate map: %w", err)
		}
	}
	if cfg.GameName == "" {
		cfg.GameName = "botmatch"
	}
	sc.Name = cfg.GameName

	difficulties, fallback := splitDefault(cfg.CivConfig)
	jitterRng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1))
	strategyRng := newBotRng(uint64(seed))
	logger := log.Logger.Level(zerolog.InfoLevel)
	game, err := hexgame.Load(sc, cat, hexgame.Config{
		Logger:   &logger,
		Movement: cfg.Movement,
		Jitter:   func() float64 { return 0.8 + jitterRng.Float64()*0.4 },
		Selector: selectorWith(difficulties, fallback, strategyRng),
	})
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	defer game.Close()

	gameID := uuid.NewString()
	if !cfg.DryRun {
		gameID, err = createArenaGame(ctx, cfg, sc, game, gameRepo, userRepo)
		if err != nil {
			return nil, fmt.Errorf("create arena game: %w", err)
		}
	}

	result := &ArenaResult{GameID: gameID, UnitCounts: make(map[string]int)}
	rec := &arenaRecorder{gameID: gameID, turns: game.Turns}
	stop := game.Store.Bus().Subscribe(rec.handle)
	defer stop()

	player := game.Player()
	playerStrategy := strategyWith(difficultyFor(difficulties, fallback, player.Name), strategyRng)

	for game.Turns.Turn() <= cfg.MaxTurns && game.Turns.State() != hexgame.StateGameOver {
		if err := game.Turns.RunCivilization(ctx, player, playerStrategy); err != nil {
			return nil, err
		}
		if game.Turns.State() != hexgame.StateGameOver {
			done, err := game.Turns.EndTurn()
			if err != nil {
				return nil, fmt.Errorf("end turn %d: %w", game.Turns.Turn(), err)
			}
			select {
			case <-done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if err := game.Turns.StartAITurn(ctx); err != nil {
				return nil, fmt.Errorf("ai turn %d: %w", game.Turns.Turn(), err)
			}
		}
		if !cfg.DryRun {
			if err := rec.flush(ctx, historyRepo); err != nil {
				return nil, err
			}
			if err := gameRepo.UpdateTurn(ctx, gameID, game.Turns.Turn()); err != nil {
				return nil, fmt.Errorf("update turn: %w", err)
			}
		} else {
			rec.drop()
		}
	}

	result.Turns = game.Turns.Turn()
	result.Combats, result.Kills = rec.totals()
	for _, u := range game.Store.Units() {
		result.UnitCounts[u.Civ.Name]++
	}
	if winner, over := game.Turns.Winner(); over {
		result.Winner = hexgame.WinnerName(winner)
	}

	if !cfg.DryRun {
		if err := gameRepo.SetFinished(ctx, gameID, result.Winner); err != nil {
			return nil, fmt.Errorf("set finished: %w", err)
		}
	}
	switch {
	case game.Turns.State() == hexgame.StateGameOver && result.Winner == "":
		log.Info().Str("gameId", gameID).Int("turn", result.Turns).Msg("Arena game ended as draw (no survivors)")
	case result.Winner == "":
		log.Info().Str("gameId", gameID).Int("turn", result.Turns).Msg("Arena game ended as draw (turn limit)")
	default:
		log.Info().Str("gameId", gameID).Str("winner", result.Winner).Int("turn", result.Turns).Msg("Arena game won")
	}
	return result, nil
}

// arenaRecorder buffers history rows from bus events between flushes.
type arenaRecorder struct {
	gameID string
	turns  *hexgame.TurnManager

	mu      sync.Mutex
	pending []model.CombatRecord
	states  []model.TurnRecord
	combats int
	kills   int
}

func (r *arenaRecorder) handle(e hexgame.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch ev := e.(type) {
	case hexgame.CombatResolved:
		r.combats++
		if ev.Combat.Defender.Killed {
			r.kills++
		}
		if ev.Combat.Attacker.Killed {
			r.kills++
		}
		r.pending = append(r.pending, model.NewCombatRecord(r.gameID, r.turns.Turn(), ev.Combat))
	case hexgame.TurnChanged:
		r.states = append(r.states, model.TurnRecord{GameID: r.gameID, Turn: ev.Turn, State: ev.State.String()})
	}
}

func (r *arenaRecorder) flush(ctx context.Context, history repository.HistoryRepository) error {
	r.mu.Lock()
	combats, states := r.pending, r.states
	r.pending, r.states = nil, nil
	r.mu.Unlock()
	for _, s := range states {
		if err := history.RecordTurn(ctx, s); err != nil {
			return fmt.Errorf("record turn: %w", err)
		}
	}
	for _, c := range combats {
		if err := history.RecordCombat(ctx, c); err != nil {
			return fmt.Errorf("record combat: %w", err)
		}
	}
	return nil
}

func (r *arenaRecorder) drop() {
	r.mu.Lock()
	r.pending, r.states = nil, nil
	r.mu.Unlock()
}

func (r *arenaRecorder) totals() (combats, kills int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.combats, r.kills
}

// createArenaGame creates a bot user per civilization and the game row.
func createArenaGame(
	ctx context.Context,
	cfg ArenaConfig,
	sc hexgame.Scenario,
	game *hexgame.Game,
	gameRepo repository.GameRepository,
	userRepo repository.UserRepository,
) (string, error) {
	difficulties, fallback := splitDefault(cfg.CivConfig)
	var creatorID string
	var labels []string
	for _, civ := range game.Store.Civilizations() {
		diff := difficultyFor(difficulties, fallback, civ.Name)
		providerID := fmt.Sprintf("botmatch-%s-%s", civ.Name, diff)
		displayName := fmt.Sprintf("Bot %s (%s)", civ.Name, diff)
		user, err := userRepo.Upsert(ctx, "bot", providerID, displayName, "")
		if err != nil {
			return "", fmt.Errorf("upsert bot user for %s: %w", civ.Name, err)
		}
		if creatorID == "" {
			creatorID = user.ID
		}
		labels = append(labels, civ.Name+"="+diff)
	}

	g, err := gameRepo.Create(ctx, cfg.GameName, creatorID, sc.Name, strings.Join(labels, ","), game.Store.Mode().String())
	if err != nil {
		return "", fmt.Errorf("create game: %w", err)
	}
	return g.ID, nil
}

// ParseCivConfig parses "rome=hard,carthage=easy,*=medium" into a civ ->
// difficulty map. The "*" entry, if present, is kept as the default.
func ParseCivConfig(s string) map[string]string {
	cfg := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || key == "" || val == "" {
			continue
		}
		if key != "*" {
			key = strings.ToLower(key)
		}
		cfg[key] = val
	}
	return cfg
}

// splitDefault separates the "*" entry from per-civ difficulties. Keys are
// matched case-insensitively against civilization names.
func splitDefault(cfg map[string]string) (map[string]string, string) {
	fallback := "easy"
	out := make(map[string]string, len(cfg))
	for k, v := range cfg {
		if k == "*" {
			fallback = v
			continue
		}
		out[strings.ToLower(k)] = v
	}
	return out, fallback
}

func difficultyFor(difficulties map[string]string, fallback, civ string) string {
	if d, ok := difficulties[strings.ToLower(civ)]; ok {
		return d
	}
	return fallback
}

// Label summarizes a civ config for game names, e.g. "carthage=easy,rome=hard".
func Label(cfg map[string]string) string {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + cfg[k]
	}
	return strings.Join(parts, ",")
}
