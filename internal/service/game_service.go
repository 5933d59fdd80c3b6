package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/hexfront/internal/bot"
	"github.com/freeeve/hexfront/internal/mapgen"
	"github.com/freeeve/hexfront/internal/model"
	"github.com/freeeve/hexfront/internal/repository"
	"github.com/freeeve/hexfront/pkg/hexgame"
)

var (
	ErrGameNotFound      = errors.New("game not found")
	ErrGameNotActive     = errors.New("game is not active")
	ErrNotInGame         = errors.New("you are not in this game")
	ErrNotYourUnit       = errors.New("unit does not belong to you")
	ErrUnknownScenario   = errors.New("unknown scenario")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrUnknownCommand    = errors.New("unknown unit command")
)

// Scenario names accepted by CreateGame.
const (
	ScenarioSkirmish  = "skirmish"
	ScenarioGenerated = "generated"
)

// Options tunes live sessions.
type Options struct {
	// AIDelay paces AI actions so clients can follow them.
	AIDelay time.Duration
	// AnimationTime is how long each move or combat holds the animation lock.
	AnimationTime time.Duration
	// TurnTimeout ends the player's turn automatically. Zero disables deadlines.
	TurnTimeout time.Duration
	// Movement is the default movement mode for new games.
	Movement hexgame.MovementMode
}

// CreateParams describes a new single-player game.
type CreateParams struct {
	Name       string
	CreatorID  string
	Scenario   string
	Difficulty string
	Movement   string
	Seed       int64
}

// GameService owns the live simulations, keyed by game id, and connects them
// to persistence, the turn timer and the broadcaster.
type GameService struct {
	gameRepo    repository.GameRepository
	historyRepo repository.HistoryRepository
	cache       repository.GameCache // optional
	broadcaster Broadcaster
	opts        Options

	baseCtx  context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewGameService creates a GameService. cache may be nil.
func NewGameService(
	gameRepo repository.GameRepository,
	historyRepo repository.HistoryRepository,
	cache repository.GameCache,
	broadcaster Broadcaster,
	opts Options,
) *GameService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &GameService{
		gameRepo:    gameRepo,
		historyRepo: historyRepo,
		cache:       cache,
		broadcaster: broadcaster,
		opts:        opts,
		baseCtx:     ctx,
		shutdown:    cancel,
		sessions:    make(map[string]*session),
	}
}

// Close stops running AI turns and releases every session.
func (s *GameService) Close() {
	s.shutdown()
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.close()
		delete(s.sessions, id)
	}
}

// BuildScenario returns the named scenario. Generated boards depend on seed.
func BuildScenario(name string, seed int64) (hexgame.Scenario, error) {
	switch name {
	case "", ScenarioSkirmish:
		return hexgame.Skirmish(), nil
	case ScenarioGenerated:
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return mapgen.Generate(mapgen.DefaultConfig(seed), hexgame.DefaultCatalog())
	default:
		return hexgame.Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
}

// CreateGame creates a game row and starts its live session on the player's turn.
func (s *GameService) CreateGame(ctx context.Context, p CreateParams) (*model.Game, error) {
	if p.Difficulty == "" {
		p.Difficulty = "medium"
	}
	if !slices.Contains(bot.Difficulties, p.Difficulty) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDifficulty, p.Difficulty)
	}
	if p.Scenario == "" {
		p.Scenario = ScenarioSkirmish
	}
	mode := s.opts.Movement
	if p.Movement != "" {
		mode = hexgame.ParseMovementMode(p.Movement)
	}
	sc, err := BuildScenario(p.Scenario, p.Seed)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		p.Name = sc.Name
	}

	record, err := s.gameRepo.Create(ctx, p.Name, p.CreatorID, p.Scenario, p.Difficulty, mode.String())
	if err != nil {
		return nil, err
	}
	sess, err := s.open(record, sc)
	if err != nil {
		return nil, err
	}
	s.saveSnapshot(ctx, sess)
	s.scheduleDeadline(ctx, sess)

	log.Info().Str("gameId", record.ID).Str("scenario", p.Scenario).Str("difficulty", p.Difficulty).
		Str("movement", mode.String()).Msg("Game created")
	return record, nil
}

// open loads a scenario into a live session and registers it.
func (s *GameService) open(record *model.Game, sc hexgame.Scenario) (*session, error) {
	logger := log.With().Str("gameId", record.ID).Logger()
	g, err := hexgame.Load(sc, nil, hexgame.Config{
		Logger:   &logger,
		Sink:     newSink(s.opts.AnimationTime),
		Movement: hexgame.ParseMovementMode(record.MovementMode),
		Selector: bot.StrategyForDifficulty(record.Difficulty),
		AIDelay:  s.opts.AIDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", record.ID, err)
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	sess := &session{
		id:        record.ID,
		creatorID: record.CreatorID,
		game:      g,
		ctx:       ctx,
		cancel:    cancel,
	}
	sess.stop = g.Store.Bus().Subscribe(func(e hexgame.Event) { s.onEvent(sess, e) })

	s.mu.Lock()
	if old, ok := s.sessions[record.ID]; ok {
		old.close()
	}
	s.sessions[record.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

// onEvent broadcasts a core event and writes its history row.
func (s *GameService) onEvent(sess *session, e hexgame.Event) {
	s.broadcaster.BroadcastGameEvent(sess.id, string(e.Type()), EventPayload(e))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	switch ev := e.(type) {
	case hexgame.CombatResolved:
		rec := model.NewCombatRecord(sess.id, sess.game.Turns.Turn(), ev.Combat)
		if err := s.historyRepo.RecordCombat(ctx, rec); err != nil {
			log.Error().Err(err).Str("gameId", sess.id).Msg("Failed to record combat")
		}
	case hexgame.TurnChanged:
		rec := model.TurnRecord{GameID: sess.id, Turn: ev.Turn, State: ev.State.String()}
		if err := s.historyRepo.RecordTurn(ctx, rec); err != nil {
			log.Error().Err(err).Str("gameId", sess.id).Msg("Failed to record turn")
		}
	case hexgame.GameOver:
		sess.setDeadline(time.Time{})
		if err := s.gameRepo.SetFinished(ctx, sess.id, hexgame.WinnerName(ev.Winner)); err != nil {
			log.Error().Err(err).Str("gameId", sess.id).Msg("Failed to mark game finished")
		}
		if s.cache != nil {
			if err := s.cache.ClearTimer(ctx, sess.id); err != nil {
				log.Warn().Err(err).Str("gameId", sess.id).Msg("Failed to clear turn timer")
			}
		}
		log.Info().Str("gameId", sess.id).Str("winner", hexgame.WinnerName(ev.Winner)).Msg("Game finished")
	}
}

func (s *GameService) session(gameID string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return sess, nil
}

// playerSession returns the session when userID may act in it right now.
func (s *GameService) playerSession(gameID, userID string) (*session, error) {
	sess, err := s.session(gameID)
	if err != nil {
		return nil, err
	}
	if sess.creatorID != userID {
		return nil, ErrNotInGame
	}
	switch sess.game.Turns.State() {
	case hexgame.StatePlayerTurn:
		return sess, nil
	case hexgame.StateGameOver:
		return nil, hexgame.ErrGameOver
	default:
		return nil, hexgame.ErrNotPlayerTurn
	}
}

// GetGame returns the game row.
func (s *GameService) GetGame(ctx context.Context, gameID string) (*model.Game, error) {
	g, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// ListGames returns a user's games.
func (s *GameService) ListGames(ctx context.Context, userID string) ([]model.Game, error) {
	return s.gameRepo.ListByUser(ctx, userID)
}

// State returns the live board of a game. Games without a live session
// return only their row.
func (s *GameService) State(ctx context.Context, gameID string) (*GameView, error) {
	record, err := s.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(gameID)
	if err != nil {
		return &GameView{Game: record, State: hexgame.StateGameOver.String(), Winner: record.Winner, Turn: record.Turn}, nil
	}
	v := newGameView(record, sess.game)
	if d := sess.currentDeadline(); !d.IsZero() {
		v.Deadline = &d
	}
	return v, nil
}

// Candidates returns the tiles the unit at pos may be ordered to.
func (s *GameService) Candidates(gameID, userID string, pos hexgame.Position) ([]hexgame.Position, error) {
	sess, err := s.session(gameID)
	if err != nil {
		return nil, err
	}
	if sess.creatorID != userID {
		return nil, ErrNotInGame
	}
	if err := sess.ownUnit(pos); err != nil {
		return nil, err
	}
	return sess.game.Store.Candidates(pos), nil
}

// Move moves one of the player's units.
func (s *GameService) Move(ctx context.Context, gameID, userID string, from, to hexgame.Position) error {
	sess, err := s.playerSession(gameID, userID)
	if err != nil {
		return err
	}
	if err := sess.ownUnit(from); err != nil {
		return err
	}
	if err := sess.game.Store.Move(from, to); err != nil {
		return err
	}
	s.saveSnapshot(ctx, sess)
	return nil
}

// Attack resolves an attack by one of the player's units.
func (s *GameService) Attack(ctx context.Context, gameID, userID string, from, to hexgame.Position) (*CombatView, error) {
	sess, err := s.playerSession(gameID, userID)
	if err != nil {
		return nil, err
	}
	if err := sess.ownUnit(from); err != nil {
		return nil, err
	}
	if err := sess.inReach(from, to); err != nil {
		return nil, err
	}
	ev, err := sess.game.Combat.Resolve(from, to)
	if err != nil {
		return nil, err
	}
	s.saveSnapshot(ctx, sess)
	v := NewCombatView(*ev)
	return &v, nil
}

// Preview forecasts an attack without resolving it.
func (s *GameService) Preview(gameID, userID string, from, to hexgame.Position) (hexgame.Forecast, error) {
	sess, err := s.session(gameID)
	if err != nil {
		return hexgame.Forecast{}, err
	}
	if sess.creatorID != userID {
		return hexgame.Forecast{}, ErrNotInGame
	}
	if err := sess.ownUnit(from); err != nil {
		return hexgame.Forecast{}, err
	}
	if err := sess.inReach(from, to); err != nil {
		return hexgame.Forecast{}, err
	}
	return sess.game.Combat.Preview(from, to)
}

// UnitCommand applies rest, fortify, wake or skip to one of the player's units.
func (s *GameService) UnitCommand(ctx context.Context, gameID, userID, command string, pos hexgame.Position) error {
	sess, err := s.playerSession(gameID, userID)
	if err != nil {
		return err
	}
	if err := sess.ownUnit(pos); err != nil {
		return err
	}
	store := sess.game.Store
	switch command {
	case "rest":
		err = store.Rest(pos)
	case "fortify":
		err = store.Fortify(pos)
	case "wake":
		err = store.Wake(pos)
	case "skip":
		err = store.Skip(pos)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	if err != nil {
		return err
	}
	s.saveSnapshot(ctx, sess)
	return nil
}

// EndTurn ends the player's turn and runs the AI turn in the background.
func (s *GameService) EndTurn(ctx context.Context, gameID, userID string) error {
	sess, err := s.playerSession(gameID, userID)
	if err != nil {
		return err
	}
	return s.endTurn(ctx, sess)
}

func (s *GameService) endTurn(ctx context.Context, sess *session) error {
	done, err := sess.game.Turns.EndTurn()
	if err != nil {
		return err
	}
	sess.setDeadline(time.Time{})
	if s.cache != nil {
		if err := s.cache.ClearTimer(ctx, sess.id); err != nil {
			log.Warn().Err(err).Str("gameId", sess.id).Msg("Failed to clear turn timer")
		}
	}
	s.wg.Add(1)
	sess.running.Add(1)
	go func() {
		defer s.wg.Done()
		defer sess.running.Done()
		select {
		case <-done:
		case <-sess.ctx.Done():
			return
		}
		s.runAITurn(sess)
	}()
	return nil
}

// runAITurn plays every AI civilization and hands the turn back.
func (s *GameService) runAITurn(sess *session) {
	if sess.closed() {
		return
	}
	turns := sess.game.Turns
	if err := turns.StartAITurn(sess.ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("gameId", sess.id).Msg("AI turn failed")
			s.broadcaster.BroadcastGameEvent(sess.id, EventAIError, map[string]string{"error": err.Error()})
		}
		return
	}
	if sess.closed() {
		return
	}

	persistCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	s.saveSnapshot(persistCtx, sess)
	if turns.State() == hexgame.StateGameOver {
		return
	}
	if err := s.gameRepo.UpdateTurn(persistCtx, sess.id, turns.Turn()); err != nil {
		log.Error().Err(err).Str("gameId", sess.id).Msg("Failed to update turn")
	}
	s.scheduleDeadline(persistCtx, sess)
}

// ExpireTurn ends the player's turn if its deadline has passed. Called by
// the timer listener.
func (s *GameService) ExpireTurn(ctx context.Context, gameID string) error {
	sess, err := s.session(gameID)
	if err != nil {
		return err
	}
	d := sess.currentDeadline()
	if d.IsZero() || time.Now().Before(d) {
		return nil
	}
	if sess.game.Turns.State() != hexgame.StatePlayerTurn {
		return nil
	}
	log.Info().Str("gameId", gameID).Time("deadline", d).Msg("Turn deadline passed, ending turn")
	s.broadcaster.BroadcastGameEvent(gameID, EventTurnDeadline, map[string]any{"turn": sess.game.Turns.Turn()})
	return s.endTurn(ctx, sess)
}

// ExpiredGames returns the ids of sessions whose turn deadline is before now.
func (s *GameService) ExpiredGames(now time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, sess := range s.sessions {
		if d := sess.currentDeadline(); !d.IsZero() && !now.Before(d) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// History returns the turn and combat logs of a game.
func (s *GameService) History(ctx context.Context, gameID string) ([]model.TurnRecord, []model.CombatRecord, error) {
	if _, err := s.GetGame(ctx, gameID); err != nil {
		return nil, nil, err
	}
	turns, err := s.historyRepo.ListTurns(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	combats, err := s.historyRepo.ListCombats(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	return turns, combats, nil
}

// DeleteGame stops a game and removes it with its history.
func (s *GameService) DeleteGame(ctx context.Context, gameID, userID string) error {
	record, err := s.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if record.CreatorID != userID {
		return ErrNotInGame
	}
	s.mu.Lock()
	sess, ok := s.sessions[gameID]
	if ok {
		sess.close()
		delete(s.sessions, gameID)
	}
	s.mu.Unlock()
	if ok {
		// A pending AI turn must not rewrite cache keys after they are deleted.
		sess.running.Wait()
	}
	if s.cache != nil {
		if err := s.cache.DeleteGameData(ctx, gameID); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to delete cached game data")
		}
	}
	return s.gameRepo.Delete(ctx, gameID)
}

// RecoverActiveGames rebuilds live sessions for all active games from their
// cached placement snapshots. Called on server startup.
func (s *GameService) RecoverActiveGames(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	games, err := s.gameRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active games: %w", err)
	}
	if len(games) == 0 {
		log.Info().Msg("No active games to recover")
		return nil
	}

	log.Info().Int("count", len(games)).Msg("Recovering active games after restart")
	for i := range games {
		record := &games[i]
		raw, err := s.cache.GetSnapshot(ctx, record.ID)
		if err != nil {
			log.Error().Err(err).Str("gameId", record.ID).Msg("Failed to read snapshot during recovery")
			continue
		}
		if raw == nil {
			log.Warn().Str("gameId", record.ID).Msg("Active game has no snapshot, skipping")
			continue
		}
		var sc hexgame.Scenario
		if err := json.Unmarshal(raw, &sc); err != nil {
			log.Error().Err(err).Str("gameId", record.ID).Msg("Failed to unmarshal snapshot")
			continue
		}
		sess, err := s.open(record, sc)
		if err != nil {
			log.Error().Err(err).Str("gameId", record.ID).Msg("Failed to rebuild game")
			continue
		}
		s.scheduleDeadline(ctx, sess)
		log.Info().Str("gameId", record.ID).Int("turn", sess.game.Turns.Turn()).Msg("Recovered game")
	}
	return nil
}

func (s *GameService) saveSnapshot(ctx context.Context, sess *session) {
	if s.cache == nil || sess.closed() {
		return
	}
	data, err := json.Marshal(sess.game.Snapshot())
	if err != nil {
		log.Error().Err(err).Str("gameId", sess.id).Msg("Failed to marshal snapshot")
		return
	}
	if err := s.cache.SetSnapshot(ctx, sess.id, data); err != nil {
		log.Error().Err(err).Str("gameId", sess.id).Msg("Failed to cache snapshot")
	}
}

func (s *GameService) scheduleDeadline(ctx context.Context, sess *session) {
	if s.opts.TurnTimeout <= 0 || sess.closed() {
		return
	}
	deadline := time.Now().Add(s.opts.TurnTimeout)
	sess.setDeadline(deadline)
	if s.cache != nil {
		if err := s.cache.SetTimer(ctx, sess.id, deadline); err != nil {
			log.Error().Err(err).Str("gameId", sess.id).Msg("Failed to set turn timer")
		}
	}
	s.broadcaster.BroadcastGameEvent(sess.id, EventTurnDeadline, map[string]any{"deadline": deadline})
}
