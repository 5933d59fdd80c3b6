package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freeeve/hexfront/internal/model"
	"github.com/freeeve/hexfront/pkg/hexgame"
)

type testEnv struct {
	svc     *GameService
	games   *mockGameRepo
	history *mockHistoryRepo
	cache   *mockCache
	bc      *mockBroadcaster
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	env := &testEnv{
		games:   newMockGameRepo(),
		history: &mockHistoryRepo{},
		cache:   newMockCache(),
		bc:      &mockBroadcaster{},
	}
	env.svc = NewGameService(env.games, env.history, env.cache, env.bc, opts)
	t.Cleanup(env.svc.Close)
	return env
}

func (e *testEnv) create(t *testing.T, difficulty string) *model.Game {
	t.Helper()
	g, err := e.svc.CreateGame(context.Background(), CreateParams{Name: "Test Game", CreatorID: "user-1", Difficulty: difficulty})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	return g
}

// openScenario starts a session on a custom scenario.
func (e *testEnv) openScenario(t *testing.T, sc hexgame.Scenario) *model.Game {
	t.Helper()
	record, err := e.games.Create(context.Background(), sc.Name, "user-1", "custom", "passive", "adjacent")
	if err != nil {
		t.Fatalf("create row: %v", err)
	}
	if _, err := e.svc.open(record, sc); err != nil {
		t.Fatalf("open: %v", err)
	}
	return record
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func pos(x, y int) hexgame.Position { return hexgame.Position{X: x, Y: y} }

func unitAt(v *GameView, p hexgame.Position) (UnitView, bool) {
	for _, u := range v.Units {
		if u.X == p.X && u.Y == p.Y {
			return u, true
		}
	}
	return UnitView{}, false
}

func TestCreateGame(t *testing.T) {
	env := newTestEnv(t, Options{TurnTimeout: time.Hour})
	game := env.create(t, "")

	if game.Difficulty != "medium" {
		t.Errorf("expected default difficulty medium, got %s", game.Difficulty)
	}
	if game.Scenario != ScenarioSkirmish || game.MovementMode != "adjacent" {
		t.Errorf("unexpected scenario/movement: %s/%s", game.Scenario, game.MovementMode)
	}

	v, err := env.svc.State(context.Background(), game.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if v.State != hexgame.StatePlayerTurn.String() || v.Turn != 1 {
		t.Errorf("expected player turn 1, got %s %d", v.State, v.Turn)
	}
	if len(v.Units) != 8 || v.Width != 10 || v.Height != 8 {
		t.Errorf("unexpected board: %dx%d with %d units", v.Width, v.Height, len(v.Units))
	}
	if v.Deadline == nil {
		t.Error("expected a turn deadline")
	}
	if _, ok := env.cache.timer(game.ID); !ok {
		t.Error("expected turn timer in cache")
	}
	if env.cache.snapshots[game.ID] == nil {
		t.Error("expected cached snapshot")
	}
}

func TestCreateGameValidation(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	_, err := env.svc.CreateGame(ctx, CreateParams{CreatorID: "u", Difficulty: "nightmare"})
	if !errors.Is(err, ErrUnknownDifficulty) {
		t.Errorf("expected ErrUnknownDifficulty, got %v", err)
	}
	_, err = env.svc.CreateGame(ctx, CreateParams{CreatorID: "u", Scenario: "atlantis"})
	if !errors.Is(err, ErrUnknownScenario) {
		t.Errorf("expected ErrUnknownScenario, got %v", err)
	}

	g, err := env.svc.CreateGame(ctx, CreateParams{CreatorID: "u", Scenario: ScenarioGenerated, Seed: 9, Movement: "reachable"})
	if err != nil {
		t.Fatalf("generated game: %v", err)
	}
	if g.MovementMode != "reachable" {
		t.Errorf("expected reachable movement, got %s", g.MovementMode)
	}
}

func TestMoveChecksOwnership(t *testing.T) {
	env := newTestEnv(t, Options{})
	game := env.create(t, "passive")
	ctx := context.Background()

	if err := env.svc.Move(ctx, game.ID, "user-1", pos(1, 2), pos(2, 2)); err != nil {
		t.Fatalf("Move: %v", err)
	}
	v, _ := env.svc.State(ctx, game.ID)
	u, ok := unitAt(v, pos(2, 2))
	if !ok || u.Kind != "warrior" || u.MovesLeft != 1 {
		t.Fatalf("expected warrior at (2,2) with 1 move left, got %+v %v", u, ok)
	}

	tests := []struct {
		name   string
		gameID string
		userID string
		from   hexgame.Position
		want   error
	}{
		{"unknown game", "nope", "user-1", pos(2, 2), ErrGameNotFound},
		{"other user", game.ID, "user-2", pos(2, 2), ErrNotInGame},
		{"enemy unit", game.ID, "user-1", pos(7, 2), ErrNotYourUnit},
		{"empty tile", game.ID, "user-1", pos(5, 5), hexgame.ErrNoUnit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.svc.Move(ctx, tt.gameID, tt.userID, tt.from, pos(tt.from.X, tt.from.Y+1))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	err := env.svc.Move(ctx, game.ID, "user-1", pos(1, 4), pos(5, 4))
	if !errors.Is(err, hexgame.ErrInvalidMove) {
		t.Errorf("expected ErrInvalidMove for a distant tile, got %v", err)
	}
}

func TestUnitCommands(t *testing.T) {
	env := newTestEnv(t, Options{})
	game := env.create(t, "passive")
	ctx := context.Background()

	if err := env.svc.UnitCommand(ctx, game.ID, "user-1", "fortify", pos(1, 4)); err != nil {
		t.Fatalf("fortify: %v", err)
	}
	v, _ := env.svc.State(ctx, game.ID)
	u, _ := unitAt(v, pos(1, 4))
	if u.State != "fortified" || u.MovesLeft != 0 {
		t.Errorf("expected fortified unit with no moves, got %s/%d", u.State, u.MovesLeft)
	}

	err := env.svc.UnitCommand(ctx, game.ID, "user-1", "dance", pos(1, 2))
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}

	cands, err := env.svc.Candidates(game.ID, "user-1", pos(1, 2))
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(cands) != 6 {
		t.Errorf("expected 6 neighbor candidates, got %d", len(cands))
	}
}

func TestEndTurnRunsAI(t *testing.T) {
	env := newTestEnv(t, Options{})
	game := env.create(t, "medium")
	ctx := context.Background()

	if err := env.svc.EndTurn(ctx, game.ID, "user-1"); err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	if err := env.svc.Move(ctx, game.ID, "user-1", pos(1, 2), pos(2, 2)); !errors.Is(err, hexgame.ErrNotPlayerTurn) {
		t.Errorf("expected ErrNotPlayerTurn during the AI turn, got %v", err)
	}

	waitFor(t, "turn 2", func() bool { return env.games.get(game.ID).Turn == 2 })

	v, _ := env.svc.State(ctx, game.ID)
	if v.State != hexgame.StatePlayerTurn.String() {
		t.Fatalf("expected player turn, got %s", v.State)
	}
	turns, _, err := env.svc.History(ctx, game.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	var states []string
	for _, r := range turns {
		states = append(states, r.State)
	}
	if len(states) < 2 || states[0] != "ai_pending" || states[len(states)-1] != "player_turn" {
		t.Errorf("unexpected turn history %v", states)
	}
	if env.bc.count(string(hexgame.EventUnitMoved)) == 0 {
		t.Error("expected AI moves to be broadcast")
	}
}

func TestAttackEndsGame(t *testing.T) {
	env := newTestEnv(t, Options{})
	hp := 10
	game := env.openScenario(t, hexgame.Scenario{
		Name: "duel", Width: 4, Height: 3, DefaultTerrain: "grassland",
		Civilizations: []hexgame.CivilizationSpec{{Name: "Rome", Human: true}, {Name: "Carthage"}},
		Units: []hexgame.UnitPlacement{
			{Civ: "Rome", Kind: "spearman", Pos: pos(1, 1)},
			{Civ: "Carthage", Kind: "scout", Pos: pos(2, 1), HealthPercent: &hp},
		},
	})
	ctx := context.Background()

	f, err := env.svc.Preview(game.ID, "user-1", pos(1, 1), pos(2, 1))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if f.AttackDamage.Min < hp {
		t.Fatalf("expected a guaranteed kill, forecast %+v", f.AttackDamage)
	}

	cv, err := env.svc.Attack(ctx, game.ID, "user-1", pos(1, 1), pos(2, 1))
	if err != nil {
		t.Fatalf("Attack: %v", err)
	}
	if !cv.Defender.Killed || !cv.Advanced {
		t.Fatalf("expected kill and advance, got %+v", cv)
	}

	row := env.games.get(game.ID)
	if row.Status != model.GameFinished || row.Winner != "Rome" {
		t.Fatalf("expected game won by Rome, got %s/%s", row.Status, row.Winner)
	}
	if env.bc.count(string(hexgame.EventGameOver)) != 1 {
		t.Errorf("expected one game_over broadcast")
	}
	_, combats, _ := env.svc.History(ctx, game.ID)
	if len(combats) != 1 || !combats[0].DefenderKilled {
		t.Errorf("expected one recorded kill, got %+v", combats)
	}

	if err := env.svc.Move(ctx, game.ID, "user-1", pos(2, 1), pos(3, 1)); !errors.Is(err, hexgame.ErrGameOver) {
		t.Errorf("expected ErrGameOver, got %v", err)
	}
	v, _ := env.svc.State(ctx, game.ID)
	if v.Winner != "Rome" || v.State != hexgame.StateGameOver.String() {
		t.Errorf("unexpected final view %s/%s", v.State, v.Winner)
	}
}

func TestMutualKillFinishesAsDraw(t *testing.T) {
	env := newTestEnv(t, Options{})
	hp := 10
	game := env.openScenario(t, hexgame.Scenario{
		Name: "wipeout", Width: 4, Height: 3, DefaultTerrain: "grassland",
		Civilizations: []hexgame.CivilizationSpec{{Name: "Rome", Human: true}, {Name: "Carthage"}},
		Units: []hexgame.UnitPlacement{
			{Civ: "Rome", Kind: "warrior", Pos: pos(1, 1), HealthPercent: &hp},
			{Civ: "Carthage", Kind: "warrior", Pos: pos(2, 1), HealthPercent: &hp},
		},
	})
	ctx := context.Background()

	cv, err := env.svc.Attack(ctx, game.ID, "user-1", pos(1, 1), pos(2, 1))
	if err != nil {
		t.Fatalf("Attack: %v", err)
	}
	if !cv.Attacker.Killed || !cv.Defender.Killed {
		t.Fatalf("expected both units killed, got %+v", cv)
	}

	row := env.games.get(game.ID)
	if row.Status != model.GameFinished || row.Winner != "" {
		t.Fatalf("expected a finished draw, got %s/%q", row.Status, row.Winner)
	}
	if err := env.svc.EndTurn(ctx, game.ID, "user-1"); !errors.Is(err, hexgame.ErrGameOver) {
		t.Errorf("expected ErrGameOver from EndTurn, got %v", err)
	}
	v, _ := env.svc.State(ctx, game.ID)
	if v.State != hexgame.StateGameOver.String() || v.Winner != "" || len(v.Units) != 0 {
		t.Errorf("unexpected final view %s/%q with %d units", v.State, v.Winner, len(v.Units))
	}
}

func TestMeleeAttackNeedsAdjacentTarget(t *testing.T) {
	env := newTestEnv(t, Options{})
	game := env.openScenario(t, hexgame.Scenario{
		Name: "far", Width: 10, Height: 10, DefaultTerrain: "grassland",
		Civilizations: []hexgame.CivilizationSpec{{Name: "Rome", Human: true}, {Name: "Carthage"}},
		Units: []hexgame.UnitPlacement{
			{Civ: "Rome", Kind: "warrior", Pos: pos(0, 0)},
			{Civ: "Rome", Kind: "archer", Pos: pos(5, 6)},
			{Civ: "Carthage", Kind: "scout", Pos: pos(6, 6)},
		},
	})
	ctx := context.Background()

	if _, err := env.svc.Attack(ctx, game.ID, "user-1", pos(0, 0), pos(6, 6)); !errors.Is(err, hexgame.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := env.svc.Preview(game.ID, "user-1", pos(0, 0), pos(6, 6)); !errors.Is(err, hexgame.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange from Preview, got %v", err)
	}
	v, _ := env.svc.State(ctx, game.ID)
	if u, ok := unitAt(v, pos(0, 0)); !ok || u.MovesLeft == 0 {
		t.Errorf("rejected attack should leave the warrior in place with its moves, got %+v", u)
	}
	if _, err := env.svc.Preview(game.ID, "user-1", pos(5, 6), pos(6, 6)); err != nil {
		t.Errorf("adjacent ranged preview: %v", err)
	}
}

func TestAnimationHoldsLock(t *testing.T) {
	env := newTestEnv(t, Options{AnimationTime: 200 * time.Millisecond})
	game := env.create(t, "passive")
	ctx := context.Background()

	if err := env.svc.Move(ctx, game.ID, "user-1", pos(1, 2), pos(2, 2)); err != nil {
		t.Fatalf("Move: %v", err)
	}
	err := env.svc.Move(ctx, game.ID, "user-1", pos(1, 4), pos(2, 4))
	if !errors.Is(err, hexgame.ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld while the move animates, got %v", err)
	}
}

func TestExpireTurn(t *testing.T) {
	env := newTestEnv(t, Options{TurnTimeout: time.Hour})
	game := env.create(t, "passive")
	ctx := context.Background()

	if err := env.svc.ExpireTurn(ctx, game.ID); err != nil {
		t.Fatalf("ExpireTurn: %v", err)
	}
	if v, _ := env.svc.State(ctx, game.ID); v.State != hexgame.StatePlayerTurn.String() {
		t.Fatalf("deadline not reached; expected player turn, got %s", v.State)
	}

	if ids := env.svc.ExpiredGames(time.Now()); len(ids) != 0 {
		t.Fatalf("expected no expired games, got %v", ids)
	}
	later := time.Now().Add(2 * time.Hour)
	if ids := env.svc.ExpiredGames(later); len(ids) != 1 || ids[0] != game.ID {
		t.Fatalf("expected %s expired, got %v", game.ID, ids)
	}

	sess, _ := env.svc.session(game.ID)
	sess.setDeadline(time.Now().Add(-time.Second))
	NewTimerListener(nil, env.svc).checkExpired(ctx, time.Now())

	waitFor(t, "turn 2", func() bool { return env.games.get(game.ID).Turn == 2 })
	if env.bc.count(EventTurnDeadline) < 2 {
		t.Errorf("expected deadline broadcasts for both turns")
	}
}

func TestRecoverActiveGames(t *testing.T) {
	env := newTestEnv(t, Options{})
	game := env.create(t, "passive")
	ctx := context.Background()
	if err := env.svc.Move(ctx, game.ID, "user-1", pos(1, 2), pos(2, 2)); err != nil {
		t.Fatalf("Move: %v", err)
	}

	restarted := NewGameService(env.games, env.history, env.cache, env.bc, Options{})
	defer restarted.Close()
	if err := restarted.RecoverActiveGames(ctx); err != nil {
		t.Fatalf("RecoverActiveGames: %v", err)
	}
	v, err := restarted.State(ctx, game.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	u, ok := unitAt(v, pos(2, 2))
	if !ok || u.MovesLeft != 1 {
		t.Fatalf("expected recovered warrior at (2,2) with 1 move, got %+v %v", u, ok)
	}
	if len(v.Units) != 8 {
		t.Errorf("expected 8 units, got %d", len(v.Units))
	}
}

func TestDeleteGame(t *testing.T) {
	env := newTestEnv(t, Options{})
	game := env.create(t, "passive")
	ctx := context.Background()

	if err := env.svc.DeleteGame(ctx, game.ID, "user-2"); !errors.Is(err, ErrNotInGame) {
		t.Fatalf("expected ErrNotInGame, got %v", err)
	}
	if err := env.svc.DeleteGame(ctx, game.ID, "user-1"); err != nil {
		t.Fatalf("DeleteGame: %v", err)
	}
	if _, err := env.svc.State(ctx, game.ID); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound after delete, got %v", err)
	}
	if env.cache.snapshots[game.ID] != nil {
		t.Error("expected snapshot removed")
	}
}

func TestDeleteGameDuringAITurn(t *testing.T) {
	env := newTestEnv(t, Options{AIDelay: 50 * time.Millisecond, TurnTimeout: time.Hour})
	game := env.create(t, "medium")
	ctx := context.Background()

	if err := env.svc.EndTurn(ctx, game.ID, "user-1"); err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	if err := env.svc.DeleteGame(ctx, game.ID, "user-1"); err != nil {
		t.Fatalf("DeleteGame: %v", err)
	}

	// The AI turn would have finished by now had it kept running.
	time.Sleep(300 * time.Millisecond)
	if env.cache.snapshot(game.ID) != nil {
		t.Error("snapshot rewritten after delete")
	}
	if _, ok := env.cache.timer(game.ID); ok {
		t.Error("turn timer rewritten after delete")
	}
	if _, err := env.svc.State(ctx, game.ID); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
}

func TestEventPayload(t *testing.T) {
	civ := &hexgame.Civilization{Name: "Rome"}
	u := hexgame.Unit{ID: 3, Kind: hexgame.Warrior, Civ: civ, Position: pos(1, 1), Health: 80, MovesLeft: 2}

	tests := []struct {
		name  string
		event hexgame.Event
		check func(any) bool
	}{
		{"combat", hexgame.CombatResolved{Combat: hexgame.CombatEvent{AttackDamage: 30}}, func(v any) bool {
			cv, ok := v.(CombatView)
			return ok && cv.AttackDamage == 30
		}},
		{"game over", hexgame.GameOver{Winner: civ}, func(v any) bool {
			m, ok := v.(map[string]string)
			return ok && m["winner"] == "Rome"
		}},
		{"draw", hexgame.GameOver{}, func(v any) bool {
			m, ok := v.(map[string]string)
			return ok && m["winner"] == ""
		}},
		{"moved", hexgame.UnitMoved{Unit: u, From: pos(0, 1), To: pos(1, 1)}, func(v any) bool {
			m, ok := v.(map[string]any)
			return ok && m["unit"].(UnitView).Health == 80
		}},
	}
	for _, tt := range tests {
		if !tt.check(EventPayload(tt.event)) {
			t.Errorf("%s: unexpected payload %#v", tt.name, EventPayload(tt.event))
		}
	}
}
