package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/carcacity/game/engine"
	"github.com/wricardo/carcacity/game/service"
)

var errNotFound = errors.New("session not found")

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	mu      sync.Mutex
	lobbies map[string]*service.Lobby
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{lobbies: make(map[string]*service.Lobby)}
}

func (m *MockSessionManager) Create(id string, opts service.LobbyOptions) (*service.Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		id = fmt.Sprintf("t%03d", len(m.lobbies)+1)
	}
	if _, exists := m.lobbies[id]; exists {
		return nil, errors.New("session already exists")
	}
	lobby, err := service.NewLobby(id, opts)
	if err != nil {
		return nil, err
	}
	m.lobbies[id] = lobby
	return lobby, nil
}

func (m *MockSessionManager) Get(id string) (*service.Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lobby, ok := m.lobbies[strings.ToLower(id)]
	if !ok {
		return nil, errNotFound
	}
	return lobby, nil
}

func (m *MockSessionManager) List() []*service.Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*service.Lobby
	for _, l := range m.lobbies {
		out = append(out, l)
	}
	return out
}

func (m *MockSessionManager) Delete(id string) error {
	m.mu.Lock()
	lobby, ok := m.lobbies[id]
	delete(m.lobbies, id)
	m.mu.Unlock()
	if !ok {
		return errNotFound
	}
	lobby.Close()
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	lobby, err := m.Get(id)
	if err != nil {
		return err
	}
	lobby.Touch()
	return nil
}

func (m *MockSessionManager) closeAll() {
	for _, l := range m.List() {
		l.Close()
	}
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	catalogs map[string]*engine.TileCatalog
}

func NewMockConfigManager() *MockConfigManager {
	return &MockConfigManager{catalogs: map[string]*engine.TileCatalog{"default": engine.DefaultCatalog()}}
}

func (m *MockConfigManager) LoadCatalog(name string) (*engine.TileCatalog, error) {
	c, ok := m.catalogs[name]
	if !ok {
		return nil, errors.New("catalog not found")
	}
	return c, nil
}

func (m *MockConfigManager) ListCatalogs() ([]*service.CatalogInfo, error) {
	var out []*service.CatalogInfo
	for id, c := range m.catalogs {
		out = append(out, &service.CatalogInfo{CatalogID: id, Name: c.Name})
	}
	return out, nil
}

func (m *MockConfigManager) GetDefault() *engine.TileCatalog {
	return m.catalogs["default"]
}

func (m *MockConfigManager) SaveCatalog(name string, catalog *engine.TileCatalog) error {
	if err := engine.ValidateCatalog(catalog); err != nil {
		return err
	}
	m.catalogs[name] = catalog
	return nil
}

func newTestService(t *testing.T, speed time.Duration, opts ...service.Option) (service.GameService, *MockSessionManager) {
	t.Helper()
	sessions := NewMockSessionManager()
	t.Cleanup(sessions.closeAll)
	opts = append([]service.Option{service.WithDefaults(service.LobbyDefaults{
		BoardSize:  9,
		MaxPlayers: 5,
		RobotSpeed: speed,
	})}, opts...)
	return service.NewGameService(sessions, NewMockConfigManager(), opts...), sessions
}

func TestGameService_CreateLobby(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	info, err := svc.CreateLobby(ctx, service.CreateLobbyRequest{})
	if err != nil {
		t.Fatalf("Failed to create lobby: %v", err)
	}
	if info.CatalogID != "default" || info.Classic || info.BoardSize != 9 {
		t.Errorf("Unexpected lobby info: %+v", info)
	}
	if info.RobotSpeedMS != time.Hour.Milliseconds() {
		t.Errorf("Expected robot speed from defaults, got %d", info.RobotSpeedMS)
	}

	classic, err := svc.CreateLobby(ctx, service.CreateLobbyRequest{Classic: true, BoardSize: 5})
	if err != nil {
		t.Fatalf("Failed to create classic lobby: %v", err)
	}
	if !classic.Classic || classic.BoardSize != 5 || classic.CatalogID != "" {
		t.Errorf("Unexpected classic lobby: %+v", classic)
	}

	if _, err := svc.CreateLobby(ctx, service.CreateLobbyRequest{CatalogID: "missing"}); !errors.Is(err, service.ErrCatalogNotFound) {
		t.Errorf("Expected ErrCatalogNotFound, got %v", err)
	}
	if _, err := svc.CreateLobby(ctx, service.CreateLobbyRequest{BoardSize: 6}); !errors.Is(err, engine.ErrInvalidBoardSize) {
		t.Errorf("Expected ErrInvalidBoardSize, got %v", err)
	}

	lobbies, _ := svc.ListLobbies(ctx)
	if len(lobbies) != 2 {
		t.Errorf("Expected 2 lobbies, got %d", len(lobbies))
	}
}

func TestGameService_UnknownLobby(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	if _, err := svc.GetLobby(ctx, "none"); !errors.Is(err, errNotFound) {
		t.Errorf("Expected wrapped not-found error, got %v", err)
	}
	if _, err := svc.Start(ctx, "none"); err == nil {
		t.Error("Expected error for unknown lobby")
	}
	if err := svc.DeleteLobby(ctx, "none"); err == nil {
		t.Error("Expected error deleting unknown lobby")
	}
}

func TestGameService_JoinAndSpectate(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()
	lobby, _ := svc.CreateLobby(ctx, service.CreateLobbyRequest{Classic: true})

	for i := 1; i <= 5; i++ {
		res, err := svc.Join(ctx, lobby.ID, fmt.Sprintf("c%d", i), "")
		if err != nil {
			t.Fatalf("Join %d failed: %v", i, err)
		}
		if res.Role != service.RolePlayer {
			t.Errorf("Join %d: expected player, got %s", i, res.Role)
		}
	}

	res, err := svc.Join(ctx, lobby.ID, "c6", "Late")
	if err != nil {
		t.Fatalf("Join 6 failed: %v", err)
	}
	if res.Role != service.RoleSpectator {
		t.Errorf("Expected spectator when full, got %s", res.Role)
	}

	again, _ := svc.Join(ctx, lobby.ID, "c1", "")
	if again.Role != service.RolePlayer || again.Rejoined {
		t.Errorf("Repeated join should be idempotent, got %+v", again)
	}

	generated, _ := svc.Join(ctx, lobby.ID, "", "")
	if generated.ClientID == "" {
		t.Error("Expected a generated client id")
	}

	info, _ := svc.GetLobby(ctx, lobby.ID)
	if len(info.Players) != 5 || len(info.Spectators) != 2 {
		t.Errorf("Expected 5 players and 2 spectators, got %d and %d", len(info.Players), len(info.Spectators))
	}
	if info.Players[0].Name != "Player 1" || info.Players[0].Color == "" {
		t.Errorf("Unexpected first player %+v", info.Players[0])
	}
}

func TestGameService_JoinDuringGameSpectates(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()
	lobby, _ := svc.CreateLobby(ctx, service.CreateLobbyRequest{Classic: true})

	svc.Join(ctx, lobby.ID, "a", "A")
	svc.Start(ctx, lobby.ID)

	res, _ := svc.Join(ctx, lobby.ID, "b", "B")
	if res.Role != service.RoleSpectator {
		t.Errorf("Expected spectator during a game, got %s", res.Role)
	}

	svc.Disconnect(ctx, lobby.ID, "b")
	res, _ = svc.Join(ctx, lobby.ID, "b", "B")
	if res.Role != service.RoleSpectator || !res.Rejoined {
		t.Errorf("Expected spectator rejoin, got %+v", res)
	}

	svc.End(ctx, lobby.ID)
	res, _ = svc.Join(ctx, lobby.ID, "b", "B")
	if res.Role != service.RolePlayer {
		t.Errorf("Expected a seat once the game ended, got %s", res.Role)
	}
	info, _ := svc.GetLobby(ctx, lobby.ID)
	if len(info.Spectators) != 0 {
		t.Errorf("Seated spectator should leave the spectator list, got %d", len(info.Spectators))
	}
}

func TestGameService_DisconnectAndRejoin(t *testing.T) {
	svc, _ := newTestService(t, 600*time.Millisecond)
	ctx := context.Background()
	lobby, _ := svc.CreateLobby(ctx, service.CreateLobbyRequest{Classic: true})

	svc.Join(ctx, lobby.ID, "a", "A")
	svc.Start(ctx, lobby.ID)
	if err := svc.Disconnect(ctx, lobby.ID, "a"); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	info, _ := svc.GetLobby(ctx, lobby.ID)
	if info.Players[0].Connected {
		t.Error("Expected player to be marked disconnected")
	}
	if info.RobotSpeedMS != 100 {
		t.Errorf("Expected robot speed to drop to a sixth, got %dms", info.RobotSpeedMS)
	}

	res, err := svc.Join(ctx, lobby.ID, "a", "A")
	if err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}
	if res.Role != service.RolePlayer || !res.Rejoined || !res.Player.Connected {
		t.Errorf("Expected player rejoin, got %+v", res)
	}
	info, _ = svc.GetLobby(ctx, lobby.ID)
	if info.RobotSpeedMS != 600 {
		t.Errorf("Expected robot speed reset on join, got %dms", info.RobotSpeedMS)
	}

	if err := svc.Disconnect(ctx, lobby.ID, "ghost"); !errors.Is(err, engine.ErrPlayerNotFound) {
		t.Errorf("Expected ErrPlayerNotFound, got %v", err)
	}
}

func TestGameService_Leave(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()
	lobby, _ := svc.CreateLobby(ctx, service.CreateLobbyRequest{Classic: true})

	svc.Join(ctx, lobby.ID, "a", "A")
	svc.Join(ctx, lobby.ID, "b", "B")
	if err := svc.Leave(ctx, lobby.ID, "a"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	info, _ := svc.GetLobby(ctx, lobby.ID)
	if len(info.Players) != 1 || info.Players[0].ID != "b" {
		t.Errorf("Expected only b to remain, got %+v", info.Players)
	}

	res, _ := svc.Join(ctx, lobby.ID, "c", "C")
	if res.Player.Color != engine.DefaultColors[2] {
		t.Errorf("Expected next colour in the pool, got %s", res.Player.Color)
	}

	if err := svc.Leave(ctx, lobby.ID, "nobody"); !errors.Is(err, engine.ErrPlayerNotFound) {
		t.Errorf("Expected ErrPlayerNotFound, got %v", err)
	}
}

func TestGameService_PlaceTile(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()
	lobby, _ := svc.CreateLobby(ctx, service.CreateLobbyRequest{BoardSize: 7})

	svc.Join(ctx, lobby.ID, "a", "A")
	svc.Join(ctx, lobby.ID, "b", "B")
	state, err := svc.Start(ctx, lobby.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if state.Turn.PlayerName != "A" || state.Turn.UpcomingTile == nil {
		t.Fatalf("Unexpected turn after start: %+v", state.Turn)
	}

	// Wrong player is silently rejected.
	target := state.Frontier[0]
	res, err := svc.PlaceTile(ctx, lobby.ID, service.PlaceRequest{Row: target.Row, Col: target.Col, PlayerID: "b", Index: 1})
	if err != nil {
		t.Fatalf("PlaceTile returned error for illegal move: %v", err)
	}
	if res.Accepted || res.State.Sequence != 0 {
		t.Errorf("Illegal move accepted: %+v", res)
	}

	rot := 90
	res, _ = svc.PlaceTile(ctx, lobby.ID, service.PlaceRequest{Row: target.Row, Col: target.Col, PlayerID: "a", Index: 0, Rotation: &rot})
	if !res.Accepted {
		t.Fatalf("Legal move rejected: %s", res.Message)
	}
	cell := res.State.Board.Cells[target.Row][target.Col]
	if cell.Player != "a" || cell.Rotation != engine.Rotate90 {
		t.Errorf("Unexpected placed cell %+v", cell)
	}
	if res.State.Turn.PlayerName != "B" {
		t.Errorf("Expected B to move next, got %s", res.State.Turn.PlayerName)
	}

	turn, _ := svc.CurrentTurn(ctx, lobby.ID)
	if turn.TurnIndex != 1 {
		t.Errorf("Expected turn index 1, got %d", turn.TurnIndex)
	}
}

func TestGameService_LifecycleErrors(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()
	lobby, _ := svc.CreateLobby(ctx, service.CreateLobbyRequest{Classic: true})

	if _, err := svc.Start(ctx, lobby.ID); !errors.Is(err, engine.ErrNoPlayers) {
		t.Errorf("Expected ErrNoPlayers, got %v", err)
	}

	svc.Join(ctx, lobby.ID, "a", "A")
	svc.Start(ctx, lobby.ID)
	if _, err := svc.SetBoardSize(ctx, lobby.ID, 11); !errors.Is(err, engine.ErrGameInProgress) {
		t.Errorf("Expected ErrGameInProgress, got %v", err)
	}
	if _, err := svc.AddRobot(ctx, lobby.ID, 2); !errors.Is(err, engine.ErrGameInProgress) {
		t.Errorf("Expected ErrGameInProgress for robot, got %v", err)
	}

	state, err := svc.Reset(ctx, lobby.ID)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if state.Status.Started || state.Sequence != 0 {
		t.Errorf("Unexpected state after reset: %+v", state.Status)
	}

	state, err = svc.SetBoardSize(ctx, lobby.ID, 11)
	if err != nil {
		t.Fatalf("SetBoardSize failed: %v", err)
	}
	if state.Board.Size != 11 {
		t.Errorf("Expected size 11, got %d", state.Board.Size)
	}
}

func TestGameService_RobotsPlayToCheckmate(t *testing.T) {
	svc, _ := newTestService(t, 2*time.Millisecond)
	ctx := context.Background()
	lobby, _ := svc.CreateLobby(ctx, service.CreateLobbyRequest{BoardSize: 5})

	for _, d := range []int{0, 3} {
		if _, err := svc.AddRobot(ctx, lobby.ID, d); err != nil {
			t.Fatalf("AddRobot failed: %v", err)
		}
	}
	if _, err := svc.Start(ctx, lobby.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, _ := svc.GetGameState(ctx, lobby.ID)
		if state.Status.Ended {
			if state.Sequence == 0 {
				t.Error("Expected robots to have placed tiles")
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Robots did not finish the game")
}

func TestGameService_RobotWaitsForHuman(t *testing.T) {
	svc, _ := newTestService(t, time.Millisecond)
	ctx := context.Background()
	lobby, _ := svc.CreateLobby(ctx, service.CreateLobbyRequest{Classic: true})

	svc.Join(ctx, lobby.ID, "human", "Human")
	svc.AddRobot(ctx, lobby.ID, 3)
	svc.Start(ctx, lobby.ID)

	time.Sleep(30 * time.Millisecond)
	state, _ := svc.GetGameState(ctx, lobby.ID)
	if state.Sequence != 0 || state.Turn.TurnIndex != 0 {
		t.Errorf("Robot moved on a human turn: seq=%d turn=%d", state.Sequence, state.Turn.TurnIndex)
	}
}

func TestGameService_Robotify(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()
	lobby, _ := svc.CreateLobby(ctx, service.CreateLobbyRequest{Classic: true, BoardSize: 3})

	svc.Join(ctx, lobby.ID, "a", "A")
	if err := svc.Robotify(ctx, lobby.ID); err != nil {
		t.Fatalf("Robotify failed: %v", err)
	}
	info, _ := svc.GetLobby(ctx, lobby.ID)
	if !info.Players[0].Robot || info.Players[0].Difficulty != engine.MaxDifficulty {
		t.Errorf("Expected a difficulty 3 robot, got %+v", info.Players[0])
	}
	if info.RobotSpeedMS != service.RobotifySpeed.Milliseconds() {
		t.Errorf("Expected robotify speed, got %dms", info.RobotSpeedMS)
	}
}

func TestGameService_RobotOnlyLobbySpeedsUp(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	tests := []struct {
		name  string
		human bool
		want  time.Duration
	}{
		{"robots only", false, time.Hour / 6},
		{"human seated", true, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lobby, _ := svc.CreateLobby(ctx, service.CreateLobbyRequest{Classic: true})
			if tt.human {
				svc.Join(ctx, lobby.ID, "human", "Human")
			}
			if _, err := svc.AddRobot(ctx, lobby.ID, 2); err != nil {
				t.Fatalf("AddRobot failed: %v", err)
			}

			info, _ := svc.GetLobby(ctx, lobby.ID)
			if info.RobotSpeedMS != tt.want.Milliseconds() {
				t.Errorf("Expected %dms between robot moves, got %dms", tt.want.Milliseconds(), info.RobotSpeedMS)
			}
		})
	}
}

type countingSink struct {
	engine.NopBroadcaster
	mu    sync.Mutex
	turns int
}

func (s *countingSink) EmitTurn(engine.TurnInfo) {
	s.mu.Lock()
	s.turns++
	s.mu.Unlock()
}

func TestGameService_SinksPerLobby(t *testing.T) {
	sinks := make(map[string]*countingSink)
	var mu sync.Mutex
	factory := func(id string) engine.Broadcaster {
		mu.Lock()
		defer mu.Unlock()
		sinks[id] = &countingSink{}
		return sinks[id]
	}

	svc, _ := newTestService(t, time.Hour, service.WithSinks(factory))
	ctx := context.Background()
	lobby, _ := svc.CreateLobby(ctx, service.CreateLobbyRequest{Classic: true})
	svc.Join(ctx, lobby.ID, "a", "A")
	svc.Start(ctx, lobby.ID)

	mu.Lock()
	sink, ok := sinks[lobby.ID]
	mu.Unlock()
	if !ok {
		t.Fatal("Sink factory not called with the lobby id")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.turns == 0 {
		t.Error("Expected a turn broadcast after start")
	}
}

func TestGameService_Catalogs(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	custom := engine.DefaultCatalog()
	custom.Name = "custom"
	if err := svc.SaveCatalog(ctx, "custom", custom); err != nil {
		t.Fatalf("SaveCatalog failed: %v", err)
	}
	loaded, err := svc.LoadCatalog(ctx, "custom")
	if err != nil || loaded.Name != "custom" {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	list, _ := svc.ListCatalogs(ctx)
	if len(list) != 2 {
		t.Errorf("Expected 2 catalogs, got %d", len(list))
	}

	info, err := svc.CreateLobby(ctx, service.CreateLobbyRequest{CatalogID: "custom"})
	if err != nil {
		t.Fatalf("CreateLobby with custom catalog failed: %v", err)
	}
	if info.CatalogID != "custom" {
		t.Errorf("Expected custom catalog id, got %s", info.CatalogID)
	}
}
