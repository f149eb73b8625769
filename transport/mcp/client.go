package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/carcacity/game/engine"
	"github.com/wricardo/carcacity/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Carcacity",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Carcacity - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Take turns placing land tiles next to the existing city. Your score is the
size of your largest connected group of tiles.

TYPICAL FLOW:
1. create_lobby (or list_lobbies to find one)
2. join_lobby to get a seat and remember your client_id; get_lobby shows
   your seat index in brackets
3. add_robot for opponents, then start_game
4. On your turn, game_state shows the upcoming tile and the legal cells (+)
5. place_tile with your client_id, index, row and col

Use game_instructions for the full rules.`),
	)

	c.registerTools()
}

func lobbyIDProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Lobby ID",
	}
}

func noArgs() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{},
	}
}

func lobbyOnly() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"lobby_id": lobbyIDProp(),
		},
		Required: []string{"lobby_id"},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Lobby management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_lobby",
		Description: "Create a new lobby with an optional tile catalog and board size",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"catalog_id": map[string]interface{}{
					"type":        "string",
					"description": "Tile catalog to use (optional, see list_catalogs)",
				},
				"board_size": map[string]interface{}{
					"type":        "integer",
					"description": "Odd board size between 3 and 49 (optional)",
				},
				"classic": map[string]interface{}{
					"type":        "boolean",
					"description": "Play without tiles or edge matching",
				},
			},
		},
	}, c.handleCreateLobby)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_lobbies",
		Description: "List all open lobbies",
		InputSchema: noArgs(),
	}, c.handleListLobbies)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_lobby",
		Description: "Get players, spectators and status of a lobby",
		InputSchema: lobbyOnly(),
	}, c.handleGetLobby)

	// Presence
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_lobby",
		Description: "Join a lobby. You get a seat if there is room and no game is running, otherwise you spectate.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lobby_id": lobbyIDProp(),
				"client_id": map[string]interface{}{
					"type":        "string",
					"description": "Your client ID; reuse it to rejoin (optional, generated when empty)",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Display name",
				},
			},
			Required: []string{"lobby_id"},
		},
	}, c.handleJoin)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leave_lobby",
		Description: "Leave a lobby and give up your seat",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lobby_id": lobbyIDProp(),
				"client_id": map[string]interface{}{
					"type":        "string",
					"description": "Your client ID",
				},
			},
			Required: []string{"lobby_id", "client_id"},
		},
	}, c.handleLeave)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "add_robot",
		Description: "Seat a robot opponent",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lobby_id": lobbyIDProp(),
				"difficulty": map[string]interface{}{
					"type":        "integer",
					"description": "0 (random) to 3 (always best); default 3",
				},
			},
			Required: []string{"lobby_id"},
		},
	}, c.handleAddRobot)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "robotify",
		Description: "Hand every seat to a robot and let them finish the game quickly",
		InputSchema: lobbyOnly(),
	}, c.handleRobotify)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_game",
		Description: "Start the game in a lobby",
		InputSchema: lobbyOnly(),
	}, c.handleStart)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the board, players, scores and legal cells",
		InputSchema: lobbyOnly(),
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "current_turn",
		Description: "Get whose turn it is and the upcoming tile",
		InputSchema: lobbyOnly(),
	}, c.handleCurrentTurn)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_tile",
		Description: "Place the upcoming tile on a legal cell during your turn",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lobby_id": lobbyIDProp(),
				"client_id": map[string]interface{}{
					"type":        "string",
					"description": "Your client ID",
				},
				"index": map[string]interface{}{
					"type":        "integer",
					"description": "Your player index (seat number, 0-based)",
				},
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row of the target cell (0-based)",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column of the target cell (0-based)",
				},
				"rotation": map[string]interface{}{
					"type":        "integer",
					"enum":        []int{0, 90, 180, 270},
					"description": "Tile rotation in degrees (optional, first legal rotation when omitted)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why you chose this cell",
				},
			},
			Required: []string{"lobby_id", "client_id", "index", "row", "col"},
		},
	}, c.handlePlace)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Clear the board and start a fresh game with the same players. Scores are kept.",
		InputSchema: lobbyOnly(),
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "end_game",
		Description: "Abandon the running game",
		InputSchema: lobbyOnly(),
	}, c.handleEnd)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_board_size",
		Description: "Resize the board while no game is running",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lobby_id": lobbyIDProp(),
				"size": map[string]interface{}{
					"type":        "integer",
					"description": "Odd size between 3 and 49",
				},
			},
			Required: []string{"lobby_id", "size"},
		},
	}, c.handleSetBoardSize)

	// Catalogs
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_catalogs",
		Description: "List available tile catalogs",
		InputSchema: noArgs(),
	}, c.handleListCatalogs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the full game rules",
		InputSchema: noArgs(),
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func lobbyPath(lobbyID string, parts ...string) string {
	p := "/api/lobbies/" + url.PathEscape(lobbyID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// Tool handlers

func (c *Client) handleCreateLobby(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	req := service.CreateLobbyRequest{}
	req.CatalogID, _ = args["catalog_id"].(string)
	req.Classic, _ = args["classic"].(bool)
	if size, ok := intArg(args, "board_size"); ok {
		req.BoardSize = size
	}

	var lobby service.LobbyInfo
	if err := c.apiCall(ctx, "POST", "/api/lobbies", req, &lobby); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created lobby: %s\n%s", lobby.ID, formatLobbyInfo(&lobby))), nil
}

func (c *Client) handleListLobbies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count   int                 `json:"count"`
		Lobbies []service.LobbyInfo `json:"lobbies"`
	}

	if err := c.apiCall(ctx, "GET", "/api/lobbies", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Open Lobbies (%d):\n\n", response.Count))
	for _, l := range response.Lobbies {
		result.WriteString(fmt.Sprintf("- %s (Catalog: %s, Board: %d, Players: %d, %s)\n",
			l.ID, catalogLabel(&l), l.BoardSize, len(l.Players), statusLabel(l.Status)))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetLobby(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lobbyID, _ := arguments(request)["lobby_id"].(string)

	var lobby service.LobbyInfo
	if err := c.apiCall(ctx, "GET", lobbyPath(lobbyID), nil, &lobby); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLobbyInfo(&lobby)), nil
}

func (c *Client) handleJoin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	lobbyID, _ := args["lobby_id"].(string)
	clientID, _ := args["client_id"].(string)
	name, _ := args["name"].(string)

	body := map[string]string{"client_id": clientID, "name": name}

	var join service.JoinResult
	if err := c.apiCall(ctx, "POST", lobbyPath(lobbyID, "players"), body, &join); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatJoinResult(&join)), nil
}

func (c *Client) handleLeave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	lobbyID, _ := args["lobby_id"].(string)
	clientID, _ := args["client_id"].(string)

	if err := c.apiCall(ctx, "DELETE", lobbyPath(lobbyID, "players", url.PathEscape(clientID)), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s left lobby %s", clientID, lobbyID)), nil
}

func (c *Client) handleAddRobot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	lobbyID, _ := args["lobby_id"].(string)

	difficulty := engine.MaxDifficulty
	if d, ok := intArg(args, "difficulty"); ok {
		difficulty = d
	}

	var robot engine.Player
	if err := c.apiCall(ctx, "POST", lobbyPath(lobbyID, "robots"), map[string]int{"difficulty": difficulty}, &robot); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Seated %s (difficulty %d, color %s)", robot.Name, robot.Difficulty, robot.Color)), nil
}

func (c *Client) handleRobotify(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lobbyID, _ := arguments(request)["lobby_id"].(string)

	if err := c.apiCall(ctx, "POST", lobbyPath(lobbyID, "robotify"), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Robots took over lobby %s", lobbyID)), nil
}

func (c *Client) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.stateAction(ctx, request, "POST", "start", "Game started")
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lobbyID, _ := arguments(request)["lobby_id"].(string)

	var response struct {
		Message string        `json:"message"`
		State   *engine.State `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", lobbyPath(lobbyID, "reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response.Message + "\n\n" + formatState(response.State)), nil
}

func (c *Client) handleEnd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lobbyID, _ := arguments(request)["lobby_id"].(string)

	var response struct {
		Message string        `json:"message"`
		State   *engine.State `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", lobbyPath(lobbyID, "end"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response.Message + "\n\n" + formatScores(response.State)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.stateAction(ctx, request, "GET", "state", "")
}

func (c *Client) handleSetBoardSize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	lobbyID, _ := args["lobby_id"].(string)
	size, ok := intArg(args, "size")
	if !ok {
		return mcp.NewToolResultError("size is required"), nil
	}

	var state engine.State
	if err := c.apiCall(ctx, "PUT", lobbyPath(lobbyID, "size"), map[string]int{"size": size}, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Board resized to %d\n\n%s", size, formatState(&state))), nil
}

// stateAction calls an endpoint that answers with a bare State
func (c *Client) stateAction(ctx context.Context, request mcp.CallToolRequest, method, action, header string) (*mcp.CallToolResult, error) {
	lobbyID, _ := arguments(request)["lobby_id"].(string)

	var state engine.State
	if err := c.apiCall(ctx, method, lobbyPath(lobbyID, action), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := formatState(&state)
	if header != "" {
		text = header + "\n\n" + text
	}
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleCurrentTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lobbyID, _ := arguments(request)["lobby_id"].(string)

	var turn engine.TurnInfo
	if err := c.apiCall(ctx, "GET", lobbyPath(lobbyID, "turn"), nil, &turn); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTurn(turn)), nil
}

func (c *Client) handlePlace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	lobbyID, _ := args["lobby_id"].(string)
	clientID, _ := args["client_id"].(string)

	// intent is for the caller's own reasoning and is not forwarded

	req := service.PlaceRequest{PlayerID: clientID}
	var ok bool
	if req.Index, ok = intArg(args, "index"); !ok {
		return mcp.NewToolResultError("index is required"), nil
	}
	if req.Row, ok = intArg(args, "row"); !ok {
		return mcp.NewToolResultError("row is required"), nil
	}
	if req.Col, ok = intArg(args, "col"); !ok {
		return mcp.NewToolResultError("col is required"), nil
	}
	if rot, ok := intArg(args, "rotation"); ok {
		req.Rotation = &rot
	}

	var result service.PlaceResult
	if err := c.apiCall(ctx, "POST", lobbyPath(lobbyID, "place"), req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlaceResult(&req, &result)), nil
}

func (c *Client) handleListCatalogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var catalogs []service.CatalogInfo
	if err := c.apiCall(ctx, "GET", "/api/catalogs", nil, &catalogs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Catalogs:\n\n")
	for _, cat := range catalogs {
		result.WriteString(fmt.Sprintf("- %s: %s (%d tile kinds, %d tiles)\n",
			cat.CatalogID, cat.Name, cat.TileKinds, cat.DeckSize))
		if cat.Description != "" {
			result.WriteString(fmt.Sprintf("  %s\n", cat.Description))
		}
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Carcacity - Complete Instructions

GAME OBJECTIVE:
Build the biggest connected territory. Each player's score is the size of
their largest group of tiles, where tiles touching on a side or a corner
belong to the same group.

THE BOARD:
An odd-sized square grid. The centre cell holds a fixed starting tile that
belongs to nobody. A cell becomes playable once it touches any placed tile
on a side or a corner.

BOARD LEGEND (game_state):
  #   the starting tile
  0-4 a tile owned by the player with that index
  +   a cell you may place on this turn
  .   empty

TURNS:
- Players act in seat order; robots play on their own.
- On your turn you hold one upcoming tile. Place it on any "+" cell.
- A tile's edges must match the land type of every neighbouring tile's
  facing edge. Supply a rotation (0, 90, 180, 270) or let the server pick
  the first one that fits.
- If the upcoming tile fits nowhere, it is discarded and another is drawn.

GAME END:
The game ends when no tile can be placed anywhere or the deck runs out.
The highest score wins. reset_game starts a new board and keeps scores;
end_game abandons the game and clears them.

CLASSIC VARIANT:
Lobbies created with classic=true use no tiles. Any "+" cell is legal and
cells touching more placed tiles rank higher.

ROBOTS:
add_robot seats an opponent with difficulty 0 (random) to 3 (always picks
the highest-ranked cell). robotify turns every seat into a robot.

Good luck building your city!`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting

func catalogLabel(l *service.LobbyInfo) string {
	if l.Classic {
		return "classic"
	}
	return l.CatalogID
}

func statusLabel(s engine.GameStatus) string {
	switch {
	case s.Ended:
		return "finished"
	case s.Started:
		return "in progress"
	default:
		return "waiting"
	}
}

func formatLobbyInfo(l *service.LobbyInfo) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Lobby: %s\nCatalog: %s\nBoard: %dx%d\nStatus: %s\nCreated: %s\n",
		l.ID, catalogLabel(l), l.BoardSize, l.BoardSize, statusLabel(l.Status),
		l.CreatedAt.Format("2006-01-02 15:04:05")))

	result.WriteString(fmt.Sprintf("\nPlayers (%d):\n", len(l.Players)))
	for i, p := range l.Players {
		result.WriteString("  " + formatPlayer(i, p) + "\n")
	}
	if len(l.Spectators) > 0 {
		result.WriteString(fmt.Sprintf("Spectators: %d\n", len(l.Spectators)))
	}
	return result.String()
}

func formatPlayer(i int, p engine.Player) string {
	kind := "human"
	if p.Robot {
		kind = fmt.Sprintf("robot d%d", p.Difficulty)
	}
	line := fmt.Sprintf("[%d] %s (%s, %s) score=%d", i, p.Name, kind, p.Color, p.Score)
	if p.IsTurn {
		line += " <- turn"
	}
	return line
}

func formatJoinResult(j *service.JoinResult) string {
	if j.Role == service.RoleSpectator {
		return fmt.Sprintf("Joined as spectator (client_id: %s). The lobby is full or a game is running.", j.ClientID)
	}
	verb := "Joined"
	if j.Rejoined {
		verb = "Rejoined"
	}
	text := fmt.Sprintf("%s as player (client_id: %s)", verb, j.ClientID)
	if j.Player != nil {
		text += fmt.Sprintf("\nName: %s\nColor: %s", j.Player.Name, j.Player.Color)
	}
	return text
}

func formatTurn(turn engine.TurnInfo) string {
	text := fmt.Sprintf("Turn: %s (index %d)\nDeck remaining: %d", turn.PlayerName, turn.TurnIndex, turn.DeckRemaining)
	if turn.UpcomingTile != nil {
		text += fmt.Sprintf("\nUpcoming tile: %s", turn.UpcomingTile.TileID)
	}
	return text
}

func formatScores(state *engine.State) string {
	if state == nil {
		return "No game state available"
	}
	var result strings.Builder
	result.WriteString("Players:\n")
	for i, p := range state.Players {
		result.WriteString("  " + formatPlayer(i, p) + "\n")
	}
	return result.String()
}

func formatState(state *engine.State) string {
	if state == nil || state.Board == nil {
		return "No game state available"
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Status: %s | Placed: %d | Discarded: %d\n",
		statusLabel(state.Status), state.Sequence, state.Discarded))
	if state.Status.Started && !state.Status.Ended {
		result.WriteString(formatTurn(state.Turn) + "\n")
	}
	result.WriteString("\n")
	result.WriteString(formatBoard(state.Board))
	result.WriteString("\n")
	result.WriteString(formatScores(state))

	if len(state.Frontier) > 0 && state.Status.Started && !state.Status.Ended {
		result.WriteString("\nLegal cells (row,col rank):")
		for _, e := range state.Frontier {
			result.WriteString(fmt.Sprintf(" (%d,%d %d)", e.Row, e.Col, e.Rank))
		}
		result.WriteString("\n")
	}

	if state.Status.Ended {
		result.WriteString("\n🏁 GAME OVER")
	}
	return result.String()
}

func formatBoard(board *engine.Board) string {
	var result strings.Builder

	result.WriteString("   ")
	for c := 0; c < board.Size; c++ {
		result.WriteString(fmt.Sprintf("%d", c%10))
	}
	result.WriteString("\n")

	for r := 0; r < board.Size; r++ {
		result.WriteString(fmt.Sprintf("%2d ", r))
		for c := 0; c < board.Size; c++ {
			result.WriteString(cellChar(&board.Cells[r][c]))
		}
		result.WriteString("\n")
	}
	return result.String()
}

func cellChar(cell *engine.Cell) string {
	switch {
	case cell.Player == engine.BoardOccupant:
		return "#"
	case cell.Player != "" && cell.Index != nil:
		return fmt.Sprintf("%d", *cell.Index)
	case cell.Enabled:
		return "+"
	default:
		return "."
	}
}

func formatPlaceResult(req *service.PlaceRequest, result *service.PlaceResult) string {
	var text strings.Builder
	if result.Accepted {
		text.WriteString(fmt.Sprintf("✓ Placed at (%d,%d)\n", req.Row, req.Col))
	} else {
		text.WriteString(fmt.Sprintf("✗ Placement at (%d,%d) rejected", req.Row, req.Col))
		if result.Message != "" {
			text.WriteString(": " + result.Message)
		}
		text.WriteString("\nCheck that it is your turn, the index is yours and the cell is marked +.\n")
	}
	text.WriteString("\n")
	text.WriteString(formatState(result.State))
	return text.String()
}
