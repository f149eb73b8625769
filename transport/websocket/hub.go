package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/carcacity/game/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Event names sent to clients.
const (
	EventBoard      = "board"
	EventTurn       = "turn"
	EventPlayers    = "players"
	EventGameStatus = "game_status"
	EventState      = "state"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope for every frame sent to a client
type Message struct {
	LobbyID string      `json:"lobby_id"`
	Event   string      `json:"event"`
	Data    interface{} `json:"data,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	lobbyID  string
	clientID string
}

type outbound struct {
	lobbyID string
	data    []byte
}

// DisconnectHandler is told when a client's last connection to a lobby closes.
type DisconnectHandler func(lobbyID, clientID string)

// Hub maintains the set of active clients and fans messages out per lobby
type Hub struct {
	// Registered clients by lobby ID; written only by Run
	lobbies map[string]map[*Client]bool
	mu      sync.RWMutex

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once

	onDisconnect DisconnectHandler
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		lobbies:    make(map[string]map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// SetDisconnectHandler installs the callback for dropped clients. Call before Run.
func (h *Hub) SetDisconnectHandler(fn DisconnectHandler) {
	h.onDisconnect = fn
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)

		case <-h.quit:
			h.mu.Lock()
			for _, clients := range h.lobbies {
				for client := range clients {
					close(client.send)
				}
			}
			h.lobbies = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// ServeWS upgrades the request and attaches the connection to a lobby
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, lobbyID, clientID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		lobbyID:  lobbyID,
		clientID: clientID,
	}

	select {
	case h.register <- client:
	case <-h.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastEvent sends an event to all clients in a lobby
func (h *Hub) BroadcastEvent(lobbyID, event string, data interface{}) {
	payload, err := json.Marshal(&Message{LobbyID: lobbyID, Event: event, Data: data})
	if err != nil {
		log.Printf("Failed to marshal WebSocket message: %v", err)
		return
	}

	select {
	case h.broadcast <- outbound{lobbyID: lobbyID, data: payload}:
	case <-h.quit:
	}
}

// ClientCount returns the number of connections attached to a lobby
func (h *Hub) ClientCount(lobbyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.lobbies[lobbyID])
}

// ForLobby returns a broadcast sink bound to one lobby
func (h *Hub) ForLobby(lobbyID string) engine.Broadcaster {
	return &lobbySink{hub: h, lobbyID: lobbyID}
}

// lobbySink serialises engine snapshots as soon as they arrive, so the engine
// may keep mutating its state after the call returns.
type lobbySink struct {
	hub     *Hub
	lobbyID string
}

func (s *lobbySink) EmitBoard(board *engine.Board) {
	s.hub.BroadcastEvent(s.lobbyID, EventBoard, board)
}

func (s *lobbySink) EmitTurn(turn engine.TurnInfo) {
	s.hub.BroadcastEvent(s.lobbyID, EventTurn, turn)
}

func (s *lobbySink) EmitPlayers(players []engine.Player) {
	s.hub.BroadcastEvent(s.lobbyID, EventPlayers, players)
}

func (s *lobbySink) EmitGameStatus(status engine.GameStatus) {
	s.hub.BroadcastEvent(s.lobbyID, EventGameStatus, status)
}

// registerClient adds a client to a lobby
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.lobbies[client.lobbyID] == nil {
		h.lobbies[client.lobbyID] = make(map[*Client]bool)
	}
	h.lobbies[client.lobbyID][client] = true
	n := len(h.lobbies[client.lobbyID])
	h.mu.Unlock()

	log.Printf("Client %s registered for lobby %s (total clients: %d)", client.clientID, client.lobbyID, n)
}

// unregisterClient removes a client from a lobby
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.lobbies[client.lobbyID]
	if !ok || !clients[client] {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.lobbies, client.lobbyID)
	}
	remaining := len(clients)
	stillHere := false
	for other := range clients {
		if other.clientID == client.clientID {
			stillHere = true
			break
		}
	}
	h.mu.Unlock()

	log.Printf("Client %s unregistered from lobby %s (remaining clients: %d)", client.clientID, client.lobbyID, remaining)

	// The handler takes the lobby lock, which may be held by a goroutine
	// waiting on this loop.
	if h.onDisconnect != nil && client.clientID != "" && !stillHere {
		go h.onDisconnect(client.lobbyID, client.clientID)
	}
}

// deliver sends a message to all clients in a lobby
func (h *Hub) deliver(msg outbound) {
	h.mu.RLock()
	var slow []*Client
	for client := range h.lobbies[msg.lobbyID] {
		select {
		case client.send <- msg.data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// Client's send channel is full, close it
	for _, client := range slow {
		h.unregisterClient(client)
	}
}

// readPump keeps the connection alive and notices when it closes
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Actions arrive over HTTP; inbound frames are ignored
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
