package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/interviewer/internal/gedcomx"
	"github.com/satriahrh/interviewer/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16 * 1024

	// Time allowed for a typed answer to be answered.
	answerTimeout = 60 * time.Second
)

// Interviewer is the part of the interview service the feed talks to
type Interviewer interface {
	Records(ctx context.Context, id string) ([]gedcomx.Record, error)
	Reply(ctx context.Context, id string, text string) (*usecase.TurnResult, error)
}

// Hub keeps the viewers of every interview and pushes record updates to them.
type Hub struct {
	// Registered clients, keyed by interview id.
	clients map[string]map[*Client]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	interviewer Interviewer
	validator   *MessageValidator
	upgrader    websocket.Upgrader

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub. Connections are accepted from the given
// origins; "*" accepts every origin.
func NewHub(interviewer Interviewer, allowedOrigins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		clients:     make(map[string]map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		interviewer: interviewer,
		validator:   NewMessageValidator(),
		logger:      logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:     originChecker(allowedOrigins),
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(strings.TrimRight(a, "/"), u.Scheme+"://"+u.Host) {
				return true
			}
		}
		return false
	}
}

// Run starts the hub's main loop. It returns when ctx is done, closing every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			viewers, ok := h.clients[client.interviewID]
			if !ok {
				viewers = make(map[*Client]struct{})
				h.clients[client.interviewID] = viewers
			}
			viewers[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("interviewID", client.interviewID))

			go client.sendSnapshot()

		case client := <-h.unregister:
			h.remove(client)
			h.logger.Info("Client unregistered", zap.String("interviewID", client.interviewID))

		case <-ctx.Done():
			h.mu.Lock()
			for id, viewers := range h.clients {
				for client := range viewers {
					close(client.send)
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	viewers, ok := h.clients[client.interviewID]
	if !ok {
		return
	}
	if _, ok := viewers[client]; ok {
		delete(viewers, client)
		close(client.send)
	}
	if len(viewers) == 0 {
		delete(h.clients, client.interviewID)
	}
}

// PublishRecords sends the records of an interview to all of its viewers.
// Slow viewers miss the update rather than blocking the publisher.
func (h *Hub) PublishRecords(interviewID string, records []gedcomx.Record) {
	payload, err := json.Marshal(CreateRecordsUpdateMessage(interviewID, records))
	if err != nil {
		h.logger.Error("Failed to marshal records update",
			zap.String("interviewID", interviewID),
			zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[interviewID] {
		select {
		case client.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
		default:
			h.logger.Warn("Dropping records update for slow client",
				zap.String("interviewID", interviewID))
		}
	}
}

// ClientCount returns the number of viewers of an interview
func (h *Hub) ClientCount(interviewID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[interviewID])
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	interviewID string

	logger *zap.Logger

	// Serializes typed answers of one viewer.
	mutex sync.Mutex
}

// HandleWebSocket upgrades the request and subscribes the peer to the records
// of an interview.
func HandleWebSocket(hub *Hub, c echo.Context, interviewID string, logger *zap.Logger) error {
	if _, err := hub.interviewer.Records(c.Request().Context(), interviewID); err != nil {
		return err
	}

	conn, err := hub.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return nil
	}

	client := &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan WriteData, 256),
		interviewID: interviewID,
		logger:      logger.With(zap.String("interviewID", interviewID)),
	}

	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
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
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
			c.sendJSON(CreateErrorMessage("unsupported_frame", "only text frames are accepted", ""))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
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

// processMessage handles a message sent by the viewer
func (c *Client) processMessage(message []byte) {
	msg, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Invalid message", zap.Error(err))
		c.sendJSON(CreateErrorMessage("invalid_message", "message could not be processed", err.Error()))
		return
	}

	switch m := msg.(type) {
	case *PingMessage:
		c.sendJSON(CreatePongMessage(m.Data))
	case *AnswerMessage:
		go c.handleAnswer(m.Text)
	}
}

// handleAnswer takes a typed answer as an interview turn. The records update
// reaches the viewer through PublishRecords.
func (c *Client) handleAnswer(text string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), answerTimeout)
	defer cancel()

	result, err := c.hub.interviewer.Reply(ctx, c.interviewID, text)
	if err != nil {
		c.logger.Error("Failed to answer", zap.Error(err))
		c.sendJSON(CreateErrorMessage("answer_failed", "answer could not be processed", err.Error()))
		return
	}

	msg := &QuestionMessage{
		BaseMessage: BaseMessage{Type: MessageTypeQuestion, Timestamp: now()},
		InterviewID: c.interviewID,
		Answer:      result.Answer,
		Question:    result.Question,
	}
	if len(result.Audio) > 0 {
		msg.AudioData = base64.StdEncoding.EncodeToString(result.Audio)
	}
	c.sendJSON(msg)
}

// sendSnapshot sends the current records so a new viewer starts in sync
func (c *Client) sendSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	records, err := c.hub.interviewer.Records(ctx, c.interviewID)
	if err != nil {
		c.logger.Error("Failed to load records", zap.Error(err))
		c.sendJSON(CreateErrorMessage("records_unavailable", "records could not be loaded", err.Error()))
		return
	}
	c.sendJSON(CreateRecordsUpdateMessage(c.interviewID, records))
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.interviewID][c]; !ok {
		return
	}
	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Send buffer full, dropping message")
	}
}
