package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mvoevodskiy/botcms/internal/engine"
	"github.com/mvoevodskiy/botcms/pkg/api"
	"github.com/mvoevodskiy/botcms/pkg/log"
)

type (
	// SocketBridge is the websocket chat transport. Each connected
	// client is one peer, keyed by its chat id; parcels addressed to
	// that peer become message frames on the connection
	SocketBridge struct {
		logger *slog.Logger
		engine *engine.Engine

		mu      sync.Mutex
		clients map[string]*Client
		nextID  int64
	}

	// Client is one websocket connection speaking the chat frame
	// protocol
	Client struct {
		bridge   *SocketBridge
		conn     *websocket.Conn
		chatID   string
		sender   api.User
		outbound chan *api.SocketOutbound
		closing  chan struct{}
		once     sync.Once
	}
)

// SocketBridgeName is the name the websocket bridge registers under
const SocketBridgeName = "websocket"

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 4096
	wsBufferSize       = 1024
	outboundBufferSize = 16
)

var (
	ErrPeerNotConnected = errors.New("peer not connected")
	ErrClientSaturated  = errors.New("client send buffer full")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewSocketBridge creates an empty websocket bridge
func NewSocketBridge(logger *slog.Logger, eng *engine.Engine) *SocketBridge {
	return &SocketBridge{
		logger:  logger,
		engine:  eng,
		clients: map[string]*Client{},
	}
}

func (b *SocketBridge) Name() string {
	return SocketBridgeName
}

// Send delivers a parcel to the connected peer as a message frame and
// returns the id assigned to the produced message
func (b *SocketBridge) Send(
	_ context.Context, parcel *api.Parcel,
) ([]int64, error) {
	b.mu.Lock()
	client, ok := b.clients[parcel.PeerID]
	if !ok {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrPeerNotConnected, parcel.PeerID)
	}
	b.nextID++
	id := b.nextID
	b.mu.Unlock()

	err := client.deliver(&api.SocketOutbound{
		Type:      api.SocketFrameMessage,
		MessageID: id,
		Text:      parcel.Message,
		Markup:    parcel.Markup,
		Keyboard:  parcel.Keyboard,
		EditMsgID: parcel.EditMsgID,
	})
	if err != nil {
		return nil, err
	}
	return []int64{id}, nil
}

// Remove asks the peer to drop the listed messages
func (b *SocketBridge) Remove(
	_ context.Context, chatID string, msgIDs []int64,
) error {
	b.mu.Lock()
	client, ok := b.clients[chatID]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrPeerNotConnected, chatID)
	}
	return client.deliver(&api.SocketOutbound{
		Type:   api.SocketFrameRemove,
		MsgIDs: msgIDs,
	})
}

// AnswerCallback acknowledges an interactive-control activation. The
// frame goes to every connected client; the query id lets the owner
// pick it up
func (b *SocketBridge) AnswerCallback(
	_ context.Context, queryID string, answer any,
) error {
	b.mu.Lock()
	clients := make([]*Client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	frame := &api.SocketOutbound{
		Type:    api.SocketFrameAnswer,
		QueryID: queryID,
		Answer:  answer,
	}
	for _, c := range clients {
		if err := c.deliver(frame); err != nil {
			b.logger.Warn("callback answer frame dropped",
				log.ChatID(c.chatID), log.Error(err))
		}
	}
	return nil
}

// CloseAll closes every connected client
func (b *SocketBridge) CloseAll() {
	b.mu.Lock()
	clients := make([]*Client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

func (b *SocketBridge) register(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.clients[c.chatID]; ok {
		old.Close()
	}
	b.clients[c.chatID] = c
}

func (b *SocketBridge) unregister(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.clients[c.chatID] == c {
		delete(b.clients, c.chatID)
	}
}

// handleWebSocket upgrades the connection and attaches it to the
// websocket bridge. The chat query parameter identifies the peer
func (s *Server) handleWebSocket(c *gin.Context) {
	chatID := c.Query("chat")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  "missing chat query parameter",
			Status: http.StatusBadRequest,
		})
		return
	}
	sender := api.User{
		ID:       c.DefaultQuery("sender", chatID),
		Username: c.Query("username"),
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", log.Error(err))
		return
	}

	client := &Client{
		bridge:   s.socket,
		conn:     conn,
		chatID:   chatID,
		sender:   sender,
		outbound: make(chan *api.SocketOutbound, outboundBufferSize),
		closing:  make(chan struct{}),
	}
	s.socket.register(client)
	go client.run()
}

// Close shuts the connection down and detaches it from the bridge
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.closing)
		_ = c.conn.Close()
	})
}

// deliver queues an outbound frame without blocking the engine
func (c *Client) deliver(frame *api.SocketOutbound) error {
	select {
	case c.outbound <- frame:
		return nil
	case <-c.closing:
		return ErrPeerNotConnected
	default:
		return ErrClientSaturated
	}
}

func (c *Client) run() {
	defer func() {
		c.bridge.unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	incoming := make(chan []byte, outboundBufferSize)
	go c.readMessages(incoming)

	for {
		select {
		case <-c.closing:
			return

		case message, ok := <-incoming:
			if !ok {
				return
			}
			c.handleInbound(message)

		case frame := <-c.outbound:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.bridge.logger.Error("websocket write failed",
					log.ChatID(c.chatID), log.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(
				websocket.PingMessage, nil,
			); err != nil {
				return
			}
		}
	}
}

func (c *Client) readMessages(incoming chan []byte) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			close(incoming)
			return
		}
		incoming <- message
	}
}

// handleInbound turns one client frame into an engine update
func (c *Client) handleInbound(message []byte) {
	var frame api.SocketInbound
	if err := json.Unmarshal(message, &frame); err != nil {
		c.bridge.logger.Warn("unparseable websocket frame",
			log.ChatID(c.chatID), log.Error(err))
		return
	}

	event := frame.Event
	if event == "" {
		event = api.EventMessageNew
	}
	upd := &api.Update{
		Bridge:    SocketBridgeName,
		Chat:      api.Chat{ID: c.chatID, Type: "user"},
		Sender:    c.sender,
		Author:    c.sender,
		MessageID: frame.MessageID,
		Text:      frame.Text,
		Event:     event,
		Date:      time.Now().Unix(),
	}

	ctx := context.Background()
	if frame.Callback != "" {
		upd.Query = &api.Query{ID: frame.QueryID}
		upd.Author = api.User{ID: api.SelfSender}
		err := c.bridge.engine.ResolveCallback(ctx, upd, frame.Callback)
		if err != nil {
			c.bridge.logger.Warn("websocket callback did not resolve",
				log.ChatID(c.chatID), log.Error(err))
		}
	}

	if err := c.bridge.engine.HandleUpdate(ctx, upd); err != nil {
		c.bridge.logger.Error("websocket update failed",
			log.ChatID(c.chatID), log.Error(err))
	}
}
