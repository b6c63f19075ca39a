package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Broadcaster is the capability handed to services that emit real-time
// events. Delivery is best-effort: nothing in the callers depends on a
// broadcast reaching anyone.
type Broadcaster interface {
	ToRoom(room, event string, payload interface{})
	Global(event string, payload interface{})
}

const GlobalRoom = "global"

func AuctionRoom(auctionID uint64) string {
	return fmt.Sprintf("auction:%d", auctionID)
}

func ConversationRoom(convID uint64) string {
	return fmt.Sprintf("conversation:%d", convID)
}

type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to websocket subscribers grouped into rooms. Every
// client is also a member of the global room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}

	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Hub) ToRoom(room, event string, payload interface{}) {
	raw, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		log.WithFields(log.Fields{"event": event, "error": err}).Warn("broadcast marshal failed")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- raw:
		default:
			// Slow consumer; skip rather than block the emitter.
		}
	}
}

func (h *Hub) Global(event string, payload interface{}) {
	h.ToRoom(GlobalRoom, event, payload)
}

func (h *Hub) register(c *client, rooms []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range rooms {
		if h.rooms[room] == nil {
			h.rooms[room] = make(map[*client]struct{})
		}
		h.rooms[room][c] = struct{}{}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, members := range h.rooms {
		if _, ok := members[c]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
}

// Handle upgrades the request and subscribes the client to the global room
// plus an optional extra room from the "room" query param.
func (h *Hub) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	cl := &client{conn: conn, send: make(chan []byte, 32)}
	rooms := []string{GlobalRoom}
	if room := c.QueryParam("room"); room != "" {
		rooms = append(rooms, room)
	}
	h.register(cl, rooms)

	go cl.writePump()
	go func() {
		defer func() {
			h.unregister(cl)
			close(cl.send)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}

func (c *client) writePump() {
	defer c.conn.Close()
	for raw := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
