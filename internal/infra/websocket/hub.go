package websocket

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
	pingPeriod   = 50 * time.Second
)

// Frame кадр таймера для браузера
type Frame struct {
	UserTestID int  `json:"user_test_id"`
	Remaining  int  `json:"remaining"`
	Elapsed    int  `json:"elapsed"`
	Expired    bool `json:"expired"`
}

type client struct {
	userTestID int
	conn       *websocket.Conn
	send       chan Frame
}

// Hub рассылает кадры таймера подписчикам попытки
type Hub struct {
	mu       sync.Mutex
	clients  map[int]map[*client]struct{}
	upgrader websocket.Upgrader
}

// NewHub создает хаб. checkOrigin nil - принимаются подключения с любого origin.
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		clients:  make(map[int]map[*client]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

// Subscribe переводит запрос в websocket и подписывает его на кадры попытки
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, userTestID int) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		userTestID: userTestID,
		conn:       conn,
		send:       make(chan Frame, sendBuffer),
	}

	h.mu.Lock()
	set, ok := h.clients[userTestID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[userTestID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// Publish отправляет кадр всем подписчикам попытки. Медленные клиенты теряют кадры.
// После кадра с истекшим временем подписчики отключаются.
func (h *Hub) Publish(frame Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[frame.UserTestID] {
		select {
		case c.send <- frame:
		default:
		}
		if frame.Expired {
			h.removeLocked(c)
		}
	}
}

// Subscribers количество подписчиков попытки
func (h *Hub) Subscribers(userTestID int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[userTestID])
}

// Close отключает подписчиков попытки
func (h *Hub) Close(userTestID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[userTestID] {
		h.removeLocked(c)
	}
}

func (h *Hub) removeLocked(c *client) {
	set, ok := h.clients[c.userTestID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userTestID)
	}
	close(c.send)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				log.Printf("websocket: write to user_test %d failed: %v", c.userTestID, err)
				h.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

// readPump нужен только для обработки close и pong от клиента
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket: user_test %d: %v", c.userTestID, err)
			}
			return
		}
	}
}
