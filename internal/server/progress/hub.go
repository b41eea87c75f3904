// Package progress 将管线进度事件实时转发给 websocket 订阅者
package progress

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"boltzprep/internal/importer"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 本地操作工具，不限制来源
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub 进度事件分发中心
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

// subscriber 单个 websocket 订阅者
type subscriber struct {
	conn *websocket.Conn
	send chan importer.ProgressEvent
	done chan struct{}
}

// NewHub 创建分发中心
func NewHub() *Hub {
	return &Hub{subscribers: make(map[*subscriber]struct{})}
}

// Broadcast 向全部订阅者转发事件，慢订阅者丢帧
func (h *Hub) Broadcast(evt importer.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		select {
		case sub.send <- evt:
		default:
		}
	}
}

// Serve 升级连接并持续推送事件，直到客户端断开
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan importer.ProgressEvent, 64),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subscribers, sub)
		h.mu.Unlock()
		conn.Close()
	}()

	// 读泵只为感知断开
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(sub.done)
				return
			}
		}
	}()

	for {
		select {
		case evt := <-sub.send:
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-sub.done:
			return
		}
	}
}
