package rpc

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pflow-xyz/go-mona/token"
)

// streamSubscriberID names the host subscription feeding the stream.
const streamSubscriberID = "rpc:stream"

// MessageType tags stream frames.
type MessageType string

const (
	MsgTypeHello MessageType = "hello"
	MsgTypeEvent MessageType = "event"
)

// Message is the stream envelope.
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// HelloPayload is sent once when a stream client connects.
type HelloPayload struct {
	Stream   string `json:"stream"`
	Ledger   string `json:"ledger"`
	Sequence uint64 `json:"sequence"`
	Version  int    `json:"version"`
}

// streamClient is one WebSocket consumer of the event stream.
type streamClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	h := s.running()
	if h == nil {
		http.Error(w, ErrNotDeployed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("rpc: websocket upgrade: %v", err)
		return
	}

	client := &streamClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 256),
	}

	s.clientMu.Lock()
	s.clients[client] = true
	s.clientMu.Unlock()

	log.Printf("rpc: stream client %s connected", client.id)

	go client.writePump()

	s.mu.RLock()
	ledger := s.ledger
	s.mu.RUnlock()
	snap := h.Snapshot()
	s.sendMessage(client, MsgTypeHello, HelloPayload{
		Stream:   h.StreamID(),
		Ledger:   ledger.String(),
		Sequence: snap.Sequence,
		Version:  h.Version(),
	})

	s.readLoop(client)
}

// readLoop consumes the connection until it drops. Inbound frames are
// discarded; the stream is one-way, the loop only keeps control frames
// flowing.
func (s *Server) readLoop(client *streamClient) {
	defer func() {
		s.removeClient(client)
		client.conn.Close()
		close(client.send)
	}()

	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("rpc: stream client %s read error: %v", client.id, err)
			}
			return
		}
	}
}

func (s *Server) removeClient(client *streamClient) {
	s.clientMu.Lock()
	delete(s.clients, client)
	s.clientMu.Unlock()

	log.Printf("rpc: stream client %s disconnected", client.id)
}

// broadcastEvent fans one committed event out to every stream client.
// It runs on the host's apply loop, so a full client buffer drops the
// frame instead of blocking.
func (s *Server) broadcastEvent(ev token.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rpc: marshal event: %v", err)
		return
	}
	data, err := json.Marshal(Message{
		Type:      MsgTypeEvent,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("rpc: marshal message: %v", err)
		return
	}

	s.clientMu.RLock()
	defer s.clientMu.RUnlock()
	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			log.Printf("rpc: stream client %s buffer full, dropping event", client.id)
		}
	}
}

func (s *Server) sendMessage(client *streamClient, msgType MessageType, payload any) {
	var payloadBytes json.RawMessage
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			log.Printf("rpc: marshal payload: %v", err)
			return
		}
	}

	data, err := json.Marshal(Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("rpc: marshal message: %v", err)
		return
	}

	select {
	case client.send <- data:
	default:
		log.Printf("rpc: stream client %s buffer full", client.id)
	}
}

func (client *streamClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}

			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("rpc: stream client %s write error: %v", client.id, err)
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
