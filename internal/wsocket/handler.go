package wsocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"arxiv_rag_go_backend/internal/models"
	"arxiv_rag_go_backend/internal/utils/broker"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Frame types exchanged over the socket.
const (
	TypeAsk         = "ask"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeCitations   = "citations"
	TypeAnswer      = "answer"
	TypeError       = "error"
	TypeIndexUpdate = "index_update"

	EndOfAnswer = "[END]"
)

// StreamAsker answers a question while streaming the generated text.
type StreamAsker interface {
	StreamAsk(ctx context.Context, req models.AskRequest, onCitations func([]models.Citation) error, onToken func(string) error) (*models.AskResponse, error)
}

type Handler struct {
	rag      StreamAsker
	upgrader websocket.Upgrader
	broker   *broker.Broker
}

// Message is one frame. For "ask" the question is read from Question, or
// Content when Question is empty. JSON payloads (citations, index updates)
// travel encoded in Content.
type Message struct {
	Type       string `json:"type"`
	Content    string `json:"content"`
	Question   string `json:"question,omitempty"`
	Query      string `json:"query,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
}

func NewHandler(rag StreamAsker, upgrader websocket.Upgrader, messageBroker *broker.Broker) *Handler {
	return &Handler{
		rag:      rag,
		upgrader: upgrader,
		broker:   messageBroker,
	}
}

// conn serialises writes; gorilla allows one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(msg)
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()
	c := &conn{ws: ws}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if h.broker != nil {
		updates := h.broker.Subscribe(broker.TopicIndexUpdate)
		defer h.broker.Unsubscribe(broker.TopicIndexUpdate, updates)
		go h.forwardUpdates(ctx, c, updates)
	}

	log.Debug().Msg("websocket connected")
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read failed")
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug().Err(err).Msg("malformed websocket frame")
			if err := c.send(Message{Type: TypeError, Content: "malformed message"}); err != nil {
				return
			}
			continue
		}

		switch msg.Type {
		case TypeAsk:
			if err := h.handleAsk(ctx, c, msg); err != nil {
				log.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case TypePing:
			if err := c.send(Message{Type: TypePong}); err != nil {
				return
			}
		default:
			if err := c.send(Message{Type: TypeError, Content: fmt.Sprintf("unknown message type %q", msg.Type)}); err != nil {
				return
			}
		}
	}
}

// handleAsk streams one answer. Service failures are reported as an error
// frame; only write failures are returned.
func (h *Handler) handleAsk(ctx context.Context, c *conn, msg Message) error {
	req := models.NewAskRequest()
	req.Question = msg.Question
	if req.Question == "" {
		req.Question = msg.Content
	}
	req.Query = msg.Query
	if msg.MaxResults > 0 {
		req.MaxResults = msg.MaxResults
	}
	if msg.TopK > 0 {
		req.TopK = msg.TopK
	}

	var writeErr error
	onCitations := func(citations []models.Citation) error {
		payload, err := json.Marshal(citations)
		if err != nil {
			return err
		}
		writeErr = c.send(Message{Type: TypeCitations, Content: string(payload)})
		return writeErr
	}
	onToken := func(token string) error {
		writeErr = c.send(Message{Type: TypeAnswer, Content: token})
		return writeErr
	}

	if _, err := h.rag.StreamAsk(ctx, req, onCitations, onToken); err != nil {
		if writeErr != nil {
			return writeErr
		}
		zerolog.Ctx(ctx).Warn().Err(err).Msg("streamed ask failed")
		return c.send(Message{Type: TypeError, Content: err.Error()})
	}
	return c.send(Message{Type: TypeAnswer, Content: EndOfAnswer})
}

func (h *Handler) forwardUpdates(ctx context.Context, c *conn, updates <-chan interface{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(update)
			if err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode index update")
				continue
			}
			if err := c.send(Message{Type: TypeIndexUpdate, Content: string(payload)}); err != nil {
				return
			}
		}
	}
}
