package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"honeypot-lab/internal/domain/services"
	"honeypot-lab/pkg/logger"
)

// maxMessageBody bounds inbound message payloads
const maxMessageBody = 1 << 20

// MessageHandler handles inbound scammer messages
type MessageHandler struct {
	engine      *services.Engine
	alwaysReply bool
	logger      *logger.Logger
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(engine *services.Engine, alwaysReply bool, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		engine:      engine,
		alwaysReply: alwaysReply,
		logger:      log.WithComponent("message-handler"),
	}
}

// InboundMessage is the message part of a request. Clients send either an
// object or a bare string.
type InboundMessage struct {
	Sender    string          `json:"sender,omitempty"`
	Text      string          `json:"text"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// UnmarshalJSON accepts an object, a string or null
func (m *InboundMessage) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &m.Text)
	}

	type plain InboundMessage
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = InboundMessage(p)
	return nil
}

// MessageRequest is the body of POST /v1/message. Unknown fields are ignored.
type MessageRequest struct {
	SessionID           string            `json:"sessionId"`
	Message             InboundMessage    `json:"message"`
	ConversationHistory []json.RawMessage `json:"conversationHistory,omitempty"`
	Metadata            json.RawMessage   `json:"metadata,omitempty"`
}

// MessageResponse is returned for every accepted message
type MessageResponse struct {
	Status       string `json:"status"`
	ScamDetected bool   `json:"scamDetected"`
	Reply        string `json:"reply,omitempty"`
}

// Handle handles POST /v1/message
func (h *MessageHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBody)).Decode(&req); err != nil {
		h.logger.Debug().Err(err).Msg("invalid request body")
		respondError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SessionID == "" {
		respondError(h.logger, w, http.StatusBadRequest, "sessionId is required")
		return
	}

	reply := h.engine.HandleMessage(req.SessionID, req.Message.Text)

	resp := MessageResponse{Status: "ok"}
	if reply.ScamDetected {
		resp.Status = "success"
		resp.ScamDetected = true
		resp.Reply = reply.Text
	} else if h.alwaysReply {
		resp.Reply = reply.Text
	}

	respondJSON(h.logger, w, http.StatusOK, resp)
}
