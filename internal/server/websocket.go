// ============================================================================
// ecsq - Entity Component Query
// ============================================================================
//
// Package:     server
// Description: WebSocket query gateway
// Author:      Mike Stoffels
// Created:     2026-03-18
// License:     MIT
// ============================================================================

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/msto63/ecsq/pkg/core/logging"
)

// WebSocket upgrader with permissive settings for local development
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage represents an incoming WebSocket message
type WSMessage struct {
	Type    string          `json:"type"`    // "query", "ping"
	Payload json.RawMessage `json:"payload"` // Message-specific payload
}

// WSQueryPayload represents the query message payload
type WSQueryPayload struct {
	Query string `json:"query"`
}

// WSResponse represents an outgoing WebSocket message
type WSResponse struct {
	Type    string      `json:"type"`              // "result", "error", "pong"
	Payload interface{} `json:"payload,omitempty"` // Response-specific payload
}

// WSErrorPayload represents an error payload
type WSErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// WebSocketHandler serves queries over WebSocket connections
type WebSocketHandler struct {
	service     *QueryService
	readTimeout time.Duration
	logger      *logging.Logger
}

// NewWebSocketHandler creates a new WebSocket handler. Connections idle
// longer than readTimeout are closed.
func NewWebSocketHandler(service *QueryService, readTimeout time.Duration, logger *logging.Logger) *WebSocketHandler {
	if logger == nil {
		logger = logging.New("websocket")
	}
	if readTimeout <= 0 {
		readTimeout = 60 * time.Second
	}
	return &WebSocketHandler{
		service:     service,
		readTimeout: readTimeout,
		logger:      logger,
	}
}

// ServeHTTP handles WebSocket upgrade and connections
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	h.handleConnection(r.Context(), conn)
}

// handleConnection handles a single WebSocket connection. Messages are
// answered in order on the reading goroutine, so there is one writer.
func (h *WebSocketHandler) handleConnection(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	h.logger.Info("WebSocket connection established", "remote", conn.RemoteAddr().String())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error", "error", err)
			} else {
				h.logger.Info("WebSocket connection closed")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))

		switch msg.Type {
		case "ping":
			h.sendResponse(conn, WSResponse{Type: "pong"})

		case "query":
			var payload WSQueryPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				h.sendError(conn, WSErrorPayload{Code: "invalid_payload", Message: "Invalid query payload"})
				continue
			}
			h.handleQuery(ctx, conn, payload.Query)

		default:
			h.sendError(conn, WSErrorPayload{Code: "unknown_type", Message: "Unknown message type: " + msg.Type})
		}
	}
}

func (h *WebSocketHandler) handleQuery(ctx context.Context, conn *websocket.Conn, q string) {
	if strings.TrimSpace(q) == "" {
		h.sendError(conn, WSErrorPayload{Code: "invalid_request", Message: "Query required"})
		return
	}

	resp, err := h.service.Execute(ctx, q)
	if err != nil {
		h.sendError(conn, WSErrorPayload{
			Code:    resp.Code,
			Message: resp.Error,
			Status:  resp.Status,
		})
		return
	}
	h.sendResponse(conn, WSResponse{Type: "result", Payload: resp})
}

// sendResponse sends a response message via WebSocket
func (h *WebSocketHandler) sendResponse(conn *websocket.Conn, resp WSResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		h.logger.Error("WebSocket send error", "error", err)
	}
}

// sendError sends an error response via WebSocket
func (h *WebSocketHandler) sendError(conn *websocket.Conn, payload WSErrorPayload) {
	h.sendResponse(conn, WSResponse{Type: "error", Payload: payload})
}
