// Package wsrouter routes incoming websocket JSON messages of the form
// {"type": "...", "payload": {...}} to handlers registered per type.
package wsrouter

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

type WSRouter struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
	notFound    HandlerFunc
}

func New() *WSRouter {
	return &WSRouter{
		routes: make(map[string]HandlerFunc),
		notFound: func(_ context.Context, conn *websocket.Conn, _ json.RawMessage) error {
			return conn.WriteJSON(map[string]string{"error": "unknown message type"})
		},
	}
}

// Use appends a middleware applied to every handler, including the
// not-found handler. Must be called before ServeConn.
func (r *WSRouter) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// HandleNotFound replaces the handler invoked for unrecognized message
// types.
func (r *WSRouter) HandleNotFound(handler HandlerFunc) {
	r.notFound = handler
}

// ServeConn reads messages from the connection until a read error
// (usually the peer closing) and dispatches each to its handler.
// Handler errors are returned to the caller and end the serve loop.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			handler = r.notFound
		}

		for i := len(r.middlewares) - 1; i >= 0; i-- {
			handler = r.middlewares[i](handler)
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		if err := handler(msgCtx, conn, msg.Payload); err != nil {
			return err
		}
	}
}
