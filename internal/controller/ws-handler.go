package controller

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gorilla/websocket"

	roomRepo "github.com/syncwatch/server/internal/repository/room"
	"github.com/syncwatch/server/internal/service/room"
	"github.com/syncwatch/server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.wsRequestIDMw())
	mux.Use(c.wsLoggerMw())

	mux.Handle("ALIVE", c.handleAlive)
	mux.Handle("GET_STATE", c.handleGetState)
	mux.Handle("CONTROL", c.handleControl)
	mux.Handle("SET_MODE", c.handleSetMode)
	mux.Handle("SIGNAL", c.handleSignal)

	mux.HandleNotFound(c.handleUnknownType)

	return mux
}

func (c *controller) handleAlive(_ context.Context, _ *websocket.Conn, _ json.RawMessage) error {
	return nil
}

func (c *controller) handleUnknownType(ctx context.Context, _ *websocket.Conn, _ json.RawMessage) error {
	c.writeError(ctx, "unknown message type")
	return nil
}

func (c *controller) handleGetState(ctx context.Context, _ *websocket.Conn, _ json.RawMessage) error {
	roomState, err := c.roomService.GetRoomState(ctx, c.getRoomCodeFromCtx(ctx))
	if err != nil {
		c.writeError(ctx, "room not found")
		return nil
	}

	c.send(ctx, &room.Output{
		Type:    room.MessageRoomState,
		Payload: roomState,
	})

	return nil
}

type controlInput struct {
	Action   string   `json:"action"`
	Position *float64 `json:"position"`
	Rate     *float64 `json:"rate"`
}

func (c *controller) handleControl(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input controlInput
	if err := json.Unmarshal(payload, &input); err != nil {
		c.writeError(ctx, "malformed payload")
		return nil
	}

	action := roomRepo.ControlAction(input.Action)
	if !action.Valid() {
		c.writeControlRejected(ctx, "invalid_action")
		return nil
	}

	_, err := c.roomService.Control(ctx, &room.ControlParams{
		RoomCode: c.getRoomCodeFromCtx(ctx),
		SenderID: c.getMemberIDFromCtx(ctx),
		Action:   action,
		Position: input.Position,
		Rate:     input.Rate,
	})
	if err != nil {
		switch {
		case errors.Is(err, roomRepo.ErrPermissionDenied):
			c.writeControlRejected(ctx, "forbidden")
		case errors.Is(err, roomRepo.ErrInvalidControlAction):
			c.writeControlRejected(ctx, "invalid_action")
		case errors.Is(err, roomRepo.ErrRoomNotFound), errors.Is(err, roomRepo.ErrMemberNotFound):
			// the sender's leave can race its own in-flight request
			c.writeControlRejected(ctx, "not_found")
		default:
			c.logger.WarnContext(ctx, "failed to apply control", "error", err)
			c.writeError(ctx, "internal error")
		}
	}

	return nil
}

type setModeInput struct {
	Mode string `json:"mode"`
}

func (c *controller) handleSetMode(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input setModeInput
	if err := json.Unmarshal(payload, &input); err != nil {
		c.writeError(ctx, "malformed payload")
		return nil
	}

	err := c.roomService.SetControlMode(ctx, &room.SetControlModeParams{
		RoomCode: c.getRoomCodeFromCtx(ctx),
		SenderID: c.getMemberIDFromCtx(ctx),
		Mode:     roomRepo.ControlMode(input.Mode),
	})
	if err != nil {
		switch {
		case errors.Is(err, roomRepo.ErrPermissionDenied):
			c.writeControlRejected(ctx, "forbidden")
		case errors.Is(err, roomRepo.ErrInvalidControlMode):
			c.writeControlRejected(ctx, "invalid_mode")
		case errors.Is(err, roomRepo.ErrRoomNotFound), errors.Is(err, roomRepo.ErrMemberNotFound):
			c.writeControlRejected(ctx, "not_found")
		default:
			c.logger.WarnContext(ctx, "failed to set control mode", "error", err)
			c.writeError(ctx, "internal error")
		}
	}

	return nil
}

type signalInput struct {
	ToMemberID string          `json:"to_member_id"`
	Payload    json.RawMessage `json:"payload"`
}

func (c *controller) handleSignal(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input signalInput
	if err := json.Unmarshal(payload, &input); err != nil {
		c.writeError(ctx, "malformed payload")
		return nil
	}

	if err := c.roomService.RelaySignal(ctx, &room.RelaySignalParams{
		FromMemberID: c.getMemberIDFromCtx(ctx),
		ToMemberID:   input.ToMemberID,
		Payload:      input.Payload,
	}); err != nil {
		if errors.Is(err, roomRepo.ErrMemberNotFound) || errors.Is(err, roomRepo.ErrRoomNotFound) {
			c.writeError(ctx, "member not found")
		} else {
			c.logger.WarnContext(ctx, "failed to relay signal", "error", err)
			c.writeError(ctx, "internal error")
		}
	}

	return nil
}

func (c *controller) send(ctx context.Context, out *room.Output) {
	sender := c.getSenderFromCtx(ctx)
	if sender == nil {
		return
	}

	if !sender.Send(out) {
		c.logger.DebugContext(ctx, "reply dropped", "message_type", out.Type)
	}
}

// writeControlRejected tells the requester, and only the requester, why
// its request did not take effect, so its UI does not reflect a change
// that never happened.
func (c *controller) writeControlRejected(ctx context.Context, reason string) {
	c.send(ctx, &room.Output{
		Type: room.MessageControlRejected,
		Payload: map[string]any{
			"reason": reason,
		},
	})
}

func (c *controller) writeError(ctx context.Context, message string) {
	c.send(ctx, &room.Output{
		Type: room.MessageError,
		Payload: map[string]any{
			"message": message,
		},
	})
}
