package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/syncwatch/server/internal/repository/connection"
	roomRepo "github.com/syncwatch/server/internal/repository/room"
	"github.com/syncwatch/server/internal/service/room"
	"github.com/syncwatch/server/pkg/rest"
)

// senderQueueSize bounds the per-member outbound queue. At the default
// 100ms cadence this is over ten seconds of sync backlog before frames
// drop for a stalled connection.
const senderQueueSize = 128

type connectInput struct {
	DisplayName string `json:"display_name" validate:"required,max=32"`
}

func (c *controller) createRoom(w http.ResponseWriter, r *http.Request) {
	input := connectInput{DisplayName: r.URL.Query().Get("display-name")}
	if validationErrors, ok := c.validate.Validate(input); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	createRoomResponse, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		DisplayName: input.DisplayName,
	})
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to create room", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	c.serveMember(w, r, createRoomResponse.RoomCode, createRoomResponse.Member.ID)
}

func (c *controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomCode := chi.URLParam(r, "room-code")
	if roomCode == "" {
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
		return
	}

	input := connectInput{DisplayName: r.URL.Query().Get("display-name")}
	if validationErrors, ok := c.validate.Validate(input); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	joinRoomResponse, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		RoomCode:    roomCode,
		DisplayName: input.DisplayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, roomRepo.ErrRoomNotFound):
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
		case errors.Is(err, roomRepo.ErrRoomFull):
			rest.WriteJSON(w, http.StatusConflict, rest.Envelope{"error": "room is full"})
		default:
			c.logger.WarnContext(r.Context(), "failed to join room", "error", err)
			rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		}
		return
	}

	c.serveMember(w, r, roomCode, joinRoomResponse.JoinedMember.ID)
}

// serveMember upgrades the request, attaches the member's sender and
// serves the websocket mux until the connection drops. Leaving the
// function always detaches the member from the room.
func (c *controller) serveMember(w http.ResponseWriter, r *http.Request, roomCode, memberID string) {
	defer c.disconnect(r.Context(), roomCode, memberID)

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	sender := connection.NewSender(conn, senderQueueSize)
	go sender.Run()
	defer sender.Close()

	if err := c.roomService.ConnectMember(r.Context(), &room.ConnectMemberParams{
		MemberID: memberID,
		Sender:   sender,
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to connect member", "error", err)
		return
	}

	roomState, err := c.roomService.GetRoomState(r.Context(), roomCode)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to get room state", "error", err)
		return
	}

	sender.Send(&room.Output{
		Type: room.MessageJoinedRoom,
		Payload: map[string]any{
			"member_id": memberID,
			"room":      roomState,
		},
	})

	ctx := context.WithValue(r.Context(), roomCodeCtxKey, roomCode)
	ctx = context.WithValue(ctx, memberIDCtxKey, memberID)
	ctx = context.WithValue(ctx, senderCtxKey, sender)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(r.Context(), "websocket closed", "error", err)
	}
}

func (c *controller) disconnect(ctx context.Context, roomCode, memberID string) {
	if _, err := c.roomService.DisconnectMember(ctx, &room.DisconnectMemberParams{
		MemberID: memberID,
		RoomCode: roomCode,
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to disconnect member", "error", err)
	}
}
