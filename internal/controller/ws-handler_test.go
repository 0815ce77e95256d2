package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncwatch/server/internal/repository/connection"
	roomRepo "github.com/syncwatch/server/internal/repository/room"
	"github.com/syncwatch/server/internal/service/room"
)

// stubRoomService returns canned errors so handler error mapping can be
// exercised without a live registry.
type stubRoomService struct {
	controlErr error
	setModeErr error
}

func (s *stubRoomService) CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error) {
	return room.CreateRoomResponse{}, nil
}

func (s *stubRoomService) JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error) {
	return room.JoinRoomResponse{}, nil
}

func (s *stubRoomService) ConnectMember(context.Context, *room.ConnectMemberParams) error {
	return nil
}

func (s *stubRoomService) DisconnectMember(context.Context, *room.DisconnectMemberParams) (room.DisconnectMemberResponse, error) {
	return room.DisconnectMemberResponse{}, nil
}

func (s *stubRoomService) GetRoomState(context.Context, string) (room.RoomState, error) {
	return room.RoomState{}, nil
}

func (s *stubRoomService) Control(context.Context, *room.ControlParams) (room.ControlResponse, error) {
	return room.ControlResponse{}, s.controlErr
}

func (s *stubRoomService) SetControlMode(context.Context, *room.SetControlModeParams) error {
	return s.setModeErr
}

func (s *stubRoomService) RelaySignal(context.Context, *room.RelaySignalParams) error {
	return nil
}

type frameRecorder struct {
	mu     sync.Mutex
	frames []*room.Output
}

func (r *frameRecorder) WriteJSON(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames = append(r.frames, v.(*room.Output))

	return nil
}

func (r *frameRecorder) last() *room.Output {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.frames) == 0 {
		return nil
	}

	return r.frames[len(r.frames)-1]
}

func newHandlerFixture(t *testing.T, stub *stubRoomService) (*controller, context.Context, *frameRecorder) {
	t.Helper()

	c := NewController(stub, slog.Default())

	rec := &frameRecorder{}
	sender := connection.NewSender(rec, 16)
	go sender.Run()
	t.Cleanup(sender.Close)

	ctx := context.WithValue(context.Background(), roomCodeCtxKey, "ROOMCODE")
	ctx = context.WithValue(ctx, memberIDCtxKey, "member-1")
	ctx = context.WithValue(ctx, senderCtxKey, sender)

	return c, ctx, rec
}

func waitForReply(t *testing.T, rec *frameRecorder) *room.Output {
	t.Helper()

	require.Eventually(t, func() bool {
		return rec.last() != nil
	}, time.Second, 5*time.Millisecond)

	return rec.last()
}

func TestHandleControlRejectionMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantReason string
	}{
		{"permission denied", roomRepo.ErrPermissionDenied, "forbidden"},
		{"room gone", roomRepo.ErrRoomNotFound, "not_found"},
		// the sender left (or was detached) while its request was in
		// flight; an expected rejection, not an internal error
		{"sender no longer a member", roomRepo.ErrMemberNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ctx, rec := newHandlerFixture(t, &stubRoomService{controlErr: tt.err})

			require.NoError(t, c.handleControl(ctx, nil, json.RawMessage(`{"action":"pause"}`)))

			reply := waitForReply(t, rec)
			assert.Equal(t, room.MessageControlRejected, reply.Type)
			payload := reply.Payload.(map[string]any)
			assert.Equal(t, tt.wantReason, payload["reason"])
		})
	}
}

func TestHandleSetModeRejectionMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantReason string
	}{
		{"permission denied", roomRepo.ErrPermissionDenied, "forbidden"},
		{"invalid mode", roomRepo.ErrInvalidControlMode, "invalid_mode"},
		{"room gone", roomRepo.ErrRoomNotFound, "not_found"},
		{"sender no longer a member", roomRepo.ErrMemberNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ctx, rec := newHandlerFixture(t, &stubRoomService{setModeErr: tt.err})

			require.NoError(t, c.handleSetMode(ctx, nil, json.RawMessage(`{"mode":"shared"}`)))

			reply := waitForReply(t, rec)
			assert.Equal(t, room.MessageControlRejected, reply.Type)
			payload := reply.Payload.(map[string]any)
			assert.Equal(t, tt.wantReason, payload["reason"])
		})
	}
}
