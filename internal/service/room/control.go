package room

import (
	"context"
	"time"

	"github.com/syncwatch/server/internal/repository/room"
)

type ControlParams struct {
	RoomCode string
	SenderID string
	Action   room.ControlAction
	Position *float64
	Rate     *float64
}

type ControlResponse struct {
	Action room.ControlAction
	Clock  ClockState
}

// Control runs authorize+mutate atomically in the registry and, on
// success, echoes the new clock to every member immediately so the
// change is not perceived as lagging by up to one sync interval.
func (s *service) Control(ctx context.Context, params *ControlParams) (ControlResponse, error) {
	clock, err := s.roomRepo.UpdateClock(ctx, &room.UpdateClockParams{
		RoomCode: params.RoomCode,
		SenderID: params.SenderID,
		Action:   params.Action,
		Position: params.Position,
		Rate:     params.Rate,
	})
	if err != nil {
		return ControlResponse{}, err
	}

	state := toClockState(clock, time.Now())
	s.broadcastToRoom(ctx, params.RoomCode, &Output{
		Type: MessageControlApplied,
		Payload: map[string]any{
			"action": params.Action,
			"clock":  state,
		},
	})

	return ControlResponse{
		Action: params.Action,
		Clock:  state,
	}, nil
}

type SetControlModeParams struct {
	RoomCode string
	SenderID string
	Mode     room.ControlMode
}

func (s *service) SetControlMode(ctx context.Context, params *SetControlModeParams) error {
	if err := s.roomRepo.SetControlMode(ctx, &room.SetControlModeParams{
		RoomCode: params.RoomCode,
		SenderID: params.SenderID,
		Mode:     params.Mode,
	}); err != nil {
		return err
	}

	s.broadcastToRoom(ctx, params.RoomCode, &Output{
		Type: MessageModeChanged,
		Payload: map[string]any{
			"mode": params.Mode,
		},
	})

	return nil
}
