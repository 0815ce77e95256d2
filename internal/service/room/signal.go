package room

import (
	"context"
	"encoding/json"

	"github.com/syncwatch/server/internal/repository/room"
)

type RelaySignalParams struct {
	FromMemberID string
	ToMemberID   string
	Payload      json.RawMessage
}

// RelaySignal forwards an opaque media-negotiation payload between two
// members of the same room. The payload is never parsed or stored; the
// only check is that the target shares a room with the sender.
func (s *service) RelaySignal(ctx context.Context, params *RelaySignalParams) error {
	fromRoom, err := s.roomRepo.GetMemberRoomCode(ctx, params.FromMemberID)
	if err != nil {
		return err
	}

	toRoom, err := s.roomRepo.GetMemberRoomCode(ctx, params.ToMemberID)
	if err != nil {
		return err
	}

	if fromRoom != toRoom {
		return room.ErrMemberNotFound
	}

	sender, err := s.connRepo.GetSender(params.ToMemberID)
	if err != nil {
		return err
	}

	if !sender.Send(&Output{
		Type: MessageSignal,
		Payload: map[string]any{
			"from_member_id": params.FromMemberID,
			"payload":        params.Payload,
		},
	}) {
		s.logger.DebugContext(ctx, "signal dropped", "to_member_id", params.ToMemberID)
	}

	return nil
}
