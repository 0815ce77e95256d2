package room

import (
	"context"
	"errors"
	"time"

	"golang.org/x/exp/maps"

	"github.com/syncwatch/server/internal/repository/room"
)

// startBroadcaster launches the room's periodic sync task. One
// goroutine per room, keyed by room code; never a global timer over all
// rooms, so one room's lifecycle cannot touch another's.
func (s *service) startBroadcaster(roomCode string) {
	ctx, cancel := context.WithCancel(context.Background())

	s.broadcastersMu.Lock()
	s.broadcasters[roomCode] = cancel
	s.broadcastersMu.Unlock()

	go s.runBroadcaster(ctx, roomCode)
}

func (s *service) stopBroadcaster(roomCode string) {
	s.broadcastersMu.Lock()
	defer s.broadcastersMu.Unlock()

	if cancel, exists := s.broadcasters[roomCode]; exists {
		cancel()
		delete(s.broadcasters, roomCode)
	}
}

// Close cancels every room broadcaster; used on shutdown.
func (s *service) Close() {
	s.broadcastersMu.Lock()
	defer s.broadcastersMu.Unlock()

	for _, roomCode := range maps.Keys(s.broadcasters) {
		s.broadcasters[roomCode]()
		delete(s.broadcasters, roomCode)
	}
}

func (s *service) runBroadcaster(ctx context.Context, roomCode string) {
	ticker := time.NewTicker(s.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			clock, err := s.roomRepo.GetClock(ctx, roomCode)
			if err != nil {
				// room destroyed between cancel and tick
				if !errors.Is(err, room.ErrRoomNotFound) {
					s.logger.WarnContext(ctx, "broadcaster failed to read clock",
						"room_code", roomCode, "error", err)
				}
				return
			}

			s.broadcastToRoom(ctx, roomCode, &Output{
				Type:    MessageSync,
				Payload: toClockState(clock, time.Now()),
			})
		}
	}
}

// broadcastToRoom fans out to every currently connected member of the
// room. Delivery is fire-and-forget per member: senders queue without
// blocking and a full queue drops the frame for that member only.
func (s *service) broadcastToRoom(ctx context.Context, roomCode string, out *Output) {
	memberIDs, err := s.roomRepo.GetMemberIDs(ctx, roomCode)
	if err != nil {
		return
	}

	for _, memberID := range memberIDs {
		sender, err := s.connRepo.GetSender(memberID)
		if err != nil {
			// joined but not yet attached, or already detached
			continue
		}

		if !sender.Send(out) {
			s.logger.DebugContext(ctx, "frame dropped",
				"member_id", memberID, "message_type", out.Type)
		}
	}
}

func (s *service) broadcastMemberList(ctx context.Context, roomCode string, members []room.Member, hostID string) {
	s.broadcastToRoom(ctx, roomCode, &Output{
		Type: MessageMemberListUpdated,
		Payload: map[string]any{
			"members": members,
			"host_id": hostID,
		},
	})
}
