package room

import (
	"context"
	"fmt"
	"time"

	"github.com/syncwatch/server/internal/repository/connection"
	"github.com/syncwatch/server/internal/repository/room"
)

type CreateRoomParams struct {
	DisplayName string
}

type CreateRoomResponse struct {
	RoomCode string
	Member   room.Member
}

func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	createResult, err := s.roomRepo.CreateRoom(ctx, &room.CreateRoomParams{
		DisplayName: params.DisplayName,
	})
	if err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
	}

	s.startBroadcaster(createResult.RoomCode)

	return CreateRoomResponse{
		RoomCode: createResult.RoomCode,
		Member:   createResult.Member,
	}, nil
}

type JoinRoomParams struct {
	RoomCode    string
	DisplayName string
}

type JoinRoomResponse struct {
	JoinedMember room.Member
	Room         RoomState
}

// JoinRoom registers the member and notifies the existing members. The
// returned room state is the joiner's coherent immediate snapshot; it
// must not have to wait for the next periodic broadcast.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	joinResult, err := s.roomRepo.JoinRoom(ctx, &room.JoinRoomParams{
		RoomCode:    params.RoomCode,
		DisplayName: params.DisplayName,
	})
	if err != nil {
		return JoinRoomResponse{}, err
	}

	s.broadcastToRoom(ctx, params.RoomCode, &Output{
		Type: MessageMemberJoined,
		Payload: map[string]any{
			"member": joinResult.JoinedMember,
		},
	})
	s.broadcastMemberList(ctx, params.RoomCode, joinResult.Room.Members, joinResult.Room.HostID)

	return JoinRoomResponse{
		JoinedMember: joinResult.JoinedMember,
		Room:         s.toRoomState(joinResult.Room),
	}, nil
}

type ConnectMemberParams struct {
	MemberID string
	Sender   *connection.Sender
}

func (s *service) ConnectMember(ctx context.Context, params *ConnectMemberParams) error {
	if err := s.connRepo.Add(params.MemberID, params.Sender); err != nil {
		return fmt.Errorf("failed to add connection: %w", err)
	}

	return nil
}

type DisconnectMemberParams struct {
	MemberID string
	RoomCode string
}

type DisconnectMemberResponse struct {
	RoomDestroyed bool
}

// DisconnectMember removes the member's connection and takes it out of
// the room. The last member leaving destroys the room and its
// broadcaster in the same step.
func (s *service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) (DisconnectMemberResponse, error) {
	if err := s.connRepo.RemoveByMemberID(params.MemberID); err != nil {
		s.logger.DebugContext(ctx, "no connection to remove", "member_id", params.MemberID)
	}

	leaveResult, err := s.roomRepo.LeaveRoom(ctx, &room.LeaveRoomParams{
		RoomCode: params.RoomCode,
		MemberID: params.MemberID,
	})
	if err != nil {
		return DisconnectMemberResponse{}, err
	}

	if leaveResult.RoomDestroyed {
		s.stopBroadcaster(params.RoomCode)
		return DisconnectMemberResponse{RoomDestroyed: true}, nil
	}

	s.broadcastToRoom(ctx, params.RoomCode, &Output{
		Type: MessageMemberLeft,
		Payload: map[string]any{
			"member_id": params.MemberID,
		},
	})
	s.broadcastMemberList(ctx, params.RoomCode, leaveResult.Members, leaveResult.HostID)

	return DisconnectMemberResponse{}, nil
}

func (s *service) GetRoomState(ctx context.Context, roomCode string) (RoomState, error) {
	snapshot, err := s.roomRepo.GetRoom(ctx, roomCode)
	if err != nil {
		return RoomState{}, err
	}

	return s.toRoomState(snapshot), nil
}

func (s *service) toRoomState(snapshot room.Room) RoomState {
	return RoomState{
		RoomCode:    snapshot.Code,
		HostID:      snapshot.HostID,
		ControlMode: snapshot.ControlMode,
		Members:     snapshot.Members,
		Clock:       toClockState(snapshot.Clock, time.Now()),
		Sync: SyncPolicy{
			IntervalMs: s.config.SyncInterval.Milliseconds(),
			Thresholds: s.config.Thresholds,
		},
	}
}
