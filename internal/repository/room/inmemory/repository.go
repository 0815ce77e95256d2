// Package inmemory implements the room registry. All state is scoped to
// the process; nothing survives a restart.
//
// Locking: the registry map and the member->room index are guarded by
// repo.mu. Each room additionally carries its own mutex, and every
// operation against a room's state serializes on it. repo.mu is only
// held to access the maps, never across a room-state mutation, so rooms
// never serialize against each other. Lock order is always repo.mu
// before roomState.mu; membership operations that must touch both
// release the room mutex before taking repo.mu for the index.
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/syncwatch/server/internal/repository/room"
	"github.com/syncwatch/server/pkg/playback"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	codeLength   = 8
)

type roomState struct {
	mu sync.Mutex
	// destroyed marks a room removed from the maps so that a goroutine
	// holding a stale pointer cannot revive it.
	destroyed   bool
	hostID      string
	members     []room.Member
	controlMode room.ControlMode
	clock       playback.Clock
	createdAt   time.Time
}

type repo struct {
	mu           sync.RWMutex
	rooms        map[string]*roomState
	memberRooms  map[string]string
	membersLimit int
	now          func() time.Time
}

func NewRepo(membersLimit int) *repo {
	return &repo{
		rooms:        make(map[string]*roomState),
		memberRooms:  make(map[string]string),
		membersLimit: membersLimit,
		now:          time.Now,
	}
}

func (r *repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) (room.CreateRoomResult, error) {
	member := room.Member{
		ID:          uuid.NewString(),
		DisplayName: params.DisplayName,
		IsHost:      true,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A collision against a live code is an internal retry, never a
	// caller-visible error.
	var code string
	for {
		generated, err := gonanoid.Generate(codeAlphabet, codeLength)
		if err != nil {
			return room.CreateRoomResult{}, fmt.Errorf("failed to generate room code: %w", err)
		}

		if _, exists := r.rooms[generated]; !exists {
			code = generated
			break
		}
	}

	now := r.now()
	r.rooms[code] = &roomState{
		hostID:      member.ID,
		members:     []room.Member{member},
		controlMode: room.ControlModeHostOnly,
		clock:       playback.NewClock(now),
		createdAt:   now,
	}
	r.memberRooms[member.ID] = code

	return room.CreateRoomResult{
		RoomCode: code,
		Member:   member,
	}, nil
}

func (r *repo) JoinRoom(ctx context.Context, params *room.JoinRoomParams) (room.JoinRoomResult, error) {
	rs, err := r.getRoomState(params.RoomCode)
	if err != nil {
		return room.JoinRoomResult{}, err
	}

	rs.mu.Lock()

	if rs.destroyed {
		rs.mu.Unlock()
		return room.JoinRoomResult{}, room.ErrRoomNotFound
	}

	if len(rs.members) >= r.membersLimit {
		rs.mu.Unlock()
		return room.JoinRoomResult{}, room.ErrRoomFull
	}

	member := room.Member{
		ID:          uuid.NewString(),
		DisplayName: params.DisplayName,
		IsHost:      false,
	}
	rs.members = append(rs.members, member)
	snapshot := rs.snapshot(params.RoomCode)

	rs.mu.Unlock()

	// Index update outside rs.mu to preserve the repo.mu -> roomState.mu
	// lock order. The room cannot be destroyed in between: destruction
	// requires the member list to be empty, and the new member is
	// already on it.
	r.mu.Lock()
	r.memberRooms[member.ID] = params.RoomCode
	r.mu.Unlock()

	return room.JoinRoomResult{
		JoinedMember: member,
		Room:         snapshot,
	}, nil
}

func (r *repo) LeaveRoom(ctx context.Context, params *room.LeaveRoomParams) (room.LeaveRoomResult, error) {
	rs, err := r.getRoomState(params.RoomCode)
	if err != nil {
		return room.LeaveRoomResult{}, err
	}

	rs.mu.Lock()

	if rs.destroyed {
		rs.mu.Unlock()
		return room.LeaveRoomResult{}, room.ErrRoomNotFound
	}

	index := -1
	for i, m := range rs.members {
		if m.ID == params.MemberID {
			index = i
			break
		}
	}
	if index == -1 {
		rs.mu.Unlock()
		return room.LeaveRoomResult{}, room.ErrMemberNotFound
	}

	rs.members = append(rs.members[:index], rs.members[index+1:]...)

	// Empty room is destroyed in the same step, no grace period. The
	// destroyed flag is what makes the room unreachable; removing the
	// map entry afterwards is only cleanup.
	result := room.LeaveRoomResult{RoomDestroyed: len(rs.members) == 0}
	if result.RoomDestroyed {
		rs.destroyed = true
	} else {
		if rs.hostID == params.MemberID {
			// Promote the earliest-joined remaining member.
			rs.hostID = rs.members[0].ID
			rs.members[0].IsHost = true
			result.HostChanged = true
		}
		result.Members = copyMembers(rs.members)
		result.HostID = rs.hostID
	}

	rs.mu.Unlock()

	r.mu.Lock()
	delete(r.memberRooms, params.MemberID)
	if result.RoomDestroyed {
		delete(r.rooms, params.RoomCode)
	}
	r.mu.Unlock()

	return result, nil
}

// UpdateClock authorizes and applies a control action as one atomic
// unit under the room's lock, then stamps the clock with the current
// instant. A rejected request leaves the clock untouched.
func (r *repo) UpdateClock(ctx context.Context, params *room.UpdateClockParams) (playback.Clock, error) {
	rs, err := r.getRoomState(params.RoomCode)
	if err != nil {
		return playback.Clock{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.destroyed {
		return playback.Clock{}, room.ErrRoomNotFound
	}

	if !rs.hasMember(params.SenderID) {
		return playback.Clock{}, room.ErrMemberNotFound
	}

	if !room.CanControl(rs.controlMode, rs.hostID, params.SenderID) {
		return playback.Clock{}, room.ErrPermissionDenied
	}

	now := r.now()
	clock := rs.clock

	switch params.Action {
	case room.ControlActionPlay:
		clock.Position = playback.Project(clock, now)
		clock.IsPlaying = true
	case room.ControlActionPause:
		clock.Position = playback.Project(clock, now)
		clock.IsPlaying = false
	case room.ControlActionSeek:
		if params.Position == nil || *params.Position < 0 {
			return playback.Clock{}, room.ErrInvalidControlAction
		}
		clock.Position = *params.Position
	case room.ControlActionSetRate:
		if params.Rate == nil || *params.Rate <= 0 {
			return playback.Clock{}, room.ErrInvalidControlAction
		}
		// Re-anchor the position so the projection stays continuous
		// across the rate change.
		clock.Position = playback.Project(clock, now)
		clock.Rate = *params.Rate
	default:
		return playback.Clock{}, room.ErrInvalidControlAction
	}

	clock.UpdatedAt = now
	rs.clock = clock

	return clock, nil
}

func (r *repo) SetControlMode(ctx context.Context, params *room.SetControlModeParams) error {
	if !params.Mode.Valid() {
		return room.ErrInvalidControlMode
	}

	rs, err := r.getRoomState(params.RoomCode)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.destroyed {
		return room.ErrRoomNotFound
	}

	if !rs.hasMember(params.SenderID) {
		return room.ErrMemberNotFound
	}

	if !room.CanSetControlMode(rs.hostID, params.SenderID) {
		return room.ErrPermissionDenied
	}

	rs.controlMode = params.Mode

	return nil
}

func (r *repo) GetRoom(ctx context.Context, roomCode string) (room.Room, error) {
	rs, err := r.getRoomState(roomCode)
	if err != nil {
		return room.Room{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.destroyed {
		return room.Room{}, room.ErrRoomNotFound
	}

	return rs.snapshot(roomCode), nil
}

func (r *repo) GetClock(ctx context.Context, roomCode string) (playback.Clock, error) {
	rs, err := r.getRoomState(roomCode)
	if err != nil {
		return playback.Clock{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.destroyed {
		return playback.Clock{}, room.ErrRoomNotFound
	}

	return rs.clock, nil
}

func (r *repo) GetMemberIDs(ctx context.Context, roomCode string) ([]string, error) {
	rs, err := r.getRoomState(roomCode)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.destroyed {
		return nil, room.ErrRoomNotFound
	}

	ids := make([]string, 0, len(rs.members))
	for _, m := range rs.members {
		ids = append(ids, m.ID)
	}

	return ids, nil
}

// GetMemberRoomCode resolves which room a member currently belongs to.
func (r *repo) GetMemberRoomCode(ctx context.Context, memberID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomCode, exists := r.memberRooms[memberID]
	if !exists {
		return "", room.ErrMemberNotFound
	}

	return roomCode, nil
}

func (r *repo) getRoomState(roomCode string) (*roomState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs, exists := r.rooms[roomCode]
	if !exists {
		return nil, room.ErrRoomNotFound
	}

	return rs, nil
}

// callers hold rs.mu
func (rs *roomState) hasMember(memberID string) bool {
	for _, m := range rs.members {
		if m.ID == memberID {
			return true
		}
	}

	return false
}

// callers hold rs.mu
func (rs *roomState) snapshot(roomCode string) room.Room {
	return room.Room{
		Code:        roomCode,
		HostID:      rs.hostID,
		Members:     copyMembers(rs.members),
		ControlMode: rs.controlMode,
		Clock:       rs.clock,
		CreatedAt:   rs.createdAt,
	}
}

func copyMembers(members []room.Member) []room.Member {
	out := make([]room.Member, len(members))
	copy(out, members)

	return out
}
