package inmemory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncwatch/server/internal/repository/room"
)

func TestCreateRoom(t *testing.T) {
	repo := NewRepo(20)
	ctx := context.Background()

	createResp, err := repo.CreateRoom(ctx, &room.CreateRoomParams{DisplayName: "host"})
	require.NoError(t, err)
	assert.Len(t, createResp.RoomCode, 8, "room code must be 8 chars")
	assert.NotEmpty(t, createResp.Member.ID, "member id is empty")
	assert.True(t, createResp.Member.IsHost, "creator must be host")

	snapshot, err := repo.GetRoom(ctx, createResp.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, createResp.Member.ID, snapshot.HostID)
	assert.Equal(t, room.ControlModeHostOnly, snapshot.ControlMode, "default mode must be host only")
	assert.Equal(t, 0.0, snapshot.Clock.Position, "fresh clock must be at position 0")
	assert.False(t, snapshot.Clock.IsPlaying, "fresh clock must be paused")
	assert.Equal(t, 1.0, snapshot.Clock.Rate)
}

func TestJoinRoom(t *testing.T) {
	repo := NewRepo(20)
	ctx := context.Background()

	createResp, err := repo.CreateRoom(ctx, &room.CreateRoomParams{DisplayName: "host"})
	require.NoError(t, err)

	joinResp, err := repo.JoinRoom(ctx, &room.JoinRoomParams{
		RoomCode:    createResp.RoomCode,
		DisplayName: "guest",
	})
	require.NoError(t, err)
	assert.False(t, joinResp.JoinedMember.IsHost)
	assert.Len(t, joinResp.Room.Members, 2, "snapshot must include both members")
	assert.Equal(t, room.ControlModeHostOnly, joinResp.Room.ControlMode, "joiner must receive the control mode")
	assert.False(t, joinResp.Room.Clock.UpdatedAt.IsZero(), "joiner must receive a stamped clock snapshot")

	_, err = repo.JoinRoom(ctx, &room.JoinRoomParams{RoomCode: "nosuchcd", DisplayName: "guest"})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestJoinRoomFull(t *testing.T) {
	repo := NewRepo(2)
	ctx := context.Background()

	createResp, err := repo.CreateRoom(ctx, &room.CreateRoomParams{DisplayName: "host"})
	require.NoError(t, err)

	_, err = repo.JoinRoom(ctx, &room.JoinRoomParams{RoomCode: createResp.RoomCode, DisplayName: "guest1"})
	require.NoError(t, err)

	_, err = repo.JoinRoom(ctx, &room.JoinRoomParams{RoomCode: createResp.RoomCode, DisplayName: "guest2"})
	assert.ErrorIs(t, err, room.ErrRoomFull)
}

func TestLeaveRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("last member destroys the room", func(t *testing.T) {
		repo := NewRepo(20)
		createResp, err := repo.CreateRoom(ctx, &room.CreateRoomParams{DisplayName: "host"})
		require.NoError(t, err)

		leaveResp, err := repo.LeaveRoom(ctx, &room.LeaveRoomParams{
			RoomCode: createResp.RoomCode,
			MemberID: createResp.Member.ID,
		})
		require.NoError(t, err)
		assert.True(t, leaveResp.RoomDestroyed)

		_, err = repo.GetRoom(ctx, createResp.RoomCode)
		assert.ErrorIs(t, err, room.ErrRoomNotFound, "empty room must be gone in the same step")
	})

	t.Run("host departure promotes earliest-joined member", func(t *testing.T) {
		repo := NewRepo(20)
		createResp, err := repo.CreateRoom(ctx, &room.CreateRoomParams{DisplayName: "host"})
		require.NoError(t, err)

		join1, err := repo.JoinRoom(ctx, &room.JoinRoomParams{RoomCode: createResp.RoomCode, DisplayName: "guest1"})
		require.NoError(t, err)
		join2, err := repo.JoinRoom(ctx, &room.JoinRoomParams{RoomCode: createResp.RoomCode, DisplayName: "guest2"})
		require.NoError(t, err)

		leaveResp, err := repo.LeaveRoom(ctx, &room.LeaveRoomParams{
			RoomCode: createResp.RoomCode,
			MemberID: createResp.Member.ID,
		})
		require.NoError(t, err)
		assert.False(t, leaveResp.RoomDestroyed)
		assert.True(t, leaveResp.HostChanged)
		assert.Equal(t, join1.JoinedMember.ID, leaveResp.HostID, "earliest-joined guest must become host")
		assert.NotEqual(t, createResp.Member.ID, leaveResp.HostID)

		hosts := 0
		for _, m := range leaveResp.Members {
			if m.IsHost {
				hosts++
				assert.Equal(t, leaveResp.HostID, m.ID)
			}
		}
		assert.Equal(t, 1, hosts, "exactly one member must be host")
		_ = join2
	})

	t.Run("non-host departure keeps the host", func(t *testing.T) {
		repo := NewRepo(20)
		createResp, err := repo.CreateRoom(ctx, &room.CreateRoomParams{DisplayName: "host"})
		require.NoError(t, err)
		join1, err := repo.JoinRoom(ctx, &room.JoinRoomParams{RoomCode: createResp.RoomCode, DisplayName: "guest"})
		require.NoError(t, err)

		leaveResp, err := repo.LeaveRoom(ctx, &room.LeaveRoomParams{
			RoomCode: createResp.RoomCode,
			MemberID: join1.JoinedMember.ID,
		})
		require.NoError(t, err)
		assert.False(t, leaveResp.HostChanged)
		assert.Equal(t, createResp.Member.ID, leaveResp.HostID)
	})
}

func TestUpdateClockAuthorization(t *testing.T) {
	repo := NewRepo(20)
	ctx := context.Background()

	createResp, err := repo.CreateRoom(ctx, &room.CreateRoomParams{DisplayName: "host"})
	require.NoError(t, err)
	joinResp, err := repo.JoinRoom(ctx, &room.JoinRoomParams{RoomCode: createResp.RoomCode, DisplayName: "guest"})
	require.NoError(t, err)

	before, err := repo.GetClock(ctx, createResp.RoomCode)
	require.NoError(t, err)

	// guest under host-only mode
	_, err = repo.UpdateClock(ctx, &room.UpdateClockParams{
		RoomCode: createResp.RoomCode,
		SenderID: joinResp.JoinedMember.ID,
		Action:   room.ControlActionPlay,
	})
	assert.ErrorIs(t, err, room.ErrPermissionDenied)

	after, err := repo.GetClock(ctx, createResp.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected request must leave the clock bit-identical")

	// host may control
	clock, err := repo.UpdateClock(ctx, &room.UpdateClockParams{
		RoomCode: createResp.RoomCode,
		SenderID: createResp.Member.ID,
		Action:   room.ControlActionPlay,
	})
	require.NoError(t, err)
	assert.True(t, clock.IsPlaying)

	// shared mode opens control to the guest
	err = repo.SetControlMode(ctx, &room.SetControlModeParams{
		RoomCode: createResp.RoomCode,
		SenderID: createResp.Member.ID,
		Mode:     room.ControlModeShared,
	})
	require.NoError(t, err)

	clock, err = repo.UpdateClock(ctx, &room.UpdateClockParams{
		RoomCode: createResp.RoomCode,
		SenderID: joinResp.JoinedMember.ID,
		Action:   room.ControlActionPause,
	})
	require.NoError(t, err)
	assert.False(t, clock.IsPlaying)

	// unknown sender
	_, err = repo.UpdateClock(ctx, &room.UpdateClockParams{
		RoomCode: createResp.RoomCode,
		SenderID: "stranger",
		Action:   room.ControlActionPlay,
	})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)
}

func TestUpdateClockActions(t *testing.T) {
	repo := NewRepo(20)
	ctx := context.Background()

	createResp, err := repo.CreateRoom(ctx, &room.CreateRoomParams{DisplayName: "host"})
	require.NoError(t, err)
	hostID := createResp.Member.ID
	code := createResp.RoomCode

	position := 120.5
	clock, err := repo.UpdateClock(ctx, &room.UpdateClockParams{
		RoomCode: code,
		SenderID: hostID,
		Action:   room.ControlActionSeek,
		Position: &position,
	})
	require.NoError(t, err)
	assert.Equal(t, 120.5, clock.Position)
	assert.False(t, clock.IsPlaying, "seek must not change play state")

	rate := 1.5
	clock, err = repo.UpdateClock(ctx, &room.UpdateClockParams{
		RoomCode: code,
		SenderID: hostID,
		Action:   room.ControlActionSetRate,
		Rate:     &rate,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.5, clock.Rate)

	// structural parameter errors
	_, err = repo.UpdateClock(ctx, &room.UpdateClockParams{
		RoomCode: code,
		SenderID: hostID,
		Action:   room.ControlActionSeek,
	})
	assert.ErrorIs(t, err, room.ErrInvalidControlAction)

	badRate := -1.0
	_, err = repo.UpdateClock(ctx, &room.UpdateClockParams{
		RoomCode: code,
		SenderID: hostID,
		Action:   room.ControlActionSetRate,
		Rate:     &badRate,
	})
	assert.ErrorIs(t, err, room.ErrInvalidControlAction)

	_, err = repo.UpdateClock(ctx, &room.UpdateClockParams{
		RoomCode: code,
		SenderID: hostID,
		Action:   room.ControlAction("rewind"),
	})
	assert.ErrorIs(t, err, room.ErrInvalidControlAction)
}

func TestSetControlMode(t *testing.T) {
	repo := NewRepo(20)
	ctx := context.Background()

	createResp, err := repo.CreateRoom(ctx, &room.CreateRoomParams{DisplayName: "host"})
	require.NoError(t, err)
	joinResp, err := repo.JoinRoom(ctx, &room.JoinRoomParams{RoomCode: createResp.RoomCode, DisplayName: "guest"})
	require.NoError(t, err)

	err = repo.SetControlMode(ctx, &room.SetControlModeParams{
		RoomCode: createResp.RoomCode,
		SenderID: joinResp.JoinedMember.ID,
		Mode:     room.ControlModeShared,
	})
	assert.ErrorIs(t, err, room.ErrPermissionDenied, "mode change must be host-only")

	err = repo.SetControlMode(ctx, &room.SetControlModeParams{
		RoomCode: createResp.RoomCode,
		SenderID: createResp.Member.ID,
		Mode:     room.ControlModeShared,
	})
	require.NoError(t, err)

	// even under shared mode, guests may not change the mode back
	err = repo.SetControlMode(ctx, &room.SetControlModeParams{
		RoomCode: createResp.RoomCode,
		SenderID: joinResp.JoinedMember.ID,
		Mode:     room.ControlModeHostOnly,
	})
	assert.ErrorIs(t, err, room.ErrPermissionDenied)

	err = repo.SetControlMode(ctx, &room.SetControlModeParams{
		RoomCode: createResp.RoomCode,
		SenderID: createResp.Member.ID,
		Mode:     room.ControlMode("anarchy"),
	})
	assert.ErrorIs(t, err, room.ErrInvalidControlMode)
}

func TestConcurrentSeeksLastWriterWins(t *testing.T) {
	repo := NewRepo(20)
	ctx := context.Background()

	createResp, err := repo.CreateRoom(ctx, &room.CreateRoomParams{DisplayName: "host"})
	require.NoError(t, err)
	joinResp, err := repo.JoinRoom(ctx, &room.JoinRoomParams{RoomCode: createResp.RoomCode, DisplayName: "guest"})
	require.NoError(t, err)

	err = repo.SetControlMode(ctx, &room.SetControlModeParams{
		RoomCode: createResp.RoomCode,
		SenderID: createResp.Member.ID,
		Mode:     room.ControlModeShared,
	})
	require.NoError(t, err)

	posA, posB := 100.0, 200.0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateClock(ctx, &room.UpdateClockParams{
				RoomCode: createResp.RoomCode,
				SenderID: createResp.Member.ID,
				Action:   room.ControlActionSeek,
				Position: &posA,
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := repo.UpdateClock(ctx, &room.UpdateClockParams{
				RoomCode: createResp.RoomCode,
				SenderID: joinResp.JoinedMember.ID,
				Action:   room.ControlActionSeek,
				Position: &posB,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	clock, err := repo.GetClock(ctx, createResp.RoomCode)
	require.NoError(t, err)
	assert.Contains(t, []float64{posA, posB}, clock.Position,
		"final position must be exactly one of the requested values")
}

func TestConcurrentJoins(t *testing.T) {
	repo := NewRepo(20)
	ctx := context.Background()

	createResp, err := repo.CreateRoom(ctx, &room.CreateRoomParams{DisplayName: "host"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repo.JoinRoom(ctx, &room.JoinRoomParams{
				RoomCode:    createResp.RoomCode,
				DisplayName: "guest",
			})
		}()
	}
	wg.Wait()

	ids, err := repo.GetMemberIDs(ctx, createResp.RoomCode)
	require.NoError(t, err)
	assert.Len(t, ids, 20, "capacity ceiling must hold under concurrent joins")

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, len(ids), "member ids must be unique")
}

func TestConcurrentMembershipAcrossRooms(t *testing.T) {
	repo := NewRepo(50)
	ctx := context.Background()

	const rooms = 4
	const churnsPerRoom = 25

	codes := make([]string, rooms)
	for i := range codes {
		createResp, err := repo.CreateRoom(ctx, &room.CreateRoomParams{DisplayName: "host"})
		require.NoError(t, err)
		codes[i] = createResp.RoomCode
	}

	// join+leave churn in every room at once; rooms must not corrupt
	// each other's membership or the member->room index
	var wg sync.WaitGroup
	for _, code := range codes {
		for i := 0; i < churnsPerRoom; i++ {
			wg.Add(1)
			go func(code string) {
				defer wg.Done()

				joinResp, err := repo.JoinRoom(ctx, &room.JoinRoomParams{
					RoomCode:    code,
					DisplayName: "guest",
				})
				if !assert.NoError(t, err) {
					return
				}

				got, err := repo.GetMemberRoomCode(ctx, joinResp.JoinedMember.ID)
				assert.NoError(t, err)
				assert.Equal(t, code, got)

				_, err = repo.LeaveRoom(ctx, &room.LeaveRoomParams{
					RoomCode: code,
					MemberID: joinResp.JoinedMember.ID,
				})
				assert.NoError(t, err)

				_, err = repo.GetMemberRoomCode(ctx, joinResp.JoinedMember.ID)
				assert.ErrorIs(t, err, room.ErrMemberNotFound)
			}(code)
		}
	}
	wg.Wait()

	// every room is back to its host alone, hosts unchanged
	for _, code := range codes {
		snapshot, err := repo.GetRoom(ctx, code)
		require.NoError(t, err)
		assert.Len(t, snapshot.Members, 1)
		assert.Equal(t, snapshot.HostID, snapshot.Members[0].ID)
	}
}

func TestDestroyedRoomUnreachableDuringChurn(t *testing.T) {
	repo := NewRepo(20)
	ctx := context.Background()

	createResp, err := repo.CreateRoom(ctx, &room.CreateRoomParams{DisplayName: "host"})
	require.NoError(t, err)

	leaveResp, err := repo.LeaveRoom(ctx, &room.LeaveRoomParams{
		RoomCode: createResp.RoomCode,
		MemberID: createResp.Member.ID,
	})
	require.NoError(t, err)
	require.True(t, leaveResp.RoomDestroyed)

	_, err = repo.JoinRoom(ctx, &room.JoinRoomParams{
		RoomCode:    createResp.RoomCode,
		DisplayName: "late",
	})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	_, err = repo.GetMemberRoomCode(ctx, createResp.Member.ID)
	assert.ErrorIs(t, err, room.ErrMemberNotFound)
}
