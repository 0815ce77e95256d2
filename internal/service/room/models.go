package room

import (
	"time"

	"github.com/syncwatch/server/internal/repository/room"
	"github.com/syncwatch/server/pkg/playback"
)

// Outbound message types. A client sees no other values.
const (
	MessageJoinedRoom        = "JOINED_ROOM"
	MessageMemberJoined      = "MEMBER_JOINED"
	MessageMemberLeft        = "MEMBER_LEFT"
	MessageMemberListUpdated = "MEMBER_LIST_UPDATED"
	MessageSync              = "SYNC"
	MessageControlApplied    = "CONTROL_APPLIED"
	MessageControlRejected   = "CONTROL_REJECTED"
	MessageModeChanged       = "MODE_CHANGED"
	MessageSignal            = "SIGNAL"
	MessageRoomState         = "ROOM_STATE"
	MessageError             = "ERROR"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ClockState is the clock as sent on the wire: position already
// projected to ServerTime so a client can apply its own offset.
type ClockState struct {
	Position   float64 `json:"position"`
	IsPlaying  bool    `json:"is_playing"`
	Rate       float64 `json:"rate"`
	ServerTime int64   `json:"server_time"`
}

func toClockState(c playback.Clock, now time.Time) ClockState {
	return ClockState{
		Position:   playback.Project(c, now),
		IsPlaying:  c.IsPlaying,
		Rate:       c.Rate,
		ServerTime: now.UnixMilli(),
	}
}

// SyncPolicy tells clients the cadence and drift thresholds the server
// runs with, so both sides correct with the same constants.
type SyncPolicy struct {
	IntervalMs int64               `json:"interval_ms"`
	Thresholds playback.Thresholds `json:"thresholds"`
}

type RoomState struct {
	RoomCode    string           `json:"room_code"`
	HostID      string           `json:"host_id"`
	ControlMode room.ControlMode `json:"control_mode"`
	Members     []room.Member    `json:"members"`
	Clock       ClockState       `json:"clock"`
	Sync        SyncPolicy       `json:"sync"`
}
