package room

import (
	"time"

	"github.com/syncwatch/server/pkg/playback"
)

// ControlMode decides who may mutate a room's playback clock.
type ControlMode string

const (
	// ControlModeHostOnly: only the host controls playback. Default.
	ControlModeHostOnly ControlMode = "host_only"
	// ControlModeShared: every member controls playback,
	// last-writer-wins.
	ControlModeShared ControlMode = "shared"
)

func (m ControlMode) Valid() bool {
	return m == ControlModeHostOnly || m == ControlModeShared
}

// ControlAction is the closed set of playback mutations.
type ControlAction string

const (
	ControlActionPlay    ControlAction = "play"
	ControlActionPause   ControlAction = "pause"
	ControlActionSeek    ControlAction = "seek"
	ControlActionSetRate ControlAction = "set_rate"
)

func (a ControlAction) Valid() bool {
	switch a {
	case ControlActionPlay, ControlActionPause, ControlActionSeek, ControlActionSetRate:
		return true
	}

	return false
}

// Member identifies one connection in a room. The id is per connection,
// not per person, and is stable for the connection's lifetime.
type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsHost      bool   `json:"is_host"`
}

// Room is a registry snapshot. Members are in join order; the first
// remaining member is the deterministic host-promotion candidate.
type Room struct {
	Code        string         `json:"code"`
	HostID      string         `json:"host_id"`
	Members     []Member       `json:"members"`
	ControlMode ControlMode    `json:"control_mode"`
	Clock       playback.Clock `json:"clock"`
	CreatedAt   time.Time      `json:"created_at"`
}
