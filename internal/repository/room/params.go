package room

type CreateRoomParams struct {
	DisplayName string
}

type CreateRoomResult struct {
	RoomCode string
	Member   Member
}

type JoinRoomParams struct {
	RoomCode    string
	DisplayName string
}

type JoinRoomResult struct {
	JoinedMember Member
	Room         Room
}

type LeaveRoomParams struct {
	RoomCode string
	MemberID string
}

type LeaveRoomResult struct {
	RoomDestroyed bool
	Members       []Member
	HostID        string
	HostChanged   bool
}

// UpdateClockParams carries one control action. Position is required for
// seek, Rate for set_rate; both are ignored otherwise.
type UpdateClockParams struct {
	RoomCode string
	SenderID string
	Action   ControlAction
	Position *float64
	Rate     *float64
}

type SetControlModeParams struct {
	RoomCode string
	SenderID string
	Mode     ControlMode
}
