package room

// CanControl reports whether a member may mutate the playback clock.
// The caller must have already established that memberID is a current
// member of the room; under shared mode that is the only requirement.
// The registry evaluates this inside the room's critical section so a
// concurrent mode change cannot slip between authorization and commit.
func CanControl(mode ControlMode, hostID, memberID string) bool {
	if mode == ControlModeShared {
		return true
	}

	return memberID == hostID
}

// CanSetControlMode is host-only regardless of the current mode.
func CanSetControlMode(hostID, memberID string) bool {
	return memberID == hostID
}
