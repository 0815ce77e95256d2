package room

import "errors"

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomFull             = errors.New("room is full")
	ErrMemberNotFound       = errors.New("member not found")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrInvalidControlMode   = errors.New("invalid control mode")
	ErrInvalidControlAction = errors.New("invalid control action")
)
