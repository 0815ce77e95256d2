package controller

import (
	"context"

	"github.com/syncwatch/server/internal/repository/connection"
)

type contextKey int

const (
	roomCodeCtxKey contextKey = iota
	memberIDCtxKey
	senderCtxKey
)

func (c *controller) getRoomCodeFromCtx(ctx context.Context) string {
	roomCode, ok := ctx.Value(roomCodeCtxKey).(string)
	if !ok {
		return ""
	}

	return roomCode
}

func (c *controller) getMemberIDFromCtx(ctx context.Context) string {
	memberID, ok := ctx.Value(memberIDCtxKey).(string)
	if !ok {
		return ""
	}

	return memberID
}

// getSenderFromCtx returns the requester's outbound queue. All writes to
// a connection go through its sender, never directly, so fan-out and
// per-request replies cannot interleave on the wire.
func (c *controller) getSenderFromCtx(ctx context.Context) *connection.Sender {
	sender, ok := ctx.Value(senderCtxKey).(*connection.Sender)
	if !ok {
		return nil
	}

	return sender
}
