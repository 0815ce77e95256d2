package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/syncwatch/server/internal/repository/connection"
	"github.com/syncwatch/server/internal/repository/room"
	"github.com/syncwatch/server/pkg/playback"
)

type iRoomRepo interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResult, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResult, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) (room.LeaveRoomResult, error)
	UpdateClock(context.Context, *room.UpdateClockParams) (playback.Clock, error)
	SetControlMode(context.Context, *room.SetControlModeParams) error
	GetRoom(ctx context.Context, roomCode string) (room.Room, error)
	GetClock(ctx context.Context, roomCode string) (playback.Clock, error)
	GetMemberIDs(ctx context.Context, roomCode string) ([]string, error)
	GetMemberRoomCode(ctx context.Context, memberID string) (string, error)
}

type iConnRepo interface {
	Add(memberID string, sender *connection.Sender) error
	RemoveByMemberID(memberID string) error
	GetSender(memberID string) (*connection.Sender, error)
}

type Config struct {
	// SyncInterval is the periodic broadcast cadence per room.
	SyncInterval time.Duration
	// Thresholds is the drift-correction policy advertised to clients.
	Thresholds playback.Thresholds
}

type service struct {
	roomRepo iRoomRepo
	connRepo iConnRepo
	config   *Config
	logger   *slog.Logger

	// one broadcaster goroutine per live room, cancelled on destroy
	broadcastersMu sync.Mutex
	broadcasters   map[string]context.CancelFunc
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, config *Config, logger *slog.Logger) *service {
	return &service{
		roomRepo:     roomRepo,
		connRepo:     connRepo,
		config:       config,
		logger:       logger,
		broadcasters: make(map[string]context.CancelFunc),
	}
}
