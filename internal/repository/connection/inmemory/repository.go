package inmemory

import (
	"sync"

	"github.com/syncwatch/server/internal/repository/connection"
)

type repo struct {
	senders map[string]*connection.Sender
	mu      sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		senders: make(map[string]*connection.Sender),
	}
}

func (r *repo) Add(memberID string, sender *connection.Sender) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.senders[memberID]; exists {
		return connection.ErrAlreadyExists
	}

	r.senders[memberID] = sender

	return nil
}

func (r *repo) RemoveByMemberID(memberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender, exists := r.senders[memberID]
	if !exists {
		return connection.ErrNotFound
	}

	sender.Close()
	delete(r.senders, memberID)

	return nil
}

func (r *repo) GetSender(memberID string) (*connection.Sender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sender, exists := r.senders[memberID]
	if !exists {
		return nil, connection.ErrNotFound
	}

	return sender, nil
}
