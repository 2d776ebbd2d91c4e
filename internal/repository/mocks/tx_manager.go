package mocks

import (
	"context"

	"github.com/jangdahyun/codingline/internal/repository"
)

// TxManager is a test TxManager that runs the body against a fixed set of
// mock repositories without any real transaction. When the body returns
// nil the post-commit hooks fire, mirroring the production ordering.
type TxManager struct {
	Rooms    *RoomRepository
	Members  *MemberRepository
	Users    *UserRepository
	Messages *MessageRepository
}

// NewTxManager creates a TxManager with fresh mocks for every interface.
func NewTxManager() *TxManager {
	return &TxManager{
		Rooms:    new(RoomRepository),
		Members:  new(MemberRepository),
		Users:    new(UserRepository),
		Messages: new(MessageRepository),
	}
}

func (m *TxManager) InTx(ctx context.Context, fn func(tx *repository.Tx) error) error {
	tx := &repository.Tx{
		Rooms:    m.Rooms,
		Members:  m.Members,
		Users:    m.Users,
		Messages: m.Messages,
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.Committed()
	return nil
}
