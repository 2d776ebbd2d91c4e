// Package gormpersistence implements the repository interfaces on top of
// GORM with MySQL row-locking semantics.
package gormpersistence

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/jangdahyun/codingline/internal/repository"
)

// GormTxManager runs InTx bodies inside a gorm transaction and fires the
// post-commit hooks only after the commit has succeeded.
type GormTxManager struct {
	db *gorm.DB
}

// NewGormTxManager creates a GormTxManager.
func NewGormTxManager(db *gorm.DB) *GormTxManager {
	if db == nil {
		panic("database connection cannot be nil for GormTxManager")
	}
	return &GormTxManager{db: db}
}

// InTx implements repository.TxManager. The Tx handed to fn carries
// repositories bound to the transaction connection, so FOR UPDATE locks
// taken through them are held until commit.
func (m *GormTxManager) InTx(ctx context.Context, fn func(tx *repository.Tx) error) error {
	var txHandle *repository.Tx
	err := m.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		txHandle = &repository.Tx{
			Rooms:    NewGormRoomRepository(gtx),
			Members:  NewGormMemberRepository(gtx),
			Users:    NewGormUserRepository(gtx),
			Messages: NewGormMessageRepository(gtx),
		}
		return fn(txHandle)
	})
	if err != nil {
		return err
	}
	// Commit succeeded: broadcasts and other side effects may now run.
	txHandle.Committed()
	return nil
}

// mysqlDuplicateEntry is the MySQL error number for unique constraint
// violations.
const mysqlDuplicateEntry = 1062

// mapDuplicate translates a driver-level unique-constraint violation to
// repository.ErrDuplicateEntry, or returns false when err is something else.
func mapDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
