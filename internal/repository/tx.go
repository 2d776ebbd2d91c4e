package repository

import "context"

// Tx bundles the transaction-scoped repositories handed to an InTx body,
// plus the post-commit hook list. Hooks registered with AfterCommit run in
// registration order once the transaction has committed, and are discarded
// on rollback. Broadcasts registered this way stay strictly downstream of
// committed state.
type Tx struct {
	Rooms    RoomRepository
	Members  MemberRepository
	Users    UserRepository
	Messages MessageRepository

	hooks []func()
}

// AfterCommit registers fn to run after a successful commit.
func (t *Tx) AfterCommit(fn func()) {
	t.hooks = append(t.hooks, fn)
}

// Committed runs the registered hooks in order. Called exactly once by
// TxManager implementations after the commit succeeds; bodies must not
// call it.
func (t *Tx) Committed() {
	for _, fn := range t.hooks {
		fn()
	}
	t.hooks = nil
}

// TxManager opens a transaction, runs fn with transaction-scoped
// repositories, and commits when fn returns nil (rolling back otherwise).
// Row locks taken through the Tx repositories are held until commit.
type TxManager interface {
	InTx(ctx context.Context, fn func(tx *Tx) error) error
}
