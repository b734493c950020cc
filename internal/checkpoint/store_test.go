package checkpoint

import (
	"context"
	"errors"
	"testing"

	"roleplay-agent-be/internal/repository/contract"
	"roleplay-agent-be/internal/repository/unitofwork"
	"roleplay-agent-be/pkg/agent"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type fakeCheckpointRepo struct {
	checkpoint *agent.Checkpoint
	upsertErr  error
	deleteErr  error
	upserts    int
	deletes    int
}

func (r *fakeCheckpointRepo) FindByThreadId(ctx context.Context, threadId uuid.UUID) (*agent.Checkpoint, error) {
	return r.checkpoint, nil
}

func (r *fakeCheckpointRepo) Upsert(ctx context.Context, threadId uuid.UUID, state *agent.State) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserts++
	return nil
}

func (r *fakeCheckpointRepo) DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deletes++
	return nil
}

type fakeWriteRepo struct {
	createErr error
	deleteErr error
	creates   int
	deletes   int
}

func (r *fakeWriteRepo) CreateBulk(ctx context.Context, threadId, turnId uuid.UUID, writes []agent.Write) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.creates++
	return nil
}

func (r *fakeWriteRepo) FindByThreadId(ctx context.Context, threadId uuid.UUID) ([]*contract.TurnWrites, error) {
	return nil, nil
}

func (r *fakeWriteRepo) DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deletes++
	return nil
}

// fakeUow records the transaction outcome so tests can assert all-or-none.
type fakeUow struct {
	checkpointRepo *fakeCheckpointRepo
	writeRepo      *fakeWriteRepo
	committed      bool
	rolledBack     bool
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }

func (u *fakeUow) Commit() error {
	u.committed = true
	return nil
}

func (u *fakeUow) Rollback() error {
	if !u.committed {
		u.rolledBack = true
	}
	return nil
}

func (u *fakeUow) ThreadRepository() contract.ThreadRepository               { return nil }
func (u *fakeUow) ThreadMessageRepository() contract.ThreadMessageRepository { return nil }
func (u *fakeUow) CheckpointRepository() contract.CheckpointRepository       { return u.checkpointRepo }
func (u *fakeUow) CheckpointWriteRepository() contract.CheckpointWriteRepository {
	return u.writeRepo
}
func (u *fakeUow) PersonaPassageRepository() contract.PersonaPassageRepository { return nil }

type fakeFactory struct {
	uow *fakeUow
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

func newFakes() (*fakeFactory, *fakeUow) {
	uow := &fakeUow{
		checkpointRepo: &fakeCheckpointRepo{},
		writeRepo:      &fakeWriteRepo{},
	}
	return &fakeFactory{uow: uow}, uow
}

func TestSaveCommitsSnapshotAndWriteLogTogether(t *testing.T) {
	factory, uow := newFakes()
	store := NewStore(factory, nopLogger{})

	threadId := uuid.New().String()
	err := store.Save(context.Background(), threadId, &agent.State{CharacterName: "Elara"}, []agent.Write{
		{Seq: 0, Node: "input"},
	})
	require.NoError(t, err)

	assert.True(t, uow.committed)
	assert.False(t, uow.rolledBack)
	assert.Equal(t, 1, uow.checkpointRepo.upserts)
	assert.Equal(t, 1, uow.writeRepo.creates)
}

func TestSaveRollsBackWhenWriteLogFails(t *testing.T) {
	factory, uow := newFakes()
	uow.writeRepo.createErr = errors.New("insert failed")
	store := NewStore(factory, nopLogger{})

	err := store.Save(context.Background(), uuid.New().String(), &agent.State{CharacterName: "Elara"}, nil)
	require.Error(t, err)

	assert.False(t, uow.committed)
	assert.True(t, uow.rolledBack)
}

func TestDeleteAllIsAllOrNone(t *testing.T) {
	t.Run("mid-delete failure rolls everything back", func(t *testing.T) {
		factory, uow := newFakes()
		uow.writeRepo.deleteErr = errors.New("delete failed")
		store := NewStore(factory, nopLogger{})

		err := store.DeleteAll(context.Background(), uuid.New().String())
		require.Error(t, err)

		assert.False(t, uow.committed)
		assert.True(t, uow.rolledBack)
	})

	t.Run("success removes snapshot and write log in one commit", func(t *testing.T) {
		factory, uow := newFakes()
		store := NewStore(factory, nopLogger{})

		err := store.DeleteAll(context.Background(), uuid.New().String())
		require.NoError(t, err)

		assert.True(t, uow.committed)
		assert.Equal(t, 1, uow.checkpointRepo.deletes)
		assert.Equal(t, 1, uow.writeRepo.deletes)
	})
}

func TestInvalidThreadIdRejected(t *testing.T) {
	factory, _ := newFakes()
	store := NewStore(factory, nopLogger{})

	_, err := store.Load(context.Background(), "not-a-uuid")
	assert.Error(t, err)

	err = store.Save(context.Background(), "not-a-uuid", &agent.State{}, nil)
	assert.Error(t, err)

	err = store.DeleteAll(context.Background(), "not-a-uuid")
	assert.Error(t, err)
}
