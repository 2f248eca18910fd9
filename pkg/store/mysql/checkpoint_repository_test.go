package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*CheckpointRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ds, err := NewDatastoreFromDB(db)
	require.NoError(t, err)

	return NewCheckpointRepository(ds), mock
}

func testCheckpoint(key string) *model.Checkpoint {
	return &model.Checkpoint{
		ID:             "chk_0123456789ab",
		WorkerID:       "w1",
		StoragePath:    "checkpoints/w1/2026/08/26/chk_0123456789ab.bin",
		SizeBytes:      7,
		Checksum:       "deadbeef",
		Status:         model.CheckpointStatusPending,
		IdempotencyKey: key,
		CreatedAt:      time.Now(),
	}
}

func TestCheckpointRepository_Create(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("INSERT INTO `checkpoints`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), testCheckpoint("k1"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpointRepository_Create_DuplicateIdempotencyKey(t *testing.T) {
	repo, mock := newMockRepository(t)

	// MySQL rejects the second reservation with error 1062; the
	// repository must surface it as the ErrDuplicateKey sentinel so the
	// manager can answer with a retryable status.
	mock.ExpectExec("INSERT INTO `checkpoints`").
		WillReturnError(&mysqldriver.MySQLError{
			Number:  1062,
			Message: "Duplicate entry 'k1' for key 'checkpoints.idx_idempotency_key_unique'",
		})

	err := repo.Create(context.Background(), testCheckpoint("k1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpointRepository_Create_OtherErrorNotDuplicate(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("INSERT INTO `checkpoints`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1146, Message: "Table 'checkpoints' doesn't exist"})

	err := repo.Create(context.Background(), testCheckpoint("k1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}
