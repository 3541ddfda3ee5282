package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTx_Commit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	tm := NewPostgresTransactionManager(mock)
	err = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		assert.NotNil(t, ExtractTx(ctx))
		return nil
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_CommitErrorSurfaces(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	tm := NewPostgresTransactionManager(mock)
	err = tm.RunInTx(context.Background(), func(ctx context.Context) error { return nil })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
}

func TestRunInTx_RollbackOnPanic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	tm := NewPostgresTransactionManager(mock)
	assert.Panics(t, func() {
		_ = tm.RunInTx(context.Background(), func(ctx context.Context) error { panic("boom") })
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	tm := NewPostgresTransactionManager(mock)
	err = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		t.Fatal("fn must not run")
		return nil
	})

	assert.ErrorContains(t, err, "failed to begin transaction")
}

func TestRunInTx_NestedReusesTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	tm := NewPostgresTransactionManager(mock)
	err = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return tm.RunInTx(ctx, func(inner context.Context) error {
			assert.Equal(t, ExtractTx(ctx), ExtractTx(inner))
			return nil
		})
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
