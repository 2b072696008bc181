package repository_test

import (
	"context"
	"testing"

	"pesaflow/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmIfNotTerminalFirstDeliveryWins(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewPaymentIntentRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `payment_intents` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	moved, err := repo.ConfirmIfNotTerminal(context.Background(), "intent-1", "ext-1")
	require.NoError(t, err)
	assert.True(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The guarded UPDATE matches zero rows when the intent is already terminal:
// the replayed confirmation is a no-op, not an error.
func TestConfirmIfNotTerminalReplay(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewPaymentIntentRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `payment_intents` SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	moved, err := repo.ConfirmIfNotTerminal(context.Background(), "intent-1", "ext-1")
	require.NoError(t, err)
	assert.False(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailIfNotTerminalDoesNotRegressConfirmed(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewPaymentIntentRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `payment_intents` SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	moved, err := repo.FailIfNotTerminal(context.Background(), "intent-1")
	require.NoError(t, err)
	assert.False(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPendingOnlyFromInitiated(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewPaymentIntentRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `payment_intents` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	moved, err := repo.MarkPending(context.Background(), "intent-1", "ext-1")
	require.NoError(t, err)
	assert.True(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByAnyReferenceNotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewPaymentIntentRepository(gormDB)

	mock.ExpectQuery("SELECT \\* FROM `payment_intents`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	p, err := repo.GetByAnyReference(context.Background(), "missing")
	assert.Error(t, err)
	assert.Nil(t, p)
}
