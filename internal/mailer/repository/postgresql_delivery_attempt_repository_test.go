package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/mailroom/internal/mailer/domain"
	"github.com/allisson/mailroom/internal/testutil"
)

// newTestAttempt returns an attempt row for the given message.
func newTestAttempt(msg *domain.Message, number int, success bool) *domain.DeliveryAttempt {
	return &domain.DeliveryAttempt{
		ID:            uuid.Must(uuid.NewV7()),
		MessageID:     msg.ID,
		To:            msg.To,
		Subject:       msg.Subject,
		Success:       success,
		AttemptNumber: number,
		AttemptedAt:   time.Now().UTC().Add(time.Duration(number) * time.Minute),
		Duration:      1500 * time.Millisecond,
	}
}

func TestNewPostgreSQLDeliveryAttemptRepository(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLDeliveryAttemptRepository(db)
	assert.NotNil(t, repo)
	assert.IsType(t, &PostgreSQLDeliveryAttemptRepository{}, repo)
}

func TestPostgreSQLDeliveryAttemptRepository_Create(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	messageRepo := NewPostgreSQLMessageRepository(db)
	repo := NewPostgreSQLDeliveryAttemptRepository(db)
	ctx := context.Background()

	msg := newTestMessage("user@example.com")
	require.NoError(t, messageRepo.Create(ctx, msg))

	errorMessage := "rcpt rejected"
	errorDetails := "rcpt rejected: 450 4.2.0 mailbox busy"
	smtpResponse := "450 4.2.0 mailbox busy"

	attempt := newTestAttempt(msg, 1, false)
	attempt.ErrorMessage = &errorMessage
	attempt.ErrorDetails = &errorDetails
	attempt.SMTPResponse = &smtpResponse

	require.NoError(t, repo.Create(ctx, attempt))

	attempts, err := repo.ListByMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)

	read := attempts[0]
	assert.Equal(t, attempt.ID, read.ID)
	assert.Equal(t, msg.ID, read.MessageID)
	assert.Equal(t, msg.To, read.To)
	assert.Equal(t, msg.Subject, read.Subject)
	assert.False(t, read.Success)
	assert.Equal(t, 1, read.AttemptNumber)
	assert.WithinDuration(t, attempt.AttemptedAt, read.AttemptedAt, time.Second)
	assert.Equal(t, 1500*time.Millisecond, read.Duration)
	require.NotNil(t, read.ErrorMessage)
	assert.Equal(t, errorMessage, *read.ErrorMessage)
	require.NotNil(t, read.ErrorDetails)
	assert.Equal(t, errorDetails, *read.ErrorDetails)
	require.NotNil(t, read.SMTPResponse)
	assert.Equal(t, smtpResponse, *read.SMTPResponse)
}

func TestPostgreSQLDeliveryAttemptRepository_ListByMessage(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	messageRepo := NewPostgreSQLMessageRepository(db)
	repo := NewPostgreSQLDeliveryAttemptRepository(db)
	ctx := context.Background()

	msg := newTestMessage("user@example.com")
	other := newTestMessage("other@example.com")
	require.NoError(t, messageRepo.Create(ctx, msg))
	require.NoError(t, messageRepo.Create(ctx, other))

	// Two failures then a success for msg, one attempt for other
	require.NoError(t, repo.Create(ctx, newTestAttempt(msg, 1, false)))
	require.NoError(t, repo.Create(ctx, newTestAttempt(msg, 2, false)))
	require.NoError(t, repo.Create(ctx, newTestAttempt(msg, 3, true)))
	require.NoError(t, repo.Create(ctx, newTestAttempt(other, 1, true)))

	attempts, err := repo.ListByMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 3)

	// Oldest first
	assert.Equal(t, 1, attempts[0].AttemptNumber)
	assert.Equal(t, 2, attempts[1].AttemptNumber)
	assert.Equal(t, 3, attempts[2].AttemptNumber)
	assert.False(t, attempts[0].Success)
	assert.True(t, attempts[2].Success)
}

func TestPostgreSQLDeliveryAttemptRepository_ListByMessage_Empty(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLDeliveryAttemptRepository(db)

	attempts, err := repo.ListByMessage(context.Background(), uuid.Must(uuid.NewV7()))
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestPostgreSQLDeliveryAttemptRepository_LastAttemptAt(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	messageRepo := NewPostgreSQLMessageRepository(db)
	repo := NewPostgreSQLDeliveryAttemptRepository(db)
	ctx := context.Background()

	t.Run("EmptyStore", func(t *testing.T) {
		last, err := repo.LastAttemptAt(ctx)
		require.NoError(t, err)
		assert.Nil(t, last)
	})

	t.Run("ReturnsMostRecent", func(t *testing.T) {
		msg := newTestMessage("user@example.com")
		require.NoError(t, messageRepo.Create(ctx, msg))

		first := newTestAttempt(msg, 1, false)
		second := newTestAttempt(msg, 2, true)
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))

		last, err := repo.LastAttemptAt(ctx)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.WithinDuration(t, second.AttemptedAt, *last, time.Second)
	})
}

func TestPostgreSQLDeliveryAttemptRepository_CascadeDelete(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	messageRepo := NewPostgreSQLMessageRepository(db)
	repo := NewPostgreSQLDeliveryAttemptRepository(db)
	ctx := context.Background()

	msg := newTestMessage("user@example.com")
	require.NoError(t, messageRepo.Create(ctx, msg))
	require.NoError(t, repo.Create(ctx, newTestAttempt(msg, 1, false)))

	// Removing the message removes its audit trail with it
	_, err := db.ExecContext(ctx, "DELETE FROM queue_messages WHERE id = $1", msg.ID)
	require.NoError(t, err)

	attempts, err := repo.ListByMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}
