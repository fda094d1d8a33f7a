package storage_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"callgate/backend/internal/models"
	"callgate/backend/internal/storage"
	"callgate/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createUser(t *testing.T, s *storage.Service, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, s.CreateUser(context.Background(), user))
	require.NotZero(t, user.ID)
	return user
}

func TestCreateUser_Duplicate(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice")

	err := s.CreateUser(ctx, &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	err = s.CreateUser(ctx, &models.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	stored, err := s.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", stored.Email)
	assert.Equal(t, "hash", stored.PasswordHash)
}

func TestUserLookups(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	bob := createUser(t, s, "bob")

	found, err := s.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, found.ID)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	exists, err := s.UserExists(ctx, "bob", "new@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.UserExists(ctx, "carol", "bob@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.UserExists(ctx, "carol", "carol@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListUsersExcept(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	carol := createUser(t, s, "carol")
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")

	users, err := s.ListUsersExcept(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.UserSummary{
		{ID: bob.ID, Username: "bob"},
		{ID: carol.ID, Username: "carol"},
	}, users)

	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListUsersExcept_Empty(t *testing.T) {
	s := storagetest.New(t)
	alice := createUser(t, s, "alice")

	users, err := s.ListUsersExcept(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestCreateSessionIfAbsent_FirstWriterWins(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")
	carol := createUser(t, s, "carol")

	created, err := s.CreateSessionIfAbsent(ctx, &models.CallSession{
		RoomName:  "room42",
		CallerID:  alice.ID,
		CalleeID:  &bob.ID,
		StartedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateSessionIfAbsent(ctx, &models.CallSession{
		RoomName:  "room42",
		CallerID:  carol.ID,
		CalleeID:  &alice.ID,
		StartedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, created, "second insert for the same room must be a no-op")

	session, err := s.GetSessionByRoom(ctx, "room42")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, session.CallerID)
	require.NotNil(t, session.CalleeID)
	assert.Equal(t, bob.ID, *session.CalleeID)
	assert.Equal(t, models.CallStatusActive, session.Status)
	assert.False(t, session.RecordingEnabled)
	assert.Nil(t, session.EndedAt)
}

func TestCreateSessionIfAbsent_Concurrent(t *testing.T) {
	s := storagetest.New(t)
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := s.CreateSessionIfAbsent(context.Background(), &models.CallSession{
				RoomName:  "race",
				CallerID:  alice.ID,
				CalleeID:  &bob.ID,
				StartedAt: time.Now(),
			})
			assert.NoError(t, err)
			if created {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	sessions, err := s.ListSessions(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestGetSessionByRoom_NotFound(t *testing.T) {
	s := storagetest.New(t)

	_, err := s.GetSessionByRoom(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEnableRecording(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice")
	_, err := s.CreateSessionIfAbsent(ctx, &models.CallSession{RoomName: "rec", CallerID: alice.ID, StartedAt: time.Now()})
	require.NoError(t, err)

	n, err := s.EnableRecording(ctx, "rec")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.EnableRecording(ctx, "unknown-room")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	session, err := s.GetSessionByRoom(ctx, "rec")
	require.NoError(t, err)
	assert.True(t, session.RecordingEnabled)
}

func TestEndSession_SetsEndedAtOnce(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice")
	_, err := s.CreateSessionIfAbsent(ctx, &models.CallSession{RoomName: "end", CallerID: alice.ID, StartedAt: time.Now()})
	require.NoError(t, err)

	first := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	n, err := s.EndSession(ctx, "end", first)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.EndSession(ctx, "end", first.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	session, err := s.GetSessionByRoom(ctx, "end")
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusEnded, session.Status)
	require.NotNil(t, session.EndedAt)
	assert.True(t, first.Equal(session.EndedAt.UTC()))
}

func TestEndThenRecord_FlagIndependentOfStatus(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice")
	_, err := s.CreateSessionIfAbsent(ctx, &models.CallSession{RoomName: "indep", CallerID: alice.ID, StartedAt: time.Now()})
	require.NoError(t, err)

	_, err = s.EndSession(ctx, "indep", time.Now())
	require.NoError(t, err)
	_, err = s.EnableRecording(ctx, "indep")
	require.NoError(t, err)

	session, err := s.GetSessionByRoom(ctx, "indep")
	require.NoError(t, err)
	assert.True(t, session.RecordingEnabled)
	assert.Equal(t, models.CallStatusEnded, session.Status)
}

func TestListSessions_FilterByStatus(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")

	for i := 0; i < 3; i++ {
		_, err := s.CreateSessionIfAbsent(ctx, &models.CallSession{
			RoomName:  fmt.Sprintf("room-%d", i),
			CallerID:  alice.ID,
			CalleeID:  &bob.ID,
			StartedAt: time.Now().Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	_, err := s.EndSession(ctx, "room-0", time.Now())
	require.NoError(t, err)

	active, err := s.ListSessions(ctx, models.CallStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "room-2", active[0].RoomName)
	require.NotNil(t, active[0].Callee)
	assert.Equal(t, "bob", active[0].Callee.Username)
	assert.Equal(t, "alice", active[0].Caller.Username)

	ended, err := s.ListSessions(ctx, models.CallStatusEnded)
	require.NoError(t, err)
	require.Len(t, ended, 1)
	assert.Equal(t, "room-0", ended[0].RoomName)
}
