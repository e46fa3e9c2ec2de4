package snapshot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/learnsync/internal/model"
)

func testUser(id, email string) model.User {
	return model.User{
		ID:               id,
		Role:             model.RoleLearner,
		Profile:          model.Profile{Name: "Ada", Email: email},
		EnrolledCourses:  model.NewCourseSet("c1", "c2"),
		CompletedCourses: model.NewCourseSet("c3"),
	}
}

func TestSnapshot_EmptyStore(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore())

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	_, err = s.FindByEmail(ctx, "a@example.com")
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.CurrentUser(ctx)
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.Session(ctx)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestSnapshot_PutUser(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore())

	require.NoError(t, s.PutUser(ctx, model.LocalUser{User: testUser("u1", "a@example.com"), Credential: "hash-1"}))
	require.NoError(t, s.PutUser(ctx, model.LocalUser{User: testUser("u2", "b@example.com"), Credential: "hash-2"}))

	t.Run("find is case insensitive", func(t *testing.T) {
		got, err := s.FindByEmail(ctx, "A@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)
		assert.Equal(t, "hash-1", got.Credential)
		assert.True(t, got.EnrolledCourses.Has("c2"))
		assert.True(t, got.CompletedCourses.Has("c3"))
	})

	t.Run("empty credential keeps stored one", func(t *testing.T) {
		updated := testUser("u1", "a@example.com")
		updated.Profile.Name = "Ada L."
		require.NoError(t, s.PutUser(ctx, model.LocalUser{User: updated}))

		got, err := s.FindByEmail(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Ada L.", got.Profile.Name)
		assert.Equal(t, "hash-1", got.Credential)

		users, err := s.Users(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("same email with another id replaces the stale record", func(t *testing.T) {
		require.NoError(t, s.PutUser(ctx, model.LocalUser{User: testUser("u3", "b@example.com"), Credential: "hash-3"}))

		got, err := s.FindByEmail(ctx, "b@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u3", got.ID)

		users, err := s.Users(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("empty id", func(t *testing.T) {
		require.Error(t, s.PutUser(ctx, model.LocalUser{}))
	})
}

func TestSnapshot_SyncUser(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore())

	require.NoError(t, s.PutUser(ctx, model.LocalUser{User: testUser("u1", "a@example.com"), Credential: "hash-1"}))

	u := testUser("u1", "a@example.com")
	u.EnrolledCourses.Remove("c1")
	u.CompletedCourses.Add("c1")
	require.NoError(t, s.SyncUser(ctx, u))

	current, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, current.EnrolledCourses.Slice())
	assert.Equal(t, []string{"c1", "c3"}, current.CompletedCourses.Slice())

	stored, err := s.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash-1", stored.Credential)
	assert.Equal(t, []string{"c1", "c3"}, stored.CompletedCourses.Slice())
}

func TestSnapshot_CurrentUserIsCredentialFree(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	s := New(kv)

	require.NoError(t, s.SetCurrentUser(ctx, testUser("u1", "a@example.com")))

	raw, err := kv.Get(ctx, KeyCurrentUser)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "credential")

	require.NoError(t, s.ClearCurrentUser(ctx))
	_, err = s.CurrentUser(ctx)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestSnapshot_Session(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore())

	session := model.Session{UserID: "u1", AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, s.SetSession(ctx, session))

	got, err := s.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.AccessToken, got.AccessToken)
	assert.Equal(t, session.RefreshToken, got.RefreshToken)

	require.NoError(t, s.ClearSession(ctx))
	_, err = s.Session(ctx)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestSnapshot_LogoutKeepsUserTable(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore())

	require.NoError(t, s.PutUser(ctx, model.LocalUser{User: testUser("u1", "a@example.com"), Credential: "hash"}))
	require.NoError(t, s.SetCurrentUser(ctx, testUser("u1", "a@example.com")))

	require.NoError(t, s.ClearCurrentUser(ctx))
	require.NoError(t, s.ClearSession(ctx))

	_, err := s.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk gone") }
func (failingStore) Set(context.Context, string, []byte) error { return errors.New("disk gone") }
func (failingStore) Delete(context.Context, string) error { return errors.New("disk gone") }

func TestSnapshot_StoreErrors(t *testing.T) {
	ctx := context.Background()
	s := New(failingStore{})

	_, err := s.Users(ctx)
	require.Error(t, err)
	require.Error(t, s.SyncUser(ctx, testUser("u1", "a@example.com")))
	require.Error(t, s.SetSession(ctx, model.Session{AccessToken: "a"}))
}

func TestSnapshot_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	require.NoError(t, kv.Set(ctx, KeyUsers, []byte("{not json")))

	_, err := New(kv).Users(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrNotFound)
}

// serialStore flags any two calls that run at the same time.
type serialStore struct {
	*MemoryStore
	inflight atomic.Int32
	overlap  atomic.Bool
}

func (s *serialStore) enter() func() {
	if s.inflight.Add(1) > 1 {
		s.overlap.Store(true)
	}
	time.Sleep(50 * time.Microsecond)
	return func() { s.inflight.Add(-1) }
}

func (s *serialStore) Get(ctx context.Context, key string) ([]byte, error) {
	defer s.enter()()
	return s.MemoryStore.Get(ctx, key)
}

func (s *serialStore) Set(ctx context.Context, key string, value []byte) error {
	defer s.enter()()
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *serialStore) Delete(ctx context.Context, key string) error {
	defer s.enter()()
	return s.MemoryStore.Delete(ctx, key)
}

func TestSnapshot_SerializesKeyWrites(t *testing.T) {
	ctx := context.Background()
	kv := &serialStore{MemoryStore: NewMemoryStore()}
	s := New(kv)
	u := testUser("u1", "ada@example.com")
	session := model.Session{UserID: "u1", AccessToken: "a", RefreshToken: "r"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = s.SyncUser(ctx, u)
				_ = s.SetCurrentUser(ctx, u)
				_ = s.SetSession(ctx, session)
				_, _ = s.CurrentUser(ctx)
				_, _ = s.Session(ctx)
				_ = s.ClearCurrentUser(ctx)
				_ = s.ClearSession(ctx)
			}
		}()
	}
	wg.Wait()

	assert.False(t, kv.overlap.Load())
}
