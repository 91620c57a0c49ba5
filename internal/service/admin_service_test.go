package service

import (
	"context"
	"testing"
	"time"

	"go-markboard/internal/model"
	"go-markboard/internal/storage"
	"go-markboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdmin(t *testing.T, env *testEnv, email string) *model.User {
	t.Helper()
	u := env.user(t, email)
	require.NoError(t, env.db.Model(u).Update("is_admin", true).Error)
	return u
}

func TestAdminService_RequiresAdmin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	plain := env.user(t, "plain@example.com")

	_, err := env.admin.ListUsers(ctx, plain.ID)
	assertKind(t, err, KindForbidden)
	_, err = env.admin.Stats(ctx, plain.ID)
	assertKind(t, err, KindForbidden)
	_, err = env.admin.ActivityLogs(ctx, plain.ID, 10)
	assertKind(t, err, KindForbidden)
	_, err = env.admin.SweepStorage(ctx, plain.ID)
	assertKind(t, err, KindForbidden)
	assertKind(t, env.admin.Authorize(ctx, 999), KindForbidden)

	admin := newAdmin(t, env, "admin@example.com")
	require.NoError(t, env.admin.Authorize(ctx, admin.ID))
	users, err := env.admin.ListUsers(ctx, admin.ID)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestAdminService_Stats(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	clock := testutil.NewStubClock(time.Now())
	env.admin.now = clock.Now

	admin := newAdmin(t, env, "admin@example.com")
	_, err := env.auth.Register(ctx, Credentials{Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, Credentials{Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)
	env.file(t, admin.ID, "a.md", "a", nil)
	gone := env.file(t, admin.ID, "b.md", "b", nil)
	require.NoError(t, env.files.Delete(ctx, gone.ID, admin.ID))

	stats, err := env.admin.Stats(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.ActiveUsers)
	assert.Equal(t, int64(1), stats.TotalFiles)
	// user_registered, user_login, 2 x file_created, file_deleted
	assert.Equal(t, int64(5), stats.RecentActivity)
	assert.Equal(t, int64(0), stats.VersioningFailures)

	clock.Advance(8 * 24 * time.Hour)
	stats, err = env.admin.Stats(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.RecentActivity)
	assert.Equal(t, int64(1), stats.ActiveUsers)

	clock.Advance(30 * 24 * time.Hour)
	stats, err = env.admin.Stats(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ActiveUsers)
}

func TestAdminService_ActivityLogs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := newAdmin(t, env, "admin@example.com")
	env.file(t, admin.ID, "a.md", "a", nil)
	env.file(t, admin.ID, "b.md", "b", nil)

	for _, limit := range []int{0, -1, MaxActivityLimit + 1} {
		_, err := env.admin.ActivityLogs(ctx, admin.ID, limit)
		assertKind(t, err, KindInvalidInput)
	}

	logs, err := env.admin.ActivityLogs(ctx, admin.ID, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Created file: b.md", logs[0].Details)
	require.NotNil(t, logs[0].UserEmail)
	assert.Equal(t, "admin@example.com", *logs[0].UserEmail)
}

func TestAdminService_SweepStorage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := newAdmin(t, env, "admin@example.com")
	env.file(t, admin.ID, "keep.md", "keep", nil)
	_, _, err := env.raw.Write("123/123_stray.md", []byte("stray"))
	require.NoError(t, err)
	old := time.Now().Add(-2 * storage.SweepGracePeriod)
	require.NoError(t, env.fs.Chtimes("/data/123/123_stray.md", old, old))

	removed, err := env.admin.SweepStorage(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
