package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"go-markboard/internal/interfaces"
	"go-markboard/internal/model"
	"go-markboard/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloSHA256 = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func strPtr(s string) *string { return &s }

func TestFileService_CreateAndDuplicate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")

	f, err := env.files.Create(ctx, owner.ID, CreateFileRequest{Name: "notes.md", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), f.FileSize)
	assert.Equal(t, helloSHA256, f.Checksum)
	assert.Equal(t, "5.0 B", f.SizeFormatted)
	assert.Equal(t, "text/markdown", f.MimeType)
	assert.Nil(t, f.TeamID)

	content, err := env.raw.Read(f.ContentLocation)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	_, err = env.files.Create(ctx, owner.ID, CreateFileRequest{Name: "notes.md", Content: "again"})
	assertKind(t, err, KindConflict)
	assert.Equal(t, int64(1), countRows(t, env.db, &model.File{}, true))

	last := env.sink.last()
	require.NotNil(t, last)
	assert.Equal(t, model.ActionFileCreated, last.Action)
	assert.Equal(t, "Created file: notes.md", last.Details)
}

func TestFileService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")

	_, err := env.files.Create(ctx, owner.ID, CreateFileRequest{Name: "   ", Content: "x"})
	assertKind(t, err, KindInvalidInput)

	_, err = env.files.Create(ctx, owner.ID, CreateFileRequest{Name: "big.md", Content: strings.Repeat("x", testMaxContentSize+1)})
	assertKind(t, err, KindInvalidInput)

	// 文件名被净化后存储
	f, err := env.files.Create(ctx, owner.ID, CreateFileRequest{Name: "../../etc/pa$$wd.md", Content: ""})
	require.NoError(t, err)
	assert.Equal(t, "etcpawd.md", f.Name)
	assert.Equal(t, "0 B", f.SizeFormatted)
}

func TestFileService_CreateTeamFile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	mate := env.user(t, "mate@example.com")
	stranger := env.user(t, "stranger@example.com")
	team := env.team(t, "alpha", owner.ID)
	require.NoError(t, env.teams.JoinTeam(ctx, team.ID, mate.ID))

	_, err := env.files.Create(ctx, stranger.ID, CreateFileRequest{Name: "x.md", TeamID: &team.ID})
	assertKind(t, err, KindAccessDenied)

	f, err := env.files.Create(ctx, mate.ID, CreateFileRequest{Name: "x.md", Content: "team", TeamID: &team.ID})
	require.NoError(t, err)
	require.NotNil(t, f.TeamID)
	assert.Equal(t, "Created file: x.md (Team file)", env.sink.last().Details)

	// 团队内重名冲突，与创建者无关
	_, err = env.files.Create(ctx, owner.ID, CreateFileRequest{Name: "x.md", TeamID: &team.ID})
	assertKind(t, err, KindConflict)

	// 个人作用域互不影响
	_, err = env.files.Create(ctx, mate.ID, CreateFileRequest{Name: "x.md"})
	require.NoError(t, err)
}

func TestFileService_CreateRemovesContentWhenTransactionFails(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var location string
	env.store.failWrite = func(loc string) error {
		location = loc
		// 内容写入成功后事务无法提交
		cancel()
		return nil
	}

	_, err := env.files.Create(ctx, owner.ID, CreateFileRequest{Name: "a.md", Content: "data"})
	assertKind(t, err, KindOperationFailed)
	require.NotEmpty(t, location)

	assert.Equal(t, int64(0), countRows(t, env.db, &model.File{}, true))
	exists, err := env.raw.Exists(location)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileService_CreateWriteFailureLeavesNoRow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	env.store.failWrite = hasPrefix("")

	_, err := env.files.Create(ctx, owner.ID, CreateFileRequest{Name: "a.md", Content: "data"})
	assertKind(t, err, KindOperationFailed)
	assert.Equal(t, int64(0), countRows(t, env.db, &model.File{}, true))
}

func TestFileService_Read(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	f := env.file(t, owner.ID, "notes.md", "hello", nil)

	got, err := env.files.Read(ctx, f.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Content)
	assert.Equal(t, "hello", *got.Content)
	assert.Equal(t, "notes.md", got.Name)

	last := env.sink.last()
	assert.Equal(t, model.ActionFileViewed, last.Action)
	assert.Equal(t, "Viewed file: notes.md", last.Details)

	name, content, err := env.files.Content(ctx, f.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "notes.md", name)
	assert.Equal(t, "hello", string(content))

	_, err = env.files.Read(ctx, 999, owner.ID)
	assertKind(t, err, KindNotFound)
}

func TestFileService_ReadMissingContent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	f := env.file(t, owner.ID, "notes.md", "hello", nil)

	_, err := env.raw.Delete(f.ContentLocation)
	require.NoError(t, err)

	_, err = env.files.Read(ctx, f.ID, owner.ID)
	assertKind(t, err, KindNotFound)
}

func TestFileService_AccessGate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	stranger := env.user(t, "stranger@example.com")
	f := env.file(t, owner.ID, "notes.md", "hello", nil)

	reads, writes := env.store.counts()
	activityBefore := len(env.sink.actions())

	_, err := env.files.Read(ctx, f.ID, stranger.ID)
	assertKind(t, err, KindAccessDenied)
	_, _, err = env.files.Content(ctx, f.ID, stranger.ID)
	assertKind(t, err, KindAccessDenied)
	_, err = env.files.Update(ctx, f.ID, stranger.ID, UpdateFileRequest{Content: strPtr("pwned")})
	assertKind(t, err, KindAccessDenied)
	_, err = env.files.Versions(ctx, f.ID, stranger.ID)
	assertKind(t, err, KindAccessDenied)
	err = env.files.Delete(ctx, f.ID, stranger.ID)
	assertKind(t, err, KindAccessDenied)

	// 被拒绝的调用不读写内容，也不留下操作记录
	r2, w2 := env.store.counts()
	assert.Equal(t, reads, r2)
	assert.Equal(t, writes, w2)
	assert.Len(t, env.sink.actions(), activityBefore)

	content, err := env.raw.Read(f.ContentLocation)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
	assert.Equal(t, int64(0), countRows(t, env.db, &model.FileVersion{}, false))

	found, err := env.files.Read(ctx, f.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", *found.Content)
}

func TestFileService_TeamMemberAccess(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	mate := env.user(t, "mate@example.com")
	team := env.team(t, "alpha", owner.ID)
	require.NoError(t, env.teams.JoinTeam(ctx, team.ID, mate.ID))
	f := env.file(t, owner.ID, "shared.md", "v1", &team.ID)

	got, err := env.files.Read(ctx, f.ID, mate.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", *got.Content)

	_, err = env.files.Update(ctx, f.ID, mate.ID, UpdateFileRequest{Content: strPtr("v2")})
	require.NoError(t, err)

	require.NoError(t, env.teams.LeaveTeam(ctx, team.ID, mate.ID))
	_, err = env.files.Read(ctx, f.ID, mate.ID)
	assertKind(t, err, KindAccessDenied)
}

func TestFileService_Update(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	f := env.file(t, owner.ID, "notes.md", "hello", nil)
	env.file(t, owner.ID, "taken.md", "x", nil)

	_, err := env.files.Update(ctx, f.ID, owner.ID, UpdateFileRequest{})
	assertKind(t, err, KindInvalidInput)

	_, err = env.files.Update(ctx, f.ID, owner.ID, UpdateFileRequest{Name: strPtr("  ")})
	assertKind(t, err, KindInvalidInput)

	_, err = env.files.Update(ctx, f.ID, owner.ID, UpdateFileRequest{Name: strPtr("taken.md"), Content: strPtr("lost")})
	assertKind(t, err, KindConflict)
	content, err := env.raw.Read(f.ContentLocation)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content), "rejected rename must not touch content")

	// 改为自己的当前名字不算冲突
	_, err = env.files.Update(ctx, f.ID, owner.ID, UpdateFileRequest{Name: strPtr("notes.md")})
	require.NoError(t, err)

	updated, err := env.files.Update(ctx, f.ID, owner.ID, UpdateFileRequest{Name: strPtr("renamed.txt"), Content: strPtr("hello world")})
	require.NoError(t, err)
	assert.Equal(t, "renamed.txt", updated.Name)
	assert.Equal(t, "text/plain", updated.MimeType)
	assert.Equal(t, int64(11), updated.FileSize)
	assert.NotEqual(t, helloSHA256, updated.Checksum)
	assert.Equal(t, "Updated file notes.md: name to 'renamed.txt', content", env.sink.last().Details)

	got, err := env.files.Read(ctx, f.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", *got.Content)

	versions, err := env.files.Versions(ctx, f.ID, owner.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, helloSHA256, versions[0].Checksum)
	old, err := env.raw.Read(versions[0].ContentLocation)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(old))
	assert.Zero(t, env.files.VersioningFailures())
}

func TestFileService_UpdateSurvivesVersioningFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	f := env.file(t, owner.ID, "notes.md", "hello", nil)

	env.store.failWrite = hasPrefix("versions/")
	updated, err := env.files.Update(ctx, f.ID, owner.ID, UpdateFileRequest{Content: strPtr("v2")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.FileSize)
	assert.Equal(t, int64(1), env.files.VersioningFailures())
	assert.Equal(t, int64(0), countRows(t, env.db, &model.FileVersion{}, false))
}

func TestFileService_DeleteIsSoftAndIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	f := env.file(t, owner.ID, "notes.md", "hello", nil)

	require.NoError(t, env.files.Delete(ctx, f.ID, owner.ID))
	assert.Equal(t, "Deleted file: notes.md", env.sink.last().Details)

	assertKind(t, env.files.Delete(ctx, f.ID, owner.ID), KindNotFound)
	assertKind(t, env.files.Delete(ctx, f.ID, owner.ID), KindNotFound)
	assertKind(t, env.files.Delete(ctx, 12345, owner.ID), KindNotFound)

	_, err := env.files.Read(ctx, f.ID, owner.ID)
	assertKind(t, err, KindNotFound)
	_, err = env.files.Update(ctx, f.ID, owner.ID, UpdateFileRequest{Content: strPtr("x")})
	assertKind(t, err, KindNotFound)

	// 记录和内容都保留
	assert.Equal(t, int64(1), countRows(t, env.db, &model.File{}, true))
	exists, err := env.raw.Exists(f.ContentLocation)
	require.NoError(t, err)
	assert.True(t, exists)

	// 名字被释放
	_, err = env.files.Create(ctx, owner.ID, CreateFileRequest{Name: "notes.md", Content: "new"})
	require.NoError(t, err)
}

func TestFileService_List(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	mate := env.user(t, "mate@example.com")
	team := env.team(t, "alpha", owner.ID)
	require.NoError(t, env.teams.JoinTeam(ctx, team.ID, mate.ID))

	env.file(t, owner.ID, "personal.md", "p", nil)
	env.file(t, owner.ID, "shared.md", "s", &team.ID)
	env.file(t, mate.ID, "mine.md", "m", nil)

	files, err := env.files.List(ctx, mate.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
		assert.NotEmpty(t, f.SizeFormatted)
	}
	assert.ElementsMatch(t, []string{"shared.md", "mine.md"}, names)
}

func TestFileService_SweepOrphans(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")

	live := env.file(t, owner.ID, "live.md", "live", nil)
	deleted := env.file(t, owner.ID, "deleted.md", "gone", nil)
	require.NoError(t, env.files.Delete(ctx, deleted.ID, owner.ID))
	_, err := env.files.Update(ctx, live.ID, owner.ID, UpdateFileRequest{Content: strPtr("live v2")})
	require.NoError(t, err)

	_, _, err = env.raw.Write("999/999_orphan.md", []byte("orphan"))
	require.NoError(t, err)
	_, _, err = env.raw.Write("998/998_fresh.md", []byte("fresh"))
	require.NoError(t, err)
	old := time.Now().Add(-2 * storage.SweepGracePeriod)
	require.NoError(t, env.fs.Chtimes("/data/999/999_orphan.md", old, old))

	removed, err := env.files.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	exists, err := env.raw.Exists("998/998_fresh.md")
	require.NoError(t, err)
	assert.True(t, exists)

	for _, loc := range []string{live.ContentLocation, deleted.ContentLocation} {
		exists, err := env.raw.Exists(loc)
		require.NoError(t, err)
		assert.True(t, exists, loc)
	}
	versions, err := env.files.Versions(ctx, live.ID, owner.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	exists, err = env.raw.Exists(versions[0].ContentLocation)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFileService_SweepDuringCreateKeepsContent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")

	swept := -1
	env.store.afterWrite = func(location string) {
		// 内容已落盘，文件记录尚未提交
		n, err := env.files.SweepOrphans(ctx)
		require.NoError(t, err)
		swept = n
	}
	f := env.file(t, owner.ID, "racing.md", "racing content", nil)
	env.store.afterWrite = nil

	assert.Equal(t, 0, swept)
	_, content, err := env.files.Content(ctx, f.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "racing content", string(content))
}

var _ interfaces.ContentStore = (*trackingStore)(nil)
