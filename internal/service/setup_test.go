package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go-markboard/internal/interfaces"
	"go-markboard/internal/model"
	"go-markboard/internal/repository"
	"go-markboard/internal/storage"
	"go-markboard/internal/testutil"
	"go-markboard/pkg/utils"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testMaxContentSize = 1024

type recordingSink struct {
	mu      sync.Mutex
	entries []*model.ActivityLog
	err     error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Publish(entry *model.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return s.err
}

func (s *recordingSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Action)
	}
	return out
}

func (s *recordingSink) last() *model.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1]
}

// trackingStore 统计读写次数，可注入写入失败，也可在写入完成后插入动作
type trackingStore struct {
	interfaces.ContentStore

	mu         sync.Mutex
	reads      int
	writes     int
	failWrite  func(location string) error
	afterWrite func(location string)
}

func (s *trackingStore) Read(location string) ([]byte, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	return s.ContentStore.Read(location)
}

func (s *trackingStore) Write(location string, content []byte) (int64, string, error) {
	s.mu.Lock()
	s.writes++
	fail := s.failWrite
	s.mu.Unlock()
	if fail != nil {
		if err := fail(location); err != nil {
			return 0, "", err
		}
	}
	size, checksum, err := s.ContentStore.Write(location, content)
	s.mu.Lock()
	after := s.afterWrite
	s.mu.Unlock()
	if err == nil && after != nil {
		after(location)
	}
	return size, checksum, err
}

func (s *trackingStore) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.writes
}

type testEnv struct {
	db       *gorm.DB
	fs       afero.Fs
	raw      *storage.Store
	store    *trackingStore
	sink     *recordingSink
	tokens   *utils.TokenManager
	activity *ActivityService
	access   *AccessService
	files    *FileService
	teams    *TeamService
	auth     *AuthService
	admin    *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := testutil.NewTestDB(t)
	fsys := afero.NewMemMapFs()
	raw, err := storage.New(fsys, "/data")
	require.NoError(t, err)
	store := &trackingStore{ContentStore: raw}
	sink := &recordingSink{}

	userRepo := repository.NewUserRepository(gdb)
	teamRepo := repository.NewTeamRepository(gdb)
	memberRepo := repository.NewTeamMemberRepository(gdb)
	fileRepo := repository.NewFileRepository(gdb)
	versionRepo := repository.NewFileVersionRepository(gdb)
	activityRepo := repository.NewActivityRepository(gdb)

	tokens := utils.NewTokenManager("test-secret", time.Hour)
	activity := NewActivityService(activityRepo, sink)
	access := NewAccessService(fileRepo)
	files := NewFileService(fileRepo, versionRepo, memberRepo, access, activity, store, testMaxContentSize)

	return &testEnv{
		db:       gdb,
		fs:       fsys,
		raw:      raw,
		store:    store,
		sink:     sink,
		tokens:   tokens,
		activity: activity,
		access:   access,
		files:    files,
		teams:    NewTeamService(teamRepo, memberRepo, userRepo, activity),
		auth:     NewAuthService(userRepo, tokens, activity, bcrypt.MinCost),
		admin:    NewAdminService(userRepo, fileRepo, activityRepo, activity, files),
	}
}

func (e *testEnv) user(t *testing.T, email string) *model.User {
	t.Helper()
	return testutil.CreateUser(t, e.db, email)
}

func (e *testEnv) team(t *testing.T, name string, ownerID uint) *model.Team {
	t.Helper()
	summary, err := e.teams.CreateTeam(context.Background(), ownerID, CreateTeamRequest{Name: name})
	require.NoError(t, err)
	var team model.Team
	require.NoError(t, e.db.First(&team, summary.ID).Error)
	return &team
}

func (e *testEnv) file(t *testing.T, ownerID uint, name, content string, teamID *uint) *FileDetails {
	t.Helper()
	f, err := e.files.Create(context.Background(), ownerID, CreateFileRequest{Name: name, Content: content, TeamID: teamID})
	require.NoError(t, err)
	return f
}

func assertKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	require.Error(t, err)
	var se *Error
	require.True(t, errors.As(err, &se), "expected *service.Error, got %T: %v", err, err)
	assert.Equal(t, want, se.Kind, "message: %s", se.Message)
}

func countRows(t *testing.T, gdb *gorm.DB, m interface{}, unscoped bool) int64 {
	t.Helper()
	q := gdb.Model(m)
	if unscoped {
		q = q.Unscoped()
	}
	var n int64
	require.NoError(t, q.Count(&n).Error)
	return n
}

func hasPrefix(prefix string) func(string) error {
	return func(location string) error {
		if strings.HasPrefix(location, prefix) {
			return errors.New("injected write failure")
		}
		return nil
	}
}
