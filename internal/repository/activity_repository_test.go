package repository

import (
	"context"
	"testing"
	"time"

	"go-markboard/internal/model"
	"go-markboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_ListRecent(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewTestDB(t)
	repo := NewActivityRepository(gdb)
	user := testutil.CreateUser(t, gdb, "user@example.com")

	fileID := uint(7)
	entries := []*model.ActivityLog{
		{UserID: user.ID, Action: model.ActionFileCreated, ResourceType: model.ResourceFile, ResourceID: &fileID, Details: "Created file: a.md"},
		{UserID: user.ID, Action: model.ActionFileViewed, ResourceType: model.ResourceFile, ResourceID: &fileID, Details: "Viewed file: a.md"},
		// 用户已不存在的记录仍然保留
		{UserID: 999, Action: model.ActionTeamCreated, ResourceType: model.ResourceTeam, Details: "Created team: x"},
	}
	for _, e := range entries {
		require.NoError(t, repo.Create(ctx, e))
	}

	logs, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.ActionTeamCreated, logs[0].Action)
	assert.Nil(t, logs[0].UserEmail)
	assert.Equal(t, model.ActionFileViewed, logs[1].Action)
	require.NotNil(t, logs[1].UserEmail)
	assert.Equal(t, "user@example.com", *logs[1].UserEmail)
	require.NotNil(t, logs[1].ResourceID)
	assert.Equal(t, fileID, *logs[1].ResourceID)

	n, err := repo.CountSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
