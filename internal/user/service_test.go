package user

import (
	"context"
	"fmt"
	"testing"
	"time"

	"logapi/internal/config"
	"logapi/internal/infra"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUserTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:users_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), infra.NewGormConfig(&config.DatabaseConfig{Driver: "sqlite"}))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}))
	return db
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestServiceCreateRejectsDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewRepository(setupUserTestDB(t)))

	created, err := svc.Create(ctx, CreateParams{Username: "alice", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsActive)
	assert.False(t, created.IsAdmin)

	_, err = svc.Create(ctx, CreateParams{Username: "alice", PasswordHash: "other"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestRepositoryCreateTranslatesUniqueViolation(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupUserTestDB(t))

	require.NoError(t, repo.Create(ctx, &User{Username: "erin", Password: "hash", IsActive: true}))

	// 绕过服务层的预检查，直接由唯一索引拒绝
	err := repo.Create(ctx, &User{Username: "erin", Password: "other", IsActive: true})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestServiceGetMissingReturnsNil(t *testing.T) {
	svc := NewService(NewRepository(setupUserTestDB(t)))

	u, err := svc.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, u)

	deleted, err := svc.Delete(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, deleted, "删除不存在的用户应返回 false")
}

func TestServiceUpdateOnlyTouchesProvidedFields(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewRepository(setupUserTestDB(t)))

	created, err := svc.Create(ctx, CreateParams{
		Username:     "bob",
		PasswordHash: "hash",
		Name:         strPtr("Bob"),
		Email:        strPtr("bob@example.com"),
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, UpdateParams{IsAdmin: boolPtr(true)})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.True(t, updated.IsAdmin)
	assert.True(t, updated.IsActive)
	assert.Equal(t, "Bob", *updated.Name)
	assert.Equal(t, "bob@example.com", *updated.Email)
	assert.Equal(t, "bob", updated.Username)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	missing, err := svc.Update(ctx, 999, UpdateParams{Name: strPtr("x")})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestServiceListFiltersAndSearch(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewRepository(setupUserTestDB(t)))

	for _, name := range []string{"alice", "alfred", "carol"} {
		_, err := svc.Create(ctx, CreateParams{Username: name, PasswordHash: "hash"})
		require.NoError(t, err)
	}
	carol, err := svc.GetByUsername(ctx, "carol")
	require.NoError(t, err)
	_, err = svc.Update(ctx, carol.ID, UpdateParams{IsActive: boolPtr(false), Email: strPtr("CAROL@corp.io")})
	require.NoError(t, err)

	users, total, err := svc.List(ctx, ListQuery{Search: "AL"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username, "应按 id 升序返回")

	users, total, err = svc.List(ctx, ListQuery{Search: "corp"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "carol", users[0].Username)

	users, total, err = svc.List(ctx, ListQuery{Active: boolPtr(true), Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, users, 1)
	assert.Equal(t, "alfred", users[0].Username)
}

func TestServiceRecordLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewRepository(setupUserTestDB(t)))

	u, err := svc.Create(ctx, CreateParams{Username: "dave", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.Nil(t, u.LastLogin)

	require.NoError(t, svc.RecordLogin(ctx, u))
	require.NotNil(t, u.LastLogin)

	stored, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	assert.WithinDuration(t, *u.LastLogin, *stored.LastLogin, time.Second)
}
