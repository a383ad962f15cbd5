package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"logapi/internal/auth"
	"logapi/internal/logentry"
	"logapi/internal/user"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestSeederRun(t *testing.T) {
	ctx := context.Background()
	dsn := fmt.Sprintf("file:seed_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.User{}, &logentry.Log{}))

	users := user.NewService(user.NewRepository(db))
	tokens, err := auth.NewJWTService("seed-secret", "HS256", "", time.Minute)
	require.NoError(t, err)
	accounts := auth.NewService(users, &auth.BcryptHasher{Cost: bcrypt.MinCost}, tokens)
	logs := logentry.NewService(logentry.NewRepository(db))

	seeder := NewSeeder(accounts, users, logs, rand.New(rand.NewPCG(1, 2)), zaptest.NewLogger(t))
	require.NoError(t, seeder.Run(ctx, Options{AdminPassword: "Admin@12345", LogCount: 20}))

	admin, err := users.GetByUsername(ctx, AdminUsername)
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin)
	assert.True(t, admin.IsActive)

	_, err = accounts.Authenticate(ctx, AdminUsername, "Admin@12345")
	require.NoError(t, err)

	total, err := logs.Count(ctx, logentry.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 20, total)

	all, _, err := logs.List(ctx, logentry.Filter{}, logentry.Page{Limit: 100})
	require.NoError(t, err)
	for _, l := range all {
		assert.True(t, slices.Contains(severities, l.Severity))
		assert.True(t, slices.Contains(sources, l.Source))
		assert.True(t, slices.Contains(messages, l.Message))
	}

	// 再次执行不会重复创建管理员
	require.NoError(t, seeder.Run(ctx, Options{AdminPassword: "other-password", LogCount: 1}))
	list, count, err := users.List(ctx, user.ListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Len(t, list, 1)
	_, err = accounts.Authenticate(ctx, AdminUsername, "Admin@12345")
	assert.NoError(t, err)
}
