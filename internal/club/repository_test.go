package club

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubchat/internal/db"
)

// testRepo connects to the database named by DB_DSN, skipping the test
// when none is configured, and provisions one throwaway user.
func testRepo(t *testing.T) (*Repository, string) {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		t.Skip("DB_DSN not set; skipping database integration test")
	}

	database, err := db.NewDatabase(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { database.Conn.Close() })
	require.NoError(t, database.AutoMigrate())

	userID := uuid.NewString()
	_, err = database.Conn.Exec(
		`INSERT INTO users (id, username, password) VALUES ($1, $2, 'x')`,
		userID, "itest-"+userID[:8],
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		database.Conn.Exec(`DELETE FROM users WHERE id = $1`, userID)
	})

	return NewRepository(database.Conn), userID
}

func createTestClub(t *testing.T, repo *Repository, creator string) *Club {
	t.Helper()
	c, err := repo.CreateClub(context.Background(), "itest club", "for testing", creator)
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.db.Exec(`DELETE FROM clubs WHERE id = $1`, c.ID)
	})
	return c
}

func TestCreateClubProvisionsGeneralAndAdmin(t *testing.T) {
	repo, userID := testRepo(t)
	ctx := context.Background()
	c := createTestClub(t, repo, userID)

	channels, err := repo.ListChannels(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, DefaultChannel, channels[0].Name)

	role, err := repo.Role(ctx, c.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)
}

func TestDeleteGeneralChannelRejected(t *testing.T) {
	repo, userID := testRepo(t)
	ctx := context.Background()
	c := createTestClub(t, repo, userID)

	channels, err := repo.ListChannels(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, channels, 1)

	err = repo.DeleteChannel(ctx, c.ID, channels[0].ID)
	assert.ErrorIs(t, err, ErrProtectedChannel)

	// Still there.
	channels, err = repo.ListChannels(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, channels, 1)
}

func TestCreateAndDeleteOrdinaryChannel(t *testing.T) {
	repo, userID := testRepo(t)
	ctx := context.Background()
	c := createTestClub(t, repo, userID)

	ch, err := repo.CreateChannel(ctx, c.ID, "events")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteChannel(ctx, c.ID, ch.ID))

	channels, err := repo.ListChannels(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, channels, 1, "only general remains")
}

func TestMembershipAndRoles(t *testing.T) {
	repo, adminID := testRepo(t)
	ctx := context.Background()
	c := createTestClub(t, repo, adminID)

	memberID := uuid.NewString()
	_, err := repo.db.Exec(
		`INSERT INTO users (id, username, password) VALUES ($1, $2, 'x')`,
		memberID, "itest-"+memberID[:8],
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.db.Exec(`DELETE FROM users WHERE id = $1`, memberID)
	})

	ok, err := repo.IsMember(ctx, c.ID, memberID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Join(ctx, c.ID, memberID))
	// Joining twice is a no-op.
	require.NoError(t, repo.Join(ctx, c.ID, memberID))

	ok, err = repo.IsMember(ctx, c.ID, memberID)
	require.NoError(t, err)
	assert.True(t, ok)

	canMod, err := repo.CanModerate(ctx, c.ID, memberID)
	require.NoError(t, err)
	assert.False(t, canMod, "plain members cannot moderate")

	require.NoError(t, repo.SetRole(ctx, c.ID, memberID, RoleModerator))
	canMod, err = repo.CanModerate(ctx, c.ID, memberID)
	require.NoError(t, err)
	assert.True(t, canMod)

	require.NoError(t, repo.Leave(ctx, c.ID, memberID))
	ok, err = repo.IsMember(ctx, c.ID, memberID)
	require.NoError(t, err)
	assert.False(t, ok)
}
