package club

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("club not found")

	// ErrProtectedChannel guards the default channel. Enforced here, at
	// the data layer, so the rule holds no matter which caller asks.
	ErrProtectedChannel = errors.New("the general channel cannot be deleted")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateClub inserts the club, its default general channel, and the
// creator's admin membership in one transaction.
func (r *Repository) CreateClub(ctx context.Context, name, description, createdBy string) (*Club, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := &Club{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO clubs (id, name, description, created_by) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, c.Description, c.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("insert club: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO channels (id, club_id, name) VALUES ($1, $2, $3)`,
		uuid.NewString(), c.ID, DefaultChannel)
	if err != nil {
		return nil, fmt.Errorf("provision general channel: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO club_members (club_id, user_id, role) VALUES ($1, $2, $3)`,
		c.ID, createdBy, RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("add creator membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) GetClub(ctx context.Context, id string) (*Club, error) {
	c := &Club{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, avatar_url, banner_url, COALESCE(created_by::text, ''), created_at
		FROM clubs WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Description, &c.AvatarURL, &c.BannerURL, &c.CreatedBy, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) ListClubs(ctx context.Context) ([]Club, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, avatar_url, banner_url, COALESCE(created_by::text, ''), created_at
		FROM clubs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clubs []Club
	for rows.Next() {
		var c Club
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.AvatarURL, &c.BannerURL, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		clubs = append(clubs, c)
	}
	return clubs, rows.Err()
}

func (r *Repository) UpdateClub(ctx context.Context, id, name, description string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clubs SET name = $1, description = $2 WHERE id = $3`,
		name, description, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetClubImages(ctx context.Context, id, avatarURL, bannerURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE clubs SET
			avatar_url = COALESCE(NULLIF($1, ''), avatar_url),
			banner_url = COALESCE(NULLIF($2, ''), banner_url)
		WHERE id = $3
	`, avatarURL, bannerURL, id)
	return err
}

func (r *Repository) ListChannels(ctx context.Context, clubID string) ([]Channel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, club_id, name, created_at
		FROM channels WHERE club_id = $1 ORDER BY created_at ASC
	`, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var ch Channel
		if err := rows.Scan(&ch.ID, &ch.ClubID, &ch.Name, &ch.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (r *Repository) CreateChannel(ctx context.Context, clubID, name string) (*Channel, error) {
	ch := &Channel{ID: uuid.NewString(), ClubID: clubID, Name: name}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO channels (id, club_id, name) VALUES ($1, $2, $3)`,
		ch.ID, ch.ClubID, ch.Name)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// DeleteChannel removes a channel. Deleting the general channel is
// rejected before any SQL runs.
func (r *Repository) DeleteChannel(ctx context.Context, clubID, channelID string) error {
	var name string
	err := r.db.QueryRowContext(ctx,
		`SELECT name FROM channels WHERE id = $1 AND club_id = $2`,
		channelID, clubID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if name == DefaultChannel {
		return ErrProtectedChannel
	}

	_, err = r.db.ExecContext(ctx,
		`DELETE FROM channels WHERE id = $1 AND club_id = $2`, channelID, clubID)
	return err
}

func (r *Repository) Join(ctx context.Context, clubID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO club_members (club_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (club_id, user_id) DO NOTHING
	`, clubID, userID, RoleMember)
	return err
}

func (r *Repository) Leave(ctx context.Context, clubID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM club_members WHERE club_id = $1 AND user_id = $2`, clubID, userID)
	return err
}

func (r *Repository) ListMembers(ctx context.Context, clubID string) ([]Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT club_id, user_id, role, joined_at
		FROM club_members WHERE club_id = $1 ORDER BY joined_at ASC
	`, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ClubID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// SetRole persists a role change (member promotion/demotion).
func (r *Repository) SetRole(ctx context.Context, clubID, userID, role string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE club_members SET role = $1 WHERE club_id = $2 AND user_id = $3`,
		role, clubID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) IsMember(ctx context.Context, clubID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM club_members WHERE club_id = $1 AND user_id = $2
		)
	`, clubID, userID).Scan(&exists)
	return exists, err
}

// Role returns the member's role, or "" for non-members.
func (r *Repository) Role(ctx context.Context, clubID, userID string) (string, error) {
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT role FROM club_members WHERE club_id = $1 AND user_id = $2`,
		clubID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

// CanModerate reports whether the user may delete messages in the club:
// admins and moderators.
func (r *Repository) CanModerate(ctx context.Context, clubID, userID string) (bool, error) {
	role, err := r.Role(ctx, clubID, userID)
	if err != nil {
		return false, err
	}
	return role == RoleAdmin || role == RoleModerator, nil
}
