package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("user not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(ctx context.Context, user *User) (*User, error) {
	user.ID = uuid.NewString()
	query := `
		INSERT INTO users (id, username, display_name, password)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.DisplayName, user.Password)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u := &User{}
	query := `
		SELECT id, username, display_name, avatar_url, password
		FROM users WHERE username = $1
	`
	err := r.db.QueryRowContext(ctx, query, username).
		Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *Repository) GetProfile(ctx context.Context, id string) (*Profile, error) {
	p := &Profile{}
	var username string
	query := `SELECT username, display_name, avatar_url FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&username, &p.Name, &p.AvatarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.Name == "" {
		p.Name = username
	}
	return p, nil
}

func (r *Repository) SetAvatar(ctx context.Context, id, avatarURL string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET avatar_url = $1 WHERE id = $2`, avatarURL, id)
	return err
}

func (r *Repository) SearchUsers(ctx context.Context, query string) ([]User, error) {
	// Capped to keep the directory endpoint fast.
	q := `
		SELECT id, username, display_name, avatar_url
		FROM users WHERE username ILIKE $1 LIMIT 10
	`
	rows, err := r.db.QueryContext(ctx, q, "%"+query+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
