package user

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	byUsername map[string]*User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byUsername: make(map[string]*User)}
}

func (f *fakeRepo) CreateUser(ctx context.Context, u *User) (*User, error) {
	u.ID = "id-" + u.Username
	f.byUsername[u.Username] = u
	return u, nil
}

func (f *fakeRepo) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u, ok := f.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) GetProfile(ctx context.Context, id string) (*Profile, error) {
	for _, u := range f.byUsername {
		if u.ID == id {
			name := u.DisplayName
			if name == "" {
				name = u.Username
			}
			return &Profile{Name: name, AvatarURL: u.AvatarURL}, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) SetAvatar(ctx context.Context, id, avatarURL string) error {
	for _, u := range f.byUsername {
		if u.ID == id {
			u.AvatarURL = avatarURL
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepo) SearchUsers(ctx context.Context, query string) ([]User, error) {
	var out []User
	for _, u := range f.byUsername {
		if strings.Contains(u.Username, query) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, "test-secret")

	u, err := svc.Register(context.Background(), &RegisterRequest{
		Username: "alice", Password: "hunter2",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", u.Password, "password stored hashed")
}

func TestRegisterRequiresCredentials(t *testing.T) {
	svc := NewService(newFakeRepo(), "test-secret")

	_, err := svc.Register(context.Background(), &RegisterRequest{Username: "alice"})
	assert.Error(t, err)
	_, err = svc.Register(context.Background(), &RegisterRequest{Password: "x"})
	assert.Error(t, err)
}

func TestLoginAndValidateToken(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, "test-secret")

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Username: "alice", Password: "hunter2",
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), &LoginRequest{
		Username: "alice", Password: "hunter2",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)

	id, username, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "id-alice", id)
	assert.Equal(t, "alice", username)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, "test-secret")

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Username: "alice", Password: "hunter2",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), &LoginRequest{
		Username: "alice", Password: "wrong",
	})
	assert.Error(t, err)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	repo := newFakeRepo()
	issuer := NewService(repo, "secret-a")
	verifier := NewService(repo, "secret-b")

	_, err := issuer.Register(context.Background(), &RegisterRequest{
		Username: "alice", Password: "hunter2",
	})
	require.NoError(t, err)
	resp, err := issuer.Login(context.Background(), &LoginRequest{
		Username: "alice", Password: "hunter2",
	})
	require.NoError(t, err)

	_, _, err = verifier.ValidateToken(resp.AccessToken)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewService(newFakeRepo(), "test-secret")
	_, _, err := svc.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}
