package auth

import (
	"context"
	"errors"
	"sync"

	"patient-registry/models"
	"patient-registry/store"
)

// ErrInvalidCredentials is returned for both unknown usernames and wrong
// passwords so callers cannot tell the two apart.
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserLookup finds accounts by username.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type Authenticator struct {
	users UserLookup

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthenticator(users UserLookup) *Authenticator {
	return &Authenticator{users: users}
}

// Authenticate checks username and password. Unknown usernames still pay
// for one bcrypt comparison so both failure paths take similar time.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := a.users.GetByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		CheckPassword(password, a.dummy())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (a *Authenticator) dummy() string {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = HashPassword("not-a-real-password")
	})
	return a.dummyHash
}
