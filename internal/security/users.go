package security

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrUserNotFound is returned when a username has no account.
var ErrUserNotFound = errors.New("security: user not found")

// ErrInvalidCredentials is returned when a password does not match.
// It deliberately carries no detail about which part failed.
var ErrInvalidCredentials = errors.New("security: invalid credentials")

// User is a dashboard operator account. The password field only ever
// holds a bcrypt hash once the account is stored.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	IsActive     bool      `json:"is_active"`
}

// UserStore holds dashboard accounts in memory. The monitor seeds it
// from config at startup; there is no self-service registration.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewUserStore creates an empty user store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*User)}
}

// Create registers an account, hashing the given plaintext password.
func (us *UserStore) Create(id, username, password string, roles []string) error {
	if username == "" {
		return errors.New("security: username cannot be empty")
	}
	if password == "" {
		return errors.New("security: password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	us.mu.Lock()
	defer us.mu.Unlock()
	us.users[username] = &User{
		ID:           id,
		Username:     username,
		PasswordHash: string(hash),
		Roles:        roles,
		CreatedAt:    time.Now(),
		IsActive:     true,
	}
	return nil
}

// CreateWithHash registers an account whose bcrypt hash was produced
// out-of-band (config files carry hashes, never plaintext).
func (us *UserStore) CreateWithHash(id, username, passwordHash string, roles []string) error {
	if username == "" {
		return errors.New("security: username cannot be empty")
	}
	if passwordHash == "" {
		return errors.New("security: password hash cannot be empty")
	}
	us.mu.Lock()
	defer us.mu.Unlock()
	us.users[username] = &User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		Roles:        roles,
		CreatedAt:    time.Now(),
		IsActive:     true,
	}
	return nil
}

// Authenticate verifies a username/password pair and returns the
// account on success. Unknown users burn a bcrypt comparison against a
// fixed dummy hash so the two failure modes take comparable time.
func (us *UserStore) Authenticate(username, password string) (*User, error) {
	us.mu.RLock()
	user, ok := us.users[username]
	us.mu.RUnlock()
	if !ok || !user.IsActive {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Find returns the account for a username.
func (us *UserStore) Find(username string) (*User, error) {
	us.mu.RLock()
	defer us.mu.RUnlock()
	if user, ok := us.users[username]; ok {
		return user, nil
	}
	return nil, ErrUserNotFound
}

// Deactivate disables an account without removing its record.
func (us *UserStore) Deactivate(username string) error {
	us.mu.Lock()
	defer us.mu.Unlock()
	user, ok := us.users[username]
	if !ok {
		return ErrUserNotFound
	}
	user.IsActive = false
	return nil
}

// dummyHash is a bcrypt hash of an unguessable throwaway value, used
// only to equalize timing for unknown-user login attempts.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("lnmtl-dummy-credential"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()
