// Package auth is the authentication collaborator: profiles, bearer-token
// sessions and the admin lookup the storefront depends on.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storefront/model"
)

var (
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned by SignUp for an already-registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrSessionInvalid covers unknown and expired tokens.
	ErrSessionInvalid = errors.New("session invalid or expired")
)

// Event names passed to OnAuthStateChange callbacks.
const (
	EventSignedIn  = "SIGNED_IN"
	EventSignedOut = "SIGNED_OUT"
)

// Service is the auth surface the rest of the system uses.
type Service interface {
	SignUp(ctx context.Context, email, password, fullName string) (model.User, error)
	SignIn(ctx context.Context, email, password string) (model.Session, model.User, error)
	SignOut(ctx context.Context, token uuid.UUID) error
	CurrentUser(ctx context.Context, token uuid.UUID) (model.User, error)
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	OnAuthStateChange(fn func(event string, user *model.User)) func()
}

const sessionTTL = 30 * 24 * time.Hour

// PostgresAuth stores profiles and sessions in the same database as the
// rest of the storefront.
type PostgresAuth struct {
	DB *sql.DB

	mu        sync.Mutex
	nextSubID int
	listeners map[int]func(event string, user *model.User)
}

// NewPostgresAuth returns a PostgresAuth over db.
func NewPostgresAuth(db *sql.DB) *PostgresAuth {
	return &PostgresAuth{DB: db, listeners: make(map[int]func(string, *model.User))}
}

func (a *PostgresAuth) SignUp(ctx context.Context, email, password, fullName string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return model.User{}, errors.New("valid email required")
	}
	if len(password) < 8 {
		return model.User{}, errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, err
	}

	u := model.User{ID: uuid.New(), Email: email, FullName: fullName}
	err = a.DB.QueryRowContext(ctx, `
		INSERT INTO profiles (id, email, full_name, password_hash)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (email) DO NOTHING
		RETURNING created_at
	`, u.ID, u.Email, u.FullName, string(hash)).Scan(&u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrEmailTaken
	}
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (a *PostgresAuth) SignIn(ctx context.Context, email, password string) (model.Session, model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var (
		u    model.User
		hash string
	)
	err := a.DB.QueryRowContext(ctx, `
		SELECT id, email, full_name, avatar_url, is_admin, created_at, password_hash
		FROM profiles WHERE email=$1
	`, email).Scan(&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.IsAdmin, &u.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.Session{}, model.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return model.Session{}, model.User{}, ErrInvalidCredentials
	}

	sess := model.Session{
		Token:     uuid.New(),
		UserID:    u.ID,
		ExpiresAt: time.Now().Add(sessionTTL),
	}
	err = a.DB.QueryRowContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at) VALUES ($1,$2,$3)
		RETURNING created_at
	`, sess.Token, sess.UserID, sess.ExpiresAt).Scan(&sess.CreatedAt)
	if err != nil {
		return model.Session{}, model.User{}, err
	}

	a.notify(EventSignedIn, &u)
	return sess, u, nil
}

func (a *PostgresAuth) SignOut(ctx context.Context, token uuid.UUID) error {
	u, err := a.CurrentUser(ctx, token)
	if err != nil && !errors.Is(err, ErrSessionInvalid) {
		return err
	}
	if _, err := a.DB.ExecContext(ctx, `DELETE FROM sessions WHERE token=$1`, token); err != nil {
		return err
	}
	if err == nil {
		a.notify(EventSignedOut, &u)
	}
	return nil
}

func (a *PostgresAuth) CurrentUser(ctx context.Context, token uuid.UUID) (model.User, error) {
	var (
		u       model.User
		expires time.Time
	)
	err := a.DB.QueryRowContext(ctx, `
		SELECT p.id, p.email, p.full_name, p.avatar_url, p.is_admin, p.created_at, s.expires_at
		FROM sessions s
		JOIN profiles p ON p.id = s.user_id
		WHERE s.token=$1
	`, token).Scan(&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.IsAdmin, &u.CreatedAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrSessionInvalid
	}
	if err != nil {
		return model.User{}, err
	}
	if time.Now().After(expires) {
		return model.User{}, ErrSessionInvalid
	}
	return u, nil
}

func (a *PostgresAuth) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	var isAdmin bool
	err := a.DB.QueryRowContext(ctx,
		`SELECT is_admin FROM profiles WHERE id=$1`, userID).Scan(&isAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return isAdmin, err
}

// OnAuthStateChange registers fn for sign-in/sign-out events and returns an
// unsubscribe func.
func (a *PostgresAuth) OnAuthStateChange(fn func(event string, user *model.User)) func() {
	a.mu.Lock()
	id := a.nextSubID
	a.nextSubID++
	a.listeners[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *PostgresAuth) notify(event string, user *model.User) {
	a.mu.Lock()
	fns := make([]func(string, *model.User), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(event, user)
	}
}

var _ Service = (*PostgresAuth)(nil)
