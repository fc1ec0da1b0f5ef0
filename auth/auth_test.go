package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storefront/model"
)

func newMock(t *testing.T) (*PostgresAuth, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresAuth(db), mock
}

func TestSignUpEmailTaken(t *testing.T) {
	a, mock := newMock(t)

	// conditional insert returns no row when the email already exists
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO profiles`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))

	_, err := a.SignUp(context.Background(), "taken@example.com", "password123", "Somchai J.")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSignUpValidation(t *testing.T) {
	a, _ := newMock(t)
	ctx := context.Background()

	if _, err := a.SignUp(ctx, "not-an-email", "password123", ""); err == nil {
		t.Fatal("expected error for bad email")
	}
	if _, err := a.SignUp(ctx, "ok@example.com", "short", ""); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestSignInWrongPassword(t *testing.T) {
	a, mock := newMock(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, full_name`)).
		WithArgs("shopper@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "full_name", "avatar_url", "is_admin", "created_at", "password_hash",
		}).AddRow(uuid.New(), "shopper@example.com", "Somchai J.", "", false, time.Now(), string(hash)))

	_, _, err = a.SignIn(context.Background(), "shopper@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCurrentUserExpiredSession(t *testing.T) {
	a, mock := newMock(t)
	token := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT p.id, p.email`)).
		WithArgs(token).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "full_name", "avatar_url", "is_admin", "created_at", "expires_at",
		}).AddRow(uuid.New(), "shopper@example.com", "", "", false, time.Now(), time.Now().Add(-time.Hour)))

	_, err := a.CurrentUser(context.Background(), token)
	if !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}

func TestOnAuthStateChange(t *testing.T) {
	a, mock := newMock(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, full_name`)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "full_name", "avatar_url", "is_admin", "created_at", "password_hash",
		}).AddRow(userID, "shopper@example.com", "", "", false, time.Now(), string(hash)))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO sessions`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	got := make(chan string, 1)
	cancel := a.OnAuthStateChange(func(event string, _ *model.User) {
		select {
		case got <- event:
		default:
		}
	})
	defer cancel()

	if _, _, err := a.SignIn(context.Background(), "shopper@example.com", "correct-horse"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	select {
	case ev := <-got:
		if ev != EventSignedIn {
			t.Fatalf("expected %s, got %s", EventSignedIn, ev)
		}
	default:
		t.Fatal("listener not notified")
	}
}
