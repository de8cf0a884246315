package services

import (
	"testing"
	"time"
)

func testSigner(uid string, admin bool, email string, ttl time.Duration) (string, error) {
	return "token-" + uid, nil
}

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	store := &stubStore{}
	svc := NewAuthService(store, testSigner)
	first, err := svc.Register("ada", "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if !first.User.Admin {
		t.Fatalf("first user must be admin")
	}
	if first.Token == "" {
		t.Fatalf("expected session token")
	}
	second, err := svc.Register("bob", "bob@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if second.User.Admin {
		t.Fatalf("second user must not be admin")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewAuthService(&stubStore{}, testSigner)
	if _, err := svc.Register("ada", "ada@example.com", "correct-horse"); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	_, err := svc.Register("ada2", "ADA@example.com", "correct-horse")
	se, ok := AsServiceError(err)
	if !ok || se.Code != CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewAuthService(&stubStore{}, testSigner)
	if _, err := svc.Register("", "ada@example.com", "correct-horse"); err == nil {
		t.Fatalf("expected error for blank username")
	}
	if _, err := svc.Register("ada", "not-an-email", "correct-horse"); err == nil {
		t.Fatalf("expected error for invalid email")
	}
	if _, err := svc.Register("ada", "ada@example.com", "short"); err == nil {
		t.Fatalf("expected error for short password")
	}
}

func TestLogin(t *testing.T) {
	svc := NewAuthService(&stubStore{}, testSigner)
	if _, err := svc.Register("ada", "ada@example.com", "correct-horse"); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	res, err := svc.Login("Ada@Example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if res.User.Username != "ada" {
		t.Fatalf("unexpected user %+v", res.User)
	}
	if _, err := svc.Login("ada@example.com", "wrong-password"); err == nil {
		t.Fatalf("expected error for wrong password")
	}
	if _, err := svc.Login("ghost@example.com", "correct-horse"); err == nil {
		t.Fatalf("expected error for unknown email")
	}
}
