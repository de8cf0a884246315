package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/moleculahq/molecula/internal/models"
)

// AuthStore abstracts user persistence for registration and login.
type AuthStore interface {
	FindUserByEmail(email string) (*models.User, error)
	CountUsers() (int, error)
	AddUser(u *models.User) error
}

// TokenSigner issues a signed session token for an authenticated user.
type TokenSigner func(uid string, admin bool, email string, ttl time.Duration) (string, error)

// AuthResult is the outcome of a successful register or login.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// AuthService handles registration and credential checks.
type AuthService struct {
	store    AuthStore
	sign     TokenSigner
	tokenTTL time.Duration
	now      func() time.Time
	idGen    func() string
}

// NewAuthService constructs an auth service with the given token signer.
func NewAuthService(store AuthStore, sign TokenSigner) *AuthService {
	return &AuthService{
		store:    store,
		sign:     sign,
		tokenTTL: 72 * time.Hour,
		now:      func() time.Time { return time.Now().UTC() },
		idGen:    func() string { return shortID(8) },
	}
}

// Register creates an account and returns a session token. The first
// registered user becomes an admin.
func (s *AuthService) Register(username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || !strings.Contains(email, "@") {
		return nil, NewInvalidError("username and valid email required")
	}
	if len(password) < 8 {
		return nil, NewInvalidError("password must be at least 8 characters")
	}
	existing, err := s.store.FindUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("email already registered")
	}
	count, err := s.store.CountUsers()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:        s.idGen(),
		Username:  username,
		Email:     email,
		PassHash:  hash,
		Admin:     count == 0,
		CreatedAt: s.now(),
	}
	if err := s.store.AddUser(u); err != nil {
		return nil, err
	}
	return s.issue(u)
}

// Login checks credentials and returns a session token.
func (s *AuthService) Login(email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.store.FindUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword(u.PassHash, []byte(password)) != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	return s.issue(u)
}

func (s *AuthService) issue(u *models.User) (*AuthResult, error) {
	token, err := s.sign(u.ID, u.Admin, u.Email, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Token: token}, nil
}
