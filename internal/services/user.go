package services

import (
	"context"
	"errors"
	"time"

	"github.com/messagely/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials indicates that the provided password does not match
// the stored hash.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user types.User) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	List(ctx context.Context) ([]types.UserSummary, error)
	TouchLogin(ctx context.Context, username string, at time.Time) error
	MessagesFrom(ctx context.Context, username string) ([]types.OutboundMessage, error)
	MessagesTo(ctx context.Context, username string) ([]types.InboundMessage, error)
}

// UserService encapsulates user use-cases: registration, credential checks,
// directory lookups, and inbox/outbox views.
type UserService struct {
	repo       UserRepository
	bcryptCost int
}

func NewUserService(repo UserRepository, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, bcryptCost: bcryptCost}
}

// Register hashes the password and stores the new user with join_at and
// last_login_at both set to now. The returned User still carries the hash;
// callers must not let it reach the wire.
func (s *UserService) Register(ctx context.Context, username, password, firstName, lastName, phone string) (types.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return types.User{}, err
	}

	now := time.Now()
	return s.repo.Create(ctx, types.User{
		Username:     username,
		PasswordHash: string(hashed),
		FirstName:    firstName,
		LastName:     lastName,
		Phone:        phone,
		JoinAt:       now,
		LastLoginAt:  now,
	})
}

// Authenticate checks the password against the stored hash. Unknown usernames
// surface the repository's not-found error; a mismatched password returns
// ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) error {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// TouchLogin stamps last_login_at for the user.
func (s *UserService) TouchLogin(ctx context.Context, username string) error {
	return s.repo.TouchLogin(ctx, username, time.Now())
}

func (s *UserService) List(ctx context.Context) ([]types.UserSummary, error) {
	return s.repo.List(ctx)
}

func (s *UserService) Get(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) MessagesFrom(ctx context.Context, username string) ([]types.OutboundMessage, error) {
	return s.repo.MessagesFrom(ctx, username)
}

func (s *UserService) MessagesTo(ctx context.Context, username string) ([]types.InboundMessage, error) {
	return s.repo.MessagesTo(ctx, username)
}
