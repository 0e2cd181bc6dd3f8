package forum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cppla/qforum/models"
	"github.com/cppla/qforum/utils"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 64
	minPasswordLen = 6
)

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer interface {
	Generate(userID uint, username string) (string, error)
	Parse(token string) (*utils.Claims, error)
}

// Session is what a successful register or login hands back to the caller.
type Session struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// AuthService registers users, checks credentials and verifies tokens.
type AuthService struct {
	store  Store
	tokens TokenIssuer
}

// NewAuthService creates an AuthService.
func NewAuthService(store Store, tokens TokenIssuer) *AuthService {
	return &AuthService{store: store, tokens: tokens}
}

// Register creates an account and signs the caller in.
func (a *AuthService) Register(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen ||
		utf8.RuneCountInString(password) < minPasswordLen || len(password) > utils.MaxPasswordBytes {
		return nil, ValidationError("Invalid username or password")
	}

	if _, err := a.store.UserByUsername(ctx, username); err == nil {
		return nil, ConflictError("Username already taken")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Username: username, PasswordHash: hash}
	if err := a.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, ConflictError("Username already taken")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return a.session(user)
}

// Login checks credentials. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (a *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := a.store.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, AuthError("Invalid credentials")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, AuthError("Invalid credentials")
	}
	return a.session(user)
}

// Verify turns a bearer token into the identity it was issued for.
func (a *AuthService) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, AuthError("Unauthorized")
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return Identity{}, AuthError("Invalid token")
	}
	uid, err := claims.UserID()
	if err != nil || claims.Username == "" {
		return Identity{}, AuthError("Invalid token")
	}
	return Identity{UserID: uid, Username: claims.Username}, nil
}

// Me returns the public profile of the caller.
func (a *AuthService) Me(ctx context.Context, id Identity) (*models.PublicUser, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	user, err := a.store.UserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NotFoundError("User not found")
		}
		return nil, fmt.Errorf("load user %d: %w", id.UserID, err)
	}
	pub := user.Public()
	return &pub, nil
}

func (a *AuthService) session(user *models.User) (*Session, error) {
	token, err := a.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &Session{Token: token, User: user.Public()}, nil
}
