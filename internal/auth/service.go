package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/osgiliath/console/internal/apiclient"
	"github.com/osgiliath/console/internal/viewmodel"
)

// ErrNoToken is returned when the backend accepted a login but issued no token.
var ErrNoToken = errors.New("login response carried no token")

var (
	loginMessages = viewmodel.Messages{
		"username": "Username is required",
		"password": "Password is required",
	}
	registerMessages = viewmodel.Messages{
		"username":     "Username is required",
		"password.min": "Password must be at least 6 characters",
		"password":     "Password is required",
		"email.email":  "Invalid email format",
		"email":        "Email is required",
	}
)

// Service talks to the backend auth endpoints and is the only writer of
// credentials.
type Service struct {
	api *apiclient.Client
}

// NewService constructs a new Service.
func NewService(api *apiclient.Client) *Service {
	return &Service{api: api}
}

// Login exchanges a username and password for a token and stores it.
func (s *Service) Login(ctx context.Context, store Store, in LoginRequest) (*LoginResponse, error) {
	in.Username = strings.TrimSpace(in.Username)
	if fields := viewmodel.Check(in, loginMessages); !fields.Valid() {
		return nil, &viewmodel.ValidationError{Fields: fields}
	}
	var resp LoginResponse
	if err := s.api.WithCredentials(nil).Post(ctx, "/auth/login", in, &resp); err != nil {
		return nil, viewmodel.NewSubmitError("login", "Login failed", err)
	}
	if resp.Token == "" {
		return nil, viewmodel.NewSubmitError("login", "Login failed", ErrNoToken)
	}
	if resp.Username == "" {
		resp.Username = in.Username
	}
	store.Set(resp.Token, resp.Username)
	return &resp, nil
}

// Register creates an account. No token is issued; callers log in after.
func (s *Service) Register(ctx context.Context, in RegisterRequest) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if fields := viewmodel.Check(in, registerMessages); !fields.Valid() {
		return &viewmodel.ValidationError{Fields: fields}
	}
	if err := s.api.WithCredentials(nil).Post(ctx, "/auth/register", in, nil); err != nil {
		return viewmodel.NewSubmitError("register", "Registration failed", err)
	}
	return nil
}

// Me returns the user behind the stored token.
func (s *Service) Me(ctx context.Context, creds apiclient.CredentialSource) (*User, error) {
	if creds == nil || creds.Token() == "" {
		return nil, viewmodel.NewLoadError("me", "Not logged in", apiclient.ErrUnauthorized)
	}
	var user User
	if err := s.api.WithCredentials(creds).Get(ctx, "/auth/me", nil, &user); err != nil {
		return nil, viewmodel.NewLoadError("me", "Failed to load current user", err)
	}
	return &user, nil
}

// Logout forgets the stored token.
func (s *Service) Logout(store Store) {
	store.Invalidate()
}
