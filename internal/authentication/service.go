package authentication

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"github.com/study-grade/internal/tokens"
	"github.com/study-grade/internal/users"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRevoked            = errors.New("token revoked")
)

// InputError describes a rejected registration field.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const passwordMessage = "must be 8-72 characters"

type registration struct {
	Username string `validate:"min=3,max=50"`
	Password string `validate:"min=8,max=72"`
}

type Service struct {
	validate    *validator.Validate
	usersStore  *users.Store
	tokensStore *tokens.Store
	issuer      *tokens.Issuer
}

func NewService(
	usersStore *users.Store,
	tokensStore *tokens.Store,
	issuer *tokens.Issuer,
) *Service {
	return &Service{
		validate:    validator.New(),
		usersStore:  usersStore,
		tokensStore: tokensStore,
		issuer:      issuer,
	}
}

func (s *Service) Register(ctx context.Context, username, password string) (*users.User, error) {
	input := registration{
		Username: strings.TrimSpace(username),
		Password: strings.TrimSpace(password),
	}
	if err := s.validate.Struct(input); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			return nil, inputError(fieldErrors[0])
		}
		return nil, fmt.Errorf("validate registration: %w", err)
	}

	user, err := users.New(input.Username, input.Password)
	// max counts characters, bcrypt counts bytes
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, &InputError{Field: "password", Message: passwordMessage}
	} else if err != nil {
		return nil, fmt.Errorf("new user: %w", err)
	}
	if err := s.usersStore.Insert(ctx, user); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func inputError(fe validator.FieldError) *InputError {
	switch fe.Field() {
	case "Username":
		return &InputError{Field: "username", Message: "must be 3-50 characters"}
	default:
		return &InputError{Field: "password", Message: passwordMessage}
	}
}

func (s *Service) Login(ctx context.Context, username, password string) (*tokens.Token, *users.User, error) {
	username, password = strings.TrimSpace(username), strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.usersStore.FindByUsername(ctx, username)
	if errors.Is(err, users.ErrNotFound) {
		return nil, nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, nil, fmt.Errorf("find user %q: %w", username, err)
	}

	if !user.CheckPassword(password) {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("issue token: %w", err)
	}
	return token, user, nil
}

// AuthenticateContext verifies a bearer token and returns ctx carrying it.
func (s *Service) AuthenticateContext(ctx context.Context, bearer string) (context.Context, error) {
	token, err := s.issuer.Parse(bearer)
	if err != nil {
		return ctx, err
	}

	revoked, err := s.tokensStore.IsRevoked(ctx, token.ID)
	if err != nil {
		return ctx, fmt.Errorf("check revocation of %q: %w", token.ID, err)
	}
	if revoked {
		return ctx, ErrRevoked
	}

	if _, err := s.usersStore.FindByID(ctx, token.UserID); errors.Is(err, users.ErrNotFound) {
		return ctx, fmt.Errorf("%w: unknown user", tokens.ErrInvalid)
	} else if err != nil {
		return ctx, fmt.Errorf("find user %q: %w", token.UserID, err)
	}

	return tokens.NewContext(ctx, token), nil
}

// Logout revokes the token carried by ctx.
func (s *Service) Logout(ctx context.Context) error {
	token, ok := tokens.FromContext(ctx)
	if !ok {
		return tokens.ErrMissingFromContext
	}
	if err := s.tokensStore.Revoke(ctx, token); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
