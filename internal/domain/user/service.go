package user

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/medsched/medsched/internal/platform/auth"
)

const (
	minPasswordLen     = 8
	invitationTTLDays  = 7
	invitationTokenLen = 32
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrUsernameInUse      = errors.New("username already in use")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactive           = errors.New("account is deactivated")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLen)
	ErrInvalidRole        = errors.New("invalid role")

	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation token expired or already used")
)

// InvitationMailer delivers the registration email for a new invitation.
// Delivery problems are recorded by the implementation, not propagated: an
// invitation stays redeemable even when the mail bounces.
type InvitationMailer interface {
	DoctorInvited(ctx context.Context, email, token string, expiresAt time.Time)
}

var validRoles = map[string]bool{
	auth.RoleAdmin:        true,
	auth.RoleDoctor:       true,
	auth.RoleReceptionist: true,
	auth.RolePatient:      true,
}

type Service struct {
	users       Repository
	invitations InvitationRepository
	tokens      *auth.TokenIssuer
	mailer      InvitationMailer
	now         func() time.Time
}

func NewService(users Repository, invitations InvitationRepository, tokens *auth.TokenIssuer, mailer InvitationMailer) *Service {
	return &Service{
		users:       users,
		invitations: invitations,
		tokens:      tokens,
		mailer:      mailer,
		now:         time.Now,
	}
}

// Register creates an account. Username and email must be unique
// case-insensitively; the role defaults to patient.
func (s *Service) Register(ctx context.Context, username, email, password, role string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	if role == "" {
		role = auth.RolePatient
	}
	if !validRoles[role] {
		return nil, ErrInvalidRole
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameInUse
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies the credentials and signs a token pair. Unknown usernames
// and wrong passwords report the same error.
func (s *Service) Login(ctx context.Context, username, password string) (*User, *auth.TokenPair, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !u.Active {
		return nil, nil, ErrInactive
	}

	pair, err := s.tokens.Issue(u.ID.String(), u.Username, u.Role)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. The account must
// still exist and be active.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.Active {
		return nil, ErrInactive
	}
	return s.tokens.Issue(u.ID.String(), u.Username, u.Role)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// ChangePassword verifies the current password before setting a new one.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	if len(next) < minPasswordLen {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, id, string(hash))
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.users.SetActive(ctx, id, false)
}

func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.users.SetActive(ctx, id, true)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// InviteDoctor issues a doctor-registration invitation and emails the token.
// When a redeemable invitation already exists for the address it is returned
// instead of issuing a second token; the boolean reports whether a new one
// was created.
func (s *Service) InviteDoctor(ctx context.Context, email string, invitedBy uuid.UUID, validDays int) (*Invitation, bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, false, fmt.Errorf("email is required")
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, false, ErrEmailInUse
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	if existing, err := s.invitations.GetRedeemableByEmail(ctx, email, s.now()); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	if validDays <= 0 {
		validDays = invitationTTLDays
	}
	token, err := newInvitationToken()
	if err != nil {
		return nil, false, err
	}
	inv := &Invitation{
		Email:     email,
		Token:     token,
		ExpiresAt: s.now().Add(time.Duration(validDays) * 24 * time.Hour),
		CreatedBy: &invitedBy,
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, false, err
	}
	if s.mailer != nil {
		s.mailer.DoctorInvited(ctx, inv.Email, inv.Token, inv.ExpiresAt)
	}
	return inv, true, nil
}

// VerifyInvitation checks a registration token without consuming it.
func (s *Service) VerifyInvitation(ctx context.Context, token string) (*Invitation, error) {
	inv, err := s.invitations.GetByToken(ctx, token)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	if !inv.Redeemable(s.now()) {
		return nil, ErrInvitationExpired
	}
	return inv, nil
}

// RegisterDoctor creates a doctor account from an invitation token. The
// account email comes from the invitation; the token is consumed on success.
func (s *Service) RegisterDoctor(ctx context.Context, token, username, password string) (*User, error) {
	inv, err := s.VerifyInvitation(ctx, token)
	if err != nil {
		return nil, err
	}
	u, err := s.Register(ctx, username, inv.Email, password, auth.RoleDoctor)
	if err != nil {
		return nil, err
	}
	if err := s.invitations.MarkUsed(ctx, inv.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// newInvitationToken returns a URL-safe random token.
func newInvitationToken() (string, error) {
	buf := make([]byte, invitationTokenLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
