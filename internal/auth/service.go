package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/seekweb/pos-api/internal/common"
)

// Operator is a till user. Role is either "operator" or "admin"; admins can
// reach the back-office surface.
type Operator struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credential pairs an operator with its stored password hash.
type Credential struct {
	Operator
	PasswordHash string
}

// OperatorStore reads and writes operators in Postgres.
type OperatorStore struct {
	Pool *pgxpool.Pool
}

// FindByUsername returns an active operator with its password hash.
func (s OperatorStore) FindByUsername(ctx context.Context, username string) (Credential, error) {
	var row Credential
	err := s.Pool.QueryRow(ctx, `
		SELECT id, username, name, role, active, created_at, password_hash
		FROM operators WHERE username = $1 AND active`, username).
		Scan(&row.ID, &row.Username, &row.Name, &row.Role, &row.Active, &row.CreatedAt, &row.PasswordHash)
	return row, err
}

// FindByID returns an active operator by id.
func (s OperatorStore) FindByID(ctx context.Context, id uuid.UUID) (Operator, error) {
	var op Operator
	err := s.Pool.QueryRow(ctx, `
		SELECT id, username, name, role, active, created_at
		FROM operators WHERE id = $1 AND active`, id).
		Scan(&op.ID, &op.Username, &op.Name, &op.Role, &op.Active, &op.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Operator{}, common.NewAppError("NOT_FOUND", "operator not found", http.StatusNotFound, err)
		}
		return Operator{}, err
	}
	return op, nil
}

// Create registers a new operator with a hashed password.
func (s OperatorStore) Create(ctx context.Context, username, name, role, passwordHash string) (Operator, error) {
	var op Operator
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO operators (username, name, role, password_hash, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, username, name, role, active, created_at`,
		username, name, role, passwordHash).
		Scan(&op.ID, &op.Username, &op.Name, &op.Role, &op.Active, &op.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Operator{}, common.NewAppError("USERNAME_TAKEN", "username is already registered", http.StatusConflict, err)
		}
		return Operator{}, err
	}
	return op, nil
}

// Directory is the operator lookup surface the Service depends on.
type Directory interface {
	FindByUsername(ctx context.Context, username string) (Credential, error)
	FindByID(ctx context.Context, id uuid.UUID) (Operator, error)
	Create(ctx context.Context, username, name, role, passwordHash string) (Operator, error)
}

// Service verifies operator credentials and issues shift tokens.
type Service struct {
	store     Directory
	secret    []byte
	accessTTL time.Duration
	issuer    string
	now       func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store     Directory
	Secret    string
	AccessTTL time.Duration
	Issuer    string
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: operator store is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "pos-api"
	}
	return &Service{
		store:     cfg.Store,
		secret:    []byte(secret),
		accessTTL: ttl,
		issuer:    issuer,
		now:       time.Now,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// LoginResult carries the issued token and the operator it names.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Operator  Operator  `json:"operator"`
}

// Login verifies credentials and issues a shift token.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, invalidCredentials(nil)
	}
	row, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return LoginResult{}, invalidCredentials(err)
	}
	ok, err := argon2id.ComparePasswordAndHash(password, row.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, invalidCredentials(err)
	}

	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	token, err := jwt.NewBuilder().
		Subject(row.ID.String()).
		Issuer(s.issuer).
		IssuedAt(now).
		Expiration(expiresAt).
		Claim("role", row.Role).
		Build()
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: build token: %w", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.secret))
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return LoginResult{Token: string(signed), ExpiresAt: expiresAt, Operator: row.Operator}, nil
}

// Claims are the verified contents of a shift token.
type Claims struct {
	OperatorID string
	Role       string
}

// ParseToken verifies a shift token and returns its claims.
func (s *Service) ParseToken(raw string) (Claims, error) {
	tok, err := jwt.ParseString(strings.TrimSpace(raw),
		jwt.WithKey(jwa.HS256, s.secret),
		jwt.WithIssuer(s.issuer),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid or expired token", http.StatusUnauthorized, err)
	}
	claims := Claims{OperatorID: tok.Subject()}
	if role, ok := tok.Get("role"); ok {
		if str, ok := role.(string); ok {
			claims.Role = str
		}
	}
	return claims, nil
}

// RegisterOperator creates an operator account.
func (s *Service) RegisterOperator(ctx context.Context, username, name, role, password string) (Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Operator{}, common.NewAppError("VALIDATION", "username is required", http.StatusBadRequest, nil)
	}
	if len(password) < 8 {
		return Operator{}, common.NewAppError("VALIDATION", "password must be at least 8 characters", http.StatusBadRequest, nil)
	}
	if role != "operator" && role != "admin" {
		return Operator{}, common.NewAppError("VALIDATION", "role must be operator or admin", http.StatusBadRequest, nil)
	}
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return Operator{}, fmt.Errorf("auth: hash password: %w", err)
	}
	return s.store.Create(ctx, username, strings.TrimSpace(name), role, hash)
}

// Me returns the operator named by a token subject.
func (s *Service) Me(ctx context.Context, operatorID string) (Operator, error) {
	id, err := uuid.Parse(operatorID)
	if err != nil {
		return Operator{}, common.NewAppError("UNAUTHORIZED", "invalid operator id", http.StatusUnauthorized, err)
	}
	return s.store.FindByID(ctx, id)
}

func invalidCredentials(err error) error {
	return common.NewAppError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized, err)
}
