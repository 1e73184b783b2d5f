package admin

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

// Service implements admin authentication and account management. Credentials
// are bcrypt-hashed; sessions are signed, expiring JWTs whose subject is the
// admin id.
type Service struct {
	admins   Repository
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// NewService creates an admin Service signing tokens with secret.
func NewService(admins Repository, secret []byte, tokenTTL time.Duration) *Service {
	return &Service{
		admins:   admins,
		secret:   secret,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Login verifies the credentials and, on success, records the login time and
// returns the account together with a signed token. Unknown username, wrong
// password, and deactivated account are deliberately indistinguishable to
// the caller except for the deactivated case, which the original surfaced.
func (s *Service) Login(ctx context.Context, username, password string) (*Admin, string, error) {
	if username == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	a, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", errors.Wrap(err, "get admin")
	}

	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !a.Active {
		return nil, "", ErrDeactivated
	}

	now := s.now()
	if err := s.admins.TouchLastLogin(ctx, a.ID, now); err != nil {
		return nil, "", errors.Wrap(err, "touch last login")
	}
	a.LastLogin = &now

	token, err := s.issueToken(a.ID, now)
	if err != nil {
		return nil, "", errors.Wrap(err, "issue token")
	}
	return a, token, nil
}

func (s *Service) issueToken(id bson.ObjectID, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   id.Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Authenticate resolves a bearer token back to an active admin account. The
// admin is re-loaded on every call so a deactivation takes effect before the
// token expires.
func (s *Service) Authenticate(ctx context.Context, token string) (*Admin, error) {
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	id, err := bson.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, errors.Wrap(err, "get admin")
	}
	if !a.Active {
		return nil, ErrInvalidToken
	}
	return a, nil
}

// CreateRequest holds the input for creating an admin account.
type CreateRequest struct {
	Username string
	Email    string
	Password string
	Name     string
	Role     Role
}

// Create registers a new admin account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Admin, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, errors.New("username, email, password and name are required")
	}
	role := req.Role
	if role == "" {
		role = RoleAdmin
	}
	if !ValidRole(role) {
		return nil, errors.Errorf("unknown role %q", role)
	}

	exists, err := s.admins.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return nil, errors.Wrap(err, "check existing admin")
	}
	if exists {
		return nil, ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	a := &Admin{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         role,
		Active:       true,
	}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, errors.Wrap(err, "create admin")
	}
	return a, nil
}

// List returns every admin account.
func (s *Service) List(ctx context.Context) ([]Admin, error) {
	return s.admins.List(ctx)
}

// Update applies a partial update to an admin account.
func (s *Service) Update(ctx context.Context, id bson.ObjectID, u Update) (*Admin, error) {
	if u.Role != nil && !ValidRole(*u.Role) {
		return nil, errors.Errorf("unknown role %q", *u.Role)
	}
	return s.admins.Update(ctx, id, u)
}

// Delete removes an admin account. An admin cannot delete itself.
func (s *Service) Delete(ctx context.Context, caller *Admin, id bson.ObjectID) error {
	if caller != nil && caller.ID == id {
		return ErrSelfDeletion
	}
	return s.admins.Delete(ctx, id)
}
