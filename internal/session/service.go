package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

const issuer = "payroll"

type claims struct {
	Role        registry.Role `json:"role"`
	DisplayName string        `json:"name"`
	ContentHash string        `json:"cid"`
	jwt.RegisteredClaims
}

// Service issues and resolves session tokens.
type Service struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a session service signing with secret.
func NewService(store Store, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Create persists s under a fresh id and returns a signed token for it.
func (svc *Service) Create(ctx context.Context, s Session) (Token, Session, error) {
	now := svc.now().UTC()
	s.ID = uuid.NewString()
	s.IssuedAt = now
	s.ExpiresAt = now.Add(svc.ttl)

	if err := svc.store.Save(ctx, s, svc.ttl); err != nil {
		return Token{}, Session{}, fmt.Errorf("save session: %w", err)
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Role:        s.Role,
		DisplayName: s.DisplayName,
		ContentHash: s.ContentHash,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.WalletAddress.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	})
	signed, err := tok.SignedString(svc.secret)
	if err != nil {
		return Token{}, Session{}, fmt.Errorf("sign session: %w", err)
	}
	return Token{Value: signed, ExpiresAt: s.ExpiresAt}, s, nil
}

// Resolve verifies the token and loads the live session behind it.
func (svc *Service) Resolve(ctx context.Context, token string) (Session, error) {
	c, err := svc.parse(token)
	if err != nil {
		return Session{}, err
	}
	s, err := svc.store.Load(ctx, c.ID)
	if err != nil {
		return Session{}, err
	}
	if !s.WalletAddress.Equal(wallet.Address(c.Subject)) || s.Role != c.Role {
		return Session{}, ErrInvalidToken
	}
	return s, nil
}

// Destroy removes the session behind token. Unknown sessions are not an error.
func (svc *Service) Destroy(ctx context.Context, token string) error {
	c, err := svc.parse(token)
	if err != nil {
		return err
	}
	if err := svc.store.Delete(ctx, c.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (svc *Service) parse(token string) (*claims, error) {
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return svc.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(svc.now),
	)
	if err != nil || !parsed.Valid || c.ID == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}
