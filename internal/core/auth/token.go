package auth

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utilityops/meter-api/internal/core/domain"
)

// AlgorithmHS256 is the only signing algorithm the codec accepts.
const AlgorithmHS256 = "HS256"

const defaultTokenTTL = 60 * time.Minute

// Token failure kinds. They are for diagnostics only; the authenticator
// collapses all of them into domain.ErrInvalidCredentials.
var (
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenExpired      = errors.New("token expired")
)

// TokenError wraps one of the token failure kinds together with the
// underlying parser error.
type TokenError struct {
	Kind error
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TokenError) Is(target error) bool { return target == e.Kind }

func (e *TokenError) Unwrap() error { return e.Err }

// TokenConfig is the immutable signing configuration.
type TokenConfig struct {
	Secret    []byte
	TTL       time.Duration
	Algorithm string
}

// Claims are the trusted contents of a validated token.
type Claims struct {
	Subject   string
	Role      domain.Role
	ExpiresAt time.Time
}

// sessionClaims shadows the registered exp claim with expiry so the
// fractional part of the expiry instant survives the round trip.
type sessionClaims struct {
	Role   string  `json:"role"`
	Expiry *expiry `json:"exp,omitempty"`
	jwt.RegisteredClaims
}

// expiry is a NumericDate that keeps nanoseconds as a decimal fraction.
type expiry struct {
	time.Time
}

func (e expiry) MarshalJSON() ([]byte, error) {
	sec, nsec := e.Unix(), e.Nanosecond()
	if nsec == 0 {
		return []byte(strconv.FormatInt(sec, 10)), nil
	}
	frac := strings.TrimRight(fmt.Sprintf("%09d", nsec), "0")
	return []byte(strconv.FormatInt(sec, 10) + "." + frac), nil
}

func (e *expiry) UnmarshalJSON(b []byte) error {
	s := string(b)
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("exp: %w", err)
		}
		whole, frac := math.Modf(f)
		e.Time = time.Unix(int64(whole), int64(frac*1e9)).UTC()
		return nil
	}

	whole, frac, _ := strings.Cut(s, ".")
	sec, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return fmt.Errorf("exp: %w", err)
	}
	var nsec uint64
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		nsec, err = strconv.ParseUint(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
		if err != nil {
			return fmt.Errorf("exp: %w", err)
		}
	}
	e.Time = time.Unix(sec, int64(nsec)).UTC()
	return nil
}

// TokenCodec issues and validates HS256 session tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec builds a codec from cfg. It rejects an empty secret and any
// algorithm other than HS256.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token codec: empty secret")
	}
	if cfg.Algorithm != "" && cfg.Algorithm != AlgorithmHS256 {
		return nil, fmt.Errorf("token codec: unsupported algorithm %q", cfg.Algorithm)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	return &TokenCodec{secret: secret, ttl: ttl, now: time.Now}, nil
}

// WithClock returns a copy of the codec that reads time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// TTL returns the default token lifetime.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for subject with the default TTL.
func (c *TokenCodec) Issue(subject string, role domain.Role) (string, time.Time, error) {
	return c.IssueWithTTL(subject, role, c.ttl)
}

// IssueWithTTL signs a token for subject that expires exactly ttl from now.
func (c *TokenCodec) IssueWithTTL(subject string, role domain.Role, ttl time.Duration) (string, time.Time, error) {
	exp := c.now().UTC().Add(ttl)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Role:             string(role),
		Expiry:           &expiry{Time: exp},
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	})
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Validate verifies the signature first, then the expiry. Only when both pass
// are subject and role returned.
func (c *TokenCodec) Validate(token string) (Claims, error) {
	var claims sessionClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{AlgorithmHS256}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, &TokenError{Kind: ErrTokenBadSignature, Err: err}
		default:
			return Claims{}, &TokenError{Kind: ErrTokenMalformed, Err: err}
		}
	}

	if claims.Expiry == nil || claims.Subject == "" {
		return Claims{}, &TokenError{Kind: ErrTokenMalformed}
	}
	exp := claims.Expiry.Time
	if c.now().After(exp) {
		return Claims{}, &TokenError{Kind: ErrTokenExpired}
	}

	role := domain.Role(claims.Role)
	if !role.Valid() {
		return Claims{}, &TokenError{Kind: ErrTokenMalformed}
	}

	return Claims{Subject: claims.Subject, Role: role, ExpiresAt: exp}, nil
}
