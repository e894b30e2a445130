package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/learnflow/backend/core"
	"github.com/learnflow/backend/core/account"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// Claims is the signed assertion carried by a bearer token: subject id, role, expiry.
// The jti is reserved for a future revocation denylist; nothing reads it today.
type Claims struct {
	jwt.RegisteredClaims
	Role account.Role `json:"role"`
}

// AccountID parses the subject claim.
func (c Claims) AccountID() (int, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil {
		return 0, ErrTokenMalformed
	}
	return id, nil
}

type (
	// TokenService issues and validates the platform's bearer tokens.
	// Stateless: once issued, a token is valid until its expiry elapses.
	TokenService interface {
		Issue(subjectID int, role account.Role) (string, error)
		Validate(tokenStr string) (*Claims, error)
	}

	tokenService struct {
		secretKey   []byte
		issuer      string
		expiryDelta time.Duration
		parser      *jwt.Parser
	}
)

var _ TokenService = (*tokenService)(nil)

func NewTokenService(conf *core.Config) TokenService {
	return &tokenService{
		secretKey:   conf.SecretKey,
		issuer:      conf.AppName,
		expiryDelta: conf.Server.JWTExpirationDelta,
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (svc *tokenService) Issue(subjectID int, role account.Role) (string, error) {
	now := nowFunc()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    svc.issuer,
			Subject:   strconv.Itoa(subjectID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(svc.expiryDelta)),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(svc.secretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Validate distinguishes malformed, forged and expired tokens so the API layer can
// answer precisely; the work done does not depend on which failure occurred.
func (svc *tokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := svc.parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return svc.secretKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenMalformed
	}
	if _, err = claims.AccountID(); err != nil {
		return nil, ErrTokenMalformed
	}
	switch claims.Role {
	case account.RoleStudent, account.RoleTutor, account.RoleAdmin:
	default:
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
