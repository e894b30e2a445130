package auth

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/learnflow/backend/core"
	"github.com/learnflow/backend/core/account"
)

func newTestTokenService(key string) TokenService {
	return NewTokenService(&core.Config{
		AppName:   "LearnFlow",
		SecretKey: []byte(key),
		Server:    core.ServerConfig{JWTExpirationDelta: 24 * time.Hour},
	})
}

func TestTokenService_roundTrip(t *testing.T) {
	svc := newTestTokenService("secret")

	token, err := svc.Issue(42, account.RoleTutor)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.Subject != "42" {
		t.Errorf("subject = %s; want 42", claims.Subject)
	}
	if id, _ := claims.AccountID(); id != 42 {
		t.Errorf("AccountID() = %d; want 42", id)
	}
	if claims.Role != account.RoleTutor {
		t.Errorf("role = %s; want TUTOR", claims.Role)
	}
	if claims.Issuer != "LearnFlow" {
		t.Errorf("issuer = %s; want LearnFlow", claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("jti not set")
	}
}

func TestTokenService_Validate(t *testing.T) {
	svc := newTestTokenService("secret")

	valid, err := svc.Issue(1, account.RoleStudent)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// token signed yesterday with a 24h expiry
	nowFunc = func() time.Time { return time.Now().Add(-25 * time.Hour) }
	expired, err := svc.Issue(1, account.RoleStudent)
	nowFunc = time.Now // reset
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// same claims, different key
	forged, err := newTestTokenService("not-the-secret").Issue(1, account.RoleStudent)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// graft a signature made with another key onto the valid token
	tampered := valid[:strings.LastIndex(valid, ".")] + forged[strings.LastIndex(forged, "."):]

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "valid", token: valid},
		{name: "empty", token: "", wantErr: ErrTokenMalformed},
		{name: "garbage", token: "lmaooolol", wantErr: ErrTokenMalformed},
		{name: "expired", token: expired, wantErr: ErrTokenExpired},
		{name: "wrong key", token: forged, wantErr: ErrTokenSignature},
		{name: "tampered signature", token: tampered, wantErr: ErrTokenSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Validate(tt.token); err != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenService_Validate_badClaims(t *testing.T) {
	svc := newTestTokenService("secret")

	sign := func(claims Claims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		ss, err := token.SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		return ss
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		claims Claims
	}{
		{
			name: "unknown role",
			claims: Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: exp},
				Role:             account.Role("SUPERUSER"),
			},
		},
		{
			name: "non-numeric subject",
			claims: Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "lol", ExpiresAt: exp},
				Role:             account.RoleStudent,
			},
		},
		{
			name: "missing subject",
			claims: Claims{
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp},
				Role:             account.RoleAdmin,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Validate(sign(tt.claims)); err != ErrTokenMalformed {
				t.Errorf("Validate() error = %v, want ErrTokenMalformed", err)
			}
		})
	}
}

func TestTokenService_none_alg_rejected(t *testing.T) {
	svc := newTestTokenService("secret")

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(1),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: account.RoleAdmin,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	ss, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	if _, err = svc.Validate(ss); err == nil {
		t.Error("Validate() accepted an unsigned token")
	}
}
