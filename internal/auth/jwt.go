package auth

import (
	"errors"
	"time"

	"treelof-api/internal/config"
	"treelof-api/internal/timeutil"

	"github.com/golang-jwt/jwt/v5"
)

const serviceTokenType = "service"

// ServiceClaims identify a backend allowed to propose revisions and see
// owner details without coming from an allowed browser origin.
type ServiceClaims struct {
	Service string `json:"service"`
	Type    string `json:"type"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{
		secret: []byte(cfg.Trust.ServiceSecret),
		issuer: cfg.Trust.Issuer,
		ttl:    time.Duration(cfg.Trust.TokenTTLHours) * time.Hour,
	}
}

// GenerateServiceToken creates a token for the named service. A zero TTL
// yields a token without expiry.
func (j *JWTManager) GenerateServiceToken(service string) (string, error) {
	if service == "" {
		return "", errors.New("service name is required")
	}
	now := timeutil.Now()

	claims := &ServiceClaims{
		Service: service,
		Type:    serviceTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  service,
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   j.issuer,
		},
	}
	if j.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(j.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateServiceToken verifies a service token and returns the claims
func (j *JWTManager) ValidateServiceToken(tokenString string) (*ServiceClaims, error) {
	if len(j.secret) == 0 {
		return nil, errors.New("service tokens are disabled")
	}
	claims := &ServiceClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return j.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Type != serviceTokenType {
		return nil, errors.New("invalid token type")
	}
	if j.issuer != "" && claims.Issuer != j.issuer {
		return nil, errors.New("invalid token issuer")
	}

	return claims, nil
}
