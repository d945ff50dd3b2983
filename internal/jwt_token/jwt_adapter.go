package jwttoken

import (
	authmw "ekyc/pkg/platform/middleware/auth"
)

// JWTServiceAdapter exposes JWTService as an authmw.JWTValidator, keeping the
// token library out of the middleware package.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

// ValidateToken returns the subject as the institution principal together
// with the jti and expiry the revocation list keys on.
func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	out := &authmw.JWTClaims{Principal: claims.Subject, JTI: claims.ID}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
