package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ian1hx/equiploan-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	SubjectID uuid.UUID
	Role      enums.ActorRole
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients. Identity
// provisioning lives in another system; this service only verifies tokens.
type AccessTokenClaims struct {
	SubjectID uuid.UUID       `json:"subject_id"`
	Role      enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
