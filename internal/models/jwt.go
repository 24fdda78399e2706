package models

// JWTClaims represents the claims extracted from a verified bearer token.
// The subject is the owner id issued by the external auth service.
type JWTClaims struct {
	Sub string `json:"sub"` // Subject (owner ID from the auth service)
	Exp int64  `json:"exp"` // Expiration time
	Iat int64  `json:"iat"` // Issued at
	Iss string `json:"iss"` // Issuer
	Aud string `json:"aud"` // Audience
}
