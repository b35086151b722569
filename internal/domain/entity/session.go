package entity

import "time"

// SessionToken par opaco de tokens con vencimiento absoluto (epoch en milisegundos).
type SessionToken struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// ExpiresAtTime devuelve el vencimiento como time.Time.
func (t SessionToken) ExpiresAtTime() time.Time {
	return time.UnixMilli(t.ExpiresAt)
}

// TokenPair es lo que emite el directorio al hacer login o renovar la sesión.
// ExpiresIn está en segundos.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginResult respuesta completa del directorio a un login exitoso.
type LoginResult struct {
	Company      Company       `json:"company"`
	Subscription *Subscription `json:"subscription,omitempty"` // nil si la empresa no tiene suscripción
	Tokens       TokenPair     `json:"tokens"`
}
