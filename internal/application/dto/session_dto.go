package dto

import (
	"time"

	"github.com/jhoicas/erp-offline/internal/domain/entity"
)

// VerifyIdentifierRequest body para POST /api/session/verify.
type VerifyIdentifierRequest struct {
	Identifier string `json:"identifier"`
}

// SessionLoginRequest body para POST /api/session/login.
type SessionLoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// ResultResponse resultado de una acción iniciada por el usuario (verify/login).
type ResultResponse struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	Company     *entity.Company `json:"company,omitempty"`
	AccessToken string          `json:"access_token,omitempty"` // solo en login exitoso
}

// SessionStatusResponse estado de la sesión de empresa para GET /api/session/status.
type SessionStatusResponse struct {
	State             string               `json:"state"`
	Token             string               `json:"token"` // absent, valid, needs_refresh, expired
	AccessToken       string               `json:"access_token,omitempty"`
	Online            bool                 `json:"online"`
	ExpiresAt         *time.Time           `json:"expires_at,omitempty"`
	Company           *entity.Company      `json:"company,omitempty"`
	Subscription      *entity.Subscription `json:"subscription,omitempty"`
	SubscriptionValid bool                 `json:"subscription_valid"`
	DaysRemaining     int                  `json:"days_remaining"`
}
