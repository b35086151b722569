package entity

import (
	"math"
	"slices"
	"time"
)

// Estados de suscripción.
const (
	SubscriptionActive    = "active"
	SubscriptionTrial     = "trial"
	SubscriptionExpired   = "expired"
	SubscriptionCancelled = "cancelled"
)

// Features (módulos SaaS) que puede habilitar una suscripción.
const (
	FeatureAccounting = "accounting"
	FeatureInventory  = "inventory"
	FeatureHR         = "hr"
	FeatureTreasury   = "treasury"
	FeatureProduction = "production"
	FeatureShipping   = "shipping"
	FeatureSales      = "sales"
)

// Tipos de límite configurables en una suscripción.
const (
	LimitUsers      = "users"
	LimitEmployees  = "employees"
	LimitWarehouses = "warehouses"
	LimitProducts   = "products"
	LimitInvoices   = "invoices"
)

// Subscription es el derecho de uso de una empresa (1:1 con Company).
// Un límite ausente en Limits significa "sin límite", no cero.
type Subscription struct {
	CompanyID string         `json:"companyId,omitempty"`
	Status    string         `json:"status"`
	Plan      string         `json:"plan"`
	StartDate time.Time      `json:"startDate"`
	EndDate   time.Time      `json:"endDate"`
	Features  []string       `json:"features"`
	Limits    map[string]int `json:"limits,omitempty"`
}

// IsValid informa si la suscripción está activa y no ha vencido en now.
func (s *Subscription) IsValid(now time.Time) bool {
	return s.Status == SubscriptionActive && s.EndDate.After(now)
}

// DaysRemaining devuelve ceil((EndDate - now) / día), nunca negativo.
func (s *Subscription) DaysRemaining(now time.Time) int {
	left := s.EndDate.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

// HasFeature informa si la suscripción incluye el feature.
func (s *Subscription) HasFeature(name string) bool {
	return slices.Contains(s.Features, name)
}

// CheckLimit devuelve true si current todavía está por debajo del límite de kind.
// Sin límite configurado para kind se considera ilimitado.
func (s *Subscription) CheckLimit(kind string, current int) bool {
	limit, ok := s.Limits[kind]
	if !ok {
		return true
	}
	return limit > current
}
