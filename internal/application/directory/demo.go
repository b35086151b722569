package directory

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/erp-offline/internal/domain"
	"github.com/jhoicas/erp-offline/internal/domain/entity"
)

// Empresa de demostración que se registra en un directorio vacío.
const (
	DemoIdentifier = "alfalah"
	DemoPassword   = "123456"
)

// DemoCompany perfil y suscripción (un año, todos los módulos) de la empresa de demostración.
func DemoCompany(now time.Time) (entity.Company, entity.Subscription) {
	company := entity.Company{
		Identifier:     DemoIdentifier,
		Name:           "Al Falah Trading",
		NameAr:         "الفلاح للتجارة",
		PrimaryColor:   "#0f766e",
		SecondaryColor: "#f59e0b",
		Email:          "admin@alfalah.example",
		TaxID:          "900123456-7",
		IsActive:       true,
	}
	sub := entity.Subscription{
		Status:    entity.SubscriptionActive,
		Plan:      "enterprise",
		StartDate: now,
		EndDate:   now.AddDate(1, 0, 0),
		Features: []string{
			entity.FeatureAccounting, entity.FeatureInventory, entity.FeatureHR,
			entity.FeatureTreasury, entity.FeatureProduction, entity.FeatureShipping,
			entity.FeatureSales,
		},
		Limits: map[string]int{
			entity.LimitUsers:      25,
			entity.LimitEmployees:  200,
			entity.LimitWarehouses: 10,
		},
	}
	return company, sub
}

// EnsureDemo registra la empresa de demostración si el identificador no existe.
// Devuelve true si la creó.
func (d *Directory) EnsureDemo(ctx context.Context, now time.Time) (bool, error) {
	_, err := d.findByIdentifier(ctx, DemoIdentifier)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrInvalidIdentifier) {
		return false, err
	}
	company, sub := DemoCompany(now)
	if _, err := d.RegisterCompany(ctx, company, DemoPassword, sub); err != nil {
		return false, err
	}
	return true, nil
}
