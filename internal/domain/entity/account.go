package entity

import "github.com/shopspring/decimal"

// Tipos de cuenta del plan de cuentas.
const (
	AccountAsset     = "asset"
	AccountLiability = "liability"
	AccountEquity    = "equity"
	AccountRevenue   = "revenue"
	AccountExpense   = "expense"
	AccountCost      = "cost"
)

// Account es una cuenta del plan de cuentas (PUC). La clave primaria es Code;
// ParentCode vacío indica una clase (raíz).
type Account struct {
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	ParentCode     string          `json:"parentCode,omitempty"`
	Level          int             `json:"level"`
	IsGroup        bool            `json:"isGroup"` // agrupa subcuentas, no recibe movimientos
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}
