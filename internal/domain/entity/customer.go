package entity

import "github.com/shopspring/decimal"

// Customer cliente (facturación y cuentas por cobrar).
type Customer struct {
	ID          int64           `json:"id,omitempty"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	TaxID       string          `json:"taxId,omitempty"`
	Email       string          `json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Address     string          `json:"address,omitempty"`
	AccountCode string          `json:"accountCode,omitempty"` // cuenta contable asociada
	CreditLimit decimal.Decimal `json:"creditLimit"`
}

// Supplier proveedor (compras y cuentas por pagar).
type Supplier struct {
	ID          int64  `json:"id,omitempty"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	TaxID       string `json:"taxId,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	AccountCode string `json:"accountCode,omitempty"`
}
