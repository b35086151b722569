package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del inventario. CategoryID y WarehouseID
// referencian a Category y Warehouse (bodega por defecto).
type Product struct {
	ID          int64           `json:"id,omitempty"`
	SKU         string          `json:"sku"`
	Barcode     string          `json:"barcode,omitempty"`
	Name        string          `json:"name"`
	CategoryID  int64           `json:"categoryId,omitempty"`
	WarehouseID int64           `json:"warehouseId,omitempty"`
	UnitMeasure string          `json:"unitMeasure,omitempty"`
	Price       decimal.Decimal `json:"price"` // precio de venta
	Cost        decimal.Decimal `json:"cost"`  // costo promedio
	TaxRate     decimal.Decimal `json:"taxRate"`
	Quantity    decimal.Decimal `json:"quantity"`
	MinStock    decimal.Decimal `json:"minStock"`
	CreatedAt   time.Time       `json:"createdAt"`
}
