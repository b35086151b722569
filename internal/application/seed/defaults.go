package seed

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-offline/internal/domain/entity"
	"github.com/jhoicas/erp-offline/internal/domain/schema"
	"github.com/jhoicas/erp-offline/internal/infrastructure/storage"
)

// DefaultDatasets datos de arranque: bodega principal, categorías de producto, plan de
// cuentas PUC (clases 1 a 6) y departamentos.
func DefaultDatasets(now time.Time) []Dataset {
	return []Dataset{
		{Collection: schema.Warehouses, Records: records(
			entity.Warehouse{Code: "BOD-01", Name: "Bodega principal", IsDefault: true, IsActive: true, CreatedAt: now},
		)},
		{Collection: schema.Categories, Records: records(
			entity.Category{Name: "General", Description: "Productos sin clasificar", IsActive: true, CreatedAt: now},
			entity.Category{Name: "Materias primas", IsActive: true, CreatedAt: now},
			entity.Category{Name: "Producto terminado", IsActive: true, CreatedAt: now},
			entity.Category{Name: "Servicios", IsActive: true, CreatedAt: now},
		)},
		{Collection: schema.Accounts, Records: chartOfAccounts()},
		{Collection: schema.Departments, Records: records(
			entity.Department{Code: "ADM", Name: "Administración", IsActive: true},
			entity.Department{Code: "CON", Name: "Contabilidad", IsActive: true},
			entity.Department{Code: "VEN", Name: "Ventas", IsActive: true},
			entity.Department{Code: "BOD", Name: "Bodega y logística", IsActive: true},
			entity.Department{Code: "PRO", Name: "Producción", IsActive: true},
		)},
	}
}

func chartOfAccounts() []storage.Record {
	acc := func(code, name, typ, parent string, group bool) entity.Account {
		level := 1
		switch {
		case len(code) == 2:
			level = 2
		case len(code) >= 4:
			level = 3
		}
		return entity.Account{
			Code: code, Name: name, Type: typ, ParentCode: parent,
			Level: level, IsGroup: group, OpeningBalance: decimal.Zero,
		}
	}
	return records(
		acc("1", "Activo", entity.AccountAsset, "", true),
		acc("11", "Disponible", entity.AccountAsset, "1", true),
		acc("1105", "Caja", entity.AccountAsset, "11", false),
		acc("1110", "Bancos", entity.AccountAsset, "11", false),
		acc("13", "Deudores", entity.AccountAsset, "1", true),
		acc("1305", "Clientes", entity.AccountAsset, "13", false),
		acc("14", "Inventarios", entity.AccountAsset, "1", true),
		acc("1435", "Mercancías no fabricadas por la empresa", entity.AccountAsset, "14", false),
		acc("15", "Propiedades, planta y equipo", entity.AccountAsset, "1", true),

		acc("2", "Pasivo", entity.AccountLiability, "", true),
		acc("22", "Proveedores", entity.AccountLiability, "2", true),
		acc("2205", "Nacionales", entity.AccountLiability, "22", false),
		acc("24", "Impuestos, gravámenes y tasas", entity.AccountLiability, "2", true),
		acc("2408", "Impuesto sobre las ventas por pagar", entity.AccountLiability, "24", false),
		acc("25", "Obligaciones laborales", entity.AccountLiability, "2", true),

		acc("3", "Patrimonio", entity.AccountEquity, "", true),
		acc("31", "Capital social", entity.AccountEquity, "3", true),
		acc("3105", "Capital suscrito y pagado", entity.AccountEquity, "31", false),

		acc("4", "Ingresos", entity.AccountRevenue, "", true),
		acc("41", "Operacionales", entity.AccountRevenue, "4", true),
		acc("4135", "Comercio al por mayor y al por menor", entity.AccountRevenue, "41", false),

		acc("5", "Gastos", entity.AccountExpense, "", true),
		acc("51", "Operacionales de administración", entity.AccountExpense, "5", true),
		acc("5105", "Gastos de personal", entity.AccountExpense, "51", false),

		acc("6", "Costos de ventas", entity.AccountCost, "", true),
		acc("61", "Costo de ventas y de prestación de servicios", entity.AccountCost, "6", true),
		acc("6135", "Comercio al por mayor y al por menor", entity.AccountCost, "61", false),
	)
}

// records convierte entidades a la forma de registro del motor.
func records(vs ...any) []storage.Record {
	out := make([]storage.Record, 0, len(vs))
	for _, v := range vs {
		b, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		var rec storage.Record
		if err := json.Unmarshal(b, &rec); err != nil {
			panic(err)
		}
		out = append(out, rec)
	}
	return out
}
