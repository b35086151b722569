package schema

import "github.com/jhoicas/erp-offline/internal/domain/entity"

// Version actual del esquema de la aplicación. Subirla al agregar colecciones o índices.
const Version = 3

// Nombres de colección.
const (
	Warehouses       = "warehouses"
	Categories       = "categories"
	Accounts         = "accounts"
	Departments      = "departments"
	Employees        = "employees"
	Products         = "products"
	Customers        = "customers"
	Suppliers        = "suppliers"
	Invoices         = "invoices"
	JournalEntries   = "journal_entries"
	StockMovements   = "stock_movements"
	TreasuryAccounts = "treasury_accounts"
	ProductionOrders = "production_orders"
	Shipments        = "shipments"

	DirectoryCompanies     = "directory_companies"
	DirectorySubscriptions = "directory_subscriptions"
	DirectoryRevokedTokens = "directory_revoked_tokens"
)

var defaultRegistry = MustNew(Version,
	CollectionSchema{
		Name: Warehouses, PrimaryKey: "id", AutoIncrement: true,
		Feature: entity.FeatureInventory, LimitKind: entity.LimitWarehouses,
		Indices: []Index{
			{Name: "code", Field: "code", Unique: true},
			{Name: "name", Field: "name"},
		},
	},
	CollectionSchema{
		Name: Categories, PrimaryKey: "id", AutoIncrement: true,
		Feature: entity.FeatureInventory,
		Indices: []Index{
			{Name: "name", Field: "name", Unique: true},
			{Name: "parentId", Field: "parentId"},
		},
	},
	CollectionSchema{
		Name: Accounts, PrimaryKey: "code",
		Feature: entity.FeatureAccounting,
		Indices: []Index{
			{Name: "parentCode", Field: "parentCode"},
			{Name: "type", Field: "type"},
			{Name: "name", Field: "name"},
		},
	},
	CollectionSchema{
		Name: Departments, PrimaryKey: "id", AutoIncrement: true,
		Feature: entity.FeatureHR,
		Indices: []Index{
			{Name: "code", Field: "code", Unique: true},
		},
	},
	CollectionSchema{
		Name: Employees, PrimaryKey: "id", AutoIncrement: true,
		Feature: entity.FeatureHR, LimitKind: entity.LimitEmployees,
		Indices: []Index{
			{Name: "employeeNumber", Field: "employeeNumber", Unique: true},
			{Name: "nationalId", Field: "nationalId", Unique: true},
			{Name: "departmentId", Field: "departmentId"},
			{Name: "status", Field: "status"},
		},
	},
	CollectionSchema{
		Name: Products, PrimaryKey: "id", AutoIncrement: true,
		Feature: entity.FeatureInventory, LimitKind: entity.LimitProducts,
		Indices: []Index{
			{Name: "sku", Field: "sku", Unique: true},
			{Name: "barcode", Field: "barcode", Unique: true},
			{Name: "categoryId", Field: "categoryId"},
			{Name: "warehouseId", Field: "warehouseId"},
		},
	},
	CollectionSchema{
		Name: Customers, PrimaryKey: "id", AutoIncrement: true,
		Feature: entity.FeatureSales,
		Indices: []Index{
			{Name: "code", Field: "code", Unique: true},
			{Name: "taxId", Field: "taxId"},
		},
	},
	CollectionSchema{
		Name: Suppliers, PrimaryKey: "id", AutoIncrement: true,
		Indices: []Index{
			{Name: "code", Field: "code", Unique: true},
			{Name: "taxId", Field: "taxId"},
		},
	},
	CollectionSchema{
		Name: Invoices, PrimaryKey: "id", AutoIncrement: true,
		Feature: entity.FeatureSales, LimitKind: entity.LimitInvoices,
		Indices: []Index{
			{Name: "number", Field: "number", Unique: true},
			{Name: "customerId", Field: "customerId"},
			{Name: "status", Field: "status"},
			{Name: "date", Field: "date"},
		},
	},
	CollectionSchema{
		Name: JournalEntries, PrimaryKey: "id", AutoIncrement: true,
		Feature: entity.FeatureAccounting,
		Indices: []Index{
			{Name: "number", Field: "number", Unique: true},
			{Name: "date", Field: "date"},
			{Name: "accountCode", Field: "accountCode"},
		},
	},
	CollectionSchema{
		Name: StockMovements, PrimaryKey: "id", AutoIncrement: true,
		Feature: entity.FeatureInventory,
		Indices: []Index{
			{Name: "productId", Field: "productId"},
			{Name: "warehouseId", Field: "warehouseId"},
			{Name: "type", Field: "type"},
		},
	},
	CollectionSchema{
		Name: TreasuryAccounts, PrimaryKey: "id", AutoIncrement: true,
		Feature: entity.FeatureTreasury,
		Indices: []Index{
			{Name: "code", Field: "code", Unique: true},
			{Name: "type", Field: "type"},
		},
	},
	CollectionSchema{
		Name: ProductionOrders, PrimaryKey: "id", AutoIncrement: true,
		Feature: entity.FeatureProduction,
		Indices: []Index{
			{Name: "number", Field: "number", Unique: true},
			{Name: "productId", Field: "productId"},
			{Name: "status", Field: "status"},
		},
	},
	CollectionSchema{
		Name: Shipments, PrimaryKey: "id", AutoIncrement: true,
		Feature: entity.FeatureShipping,
		Indices: []Index{
			{Name: "trackingNumber", Field: "trackingNumber", Unique: true},
			{Name: "invoiceId", Field: "invoiceId"},
			{Name: "status", Field: "status"},
		},
	},
	CollectionSchema{
		Name: DirectoryCompanies, PrimaryKey: "id",
		Indices: []Index{
			{Name: "identifier", Field: "identifier", Unique: true},
		},
	},
	CollectionSchema{Name: DirectorySubscriptions, PrimaryKey: "companyId"},
	CollectionSchema{Name: DirectoryRevokedTokens, PrimaryKey: "jti"},
)

// Default devuelve el registro de colecciones de la aplicación.
func Default() *Registry { return defaultRegistry }
