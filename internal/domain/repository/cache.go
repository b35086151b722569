package repository

// Claves de caché local (forma localStorage). Las escribe únicamente el contexto de
// empresa; el resto de colaboradores solo las lee.
const (
	CacheSelectedCompany     = "selected_company"
	CacheCompanySubscription = "company_subscription"
)

// KeyValueStore almacenamiento local clave/valor de cadenas (equivalente a localStorage).
type KeyValueStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}
