package dto

// CollectionInfo descripción pública de una colección.
type CollectionInfo struct {
	Name          string   `json:"name"`
	PrimaryKey    string   `json:"primary_key"`
	AutoIncrement bool     `json:"auto_increment"`
	Indices       []string `json:"indices"`
	Feature       string   `json:"feature,omitempty"`
	Count         int      `json:"count"`
}

// RecordListResponse página de registros de una colección, en orden de inserción.
type RecordListResponse struct {
	Items []map[string]any `json:"items"`
	Page  PageResponse     `json:"page"`
}

// Códigos de error de la API de colecciones.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeDuplicateKey      = "DUPLICATE_KEY"
	CodeUniqueViolation   = "UNIQUE_VIOLATION"
	CodeUnknownCollection = "UNKNOWN_COLLECTION"
	CodeUnknownIndex      = "UNKNOWN_INDEX"
	CodeInvalidRecord     = "INVALID_RECORD"
	CodeFeatureDisabled   = "FEATURE_DISABLED"
	CodeLimitReached      = "LIMIT_REACHED"
	CodeOffline           = "OFFLINE"
	CodeUnavailable       = "UNAVAILABLE"
)
