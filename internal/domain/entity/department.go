package entity

// Department agrupa empleados (módulo de recursos humanos).
type Department struct {
	ID       int64  `json:"id,omitempty"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}
