package entity

import "time"

// Category representa una categoría de productos (jerárquica opcional).
type Category struct {
	ID          int64     `json:"id,omitempty"`
	ParentID    int64     `json:"parentId,omitempty"` // cero si es raíz
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}
