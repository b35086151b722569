package entity

// Company es el perfil de empresa (tenant) que devuelve el directorio de empresas.
// Identifier es la clave de acceso visible al usuario (única en el directorio).
type Company struct {
	ID             string `json:"id"`
	Identifier     string `json:"identifier"`
	Name           string `json:"name"`
	NameAr         string `json:"nameAr,omitempty"`
	LogoURL        string `json:"logoUrl,omitempty"`
	PrimaryColor   string `json:"primaryColor,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty"`
	Address        string `json:"address,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	TaxID          string `json:"taxId,omitempty"`
	IsActive       bool   `json:"isActive"`
}
