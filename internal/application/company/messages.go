package company

import (
	"errors"

	"github.com/jhoicas/erp-offline/internal/domain"
)

const (
	msgVerified           = "Empresa verificada. Ingrese la contraseña."
	msgLoggedIn           = "Sesión iniciada correctamente."
	msgOffline            = "Sin conexión. Verifique su conexión a internet e intente de nuevo."
	msgInvalidIdentifier  = "El identificador de empresa no existe."
	msgCompanyInactive    = "La empresa está inactiva. Contacte al administrador."
	msgInvalidCredentials = "Contraseña incorrecta."
	msgUnexpected         = "No se pudo completar la operación. Intente de nuevo más tarde."
)

// Message texto para el usuario correspondiente a err.
func Message(err error) string {
	switch {
	case errors.Is(err, domain.ErrOffline):
		return msgOffline
	case errors.Is(err, domain.ErrInvalidIdentifier):
		return msgInvalidIdentifier
	case errors.Is(err, domain.ErrCompanyInactive):
		return msgCompanyInactive
	case errors.Is(err, domain.ErrInvalidCredentials):
		return msgInvalidCredentials
	default:
		return msgUnexpected
	}
}

func failure(err error) Result {
	return Result{Success: false, Message: Message(err), Err: err}
}
