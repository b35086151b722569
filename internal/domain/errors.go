package domain

import "errors"

// Errores de la capa de almacenamiento local. El motor siempre los devuelve envueltos
// (ver storage.Error); usar errors.Is para compararlos.
var (
	ErrUnknownCollection    = errors.New("colección desconocida")
	ErrUnknownIndex         = errors.New("índice desconocido")
	ErrDuplicateKey         = errors.New("clave primaria duplicada")
	ErrUniqueIndexViolation = errors.New("violación de índice único")
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrSchemaDowngrade      = errors.New("la versión en disco es mayor que la solicitada")
	ErrSchemaVersion        = errors.New("versión de esquema inválida")
	ErrInvalidRecord        = errors.New("registro inválido")
	ErrNotOpen              = errors.New("la base de datos no está abierta")
	ErrLimitReached         = errors.New("límite de registros alcanzado")
)

// Errores de la capa de autenticación de empresa.
var (
	ErrOffline            = errors.New("sin conexión")
	ErrInvalidIdentifier  = errors.New("identificador de empresa inválido")
	ErrCompanyInactive    = errors.New("empresa inactiva")
	ErrInvalidCredentials = errors.New("credenciales inválidas")
	ErrRefreshFailed      = errors.New("no se pudo renovar la sesión")
	ErrUnauthorized       = errors.New("no autorizado")
)
