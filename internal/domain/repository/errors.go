package repository

import "errors"

// Errores de dominio que devuelven todos los stores. Los adapters envuelven
// el error del driver con %w para que errors.Is siga funcionando.
var (
	// ErrNotFound: usuario, client o token inexistente.
	ErrNotFound = errors.New("repository: not found")

	// ErrConflict: unique violado (username, client_id, hash de token) o un
	// check-and-set perdido, como rotar un refresh token ya rotado.
	ErrConflict = errors.New("repository: conflict")

	// ErrInvalidInput: faltan relaciones obligatorias (ej: token sin User o Client).
	ErrInvalidInput = errors.New("repository: invalid input")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
