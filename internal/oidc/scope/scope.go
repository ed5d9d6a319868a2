// Package scope mantiene el registro de scopes OAuth2 y su codificación como bitmask.
//
// Los valores de cada bit se persisten en access tokens (columna scope) y viajan
// entre componentes, por lo que son estables: nunca reordenar ni renumerar.
package scope

import (
	"errors"
	"fmt"
	"strings"
)

// Bits es un conjunto de scopes combinados con OR. Cero = "default" / sin scope.
type Bits uint64

const (
	None             Bits = 0
	OpenID           Bits = 1 << 0
	Profile          Bits = 1 << 1
	Email            Bits = 1 << 2
	CourseStaff      Bits = 1 << 3
	CourseInstructor Bits = 1 << 4
	Permissions      Bits = 1 << 5
)

// Nombres canónicos.
const (
	NameDefault          = "default"
	NameOpenID           = "openid"
	NameProfile          = "profile"
	NameEmail            = "email"
	NameCourseStaff      = "course_staff"
	NameCourseInstructor = "course_instructor"
	NamePermissions      = "permissions"
)

// ErrUnknownScope se devuelve cuando un nombre no está declarado en el registro.
var ErrUnknownScope = errors.New("unknown scope")

// Entry es un par (bit, nombre) del registro.
type Entry struct {
	Bit  Bits
	Name string
}

// Registry es la tabla ordenada de scopes. Es inmutable después de construida
// y segura para uso concurrente.
type Registry struct {
	entries []Entry
	byName  map[string]Bits
}

// NewRegistry arma un registro respetando el orden de declaración.
// Se permiten alias (dos nombres con el mismo bit); si un nombre se repite gana el primero.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		byName:  make(map[string]Bits, len(entries)),
	}
	for _, e := range entries {
		if _, dup := r.byName[e.Name]; dup {
			continue
		}
		r.entries = append(r.entries, e)
		r.byName[e.Name] = e.Bit
	}
	return r
}

// Default devuelve la tabla estándar del provider.
func Default() *Registry {
	return NewRegistry(
		Entry{None, NameDefault},
		Entry{OpenID, NameOpenID},
		Entry{Profile, NameProfile},
		Entry{Email, NameEmail},
		Entry{CourseStaff, NameCourseStaff},
		Entry{CourseInstructor, NameCourseInstructor},
		Entry{Permissions, NamePermissions},
	)
}

// NameToBit resuelve un nombre exacto.
func (r *Registry) NameToBit(name string) (Bits, error) {
	b, ok := r.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownScope, name)
	}
	return b, nil
}

// BitToName devuelve el primer nombre declarado para un valor exacto.
func (r *Registry) BitToName(bit Bits) (string, bool) {
	for _, e := range r.entries {
		if e.Bit == bit {
			return e.Name, true
		}
	}
	return "", false
}

// BitsToNames devuelve, en orden de declaración, los nombres cuyo valor
// está completamente contenido en mask. La entrada cero nunca se incluye.
func (r *Registry) BitsToNames(mask Bits) []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Bit == 0 {
			continue
		}
		if mask&e.Bit == e.Bit {
			out = append(out, e.Name)
		}
	}
	return out
}

// NamesToBits combina los nombres con OR. Los nombres desconocidos aportan 0.
func (r *Registry) NamesToBits(names ...string) Bits {
	var b Bits
	for _, n := range names {
		b |= r.byName[n]
	}
	return b
}

// Names lista los nombres en orden de declaración.
func (r *Registry) Names() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Name
	}
	return out
}

// Choices devuelve los pares (bit, nombre) para armar formularios de consentimiento.
func (r *Registry) Choices() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Validate verifica que todos los nombres estén declarados.
func (r *Registry) Validate(names []string) error {
	for _, n := range names {
		if _, ok := r.byName[n]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownScope, n)
		}
	}
	return nil
}

// Order ordena names según el registro, descarta desconocidos y duplicados.
func (r *Registry) Order(names []string) []string {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	out := make([]string, 0, len(names))
	for _, e := range r.entries {
		if _, ok := want[e.Name]; ok {
			out = append(out, e.Name)
			delete(want, e.Name)
		}
	}
	return out
}

// Has indica si todos los bits de bit están presentes en mask.
func Has(mask, bit Bits) bool {
	return mask&bit == bit
}

// Parse separa un parámetro "scope" OAuth2 (lista separada por espacios).
func Parse(raw string) []string {
	return strings.Fields(raw)
}

// Join arma el parámetro "scope" a partir de nombres.
func Join(names []string) string {
	return strings.Join(names, " ")
}
