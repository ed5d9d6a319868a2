package claims

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidClaim agrupa los errores de validación del parámetro claims.
var ErrInvalidClaim = errors.New("invalid claims request")

// RequestError describe un claims request mal formado. El mensaje es apto para
// devolverse al cliente tal cual.
type RequestError struct {
	Msg string
}

func (e *RequestError) Error() string { return e.Msg }

// Is permite errors.Is(err, ErrInvalidClaim).
func (e *RequestError) Is(target error) bool { return target == ErrInvalidClaim }

func invalid(format string, args ...any) error {
	return &RequestError{Msg: fmt.Sprintf(format, args...)}
}

// ClaimRequest es la restricción de un claim individual
// (https://openid.net/specs/openid-connect-core-1_0.html#IndividualClaimsRequests).
type ClaimRequest struct {
	Value     any   `json:"value,omitempty"`
	Values    []any `json:"values,omitempty"`
	Essential bool  `json:"essential"`
}

// Request es una sección validada: claim -> restricción (nil = sin restricción).
type Request map[string]*ClaimRequest

// Names devuelve los claims pedidos.
func (r Request) Names() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}

// ValidateRequest valida una sección (id_token o userinfo) del parámetro claims.
// Solo se conservan value, values y essential (essential=false por defecto).
// En modo lenient las entradas o atributos inválidos se descartan en vez de fallar.
func ValidateRequest(raw map[string]any, lenient bool) (Request, error) {
	out := make(Request, len(raw))
	for name, v := range raw {
		if v == nil {
			out[name] = nil
			continue
		}
		obj, ok := v.(map[string]any)
		if !ok {
			if lenient {
				continue
			}
			return nil, invalid("Invalid claim %s.", name)
		}
		cr, err := validateClaimValues(name, obj, lenient)
		if err != nil {
			return nil, err
		}
		out[name] = cr
	}
	return out, nil
}

// validateClaimValues solo rechaza atributos desconocidos. Los reconocidos se
// conservan: un values escalar pasa a lista de un elemento y essential se
// interpreta como booleano.
func validateClaimValues(name string, obj map[string]any, lenient bool) (*ClaimRequest, error) {
	cr := &ClaimRequest{}
	for key, v := range obj {
		switch key {
		case "value":
			cr.Value = v
		case "values":
			cr.Values = asList(v)
		case "essential":
			cr.Essential = asBool(v)
		default:
			if lenient {
				continue
			}
			return nil, invalid("Unknown attribute %s in claim value %s.", key, name)
		}
	}
	return cr, nil
}

func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// asBool: "true"/"1" y números distintos de cero cuentan como true.
func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	case float64:
		return t != 0
	default:
		return false
	}
}

// Secciones del parámetro claims.
const (
	SectionIDToken  = "id_token"
	SectionUserInfo = "userinfo"
)

// Parameter es el parámetro claims completo: {"id_token": {...}, "userinfo": {...}}.
type Parameter map[string]any

// ParseParameter decodifica el parámetro claims de un request. Vacío = sin pedido.
func ParseParameter(raw string) (Parameter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var p Parameter
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, invalid("Invalid claims parameter.")
	}
	return p, nil
}

// Section devuelve una copia de la sección pedida (nil si no está).
func (p Parameter) Section(name string) (map[string]any, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return nil, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, invalid("Invalid claims section %s.", name)
	}
	out := make(map[string]any, len(obj))
	for k, val := range obj {
		out[k] = val
	}
	return out, nil
}
