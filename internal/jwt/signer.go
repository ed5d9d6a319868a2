// Package jwt firma y verifica ID Tokens con HMAC (secreto compartido por cliente).
package jwt

import (
	"errors"
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// DefaultAlg es el algoritmo de firma de los ID Tokens.
const DefaultAlg = "HS256"

var (
	// ErrSigning envuelve cualquier falla al firmar.
	ErrSigning = errors.New("jwt signing failed")

	// ErrInvalidToken indica firma, algoritmo o formato inválido al verificar.
	ErrInvalidToken = errors.New("invalid_jwt")
)

// Signer es la primitiva que consume el TokenIssuer.
type Signer interface {
	Encode(claims map[string]any, secret, alg string) (string, error)
}

// HMAC implementa Signer con HS256/HS384/HS512.
type HMAC struct{}

// Encode firma claims con secret. alg vacío = HS256.
func (HMAC) Encode(claims map[string]any, secret, alg string) (string, error) {
	return Encode(claims, secret, alg)
}

// Encode firma un MapClaims arbitrario, setea header typ y devuelve el JWT firmado.
func Encode(claims map[string]any, secret, alg string) (string, error) {
	method, err := hmacMethod(alg)
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", fmt.Errorf("%w: empty secret", ErrSigning)
	}
	tk := jwtv5.NewWithClaims(method, jwtv5.MapClaims(claims))
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigning, err)
	}
	return signed, nil
}

// Decode verifica firma y algoritmo y devuelve las claims.
// No valida exp/iat: los ID Tokens se consumen del lado del cliente.
func Decode(token, secret, alg string) (map[string]any, error) {
	method, err := hmacMethod(alg)
	if err != nil {
		return nil, err
	}
	keyfunc := func(*jwtv5.Token) (any, error) { return []byte(secret), nil }
	tok, err := jwtv5.Parse(token, keyfunc,
		jwtv5.WithValidMethods([]string{method.Alg()}),
		jwtv5.WithoutClaimsValidation(),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func hmacMethod(alg string) (*jwtv5.SigningMethodHMAC, error) {
	if alg == "" {
		alg = DefaultAlg
	}
	m, ok := jwtv5.GetSigningMethod(alg).(*jwtv5.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrSigning, alg)
	}
	return m, nil
}
