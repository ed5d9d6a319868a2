// Package validation contiene reglas de formato para datos de provisioning.
package validation

import (
	"net/url"
	"regexp"
	"strings"
)

// Client ID:
// - ASCII alfanumérico más "-", "_" y ".".
// - Empieza y termina en alfanumérico.
// - Largo 1..255.
//
// Válidos: web, web-frontend, rp_1.prod
// Inválidos: "", -lead, trail., "con espacio", "a;b"
var clientIDRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9_.\-]{0,253}[A-Za-z0-9])?$`)

// ValidClientID reporta si id cumple el formato de client_id.
func ValidClientID(id string) bool {
	return clientIDRe.MatchString(id)
}

// ValidURL acepta URLs absolutas http(s) con host.
func ValidURL(raw string) bool {
	if strings.TrimSpace(raw) != raw || raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" && u.Hostname() != ""
}

// ValidRedirectURI es ValidURL sin fragmento (RFC 6749 §3.1.2).
func ValidRedirectURI(raw string) bool {
	if !ValidURL(raw) {
		return false
	}
	u, _ := url.Parse(raw)
	return u.Fragment == "" && !strings.Contains(raw, "#")
}
