package helpers

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

const maxFormBody = 64 << 10 // 64KB

// ParseForm limita el body y parsea query + form urlencoded.
func ParseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	return r.ParseForm()
}

// ClientCredentials extrae client_id/secret de Basic auth o, si no hay, del form.
// basic indica que vinieron por Authorization (invalid_client responde 401).
func ClientCredentials(r *http.Request) (id, secret string, basic bool) {
	if u, p, ok := r.BasicAuth(); ok {
		// RFC 6749 2.3.1: los valores van form-urlencoded dentro de Basic.
		if du, err := url.QueryUnescape(u); err == nil {
			u = du
		}
		if dp, err := url.QueryUnescape(p); err == nil {
			p = dp
		}
		return u, p, true
	}
	return strings.TrimSpace(r.PostFormValue("client_id")), r.PostFormValue("client_secret"), false
}

// ClientIP devuelve la IP del cliente, respetando X-Forwarded-For.
func ClientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		return strings.TrimSpace(strings.Split(xf, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// SafeNext acepta solo paths locales para ?next= (evita open redirects).
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
