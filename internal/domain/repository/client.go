package repository

import (
	"context"
	"time"
)

const (
	ClientTypePublic       = "public"
	ClientTypeConfidential = "confidential"
)

// Client representa un cliente OAuth2/OIDC.
// ClientSecret se guarda en claro: es la clave HS256 de los ID Tokens del cliente.
type Client struct {
	ID           int64
	ClientID     string // identificador público
	ClientSecret string
	Name         string
	URL          string
	RedirectURI  string
	LogoutURI    string
	Type         string // "public" | "confidential"
	UserID       *int64 // dueño opcional
	CreatedAt    time.Time
}

// IsPublic indica si el cliente no puede guardar secretos.
func (c *Client) IsPublic() bool { return c.Type == ClientTypePublic }

// ValidClientType verifica el tipo.
func ValidClientType(t string) bool {
	return t == ClientTypePublic || t == ClientTypeConfidential
}

// ClientRepository define operaciones sobre clients.
type ClientRepository interface {
	// Get obtiene un client por su client_id público.
	// Retorna ErrNotFound si no existe.
	Get(ctx context.Context, clientID string) (*Client, error)

	// Create crea un nuevo client. Retorna ErrConflict si el client_id ya existe.
	Create(ctx context.Context, c *Client) error

	// Update actualiza todos los campos editables identificando por ClientID.
	Update(ctx context.Context, c *Client) error
}

// TrustedClientRepository marca clients que no requieren consentimiento.
type TrustedClientRepository interface {
	IsTrusted(ctx context.Context, clientID string) (bool, error)
	Trust(ctx context.Context, clientID string) error
	Untrust(ctx context.Context, clientID string) error
}
