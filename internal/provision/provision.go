// Package provision da de alta clients y usuarios desde la línea de comandos.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dropDatabas3/hellojohn-oidc/internal/audit"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/security/password"
	"github.com/dropDatabas3/hellojohn-oidc/internal/util"
	"github.com/dropDatabas3/hellojohn-oidc/internal/validation"
)

var (
	ErrInvalidURLs       = errors.New("URLs provided are invalid. Please provide valid application and redirect URLs.")
	ErrInvalidClientType = errors.New("Client type provided is invalid. Please use one of 'confidential' or 'public'.")
	ErrUnknownUser       = errors.New("User matching the provided username does not exist.")
	ErrInvalidLogoutURI  = errors.New("The logout_uri is invalid.")
	ErrInvalidClientID   = errors.New("The client_id is invalid.")
	ErrMissingUserFields = errors.New("username and password are required")
)

// ClientInput son los argumentos de create-client. Los campos opcionales
// vacíos no pisan los valores de un client existente.
type ClientInput struct {
	URL          string
	RedirectURI  string
	Type         string
	Username     string
	Name         string
	ClientID     string
	ClientSecret string
	LogoutURI    string
	Trusted      bool
}

// ClientOutput es la representación JSON que imprime el CLI.
type ClientOutput struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	RedirectURI  string `json:"redirect_uri"`
	LogoutURI    string `json:"logout_uri,omitempty"`
	ClientType   string `json:"client_type"`
	User         *int64 `json:"user"`
	Trusted      bool   `json:"trusted"`
	Created      bool   `json:"-"`
}

// Provisioner opera sobre un Store ya abierto.
type Provisioner struct {
	store  repository.Store
	params password.Params
}

// New crea el provisioner; params es el costo de hash de los passwords nuevos.
func New(st repository.Store, params password.Params) *Provisioner {
	return &Provisioner{store: st, params: params}
}

// CreateClient crea o actualiza (por client_id) un client y fija su marca de confianza.
func (p *Provisioner) CreateClient(ctx context.Context, in ClientInput) (*ClientOutput, error) {
	if !validation.ValidURL(in.URL) || !validation.ValidRedirectURI(in.RedirectURI) {
		return nil, ErrInvalidURLs
	}
	ctype := strings.ToLower(strings.TrimSpace(in.Type))
	if !repository.ValidClientType(ctype) {
		return nil, ErrInvalidClientType
	}
	if in.LogoutURI != "" && !validation.ValidURL(in.LogoutURI) {
		return nil, ErrInvalidLogoutURI
	}
	if in.ClientID != "" && !validation.ValidClientID(in.ClientID) {
		return nil, ErrInvalidClientID
	}

	var owner *int64
	if in.Username != "" {
		u, err := p.store.Users().GetByUsername(ctx, in.Username)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrUnknownUser
			}
			return nil, err
		}
		owner = &u.ID
	}

	var existing *repository.Client
	if in.ClientID != "" {
		c, err := p.store.Clients().Get(ctx, in.ClientID)
		switch {
		case err == nil:
			existing = c
		case !repository.IsNotFound(err):
			return nil, err
		}
	}

	c := existing
	if c == nil {
		c = &repository.Client{ClientID: in.ClientID, ClientSecret: in.ClientSecret}
		if c.ClientID == "" {
			c.ClientID = newIdentifier()
		}
		if c.ClientSecret == "" {
			c.ClientSecret = newIdentifier() + newIdentifier()
		}
	}
	c.URL = in.URL
	c.RedirectURI = in.RedirectURI
	c.Type = ctype
	if in.Name != "" {
		c.Name = in.Name
	}
	if in.ClientSecret != "" {
		c.ClientSecret = in.ClientSecret
	}
	if in.LogoutURI != "" {
		c.LogoutURI = in.LogoutURI
	}
	if owner != nil {
		c.UserID = owner
	}

	if existing != nil {
		if err := p.store.Clients().Update(ctx, c); err != nil {
			return nil, fmt.Errorf("provision: update client: %w", err)
		}
	} else if err := p.store.Clients().Create(ctx, c); err != nil {
		return nil, fmt.Errorf("provision: create client: %w", err)
	}

	trusted := p.store.TrustedClients()
	if in.Trusted {
		if err := trusted.Trust(ctx, c.ClientID); err != nil {
			return nil, fmt.Errorf("provision: trust client: %w", err)
		}
	} else if err := trusted.Untrust(ctx, c.ClientID); err != nil && !repository.IsNotFound(err) {
		return nil, fmt.Errorf("provision: untrust client: %w", err)
	}

	audit.Log(ctx, audit.EventClientProvisioned,
		logger.Component("provision"),
		logger.ClientID(c.ClientID),
		logger.String("client_secret", util.MaskSecret(c.ClientSecret)),
		logger.Bool("created", existing == nil),
		logger.Bool("trusted", in.Trusted),
	)

	return &ClientOutput{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Name:         c.Name,
		URL:          c.URL,
		RedirectURI:  c.RedirectURI,
		LogoutURI:    c.LogoutURI,
		ClientType:   c.Type,
		User:         c.UserID,
		Trusted:      in.Trusted,
		Created:      existing == nil,
	}, nil
}

// UserInput son los argumentos de create-user.
type UserInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	Inactive  bool
}

// CreateUser hashea el password con argon2id y persiste el usuario.
func (p *Provisioner) CreateUser(ctx context.Context, in UserInput) (*repository.User, error) {
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return nil, ErrMissingUserFields
	}
	hash, err := password.Hash(p.params, in.Password)
	if err != nil {
		return nil, fmt.Errorf("provision: hash password: %w", err)
	}
	u := &repository.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		IsActive:     !in.Inactive,
	}
	if err := p.store.Users().Create(ctx, u); err != nil {
		return nil, fmt.Errorf("provision: create user: %w", err)
	}
	audit.Log(ctx, audit.EventUserProvisioned,
		logger.Component("provision"),
		logger.UserID(fmt.Sprint(u.ID)),
		logger.Email(util.MaskEmail(u.Email)),
	)
	return u, nil
}

func newIdentifier() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
