package oidc

import (
	"net/url"
	"strings"

	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/issuer"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
)

// Paths públicos del provider.
const (
	PathAuthorize = "/oauth2/authorize"
	PathConfirm   = "/oauth2/authorize/confirm"
	PathLogin     = "/oauth2/login"
	PathLogout    = "/oauth2/logout"
	PathToken     = "/oauth2/access_token"
	PathUserInfo  = "/oauth2/user_info"
	PathDiscovery = "/.well-known/openid-configuration"
)

// Discovery es el documento de /.well-known/openid-configuration.
type Discovery struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserInfoEndpoint                  string   `json:"userinfo_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
	ClaimsParameterSupported          bool     `json:"claims_parameter_supported"`
}

// DiscoveryService arma el documento de discovery.
type DiscoveryService interface {
	Document() Discovery
}

type discoveryService struct {
	doc Discovery
}

// NewDiscoveryService precalcula el documento; los endpoints cuelgan del host del issuer.
func NewDiscoveryService(i *issuer.Issuer, issuerURL string) DiscoveryService {
	base := strings.TrimRight(issuerURL, "/")
	if u, err := url.Parse(issuerURL); err == nil && u.Scheme != "" && u.Host != "" {
		base = u.Scheme + "://" + u.Host
	}

	var scopes []string
	for _, e := range i.Registry().Choices() {
		if e.Bit != scope.None {
			scopes = append(scopes, e.Name)
		}
	}

	return &discoveryService{doc: Discovery{
		Issuer:                            issuerURL,
		AuthorizationEndpoint:             base + PathAuthorize,
		TokenEndpoint:                     base + PathToken,
		UserInfoEndpoint:                  base + PathUserInfo,
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code", "password", "refresh_token"},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  []string{i.Alg()},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post"},
		ScopesSupported:                   scopes,
		ClaimsSupported:                   i.SupportedClaims(),
		ClaimsParameterSupported:          true,
	}}
}

func (s *discoveryService) Document() Discovery { return s.doc }
