package claims

import (
	"context"
	"strconv"

	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
)

// Nombres de los handlers estándar en el catálogo.
const (
	HandlerBasicIDToken  = "basic_id_token"
	HandlerBasicUserInfo = "basic_userinfo"
	HandlerProfile       = "profile"
	HandlerEmail         = "email"
)

// Cadenas por defecto.
var (
	DefaultIDTokenHandlers  = []string{HandlerBasicIDToken, HandlerProfile, HandlerEmail}
	DefaultUserInfoHandlers = []string{HandlerBasicUserInfo, HandlerProfile, HandlerEmail}
)

// BasicIDTokenHandler aporta los claims obligatorios de un ID Token.
// iat/exp salen del mismo env.Now para toda la invocación.
func BasicIDTokenHandler(env Env) *Handler {
	ttl := env.IDTokenTTL
	if ttl <= 0 {
		ttl = DefaultIDTokenTTL
	}
	iat := env.Now.UTC().Unix()
	exp := env.Now.UTC().Add(ttl).Unix()

	return &Handler{
		Name: HandlerBasicIDToken,
		Scopes: map[string]ScopeFunc{
			scope.NameOpenID: Static("iss", "sub", "aud", "iat", "exp", "nonce"),
		},
		Claims: map[string]ClaimFunc{
			"iss": func(context.Context, Subject, *ClaimRequest) (any, error) {
				if env.Issuer == "" {
					return nil, nil
				}
				return env.Issuer, nil
			},
			"sub": subClaim,
			"aud": func(_ context.Context, s Subject, _ *ClaimRequest) (any, error) {
				if s.Client == nil {
					return nil, nil
				}
				return s.Client.ClientID, nil
			},
			"iat": func(context.Context, Subject, *ClaimRequest) (any, error) { return iat, nil },
			"exp": func(context.Context, Subject, *ClaimRequest) (any, error) { return exp, nil },
			"nonce": func(_ context.Context, _ Subject, req *ClaimRequest) (any, error) {
				if req == nil || req.Value == nil {
					return nil, nil
				}
				return req.Value, nil
			},
		},
	}
}

// BasicUserInfoHandler solo aporta sub: UserInfo no lleva iss/aud/iat/exp.
func BasicUserInfoHandler(Env) *Handler {
	return &Handler{
		Name: HandlerBasicUserInfo,
		Scopes: map[string]ScopeFunc{
			scope.NameOpenID: Static("sub"),
		},
		Claims: map[string]ClaimFunc{
			"sub": subClaim,
		},
	}
}

// ProfileHandler mapea el scope profile a los datos básicos del usuario.
func ProfileHandler(Env) *Handler {
	return &Handler{
		Name: HandlerProfile,
		Scopes: map[string]ScopeFunc{
			scope.NameProfile: Static("name", "family_name", "given_name", "preferred_username"),
		},
		Claims: map[string]ClaimFunc{
			"name":               userString(func(s Subject) string { return s.User.FullName() }),
			"family_name":        userString(func(s Subject) string { return s.User.LastName }),
			"given_name":         userString(func(s Subject) string { return s.User.FirstName }),
			"preferred_username": userString(func(s Subject) string { return s.User.Username }),
		},
	}
}

// EmailHandler mapea el scope email al email del usuario.
func EmailHandler(Env) *Handler {
	return &Handler{
		Name: HandlerEmail,
		Scopes: map[string]ScopeFunc{
			scope.NameEmail: Static("email"),
		},
		Claims: map[string]ClaimFunc{
			"email": userString(func(s Subject) string { return s.User.Email }),
		},
	}
}

func subClaim(_ context.Context, s Subject, _ *ClaimRequest) (any, error) {
	if s.User == nil {
		return nil, nil
	}
	return strconv.FormatInt(s.User.ID, 10), nil
}

func userString(get func(Subject) string) ClaimFunc {
	return func(_ context.Context, s Subject, _ *ClaimRequest) (any, error) {
		if s.User == nil {
			return nil, nil
		}
		return get(s), nil
	}
}
