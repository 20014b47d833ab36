package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"assettrack/pkg/types"

	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

var errNoToken = errors.New("no access token")

// Authenticator verifies the access token issued by the upstream identity
// provider. Tokens arrive as a bearer header or in a cookie, which is
// encrypted with securecookie when cookie keys are configured.
type Authenticator struct {
	cookieName string
	cookie     *securecookie.SecureCookie

	secret  []byte
	jwks    *jwk.Cache
	jwksURL string
}

// NewAuthenticator verifies against the JWKS endpoint when jwks is non-nil
// and against the HMAC secret otherwise.
func NewAuthenticator(config *types.Config, jwks *jwk.Cache) (*Authenticator, error) {
	a := &Authenticator{
		cookieName: config.AuthCookieName,
		secret:     []byte(config.AuthHMACSecret),
		jwks:       jwks,
		jwksURL:    config.AuthJWKSURL,
	}

	if a.jwks == nil && len(a.secret) == 0 {
		return nil, fmt.Errorf("either AUTH_HMAC_SECRET or AUTH_JWKS_URL is required")
	}
	if a.jwks != nil && a.jwksURL == "" {
		return nil, fmt.Errorf("AUTH_JWKS_URL is required with a JWKS cache")
	}

	if config.CookieHashKey != "" {
		hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode cookie hash key: %w", err)
		}
		var blockKey []byte
		if config.CookieBlockKey != "" {
			blockKey, err = base64.StdEncoding.DecodeString(config.CookieBlockKey)
			if err != nil {
				return nil, fmt.Errorf("failed to decode cookie block key: %w", err)
			}
		}
		a.cookie = securecookie.New(hashKey, blockKey)
	}

	return a, nil
}

// EncodeCookie produces the cookie value the upstream login sets. Without
// cookie keys the token is stored as is.
func (a *Authenticator) EncodeCookie(token string) (string, error) {
	if a.cookie == nil {
		return token, nil
	}
	return a.cookie.Encode(a.cookieName, token)
}

func (a *Authenticator) token(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			return "", fmt.Errorf("malformed authorization header")
		}
		return strings.TrimSpace(token), nil
	}

	cookie, err := r.Cookie(a.cookieName)
	if err != nil {
		return "", errNoToken
	}

	if a.cookie == nil {
		return cookie.Value, nil
	}

	var token string
	if err := a.cookie.Decode(a.cookieName, cookie.Value, &token); err != nil {
		return "", fmt.Errorf("failed to decrypt access token: %w", err)
	}
	return token, nil
}

// Identify verifies the request's access token and returns the caller.
func (a *Authenticator) Identify(r *http.Request) (types.Identity, error) {
	raw, err := a.token(r)
	if err != nil {
		return types.Identity{}, err
	}
	return a.Verify(r.Context(), raw)
}

func (a *Authenticator) Verify(ctx context.Context, raw string) (types.Identity, error) {
	opts := []jwt.ParseOption{jwt.WithValidate(true)}
	if a.jwks != nil {
		set, err := a.jwks.Lookup(ctx, a.jwksURL)
		if err != nil {
			return types.Identity{}, fmt.Errorf("failed to fetch JWKS: %w", err)
		}
		opts = append(opts, jwt.WithKeySet(set))
	} else {
		opts = append(opts, jwt.WithKey(jwa.HS256(), a.secret))
	}

	token, err := jwt.Parse([]byte(raw), opts...)
	if err != nil {
		return types.Identity{}, fmt.Errorf("failed to parse JWT: %w", err)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return types.Identity{}, fmt.Errorf("no subject claim in JWT")
	}

	var email, role string
	// email and role are optional; a missing role is a regular user
	_ = token.Get("email", &email)
	_ = token.Get("role", &role)

	return types.Identity{
		SubjectID: subject,
		Email:     email,
		Role:      types.ParseRole(role),
	}, nil
}
