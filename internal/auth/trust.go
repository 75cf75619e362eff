package auth

import (
	"net/http"
	"net/url"
	"strings"
)

// TrustChecker decides whether a request comes from a trusted origin.
type TrustChecker struct {
	origins map[string]bool
	tokens  *JWTManager
}

// NewTrustChecker trusts the given origins (scheme://host[:port], compared
// case-insensitively without a trailing slash) and any request carrying a
// valid service token. tokens may be nil.
func NewTrustChecker(origins []string, tokens *JWTManager) *TrustChecker {
	set := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o = normalizeOrigin(o); o != "" {
			set[o] = true
		}
	}
	return &TrustChecker{origins: set, tokens: tokens}
}

// IsTrusted checks the Origin header first, then the Referer's origin, then
// a Bearer service token.
func (c *TrustChecker) IsTrusted(r *http.Request) bool {
	if origin := r.Header.Get("Origin"); origin != "" {
		if c.origins[normalizeOrigin(origin)] {
			return true
		}
	} else if ref := r.Header.Get("Referer"); ref != "" {
		if u, err := url.Parse(ref); err == nil && u.Host != "" {
			if c.origins[normalizeOrigin(u.Scheme+"://"+u.Host)] {
				return true
			}
		}
	}

	if c.tokens == nil {
		return false
	}
	token, ok := bearerToken(r)
	if !ok {
		return false
	}
	_, err := c.tokens.ValidateServiceToken(token)
	return err == nil
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(o), "/"))
}
