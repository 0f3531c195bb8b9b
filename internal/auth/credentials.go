package auth

import (
	"net/http"
	"strings"
)

// Cookie names for the two credential kinds.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// ExtractCredential pulls a bearer token from the Authorization header,
// falling back to the named cookie. The header wins when both are present.
func ExtractCredential(r *http.Request, cookieName string) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", ErrMalformedCredential
		}
		return parts[1], nil
	}

	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrMissingCredential
	}
	return cookie.Value, nil
}
