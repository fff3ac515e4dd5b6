package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

const bearerPrefix = "Bearer "

func bearerTokenFromString(raw string) ([]byte, error) {
	trimmed := strings.Trim(raw, " ")
	if trimmed == "" {
		return nil, errMissingAuthorization
	}
	if len(trimmed) <= len(bearerPrefix) || !strings.HasPrefix(trimmed, bearerPrefix) {
		return nil, errBadAuthorization
	}
	token := []byte(trimmed[len(bearerPrefix):])
	// header.payload.signature
	if bytes.Count(token, []byte{'.'}) != 2 {
		return nil, errBadAuthorization
	}
	return token, nil
}

// RequireAuth rejects requests whose bearer token auth does not accept. A nil
// auth disables the check. Streaming clients that cannot set headers may pass
// the token in the "token" query parameter.
func RequireAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if auth == nil {
			return next
		}
		return func(c echo.Context) error {
			if c.Path() == "/healthz" {
				return next(c)
			}
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			if h == "" {
				if token := c.QueryParam("token"); token != "" {
					h = bearerPrefix + token
				}
			}
			sub, err := auth.SubjectFromAuthHeader(h)
			if err != nil {
				return c.String(http.StatusUnauthorized, err.Error())
			}
			c.Set(subjectKey, sub)
			return next(c)
		}
	}
}

const subjectKey = "subject"
