package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

// New builds the Echo server for the board. auth and subs may be nil.
func New(board Board, subs Subscriber, auth Authenticator, logger *log.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderContentEncoding,
			echo.HeaderAuthorization,
			HeaderConfirmDelete,
		},
		ExposeHeaders: []string{echo.HeaderXRequestID},
	}))
	e.Use(DecodeRequestBody())
	e.Use(RequireAuth(auth))
	Register(e, board, subs, logger)
	return e
}
