package middleware

import (
	"github.com/labstack/echo"
	echomw "github.com/labstack/echo/middleware"

	"github.com/brinegold/jarvis-settlement/pkg/logger"
)

// Logger logs one line per request through the shared structured logger.
func Logger() echo.MiddlewareFunc {
	return logger.LoggingMiddleware
}

func Recover() echo.MiddlewareFunc {
	return echomw.Recover()
}

func CORS() echo.MiddlewareFunc {
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "TOKEN"},
	})
}
