package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/logger"
	"github.com/mohammad-safakhou/learnpath/internal/service"
	"github.com/mohammad-safakhou/learnpath/internal/store"
)

// errorHandler renders every error as {"error": msg} and logs it.
func errorHandler(log logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code, msg := statusFor(err)
		req := c.Request()
		fields := []logger.Field{
			logger.Int("status", code),
			logger.String("method", req.Method),
			logger.String("path", req.URL.Path),
			logger.String("remote_ip", c.RealIP()),
			logger.Error(err),
		}
		if code >= http.StatusInternalServerError {
			log.Error("request failed", fields...)
		} else {
			log.Warn("request rejected", fields...)
		}
		if c.Response().Committed {
			return
		}
		if req.Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, msg
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "learning path not found"
	case errors.Is(err, service.ErrNoRepository):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
