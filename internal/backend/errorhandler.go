package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const msgUploadTooLarge = "Uploaded file too large"

// HTTPErrorHandler renders errors returned by handlers and middleware as
// {"error": message}. Below APIPrefix an oversized body is answered with 400
// and every server error with 500.
func HTTPErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := http.StatusText(status)
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		if status < http.StatusInternalServerError {
			message = httpErrorMessage(httpErr)
		} else {
			message = http.StatusText(status)
		}
	}

	path := ctx.Request().URL.Path
	if path == APIPrefix || strings.HasPrefix(path, APIPrefix+"/") {
		switch {
		case status == http.StatusRequestEntityTooLarge:
			status, message = http.StatusBadRequest, msgUploadTooLarge
		case status >= http.StatusInternalServerError:
			status, message = http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
		}
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", path, "status", status, "error", err)
	} else {
		slog.Warn("request rejected", "path", path, "status", status, "error", err)
	}

	if ctx.Request().Method == http.MethodHead {
		err = ctx.NoContent(status)
	} else {
		err = respondError(ctx, status, message)
	}
	if err != nil {
		slog.Error("failed to write error response", "path", path, "error", err)
	}
}

func httpErrorMessage(httpErr *echo.HTTPError) string {
	switch m := httpErr.Message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case nil:
		return http.StatusText(httpErr.Code)
	default:
		return fmt.Sprint(m)
	}
}
