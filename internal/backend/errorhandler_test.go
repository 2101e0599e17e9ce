package backend

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func newErrorHandlingEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1K"))

	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.POST(APIPrefix+"/predict", ok)
	e.POST("/upload", ok)
	e.GET(APIPrefix+"/panic", func(c echo.Context) error { panic("handler exploded") })
	e.GET(APIPrefix+"/failure", func(c echo.Context) error { return errors.New("disk on fire") })
	e.GET(APIPrefix+"/bind", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "bad input")
	})
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHTTPErrorHandler_OversizedAPIUploadIsBadRequest(t *testing.T) {
	e := newErrorHandlingEcho()

	req := httptest.NewRequest(http.MethodPost, APIPrefix+"/predict", bytes.NewReader(make([]byte, 4096)))
	assertError(t, serve(e, req), http.StatusBadRequest, msgUploadTooLarge)
}

func TestHTTPErrorHandler_OutsideAPIKeepsStatus(t *testing.T) {
	e := newErrorHandlingEcho()

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(make([]byte, 4096)))
	rec := serve(e, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if body := decodeJSON[map[string]string](t, rec); body["error"] == "" {
		t.Errorf("expected error body, got %s", rec.Body.String())
	}
}

func TestHTTPErrorHandler_ServerErrors(t *testing.T) {
	e := newErrorHandlingEcho()

	for _, path := range []string{APIPrefix + "/panic", APIPrefix + "/failure"} {
		t.Run(path, func(t *testing.T) {
			rec := serve(e, httptest.NewRequest(http.MethodGet, path, nil))
			assertError(t, rec, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		})
	}
}

func TestHTTPErrorHandler_KeepsClientMessage(t *testing.T) {
	e := newErrorHandlingEcho()

	rec := serve(e, httptest.NewRequest(http.MethodGet, APIPrefix+"/bind", nil))
	assertError(t, rec, http.StatusBadRequest, "bad input")
}
