package frontend

import (
	"embed"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/Gamlio/MechineLearning-skin-cancer/internal/backend"
	"github.com/Gamlio/MechineLearning-skin-cancer/internal/common"
	"github.com/Gamlio/MechineLearning-skin-cancer/internal/core"
	"github.com/labstack/echo/v4"
)

const (
	MainPageName = "admin.html"
	viewsPattern = "views/*.html"
)

//go:embed views/*.html static/*
var assetsFS embed.FS

// Template adapts html/template to echo's Renderer.
type Template struct {
	templates *template.Template
}

func (t *Template) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

type adminPage struct {
	APIPrefix   string
	Labels      []common.Label
	ModelLoaded bool
}

type FrontendService struct {
	coreService *core.CoreService
}

func NewFrontendService(coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
	}
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = &Template{
		templates: template.Must(template.New("").ParseFS(assetsFS, viewsPattern)),
	}

	e.GET("/", service.rootRedirectHandler)
	e.GET("/"+MainPageName, service.adminHandler)
	e.StaticFS("/static", echo.MustSubFS(assetsFS, "static"))
}

// rootRedirectHandler redirects root path to the admin dashboard
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) adminHandler(ctx echo.Context) error {
	page := adminPage{
		APIPrefix:   backend.APIPrefix,
		Labels:      common.Labels(),
		ModelLoaded: service.coreService.ModelLoaded(),
	}
	if err := ctx.Render(http.StatusOK, MainPageName, page); err != nil {
		slog.Error("adminHandler: failed to render page", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to render page")
	}
	return nil
}
