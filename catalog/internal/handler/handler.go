package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-search/catalog/internal/errs"
	"github.com/Astemirdum/book-search/catalog/internal/model"
	"github.com/Astemirdum/book-search/pkg/catalog"
	md "github.com/Astemirdum/book-search/pkg/middleware"
	"github.com/Astemirdum/book-search/pkg/validate"
)

type Handler struct {
	catalogSvc CatalogService
	log        *zap.Logger
}

func New(catalogSvc CatalogService, log *zap.Logger) *Handler {
	return &Handler{
		catalogSvc: catalogSvc,
		log:        log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPost},
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.GET("/books", h.SearchBooks)
	api.POST("/books", h.CreateBook)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// SearchBooks answers GET /api/v1/books?q=. A missing or blank q lists every book.
func (h *Handler) SearchBooks(c echo.Context) error {
	books, err := h.catalogSvc.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, catalog.ListBooks{Items: books})
}

func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBook
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req = req.Trimmed()
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errs.ValidationErrorResponse{
			Message: errs.ErrValidation.Error(),
			Errors:  validate.Messages(err),
		})
	}

	book, err := h.catalogSvc.Create(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

// storeError keeps the store error kind on the wire so remote callers can
// rebuild the typed error. The cause stays server side.
func storeError(err error) error {
	kind, ok := catalog.KindOf(err)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, catalog.ErrorBody{
			Message: http.StatusText(http.StatusInternalServerError),
		}).SetInternal(err)
	}
	return echo.NewHTTPError(kind.HTTPStatus(), catalog.ErrorBody{
		Message: kind.String(),
		Kind:    kind,
	}).SetInternal(err)
}
