package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/service"
)

// LearningPathService is the subset of *service.LearningPaths used by the API.
type LearningPathService interface {
	Generate(ctx context.Context, in core.Input) (service.Response, error)
	Get(ctx context.Context, requestID string) (service.Status, error)
	Runs(ctx context.Context, requestID string) ([]core.AuditRecord, error)
}

type LearningPathsHandler struct {
	Svc     LearningPathService
	Timeout time.Duration
}

type generateRequest struct {
	Query string      `json:"query"`
	Prefs *core.Prefs `json:"prefs"`
}

func (h *LearningPathsHandler) Register(g *echo.Group) {
	g.POST("", h.generate)
	g.GET("/:id", h.get)
	g.GET("/:id/runs", h.runs)
	g.GET("/:id/export.csv", h.export)
}

func (h *LearningPathsHandler) generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	ctx := c.Request().Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	resp, err := h.Svc.Generate(ctx, core.Input{Query: req.Query, Prefs: req.Prefs})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *LearningPathsHandler) get(c echo.Context) error {
	st, err := h.Svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (h *LearningPathsHandler) runs(c echo.Context) error {
	runs, err := h.Svc.Runs(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"request_id": c.Param("id"), "runs": runs})
}

func (h *LearningPathsHandler) export(c echo.Context) error {
	id := c.Param("id")
	st, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if st.Results == nil {
		return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("learning path is %s", st.Status))
	}
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="learning-paths-%s.csv"`, id))
	res.WriteHeader(http.StatusOK)
	return service.WriteCSV(res, *st.Results)
}
