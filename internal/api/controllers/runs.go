package controllers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/omeister/jpegbatch/internal/app"
	"github.com/omeister/jpegbatch/internal/domain"
)

type RunsController struct {
	App *app.Context
}

// RunSummary is the list-view projection of a run.
type RunSummary struct {
	ID         string `json:"id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	Total      int    `json:"total"`
	Written    int    `json:"written"`
	Rejected   int    `json:"rejected"`
	Failed     int    `json:"failed"`
}

func summarize(run *domain.Run) RunSummary {
	return RunSummary{
		ID:         run.ID,
		StartedAt:  run.StartedAt.Format(http.TimeFormat),
		FinishedAt: run.FinishedAt.Format(http.TimeFormat),
		Total:      run.Report.Total,
		Written:    len(run.Report.Written),
		Rejected:   len(run.Report.Rejected),
		Failed:     len(run.Report.Failed),
	}
}

// List returns summaries of all recorded runs.
func (ctrl *RunsController) List(c *echo.Context) error {
	runs, err := ctrl.App.Store.Runs()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, summarize(run))
	}

	return c.JSON(http.StatusOK, summaries)
}

// Get returns one full run, outcomes included.
func (ctrl *RunsController) Get(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.String(http.StatusBadRequest, "missing run id")
	}

	run, err := ctrl.App.Store.Run(id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if run == nil {
		return c.String(http.StatusNotFound, "run not found")
	}

	return c.JSON(http.StatusOK, run)
}
