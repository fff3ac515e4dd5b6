package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
	"taskboard/export"
)

const (
	maxBodyBytes = 1 << 20
	boardTitle   = "Task Manager"

	HeaderConfirmDelete = "X-Confirm-Delete"
)

var errNotFound = errors.New("task not found")

// Register wires up all board routes on the provided Echo instance. subs may
// be nil, in which case the stream endpoint is not served.
func Register(e *echo.Echo, board Board, subs Subscriber, logger *log.Logger) {
	e.GET("/healthz", healthz())
	e.GET("/api/board", instrumented(logger, "/api/board", getBoard(board)))
	e.GET("/api/board.pdf", instrumented(logger, "/api/board.pdf", getBoardPDF(board)))
	e.GET("/api/tasks", instrumented(logger, "/api/tasks", getTasks(board)))
	e.POST("/api/tasks", instrumented(logger, "/api/tasks", postTask(board)))
	e.PUT("/api/tasks/:id", instrumented(logger, "/api/tasks/:id", putTask(board)))
	e.DELETE("/api/tasks/:id", instrumented(logger, "/api/tasks/:id", deleteTask(board)))
	e.POST("/api/drag", instrumented(logger, "/api/drag", postDrag(board)))
	if subs != nil {
		e.GET("/api/stream", streamBoard(board, subs))
	}
}

type metricsHandler func(c echo.Context, m *requestMetrics) error

func instrumented(logger *log.Logger, route string, h metricsHandler) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), logger, route)
		c.SetRequest(c.Request().WithContext(ctx))
		m.SetRequestID(c.Response().Header().Get(echo.HeaderXRequestID))
		defer func() {
			m.Log(c.Response().Status, err)
		}()
		return h(c, m)
	}
}

// taskRequest is the add/edit form body. Blank enumerations take the form
// defaults; unknown ones are rejected.
type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate"`
}

func (r taskRequest) fields() (domain.Fields, error) {
	f := domain.NewFields()
	f.Title = r.Title
	f.Description = r.Description
	f.DueDate = strings.TrimSpace(r.DueDate)
	if p := strings.TrimSpace(r.Priority); p != "" {
		v, ok := domain.ParsePriority(p)
		if !ok {
			return f, fmt.Errorf("unknown priority %q", p)
		}
		f.Priority = v
	}
	if s := strings.TrimSpace(r.Status); s != "" {
		v, ok := domain.ParseStatus(s)
		if !ok {
			return f, fmt.Errorf("unknown status %q", s)
		}
		f.Status = v
	}
	return f, nil
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

type taskResponse struct {
	Task      domain.Task `json:"task"`
	Persisted bool        `json:"persisted"`
}

type deleteResponse struct {
	Deleted   bool `json:"deleted"`
	Persisted bool `json:"persisted"`
}

type dragResponse struct {
	Moved     bool `json:"moved"`
	Persisted bool `json:"persisted"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func criteriaFrom(c echo.Context) domain.Criteria {
	return domain.ParseCriteria(c.QueryParam("priority"), c.QueryParam("status"), c.QueryParam("sortBy"))
}

func getBoard(board Board) metricsHandler {
	return func(c echo.Context, m *requestMetrics) error {
		start := time.Now()
		view := board.View(criteriaFrom(c))
		m.ObserveProject(time.Since(start))
		m.SetCards(view.Len())

		start = time.Now()
		err := c.JSON(http.StatusOK, view)
		m.ObserveEncode(time.Since(start))
		if err != nil {
			m.Fail("encode_response", err)
		}
		return err
	}
}

func getBoardPDF(board Board) metricsHandler {
	return func(c echo.Context, m *requestMetrics) error {
		start := time.Now()
		view := board.View(criteriaFrom(c))
		m.ObserveProject(time.Since(start))
		m.SetCards(view.Len())

		c.Response().Header().Set(echo.HeaderContentType, "application/pdf")
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="board.pdf"`)
		c.Response().WriteHeader(http.StatusOK)
		start = time.Now()
		err := export.WritePDF(c.Response(), view, boardTitle)
		m.ObserveEncode(time.Since(start))
		if err != nil {
			m.Fail("render_pdf", err)
			c.Logger().Error(err)
		}
		return err
	}
}

func getTasks(board Board) metricsHandler {
	return func(c echo.Context, m *requestMetrics) error {
		tasks := board.Tasks()
		m.SetCards(len(tasks))
		return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
	}
}

func postTask(board Board) metricsHandler {
	return func(c echo.Context, m *requestMetrics) error {
		var req taskRequest
		if err := decodeBody(c, &req); err != nil {
			m.Fail("decode", nil)
			return c.String(http.StatusBadRequest, "invalid body")
		}
		f, err := req.fields()
		if err != nil {
			m.Fail("validate", nil)
			return c.String(http.StatusBadRequest, err.Error())
		}
		t, ok, err := board.AddTask(c.Request().Context(), f)
		if !ok {
			m.Fail("validate", nil)
			return c.String(http.StatusUnprocessableEntity, "title is required")
		}
		m.SetMutated(true)
		if err != nil {
			m.Fail("persist", err)
		}
		return c.JSON(http.StatusCreated, taskResponse{Task: t, Persisted: err == nil})
	}
}

func putTask(board Board) metricsHandler {
	return func(c echo.Context, m *requestMetrics) error {
		id, err := domain.ParseTaskID(c.Param("id"))
		if err != nil {
			m.Fail("invalid_id", nil)
			return c.String(http.StatusBadRequest, "invalid task id")
		}
		if _, exists := board.Get(id); !exists {
			m.Fail("not_found", nil)
			return c.String(http.StatusNotFound, errNotFound.Error())
		}
		var req taskRequest
		if err := decodeBody(c, &req); err != nil {
			m.Fail("decode", nil)
			return c.String(http.StatusBadRequest, "invalid body")
		}
		f, err := req.fields()
		if err != nil {
			m.Fail("validate", nil)
			return c.String(http.StatusBadRequest, err.Error())
		}
		t, ok, err := board.EditTask(c.Request().Context(), id, f)
		if !ok {
			// the task may have gone between the lookup and the edit
			if _, exists := board.Get(id); !exists {
				m.Fail("not_found", nil)
				return c.String(http.StatusNotFound, errNotFound.Error())
			}
			m.Fail("validate", nil)
			return c.String(http.StatusUnprocessableEntity, "title is required")
		}
		m.SetMutated(true)
		if err != nil {
			m.Fail("persist", err)
		}
		return c.JSON(http.StatusOK, taskResponse{Task: t, Persisted: err == nil})
	}
}

// deleteConfirmed reports whether the caller answered the removal prompt.
func deleteConfirmed(c echo.Context) bool {
	if strings.EqualFold(strings.TrimSpace(c.Request().Header.Get(HeaderConfirmDelete)), "yes") {
		return true
	}
	return strings.EqualFold(c.QueryParam("confirm"), "true")
}

func deleteTask(board Board) metricsHandler {
	return func(c echo.Context, m *requestMetrics) error {
		id, err := domain.ParseTaskID(c.Param("id"))
		if err != nil {
			m.Fail("invalid_id", nil)
			return c.String(http.StatusBadRequest, "invalid task id")
		}
		var asked bool
		confirm := domain.ConfirmFunc(func(domain.Task) bool {
			asked = true
			return deleteConfirmed(c)
		})
		deleted, err := board.DeleteTask(c.Request().Context(), id, confirm)
		if !deleted {
			if !asked {
				m.Fail("not_found", nil)
				return c.String(http.StatusNotFound, errNotFound.Error())
			}
			m.Fail("unconfirmed", nil)
			return c.String(http.StatusConflict, "deletion requires confirmation")
		}
		m.SetMutated(true)
		if err != nil {
			m.Fail("persist", err)
		}
		return c.JSON(http.StatusOK, deleteResponse{Deleted: true, Persisted: err == nil})
	}
}

func postDrag(board Board) metricsHandler {
	return func(c echo.Context, m *requestMetrics) error {
		var outcome domain.DragOutcome
		if err := decodeBody(c, &outcome); err != nil {
			m.Fail("decode", nil)
			return c.String(http.StatusBadRequest, "invalid body")
		}
		moved, err := board.ApplyDrag(c.Request().Context(), outcome)
		m.SetMutated(moved)
		if err != nil {
			m.Fail("persist", err)
		}
		return c.JSON(http.StatusOK, dragResponse{Moved: moved, Persisted: err == nil})
	}
}

func decodeBody(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
