package api

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

// streamBoard pushes the projected board as a server-sent event on connect
// and again after every change, using the criteria of the query string.
func streamBoard(board Board, subs Subscriber) echo.HandlerFunc {
	return func(c echo.Context) error {
		criteria := criteriaFrom(c)
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		c.Response().WriteHeader(http.StatusOK)

		ctx := c.Request().Context()
		ch := subs.Subscribe()
		defer subs.Unsubscribe(ch)
		for {
			data, err := sonic.ConfigStd.Marshal(board.View(criteria))
			if err != nil {
				c.Logger().Error(err)
				return err
			}
			if err := writeEvent(c.Response(), data); err != nil {
				return nil
			}
			flusher.Flush()
			select {
			case <-ctx.Done():
				return nil
			case _, open := <-ch:
				if !open {
					return nil
				}
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, data []byte) error {
	if _, err := w.Write([]byte("event: board\ndata: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n\n"))
	return err
}
