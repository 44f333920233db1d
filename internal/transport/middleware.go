package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/store"
)

// recordRawRequest persists every POST body to the raw event log
// before the route-specific handler runs, so a replay of the log can
// reproduce the request the node sent. The body is re-marshaled into
// compact, canonical JSON before it is stored, so the TSV export
// format's one-line-per-record guarantee holds regardless of how the
// node formatted its own request. It reads the body once and
// rewrites it onto the request so downstream handlers can still read
// it themselves. The store write happens synchronously and blocks the
// request: a failure here must abort with 500 before the route
// handler ever runs, so nothing may buffer this write behind the
// response.
func recordRawRequest(s store.Store, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodPost {
				return next(c)
			}

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				logger.Error("read raw request body", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to read request body"})
			}
			_ = c.Request().Body.Close()
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			canonical, err := canonicalizeJSON(body)
			if err != nil {
				logger.Error("canonicalize raw event payload", zap.String("path", c.Request().URL.Path), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to record raw event"})
			}

			if _, err := s.StoreRawEventRequest(c.Request().Context(), c.Request().URL.Path, canonical); err != nil {
				logger.Error("store raw event request", zap.String("path", c.Request().URL.Path), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to record raw event"})
			}

			return next(c)
		}
	}
}

// canonicalizeJSON re-marshals body into its compact form with no
// embedded tabs or newlines, matching the TSV export's requirement
// that each record occupy exactly one line.
func canonicalizeJSON(body []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
