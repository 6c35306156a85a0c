package echoapi

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/course"
	"github.com/trezcool/mwalimu/services/logger"
)

func TestAppHTTPErrorHandler_shutdown(t *testing.T) {
	conf := &core.Config{TestMode: true}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	_, translator := core.NewValidator()

	tests := []struct {
		name         string
		err          error
		wantCode     int
		wantMessage  string
		wantShutdown bool
	}{
		{
			name:         "integrity failure",
			err:          failed(errors.Wrap(core.NewShutdownError("rolling back transaction: conn closed"), "creating chapter"), "Failed to create chapter"),
			wantCode:     http.StatusInternalServerError,
			wantMessage:  "Failed to create chapter",
			wantShutdown: true,
		},
		{
			name:        "server error",
			err:         failed(errors.New("conn reset"), "Failed to create chapter"),
			wantCode:    http.StatusInternalServerError,
			wantMessage: "Failed to create chapter",
		},
		{
			name:        "not found",
			err:         failed(course.ErrNotFound, "Failed to create chapter"),
			wantCode:    http.StatusNotFound,
			wantMessage: "Course not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var shutdown bool
			handler := newAppHTTPErrorHandler(logger, translator, func() { shutdown = true })

			e := echo.New()
			rec := httptest.NewRecorder()
			ctx := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
			handler(tt.err, ctx)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), `"message":"`+tt.wantMessage+`"`)
			assert.Equal(t, tt.wantShutdown, shutdown)
		})
	}
}
