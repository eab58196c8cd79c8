package logging

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/config"
	log "github.com/sirupsen/logrus"
)

func TestSetupWritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "ministry.log")
	closer, err := Setup(config.LoggingConfig{Level: "debug", Format: "json", File: file})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() { log.SetOutput(os.Stdout) })

	log.WithField("component", "test").Debug("hello")
	if errClose := closer.Close(); errClose != nil {
		t.Fatalf("close: %v", errClose)
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"component":"test"`) || !strings.Contains(string(raw), `"msg":"hello"`) {
		t.Fatalf("unexpected log output %s", raw)
	}
}

func TestGinLoggerMasksQueryAndRecoveryReturns500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
	t.Cleanup(func() { log.SetOutput(os.Stdout) })

	r := gin.New()
	r.Use(GinLogger(), GinRecovery())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok?token=abcdefghijkl", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if strings.Contains(buf.String(), "abcdefghijkl") || !strings.Contains(buf.String(), "abcd...ijkl") {
		t.Fatalf("expected masked query in log, got %s", buf.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError || w.Body.String() != `{"error":"Internal server error"}` {
		t.Fatalf("unexpected recovery response %d %s", w.Code, w.Body.String())
	}
}
