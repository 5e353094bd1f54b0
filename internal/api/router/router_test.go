package router

import (
	"bytes"
	"net/http"
	"testing"

	"profile-insight-go/internal/api/handler"
	"profile-insight-go/internal/config"
	"profile-insight-go/internal/processor"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(cfg *config.Config) *server.Hertz {
	svc := processor.NewProfileService(cfg, processor.Components{})
	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	RegisterRoutes(h, cfg, handler.NewProfileHandler(cfg, svc))
	return h
}

func parseText(h *server.Hertz, headers ...ut.Header) *ut.ResponseRecorder {
	body := bytes.NewBufferString(`{"text":"Jane Doe\nSoftware Engineer"}`)
	headers = append(headers, ut.Header{Key: "Content-Type", Value: "application/json"})
	return ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/profiles/parse/text",
		&ut.Body{Body: body, Len: body.Len()}, headers...)
}

func TestRequestID(t *testing.T) {
	h := newServer(config.DefaultConfig())

	resp := ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/health", nil)
	generated := resp.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 26, "ULID 字符串长度")

	resp = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/health", nil,
		ut.Header{Key: HeaderRequestID, Value: "req-123"})
	assert.Equal(t, "req-123", resp.Header().Get(HeaderRequestID))
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.APIKeys = []string{"secret-1", "secret-2"}
	h := newServer(cfg)

	resp := parseText(h)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = parseText(h, ut.Header{Key: HeaderAPIKey, Value: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = parseText(h, ut.Header{Key: HeaderAPIKey, Value: "secret-2"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// 健康检查不受鉴权影响
	resp = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestNoAuthWithoutKeys(t *testing.T) {
	h := newServer(config.DefaultConfig())
	resp := parseText(h)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}
