package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"learnhub/config"
	"learnhub/internal/auth"
	"learnhub/internal/service"
	"learnhub/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withActor(id uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", id)
		c.Set("role", role)
		c.Next()
	}
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("load course: %w", service.ErrNotFound), http.StatusNotFound},
		{service.ErrNoAccess, http.StatusForbidden},
		{service.ErrDuplicateReport, http.StatusConflict},
		{service.ErrQuestionLocked, http.StatusLocked},
		{service.ErrOTPThrottled, http.StatusTooManyRequests},
		{auth.ErrInvalidToken, http.StatusUnauthorized},
		{service.ErrSelfReport, http.StatusUnprocessableEntity},
		{service.ErrProvider, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestRespondErrorMasksInternalErrors(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { respondError(c, errors.New("dial tcp: refused")) })

	w := doJSON(r, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "refused")
	assert.Contains(t, w.Body.String(), `"message":"internal server error"`)
}

func TestRespondErrorCarriesMessage(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { respondError(c, service.ErrDuplicateReport) })

	w := doJSON(r, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"`+service.ErrDuplicateReport.Error()+`"`)
}

func TestParseID(t *testing.T) {
	r := gin.New()
	r.GET("/items/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if ok {
			c.JSON(http.StatusOK, gin.H{"id": id})
		}
	})

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/items/42", "").Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/items/0", "").Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/items/abc", "").Code)
}

func TestParsePagination(t *testing.T) {
	cases := map[string][2]int{
		"/":                    {1, 20},
		"/?page=3&limit=50":    {3, 50},
		"/?page=-1&limit=1000": {1, 20},
		"/?page=x&limit=y":     {1, 20},
	}
	for path, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, path, nil)
		page, limit := parsePagination(c)
		assert.Equal(t, want[0], page, path)
		assert.Equal(t, want[1], limit, path)
	}
}

func TestActorRequired(t *testing.T) {
	h := NewReportHandler(nil)
	r := gin.New()
	r.POST("/forum/reports", h.Create)

	w := doJSON(r, http.MethodPost, "/forum/reports", `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportBindingUsesForumValidators(t *testing.T) {
	require.NoError(t, RegisterValidators())
	h := NewReportHandler(nil)
	r := gin.New()
	r.POST("/forum/reports", withActor(7, "STUDENT"), h.Create)

	cases := map[string]string{
		"unknown reason": `{"target_type":"answer","target_id":1,"reason":"boring"}`,
		"unknown target": `{"target_type":"course","target_id":1,"reason":"spam"}`,
		"missing target": `{"target_type":"reply","reason":"spam"}`,
	}
	for name, body := range cases {
		w := doJSON(r, http.MethodPost, "/forum/reports", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}

func TestCreateReplyRejectsEmptyText(t *testing.T) {
	h := NewForumHandler(nil)
	r := gin.New()
	r.POST("/forum/answers/:id/replies", withActor(3, "STUDENT"), h.CreateReply)

	w := doJSON(r, http.MethodPost, "/forum/answers/5/replies", `{"reply_text":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/forum/answers/nope/replies", `{"reply_text":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func newWebhookRouter() *gin.Engine {
	svc := service.NewPaymentService(&payment.StubProvider{}, nil, nil, nil, nil, nil, nil)
	r := gin.New()
	r.POST("/webhooks/payment", NewPaymentWebhookHandler(svc).Handle)
	return r
}

func TestPaymentWebhookRejectsBadSignature(t *testing.T) {
	r := newWebhookRouter()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBufferString(`{"event":"payment.captured"}`))
	req.Header.Set("X-Razorpay-Signature", "deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentWebhookAcknowledgesEventWithoutOrder(t *testing.T) {
	r := newWebhookRouter()
	body := `{"event":"payment.failed","payload":{"payment":{"entity":{}}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBufferString(body))
	req.Header.Set("X-Webhook-Signature", payment.Sign(body, payment.StubSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}

func TestGoogleOAuthNotConfigured(t *testing.T) {
	h := NewGoogleOAuthHandler(&config.Config{}, nil, nil)
	r := gin.New()
	r.GET("/auth/google", h.Redirect)
	r.POST("/auth/google/token", h.Token)

	assert.Equal(t, http.StatusServiceUnavailable, doJSON(r, http.MethodGet, "/auth/google", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(r, http.MethodPost, "/auth/google/token", `{"id_token":"x"}`).Code)
}

func TestGoogleOAuthRedirectSetsState(t *testing.T) {
	cfg := &config.Config{}
	cfg.OAuth.GoogleClientID = "client"
	cfg.OAuth.GoogleRedirectURL = "http://localhost/api/v1/auth/google/callback"
	h := NewGoogleOAuthHandler(cfg, nil, nil)
	r := gin.New()
	r.GET("/auth/google", h.Redirect)
	r.GET("/auth/google/callback", h.Callback)

	w := doJSON(r, http.MethodGet, "/auth/google", "")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "accounts.google.com")
	assert.Contains(t, w.Header().Get("Set-Cookie"), oauthStateCookie+"=")

	// no state cookie
	w = doJSON(r, http.MethodGet, "/auth/google/callback?state=abc&code=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadUnavailableWithoutCloud(t *testing.T) {
	h := NewUploadHandler(nil, nil)
	r := gin.New()
	r.POST("/instructor/courses/:id/thumbnail", withActor(2, "INSTRUCTOR"), h.CourseThumbnail)

	w := doJSON(r, http.MethodPost, "/instructor/courses/1/thumbnail", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
