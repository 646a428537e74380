package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"

	"learnhub/config"
	"learnhub/internal/repository"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateCookie = "oauth_state"
	googleUserInfo   = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleTokenInfo  = "https://oauth2.googleapis.com/tokeninfo?id_token="
)

type GoogleOAuthHandler struct {
	cfg       *config.Config
	authSvc   *service.AuthService
	auditRepo repository.AuditLogStore
}

func NewGoogleOAuthHandler(cfg *config.Config, authSvc *service.AuthService, auditRepo repository.AuditLogStore) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{cfg: cfg, authSvc: authSvc, auditRepo: auditRepo}
}

func (h *GoogleOAuthHandler) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.OAuth.GoogleClientID,
		ClientSecret: h.cfg.OAuth.GoogleClientSecret,
		RedirectURL:  h.cfg.OAuth.GoogleRedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

func (h *GoogleOAuthHandler) configured(c *gin.Context) bool {
	if h.cfg.OAuth.GoogleClientID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured", "message": "Google OAuth not configured"})
		return false
	}
	return true
}

// Redirect sends the browser to the Google consent screen.
func (h *GoogleOAuthHandler) Redirect(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		respondError(c, err)
		return
	}
	state := hex.EncodeToString(b)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.cfg.IsProduction(), true)
	c.Redirect(http.StatusFound, h.OAuth2Config().AuthCodeURL(state, oauth2.AccessTypeOnline))
}

type googleProfile struct {
	ID      string `json:"id"`
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (p googleProfile) subject() string {
	if p.Sub != "" {
		return p.Sub
	}
	return p.ID
}

// Callback exchanges the code, loads the Google profile and signs the user in.
func (h *GoogleOAuthHandler) Callback(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		badRequest(c, "invalid oauth state")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.cfg.IsProduction(), true)
	code := c.Query("code")
	if code == "" {
		badRequest(c, "missing code")
		return
	}
	ctx := c.Request.Context()
	conf := h.OAuth2Config()
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		badRequest(c, "exchange failed")
		return
	}
	resp, err := conf.Client(ctx, tok).Get(googleUserInfo)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to get user info", "message": "failed to get user info"})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to get user info", "message": "failed to get user info"})
		return
	}
	var info googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "invalid user info", "message": "invalid user info"})
		return
	}
	h.signIn(c, info, "google_oauth_login")
}

// Token accepts an ID token from a mobile Google sign-in and returns JWTs.
func (h *GoogleOAuthHandler) Token(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	var req struct {
		IDToken string `json:"id_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "id_token required")
		return
	}
	httpReq, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, googleTokenInfo+url.QueryEscape(req.IDToken), nil)
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "token verification failed", "message": "token verification failed"})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		badRequest(c, "invalid id_token")
		return
	}
	var info struct {
		googleProfile
		Aud string `json:"aud"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "invalid token response", "message": "invalid token response"})
		return
	}
	if info.Aud != h.cfg.OAuth.GoogleClientID {
		badRequest(c, "id_token issued for another client")
		return
	}
	h.signIn(c, info.googleProfile, "google_oauth_token")
}

func (h *GoogleOAuthHandler) signIn(c *gin.Context, info googleProfile, action string) {
	if info.subject() == "" || info.Email == "" {
		badRequest(c, "invalid Google profile")
		return
	}
	res, created, err := h.authSvc.LoginWithGoogle(c.Request.Context(), info.subject(), info.Email, info.Name, info.Picture)
	if err != nil {
		respondError(c, err)
		return
	}
	auditLog(c, h.auditRepo, res.User.ID, action, "auth", "", map[string]interface{}{"created": created})
	c.JSON(http.StatusOK, res)
}
