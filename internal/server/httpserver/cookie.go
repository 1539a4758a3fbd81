package httpserver

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/usersecrets/internal/common"
	"github.com/gin-gonic/gin"
)

// CookieHelper manages the session and OAuth state cookies. Both are
// HttpOnly and SameSite=Lax so the provider redirect still carries them.
type CookieHelper struct {
	secure bool
}

func NewCookieHelper(secure bool) *CookieHelper {
	return &CookieHelper{secure: secure}
}

func (h *CookieHelper) SetSession(c *gin.Context, token string, ttl time.Duration) {
	h.setCookie(c, common.SessionCookieName, token, int(ttl.Seconds()))
}

func (h *CookieHelper) ClearSession(c *gin.Context) {
	h.setCookie(c, common.SessionCookieName, "", -1)
}

// Session returns the session token, or "" when absent.
func (h *CookieHelper) Session(c *gin.Context) string {
	token, err := c.Cookie(common.SessionCookieName)
	if err != nil {
		return ""
	}
	return token
}

func (h *CookieHelper) SetOAuthState(c *gin.Context, state string, ttl time.Duration) {
	h.setCookie(c, common.OAuthStateCookieName, state, int(ttl.Seconds()))
}

func (h *CookieHelper) ClearOAuthState(c *gin.Context) {
	h.setCookie(c, common.OAuthStateCookieName, "", -1)
}

func (h *CookieHelper) OAuthState(c *gin.Context) string {
	state, err := c.Cookie(common.OAuthStateCookieName)
	if err != nil {
		return ""
	}
	return state
}

func (h *CookieHelper) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.secure, true)
}
