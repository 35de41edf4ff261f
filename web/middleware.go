package web

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/lockgate/lockgate"
)

// identityKey is where Protect stores the session identity in the gin
// context.
const identityKey = "lockgate.identity"

// Identity returns the snapshot Protect stored for the current request.
// The second return is false on routes not behind Protect.
func Identity(c *gin.Context) (lockgate.Snapshot, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return lockgate.Snapshot{}, false
	}
	snap, ok := v.(lockgate.Snapshot)
	return snap, ok
}

// Protect guards routes that require a fully authenticated session. A
// pending two-factor session does not pass. Unauthenticated HTML requests
// are redirected to the login page with the originally requested URL in the
// redirect query; REST requests get a bare 401.
func (h *Handler) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := h.store.Load(c.Request)
		if err != nil {
			h.fail(c, http.StatusInternalServerError, "session unavailable")
			return
		}

		if sess.LoggedIn {
			c.Set(identityKey, lockgate.Snapshot{
				Name:     sess.Name,
				Email:    sess.Email,
				LoggedIn: true,
			})
			c.Next()
			return
		}

		if h.config.REST {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Redirect(http.StatusFound, h.config.LoginRoute+"?redirect="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}
