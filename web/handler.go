package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/lockgate/lockgate"
	"github.com/lockgate/lockgate/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// ResponseHooks let the host take over success rendering when
// Config.HandleResponse is false. Failure responses are always written by
// the handlers; only the happy paths are delegated.
type ResponseHooks struct {
	// LoginSuccess runs after a fully established session was saved.
	LoginSuccess func(c *gin.Context, res *lockgate.Result)
	// TwoFactorPending runs after the primary factor passed on a two-factor
	// account and the pending session was saved.
	TwoFactorPending func(c *gin.Context, res *lockgate.Result)
	// LogoutDone runs after the session was destroyed.
	LogoutDone func(c *gin.Context, snap lockgate.Snapshot)
}

// Handler binds an engine and a session store to HTTP routes.
type Handler struct {
	engine    *lockgate.Engine
	store     session.Store
	config    lockgate.Config
	hooks     ResponseHooks
	templates *template.Template
}

// New creates a Handler. The engine and store are required; hooks may be
// zero unless HandleResponse is disabled.
func New(engine *lockgate.Engine, store session.Store, hooks ResponseHooks) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("web: engine required")
	}
	if store == nil {
		return nil, errors.New("web: session store required")
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Handler{
		engine:    engine,
		store:     store,
		config:    engine.Config(),
		hooks:     hooks,
		templates: tmpl,
	}, nil
}

// Mount registers the routes on r according to the configured mode. REST
// mode prefixes every path with RESTBase and drops the GET login route;
// there is no form to render.
func (h *Handler) Mount(r gin.IRouter) {
	if h.config.REST {
		h.mountREST(r)
		return
	}

	r.GET(h.config.LoginRoute, h.getLogin)
	r.POST(h.config.LoginRoute, h.postLogin)
	r.GET(h.config.TwoFactorRoute, h.getTwoFactor)
	r.POST(h.config.TwoFactorRoute, h.postTwoFactor)
	r.GET(h.config.LogoutRoute, h.logout)
	r.POST(h.config.LogoutRoute, h.logout)
}

func (h *Handler) mountREST(r gin.IRouter) {
	r.POST(h.restPath(h.config.LoginRoute), h.postLogin)
	r.POST(h.restPath(h.config.TwoFactorRoute), h.postTwoFactor)
	r.POST(h.restPath(h.config.LogoutRoute), h.logout)
}

func (h *Handler) restPath(route string) string {
	return path.Join(h.config.RESTBase, route)
}

type credentials struct {
	Login    string `json:"login" form:"login"`
	Password string `json:"password" form:"password"`
}

type twoFactorBody struct {
	Token string `json:"token" form:"token"`
}

type loginView struct {
	Title  string
	Action string
	Login  string
	Error  string
}

// getLogin renders the login form. A ?redirect= query is captured into the
// session now so it survives the POST.
func (h *Handler) getLogin(c *gin.Context) {
	sess, err := h.store.Load(c.Request)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "session unavailable")
		return
	}

	if redirect := c.Query("redirect"); redirect != "" {
		sess.RedirectTarget = redirect
		if err := h.store.Save(c.Writer, sess); err != nil {
			h.fail(c, http.StatusInternalServerError, "session unavailable")
			return
		}
	}

	h.renderLogin(c, http.StatusOK, loginView{
		Title:  "Login",
		Action: h.config.LoginRoute,
	})
}

func (h *Handler) postLogin(c *gin.Context) {
	sess, err := h.store.Load(c.Request)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "session unavailable")
		return
	}

	// The query wins over a previously captured target so a fresh
	// /login?redirect=... link always takes effect.
	if redirect := c.Query("redirect"); redirect != "" {
		sess.RedirectTarget = redirect
	}

	var creds credentials
	if h.config.REST {
		if err := c.ShouldBindJSON(&creds); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": lockgate.MsgMissingCredentials})
			return
		}
	} else {
		creds.Login = c.PostForm("login")
		creds.Password = c.PostForm("password")
	}

	res, err := h.engine.Login(c.Request.Context(), creds.Login, creds.Password, sess, lockgate.Origin{IP: c.ClientIP()})
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "login unavailable")
		return
	}

	switch res.Outcome {
	case lockgate.OutcomeTwoFactorRequired:
		if err := h.store.Save(c.Writer, sess); err != nil {
			h.fail(c, http.StatusInternalServerError, "session unavailable")
			return
		}
		if !h.config.HandleResponse && h.hooks.TwoFactorPending != nil {
			h.hooks.TwoFactorPending(c, res)
			return
		}
		if h.config.REST {
			c.JSON(http.StatusOK, gin.H{"twoFactorEnabled": true})
			return
		}
		// The code form is rendered straight in the POST response; the GET
		// route exists for refreshes of the pending page.
		c.Status(http.StatusOK)
		c.Header("Content-Type", "text/html; charset=utf-8")
		_ = h.templates.ExecuteTemplate(c.Writer, "twofactor.html", loginView{
			Title:  "Two-Factor Authentication",
			Action: h.config.TwoFactorRoute,
		})

	case lockgate.OutcomeSuccess:
		if err := h.store.Save(c.Writer, sess); err != nil {
			h.fail(c, http.StatusInternalServerError, "session unavailable")
			return
		}
		if !h.config.HandleResponse && h.hooks.LoginSuccess != nil {
			h.hooks.LoginSuccess(c, res)
			return
		}
		if h.config.REST {
			c.Status(http.StatusNoContent)
			return
		}
		c.Redirect(http.StatusFound, res.Target)

	default:
		if h.config.REST {
			c.JSON(http.StatusForbidden, gin.H{"error": res.Message})
			return
		}
		h.renderLogin(c, http.StatusForbidden, loginView{
			Title:  "Login",
			Action: h.config.LoginRoute,
			Login:  creds.Login,
			Error:  res.Message,
		})
	}
}

// getTwoFactor renders the code form. Only reachable while a session is
// pending the second factor; anything else bounces back to the login page.
func (h *Handler) getTwoFactor(c *gin.Context) {
	sess, err := h.store.Load(c.Request)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "session unavailable")
		return
	}

	if sess.Email == "" || sess.LoggedIn {
		c.Redirect(http.StatusFound, h.config.LoginRoute)
		return
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = h.templates.ExecuteTemplate(c.Writer, "twofactor.html", loginView{
		Title:  "Two-Factor Authentication",
		Action: h.config.TwoFactorRoute,
	})
}

func (h *Handler) postTwoFactor(c *gin.Context) {
	sess, err := h.store.Load(c.Request)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "session unavailable")
		return
	}

	var body twoFactorBody
	if h.config.REST {
		_ = c.ShouldBindJSON(&body)
	} else {
		body.Token = c.PostForm("token")
	}

	res, err := h.engine.ConfirmTwoFactor(c.Request.Context(), body.Token, sess)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "login unavailable")
		return
	}

	if res.DestroySession {
		// Destruction is awaited so a rejected step-up can never leave a
		// half-authenticated session alive in the store.
		if err := h.store.Destroy(c.Request.Context(), c.Writer, sess); err != nil {
			h.fail(c, http.StatusInternalServerError, "session unavailable")
			return
		}
		if h.config.REST {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Redirect(http.StatusFound, h.config.LoginRoute+"?redirect="+url.QueryEscape(res.Target))
		return
	}

	if err := h.store.Save(c.Writer, sess); err != nil {
		h.fail(c, http.StatusInternalServerError, "session unavailable")
		return
	}
	if !h.config.HandleResponse && h.hooks.LoginSuccess != nil {
		h.hooks.LoginSuccess(c, res)
		return
	}
	if h.config.REST {
		c.Status(http.StatusNoContent)
		return
	}
	c.Redirect(http.StatusFound, res.Target)
}

func (h *Handler) logout(c *gin.Context) {
	sess, err := h.store.Load(c.Request)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "session unavailable")
		return
	}

	snap := h.engine.Logout(c.Request.Context(), sess)

	if err := h.store.Destroy(c.Request.Context(), c.Writer, sess); err != nil {
		h.fail(c, http.StatusInternalServerError, "session unavailable")
		return
	}

	if !h.config.HandleResponse && h.hooks.LogoutDone != nil {
		h.hooks.LogoutDone(c, snap)
		return
	}
	if h.config.REST {
		c.Status(http.StatusNoContent)
		return
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = h.templates.ExecuteTemplate(c.Writer, "loggedout.html", loginView{
		Title:  "Logout",
		Action: h.config.LoginRoute,
	})
}

func (h *Handler) renderLogin(c *gin.Context, status int, view loginView) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = h.templates.ExecuteTemplate(c.Writer, "login.html", view)
}

func (h *Handler) fail(c *gin.Context, status int, msg string) {
	if h.config.REST {
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}
	c.String(status, msg)
	c.Abort()
}
