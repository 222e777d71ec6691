package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const (
	AdminSessionName = "cake_admin"
	adminFlag        = "admin"
)

// AdminSessions garde le drapeau admin dans un cookie signé
type AdminSessions struct {
	store *sessions.CookieStore
}

func NewAdminSessions(secret string, secure bool) *AdminSessions {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &AdminSessions{store: store}
}

func (a *AdminSessions) Login(c *gin.Context) error {
	session, _ := a.store.Get(c.Request, AdminSessionName)
	session.Values[adminFlag] = true
	return session.Save(c.Request, c.Writer)
}

func (a *AdminSessions) Logout(c *gin.Context) error {
	session, _ := a.store.Get(c.Request, AdminSessionName)
	delete(session.Values, adminFlag)
	session.Options.MaxAge = -1
	return session.Save(c.Request, c.Writer)
}

func (a *AdminSessions) IsAdmin(r *http.Request) bool {
	session, err := a.store.Get(r, AdminSessionName)
	if err != nil {
		return false
	}
	flag, _ := session.Values[adminFlag].(bool)
	return flag
}

// RequireAdmin vérifie le drapeau admin de la session
func (a *AdminSessions) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.IsAdmin(c.Request) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Accès réservé aux administrateurs"})
			c.Abort()
			return
		}
		c.Set("role", "admin")
		c.Next()
	}
}
