package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"menu-admin/config"
	"menu-admin/logger"
	"menu-admin/services"
)

const (
	SessionCookie = "session"
	signInPath    = "/auth/signin"
	roleAdmin     = "admin"
)

var ErrInvalidToken = errors.New("invalid session token")

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator checks the single admin credential and issues HS256
// session tokens. Everything downstream only sees "authenticated or not".
type Authenticator struct {
	username     string
	hash         []byte
	secret       []byte
	ttl          time.Duration
	secureCookie bool
	throttle     *services.LoginThrottle
	now          func() time.Time
}

func NewAuthenticator(cfg config.AuthConfig, secureCookie bool) (*Authenticator, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}
	hash := []byte(cfg.AdminHash)
	if len(hash) == 0 {
		if cfg.AdminPassword == "" {
			return nil, fmt.Errorf("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD must be set")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		username:     cfg.AdminUsername,
		hash:         hash,
		secret:       []byte(cfg.JWTSecret),
		ttl:          ttl,
		secureCookie: secureCookie,
		throttle:     services.NewLoginThrottle(),
		now:          time.Now,
	}, nil
}

// attempt checks the credential for the caller's IP under the login
// throttle. wait is non-zero when the caller is still cooling down, in
// which case the credential is not checked at all.
func (a *Authenticator) attempt(c *gin.Context, username, password string) (ok bool, wait int) {
	ip := c.ClientIP()
	if wait := a.throttle.WaitSeconds(services.ThrottleChannelHTTP, ip); wait > 0 {
		c.Header("Retry-After", strconv.Itoa(wait))
		return false, wait
	}
	if !a.Verify(username, password) {
		a.throttle.RecordFailed(services.ThrottleChannelHTTP, ip)
		logger.FromContext(c.Request.Context()).Warn("admin login failed", "ip", ip)
		return false, 0
	}
	a.throttle.RecordSuccess(services.ThrottleChannelHTTP, ip)
	return true, 0
}

func (a *Authenticator) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	return userOK && passOK
}

func (a *Authenticator) Issue(username string) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	claims := Claims{
		Role: roleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "menu-admin",
		},
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return ss, exp, nil
}

func (a *Authenticator) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !t.Valid || claims.Role != roleAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticated reports whether the request carries a valid session, either
// as the session cookie or as a bearer token.
func (a *Authenticator) Authenticated(c *gin.Context) bool {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token, _ = c.Cookie(SessionCookie)
	}
	if token == "" {
		return false
	}
	_, err := a.Parse(token)
	return err == nil
}

// RequireSession guards JSON endpoints.
func (a *Authenticator) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Authenticated(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// RequireAdminPage guards /admin pages, sending browsers to the sign-in page.
func (a *Authenticator) RequireAdminPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Authenticated(c) {
			c.Redirect(http.StatusFound, signInPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (a *Authenticator) setSessionCookie(c *gin.Context, token string, exp time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(exp.Sub(a.now()).Seconds()), "/", "", a.secureCookie, true)
}

func (a *Authenticator) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", a.secureCookie, true)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// login is the JSON sign-in used by API clients.
func (a *Authenticator) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	ok, wait := a.attempt(c, req.Username, req.Password)
	if wait > 0 {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": fmt.Sprintf("Too many attempts, try again in %d seconds", wait)})
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	token, exp, err := a.Issue(req.Username)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	a.setSessionCookie(c, token, exp)
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": exp})
}

func (a *Authenticator) signInPage(c *gin.Context) {
	if a.Authenticated(c) {
		c.Redirect(http.StatusFound, "/admin/menu")
		return
	}
	c.HTML(http.StatusOK, "signin.html", gin.H{})
}

func (a *Authenticator) signInForm(c *gin.Context) {
	username := c.PostForm("username")
	ok, wait := a.attempt(c, username, c.PostForm("password"))
	if wait > 0 {
		msg := fmt.Sprintf("Too many attempts, try again in %d seconds", wait)
		c.HTML(http.StatusTooManyRequests, "signin.html", gin.H{"Error": msg, "Username": username})
		return
	}
	if !ok {
		c.HTML(http.StatusUnauthorized, "signin.html", gin.H{"Error": "Invalid username or password", "Username": username})
		return
	}
	token, exp, err := a.Issue(username)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "signin.html", gin.H{"Error": "Could not start a session"})
		return
	}
	a.setSessionCookie(c, token, exp)
	c.Redirect(http.StatusFound, "/admin/menu")
}

func (a *Authenticator) signOut(c *gin.Context) {
	a.clearSessionCookie(c)
	c.Redirect(http.StatusFound, signInPath)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
