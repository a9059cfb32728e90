// Package webserver owns the echo instance and the route groups the
// admin API registers into.
package webserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	jwtv4 "github.com/golang-jwt/jwt/v4"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/glosspoint/glosspoint/config"
	"github.com/glosspoint/glosspoint/internal/domain"
)

const sessionName = "glosspoint_session"

type WebServer struct {
	root *echo.Echo
	pub  *echo.Group
	api  *echo.Group
	cfg  *config.AppConfig
}

var server *WebServer

type payloadValidator struct {
	validate *validator.Validate
}

func (v *payloadValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// Init builds the echo instance with session, jwt and logging middleware.
func Init(cfg *config.AppConfig) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &payloadValidator{validate: validator.New()}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return random.String(16) },
	}))
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(cfg.Web.Secret))))
	e.Use(requestLogger())

	server = &WebServer{root: e, cfg: cfg}
	server.pub = e.Group("/pub")
	server.api = e.Group("/api")
	server.api.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.Web.Secret),
	}))
	return server
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			zap.L().Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	}
}

// Listen blocks serving HTTP on the configured address.
func Listen() error {
	addr := fmt.Sprintf("%s:%d", server.cfg.Web.Host, server.cfg.Web.Port)
	zap.L().Info("admin api listening", zap.String("addr", addr))
	return server.root.Start(addr)
}

func Shutdown() {
	_ = server.root.Close()
}

// Echo exposes the root instance for tests.
func Echo() *echo.Echo {
	return server.root
}

// PubGET registers an unauthenticated route.
func PubGET(path string, h echo.HandlerFunc) {
	server.pub.GET(path, h)
}

func PubPOST(path string, h echo.HandlerFunc) {
	server.pub.POST(path, h)
}

// ApiGET registers a jwt-protected route.
func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

// IssueToken signs a bearer token for the profile.
func IssueToken(p *domain.Profile, secret string, expireMinutes int) (string, error) {
	if expireMinutes <= 0 {
		expireMinutes = 120
	}
	claims := jwtv4.MapClaims{
		"uid":      fmt.Sprintf("%d", p.ID),
		"username": p.Username,
		"role":     p.Role,
		"exp":      time.Now().Add(time.Duration(expireMinutes) * time.Minute).Unix(),
	}
	token := jwtv4.NewWithClaims(jwtv4.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// TokenClaims is the identity the jwt middleware verified.
type TokenClaims struct {
	UID      int64
	Username string
	Role     string
}

// CurrentClaims extracts the verified identity from the request context.
func CurrentClaims(c echo.Context) (*TokenClaims, error) {
	token, ok := c.Get("user").(*jwtv5.Token)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	claims, ok := token.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "malformed claims")
	}
	return &TokenClaims{
		UID:      cast.ToInt64(claims["uid"]),
		Username: cast.ToString(claims["username"]),
		Role:     cast.ToString(claims["role"]),
	}, nil
}

// RequireAdmin rejects non-admin tokens.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := CurrentClaims(c)
		if err != nil {
			return err
		}
		if claims.Role != domain.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin role required")
		}
		return next(c)
	}
}

// SaveSession stores the signed-in profile id in the cookie session.
func SaveSession(c echo.Context, p *domain.Profile) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options = &sessions.Options{Path: "/", MaxAge: 86400, HttpOnly: true}
	sess.Values["uid"] = fmt.Sprintf("%d", p.ID)
	sess.Values["username"] = p.Username
	return sess.Save(c.Request(), c.Response())
}

// ClearSession drops the cookie session.
func ClearSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options = &sessions.Options{Path: "/", MaxAge: -1}
	sess.Values = map[interface{}]interface{}{}
	return sess.Save(c.Request(), c.Response())
}

// SessionUID returns the profile id stored in the cookie session, 0 when
// no session exists.
func SessionUID(c echo.Context) int64 {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return 0
	}
	return cast.ToInt64(sess.Values["uid"])
}
