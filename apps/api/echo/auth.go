package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/madrasa-app/madrasa/core"
	"github.com/madrasa-app/madrasa/core/session"
	"github.com/madrasa-app/madrasa/core/user"
)

// appJWTConfig is the default JWT auth middleware config.
var appJWTConfig = middleware.JWTConfig{
	SigningKey:    core.Conf.SecretKey,
	SigningMethod: middleware.AlgorithmHS256,
	ContextKey:    "userToken",
	Claims:        new(Claims),
}

// Claims represents the authorization claims transmitted via a JWT.
// The Id claim carries the opaque session token so a presented JWT can be
// matched against the active session.
type Claims struct {
	jwt.StandardClaims
	Username    string   `json:"username,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	IsAdmin     bool     `json:"is_admin,omitempty"`
}

func GetUserClaims(usr user.User, sess session.Session) *Claims {
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        sess.Token,
			Issuer:    core.Conf.AppName,
			Subject:   usr.ID,
			Audience:  "Madrasa",
			ExpiresAt: sess.ExpiresAt.Unix(),
			IssuedAt:  time.Now().Unix(),
		},
		Username:    usr.Username,
		Role:        usr.Role,
		Permissions: usr.Permissions,
		IsAdmin:     usr.IsAdmin(),
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func claimsHavePermission(claims Claims, perm string) bool {
	if claims.IsAdmin {
		return true
	}
	for _, p := range claims.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// requireActiveSession returns the claims along with the session they refer to.
// A JWT whose Id no longer matches the active session token has been superseded
// by a newer login or a token refresh.
func requireActiveSession(ctx echo.Context, sessions *session.Manager) (Claims, session.Session, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return Claims{}, session.Session{}, errors.Wrap(err, "getting context claims")
	}
	sess, ok := sessions.CurrentSession()
	if !ok || sess.Token != claims.Id {
		return Claims{}, session.Session{}, errSessionSuperseded
	}
	return claims, sess, nil
}
