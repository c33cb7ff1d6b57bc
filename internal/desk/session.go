package desk

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
)

// sessionIssuer mints the cookie that /api/session validates.
type sessionIssuer struct {
	signingKey []byte
	issuer     string
	cookieName string
	ttl        time.Duration
	now        func() time.Time
}

func newSessionIssuer(cfg Config) *sessionIssuer {
	return &sessionIssuer{
		signingKey: []byte(cfg.SessionSigningKey),
		issuer:     cfg.SessionIssuer,
		cookieName: cfg.SessionCookieName,
		ttl:        cfg.SessionTTL,
		now:        time.Now,
	}
}

func (issuer *sessionIssuer) issue(username string) (string, time.Time, error) {
	issuedAt := issuer.now().UTC()
	expiresAt := issuedAt.Add(issuer.ttl)
	claims := &sessionvalidator.Claims{
		UserID:          username,
		UserDisplayName: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer.issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expiresAt, nil
}

func (issuer *sessionIssuer) setCookie(ctx *gin.Context, token string) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(issuer.cookieName, token, int(issuer.ttl.Seconds()), "/", "", false, true)
}
