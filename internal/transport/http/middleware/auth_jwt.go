package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sum-admin/internal/core/auth"
	"sum-admin/internal/event"
	resp "sum-admin/internal/transport/http/response"
)

const keyClaims = "claims"

func bearer(c *gin.Context) (string, bool) {
	ah := c.GetHeader("Authorization")
	if !strings.HasPrefix(ah, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(ah, "Bearer ")), true
}

// AuthJWT 必须携带有效 Bearer
func AuthJWT(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearer(c)
		if !ok {
			resp.Abort(c, http.StatusUnauthorized, "Token requerido")
			return
		}
		claims, err := j.Parse(tok)
		if err != nil {
			resp.Abort(c, http.StatusUnauthorized, "Token inválido")
			return
		}
		c.Set(keyClaims, claims)
		c.Request = c.Request.WithContext(event.WithActor(c.Request.Context(), actorOf(c, claims)))
		c.Next()
	}
}

// Actor 把操作者（有效 token 的用户 + 客户端 IP）放进请求 context，供事件信封使用。
// token 缺失或无效时只带 IP，不拦截。
func Actor(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var claims *auth.Claims
		if tok, ok := bearer(c); ok && j != nil {
			if cl, err := j.Parse(tok); err == nil {
				claims = cl
				c.Set(keyClaims, cl)
			}
		}
		c.Request = c.Request.WithContext(event.WithActor(c.Request.Context(), actorOf(c, claims)))
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(keyClaims)
	if !ok {
		return nil
	}
	cl, _ := v.(*auth.Claims)
	return cl
}

func actorOf(c *gin.Context, claims *auth.Claims) *event.Actor {
	a := &event.Actor{IP: c.ClientIP()}
	if claims != nil {
		uid := claims.UID
		a.UserID = &uid
		a.Username = claims.Username
	}
	return a
}
