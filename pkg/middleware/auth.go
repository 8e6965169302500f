package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"transcode-orchestrator/pkg/errno"
	"transcode-orchestrator/pkg/restapi"
)

// AuthMiddleware 校验Bearer token，签名算法固定为HMAC。
func AuthMiddleware(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			restapi.Failed(c, errno.ErrUnauthorized)
			c.Abort()
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errno.ErrUnauthorized
			}
			return []byte(secret), nil
		}, jwt.WithIssuer(issuer))
		if err != nil || !token.Valid {
			restapi.Failed(c, errno.NewBizError(errno.ErrUnauthorized, err))
			c.Abort()
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if sub, _ := claims["sub"].(string); sub != "" {
				c.Set("user_pubkey", sub)
			}
		}
		c.Next()
	}
}
