package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"groundbook/models"
	"groundbook/utils"

	"github.com/gin-gonic/gin"
)

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWTAuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, ActorFrom(c))
	})
	r.GET("/ops", JWTAuthMiddleware(), OperatorOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func call(r *gin.Engine, path, authorization string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestJWTAuthMiddleware(t *testing.T) {
	r := authRouter()
	requester, _ := utils.GenerateToken("u1", models.ActorRequester, time.Hour)
	operator, _ := utils.GenerateToken("op", models.ActorOperator, time.Hour)
	system, _ := utils.GenerateToken("svc", models.ActorSystem, time.Hour)
	expired, _ := utils.GenerateToken("u1", models.ActorRequester, -time.Minute)

	tests := []struct {
		name string
		path string
		auth string
		want int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"not bearer", "/me", "Token " + requester, http.StatusUnauthorized},
		{"garbage", "/me", "Bearer nope", http.StatusUnauthorized},
		{"expired", "/me", "Bearer " + expired, http.StatusUnauthorized},
		{"system role", "/me", "Bearer " + system, http.StatusForbidden},
		{"requester", "/me", "Bearer " + requester, http.StatusOK},
		{"requester on operator route", "/ops", "Bearer " + requester, http.StatusForbidden},
		{"operator", "/ops", "Bearer " + operator, http.StatusNoContent},
	}
	for _, tt := range tests {
		if got := call(r, tt.path, tt.auth); got != tt.want {
			t.Errorf("%s: status %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := getClientIP(c); ip != "203.0.113.7" {
		t.Errorf("getClientIP = %q", ip)
	}
}
