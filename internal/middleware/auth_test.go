package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lalith-99/chathub/internal/auth"
)

const secret = "test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c).String(), "email": GetEmail(c)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	id := uuid.New()
	good, err := auth.GenerateToken(id, "ada@example.com", secret, time.Hour)
	require.NoError(t, err)
	forged, err := auth.GenerateToken(id, "ada@example.com", "other", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer header", "Bearer " + good, "", http.StatusOK},
		{"lowercase scheme", "bearer " + good, "", http.StatusOK},
		{"query param", "", good, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + good, "", http.StatusUnauthorized},
		{"forged", "Bearer " + forged, "", http.StatusUnauthorized},
		{"bad header beats good query", "Token x", good, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?" + QueryTokenParam + "=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newRouter().ServeHTTP(w, req)

			require.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				require.Contains(t, w.Body.String(), id.String())
				require.Contains(t, w.Body.String(), "ada@example.com")
			}
		})
	}
}

func TestGetUserID_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	require.Equal(t, uuid.Nil, GetUserID(c))
	require.Empty(t, GetEmail(c))
}
