package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"github.com/stretchr/testify/assert"
)

func roleRequest(user *models.User) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/users", nil)
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), UserContextKey, user))
	}
	return req
}

func TestRequireRoleMiddleware(t *testing.T) {
	svc := NewService(nil)

	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	handler := svc.RequireRoleMiddleware("admin", next)

	cases := []struct {
		name string
		user *models.User
		code int
		pass bool
	}{
		{"admin passes", &models.User{Role: "admin"}, http.StatusOK, true},
		{"plain user forbidden", &models.User{Role: "user"}, http.StatusForbidden, false},
		{"unauthenticated rejected", nil, http.StatusUnauthorized, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called = false
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, roleRequest(tc.user))
			assert.Equal(t, tc.code, rr.Code)
			assert.Equal(t, tc.pass, called)
		})
	}
}
