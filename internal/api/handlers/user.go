package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/api/utils"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/auth"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"gorm.io/gorm"
)

// UserService handles user-related operations
type UserService struct {
	DB *gorm.DB
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// LoginHandler handles user login
func LoginHandler(svc *UserService, authSvc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("Invalid request body", http.StatusBadRequest))
			return
		}

		user, err := authSvc.AuthenticateUser(req.Username, req.Password)
		if err != nil {
			switch err {
			case auth.ErrInvalidCredentials:
				utils.SendErrorResponse(w, utils.NewAPIError("Invalid credentials", http.StatusUnauthorized))
			case auth.ErrInactiveUser:
				utils.SendErrorResponse(w, utils.NewAPIError("User account is inactive", http.StatusForbidden))
			default:
				utils.SendErrorResponse(w, utils.NewAPIError("Authentication failed", http.StatusInternalServerError))
			}
			return
		}

		token, err := authSvc.GenerateToken(user)
		if err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("Failed to generate token", http.StatusInternalServerError))
			return
		}

		// Update last seen
		now := time.Now()
		user.LastSeen = &now
		svc.DB.Save(user)

		utils.SendSuccessResponse(w, http.StatusOK, map[string]any{
			"token": token,
			"user": map[string]any{
				"id":       user.ID,
				"username": user.Username,
				"email":    user.Email,
				"role":     user.Role,
			},
		})
	}
}

// RefreshTokenHandler exchanges a still-valid token for a fresh one so
// dashboard sessions survive the 24h expiry without re-entering credentials
func RefreshTokenHandler(authSvc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token string `json:"token"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
			utils.SendErrorResponse(w, utils.NewAPIError("Invalid request body", http.StatusBadRequest))
			return
		}

		token, err := authSvc.RefreshToken(req.Token)
		if err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("Invalid or expired token", http.StatusUnauthorized))
			return
		}

		utils.SendSuccessResponse(w, http.StatusOK, map[string]string{"token": token})
	}
}

// CreateUserHandler creates a new dashboard user
func CreateUserHandler(svc *UserService, authSvc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("Invalid request body", http.StatusBadRequest))
			return
		}

		if req.Username == "" || req.Email == "" || req.Password == "" {
			utils.SendErrorResponse(w, utils.NewAPIError("Username, email, and password are required", http.StatusBadRequest))
			return
		}

		if req.Role != "admin" && req.Role != "user" {
			req.Role = "user"
		}

		user, err := authSvc.CreateUser(req.Username, req.Email, req.Password, req.Role)
		if err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError(err.Error(), http.StatusBadRequest))
			return
		}

		// Return user without password
		utils.SendSuccessResponse(w, http.StatusCreated, map[string]any{
			"id":         user.ID,
			"username":   user.Username,
			"email":      user.Email,
			"role":       user.Role,
			"is_active":  user.IsActive,
			"created_at": user.CreatedAt,
			"updated_at": user.UpdatedAt,
		})
	}
}

// GetProfileHandler returns the authenticated user's profile
func GetProfileHandler(svc *UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := r.Context().Value(auth.UserContextKey).(*models.User)
		if !ok {
			utils.SendErrorResponse(w, utils.NewAPIError("User not authenticated", http.StatusUnauthorized))
			return
		}

		// Return user profile without password
		utils.SendSuccessResponse(w, http.StatusOK, map[string]any{
			"id":         user.ID,
			"username":   user.Username,
			"email":      user.Email,
			"role":       user.Role,
			"is_active":  user.IsActive,
			"created_at": user.CreatedAt,
			"updated_at": user.UpdatedAt,
		})
	}
}

// ChangePasswordHandler allows a user to change their password
func ChangePasswordHandler(svc *UserService, authSvc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := r.Context().Value(auth.UserContextKey).(*models.User)
		if !ok {
			utils.SendErrorResponse(w, utils.NewAPIError("User not authenticated", http.StatusUnauthorized))
			return
		}

		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("Invalid request body", http.StatusBadRequest))
			return
		}

		err := authSvc.ChangePassword(user.ID, req.OldPassword, req.NewPassword)
		if err != nil {
			if err == auth.ErrInvalidCredentials {
				utils.SendErrorResponse(w, utils.NewAPIError("Invalid old password", http.StatusBadRequest))
			} else {
				utils.SendErrorResponse(w, utils.NewAPIError("Failed to change password", http.StatusInternalServerError))
			}
			return
		}

		utils.SendSuccessResponseWithMessage(w, "password changed", nil)
	}
}
