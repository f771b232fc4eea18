package echoapi

import (
	"time"

	"github.com/madrasa-app/madrasa/core"
	"github.com/madrasa-app/madrasa/core/user"
)

type (
	LoginRequest struct {
		Username   string `json:"username" validate:"required"`
		Password   string `json:"password" validate:"required"`
		Role       string `json:"role" validate:"required"`
		RememberMe bool   `json:"remember_me"`
	}

	LoginResponse struct {
		Success   bool      `json:"success"`
		Message   string    `json:"message"`
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
		User      user.User `json:"user"`
	}

	TokenResponse struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	ChangePasswordRequest struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}

	MeResponse struct {
		User    user.User       `json:"user"`
		Session SessionResponse `json:"session"`
	}

	SessionResponse struct {
		ID           string    `json:"id"`
		Device       string    `json:"device,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
		ExpiresAt    time.Time `json:"expires_at"`
		LastActivity time.Time `json:"last_activity"`
	}

	DecisionRequest struct {
		Note string `json:"note"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	lr.Role = core.CleanString(lr.Role, true /* lower */)
	return core.Validate.Struct(lr)
}
