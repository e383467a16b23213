package payload

import (
	"strings"
	"time"
)

type RegisterRequest struct {
	Name     string `json:"name"     validate:"required,min=2,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Number   string `json:"number"   validate:"required,number,min=7,max=15"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Number = strings.TrimSpace(r.Number)
}

type RegisterResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type LoginResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
	OTPID   string `json:"otp_id,omitempty"`
	OTP     string `json:"otp,omitempty"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp"   validate:"required,numeric,len=6"`
}

func (r *VerifyOTPRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.OTP = strings.TrimSpace(r.OTP)
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ResendOTPRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionResponse is returned by verify-otp and refresh-token.
type SessionResponse struct {
	Message      string `json:"message"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// User is the public projection of an account. It never carries credentials.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Number    string     `json:"number"`
	Role      string     `json:"role"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

type ProfileResponse struct {
	Message string `json:"message,omitempty"`
	User    User   `json:"user"`
}

type UpdateProfileRequest struct {
	Name   string `json:"name"   validate:"required,alnumspace,max=100"`
	Number string `json:"number" validate:"required,number,max=15"`
}

func (r *UpdateProfileRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Number = strings.TrimSpace(r.Number)
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ForgotPasswordRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type ResetPasswordRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	Token       string `json:"token"        validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=128"`
}

func (r *ResetPasswordRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Token = strings.TrimSpace(r.Token)
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}
