package authValidator

import (
	"regexp"
	"strings"

	"lms/validators"

	"github.com/gofiber/fiber/v2"
)

var mobilePattern = regexp.MustCompile(`^\+?\d{9,15}$`)

type SignupRequest struct {
	Name     string `json:"name" validate:"required,notblank,min=3,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Mobile   string `json:"mobile" validate:"omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UpdateProfileRequest is read from a multipart form so an avatar file can come along.
type UpdateProfileRequest struct {
	Name   string `json:"name" form:"name" validate:"omitempty,min=3,max=100"`
	Mobile string `json:"mobile" form:"mobile" validate:"omitempty"`
	Bio    string `json:"bio" form:"bio" validate:"omitempty,max=1000"`
}

func checkMobile(mobile string, errs map[string]string) {
	if mobile != "" && !mobilePattern.MatchString(mobile) {
		errs["mobile"] = "Invalid mobile number!"
	}
}

// Signup validator middleware
func Signup() fiber.Handler {
	return validators.Body("validatedSignup", func(r *SignupRequest, errs map[string]string) {
		r.Name = strings.TrimSpace(r.Name)
		r.Email = strings.TrimSpace(r.Email)
		checkMobile(r.Mobile, errs)
	})
}

func Login() fiber.Handler {
	return validators.Body[LoginRequest]("validatedLogin")
}

func ForgotPassword() fiber.Handler {
	return validators.Body[ForgotPasswordRequest]("validatedForgotPassword")
}

func ResetPassword() fiber.Handler {
	return validators.Body[ResetPasswordRequest]("validatedResetPassword")
}

func UpdateProfile() fiber.Handler {
	return validators.Body("validatedProfile", func(r *UpdateProfileRequest, errs map[string]string) {
		r.Name = strings.TrimSpace(r.Name)
		checkMobile(r.Mobile, errs)
	})
}
