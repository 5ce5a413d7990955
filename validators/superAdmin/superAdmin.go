package superAdminValidator

import (
	"strings"

	"lms/models"
	"lms/validators"

	"github.com/gofiber/fiber/v2"
)

type UserListQuery struct {
	Search string `query:"search" validate:"omitempty,max=100"`
	Role   string `query:"role" validate:"omitempty,oneof=STUDENT INSTRUCTOR ADMIN"`
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// RegisterStaffRequest creates an instructor or admin account directly, without signup.
type RegisterStaffRequest struct {
	Name     string `json:"name" validate:"required,notblank,min=3,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Mobile   string `json:"mobile"`
	Role     string `json:"role" validate:"omitempty,oneof=INSTRUCTOR ADMIN"`
}

type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=STUDENT INSTRUCTOR ADMIN"`
}

func List() fiber.Handler {
	return validators.Query("validateUserList", func(r *UserListQuery, _ map[string]string) {
		r.Search = strings.TrimSpace(r.Search)
	})
}

func RegisterStaff() fiber.Handler {
	return validators.Body("validatedStaff", func(r *RegisterStaffRequest, _ map[string]string) {
		r.Name = strings.TrimSpace(r.Name)
		if r.Role == "" {
			r.Role = models.RoleInstructor
		}
	})
}

func UpdateRole() fiber.Handler {
	return validators.Body[RoleRequest]("validatedRole")
}
