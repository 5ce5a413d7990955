package superAdminRoutes

import (
	superAdminController "lms/controllers/superAdmin"
	"lms/middleware"
	"lms/models"
	superAdminValidator "lms/validators/superAdmin"

	"github.com/gofiber/fiber/v2"
)

// SetupSuperAdminRoutes mounts user management under /admin/users.
func SetupSuperAdminRoutes(app *fiber.App) {
	userGroup := app.Group("/admin/users", middleware.JWTMiddleware, middleware.RequireRole(models.RoleAdmin))

	userGroup.Get("/", superAdminValidator.List(), superAdminController.UserList)
	userGroup.Post("/staff", superAdminValidator.RegisterStaff(), superAdminController.RegisterStaff)
	userGroup.Put("/:id/role", superAdminValidator.UpdateRole(), superAdminController.UpdateUserRole)
}
