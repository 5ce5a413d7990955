package superAdminController

import (
	"lms/config"
	"lms/database"
	"lms/middleware"
	"lms/services/auth"
	"lms/validators"
	superAdminValidator "lms/validators/superAdmin"

	"github.com/gofiber/fiber/v2"
)

func UserList(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validateUserList").(*superAdminValidator.UserListQuery)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	users, total, err := auth.ListUsers(database.Database.Db, auth.UserFilter{
		Search: reqData.Search,
		Role:   reqData.Role,
		Page:   reqData.Page,
		Limit:  reqData.Limit,
	})
	if err != nil {
		return middleware.HandleError(c, err)
	}

	response := map[string]interface{}{
		"users": users,
		"pagination": map[string]interface{}{
			"total": total,
			"page":  reqData.Page,
			"limit": reqData.Limit,
		},
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "User List.", response)
}

// RegisterStaff creates an instructor (or admin) account on behalf of the school.
func RegisterStaff(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedStaff").(*superAdminValidator.RegisterStaffRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	svc := auth.Service{SaltRound: config.AppConfig.SaltRound}
	user, err := svc.Register(database.Database.Db, auth.RegisterInput{
		Name:     reqData.Name,
		Email:    reqData.Email,
		Password: reqData.Password,
		Mobile:   reqData.Mobile,
		Role:     reqData.Role,
	})
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Staff registered successfully.", user)
}

func UpdateUserRole(c *fiber.Ctx) error {
	userID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedRole").(*superAdminValidator.RoleRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	actorID, _ := c.Locals("userId").(uint)

	user, err := auth.SetRole(database.Database.Db, actorID, userID, reqData.Role)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Role updated successfully.", user)
}
