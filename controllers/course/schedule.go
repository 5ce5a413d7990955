package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/services/schedule"
	"lms/validators"

	"github.com/gofiber/fiber/v2"
)

func GetBatchRoutines(c *fiber.Ctx) error {
	batchID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	routines, err := schedule.Routines(database.Database.Db, user, batchID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Class routines fetched successfully!", routines)
}

// GetBatchZoom returns the live class link of a batch the user is active in
func GetBatchZoom(c *fiber.Ctx) error {
	batchID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	z, err := schedule.ZoomFor(database.Database.Db, deps.Meetings, user, batchID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Zoom link fetched successfully!", z)
}
