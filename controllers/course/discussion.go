package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/services/discussion"
	"lms/validators"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

func GetDiscussions(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedDiscussionList").(*courseValidator.DiscussionListQuery)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	target, err := discussion.ParseTarget(reqData.TargetType, reqData.TargetID)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	threads, err := discussion.List(database.Database.Db, user, target)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Discussions fetched successfully!", threads)
}

func CreateDiscussion(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedDiscussion").(*courseValidator.CreateDiscussionRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	target, err := discussion.ParseTarget(reqData.TargetType, reqData.TargetID)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	d, err := discussion.Create(database.Database.Db, user, target, discussion.PostInput{
		Title:      reqData.Title,
		Body:       reqData.Body,
		IsQuestion: reqData.IsQuestion,
	})
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Discussion created!", d)
}

func ReplyDiscussion(c *fiber.Ctx) error {
	parentID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedReply").(*courseValidator.ReplyRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	reply, err := discussion.Reply(database.Database.Db, user, parentID, reqData.Body)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Reply posted!", reply)
}

func UpdateDiscussion(c *fiber.Ctx) error {
	id, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedDiscussionUpdate").(*courseValidator.UpdateDiscussionRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	d, err := discussion.Update(database.Database.Db, user, id, discussion.PostInput{
		Title:      reqData.Title,
		Body:       reqData.Body,
		IsQuestion: reqData.IsQuestion,
	})
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Discussion updated!", d)
}

func DeleteDiscussion(c *fiber.Ctx) error {
	id, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	if err := discussion.Delete(database.Database.Db, user, id); err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Discussion deleted!", nil)
}

func UpvoteDiscussion(c *fiber.Ctx) error {
	id, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	upvotes, err := discussion.Upvote(database.Database.Db, user, id)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Upvoted!", fiber.Map{"upvotes": upvotes})
}

func MarkDiscussionAnswered(c *fiber.Ctx) error {
	id, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	d, err := discussion.MarkAnswered(database.Database.Db, user, id)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Question marked as answered!", d)
}
