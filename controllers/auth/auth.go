package authController

import (
	"log"
	"time"

	"lms/config"
	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/services/auth"
	"lms/utils"
	authValidator "lms/validators/auth"

	"github.com/gofiber/fiber/v2"
)

const avatarMaxSide = 512

var (
	service auth.Service
	storage utils.Storage
)

// Setup wires the auth controllers to their configuration and file storage.
func Setup(cfg *config.Config, store utils.Storage) {
	service = auth.Service{SaltRound: cfg.SaltRound}
	storage = store
}

func Signup(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedSignup").(*authValidator.SignupRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	user, err := service.Register(database.Database.Db, auth.RegisterInput{
		Name:     reqData.Name,
		Email:    reqData.Email,
		Password: reqData.Password,
		Mobile:   reqData.Mobile,
	})
	if err != nil {
		return middleware.HandleError(c, err)
	}

	utils.SendWelcomeEmail(user.Email, user.Name)
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "User registered successfully.", user)
}

func Login(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedLogin").(*authValidator.LoginRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	user, err := service.Login(database.Database.Db, reqData.Email, reqData.Password, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return middleware.HandleError(c, err)
	}

	token, err := middleware.GenerateJWT(user)
	if err != nil {
		log.Printf("[AUTH] Error generating token for user %d: %v", user.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login successful.", fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout revokes the bearer token used for this request.
func Logout(c *fiber.Ctx) error {
	userId, _ := c.Locals("userId").(uint)
	token, _ := c.Locals("token").(string)
	expiresAt, ok := c.Locals("tokenExpiresAt").(time.Time)
	if !ok {
		expiresAt = time.Now().Add(24 * time.Hour)
	}

	if err := service.Logout(database.Database.Db, userId, token, expiresAt); err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Logged out successfully.", nil)
}

func Me(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Profile fetched.", user)
}

// UpdateMe edits the profile. An optional "avatar" file is converted to webp and stored.
func UpdateMe(c *fiber.Ctx) error {
	userId, _ := c.Locals("userId").(uint)
	reqData, ok := c.Locals("validatedProfile").(*authValidator.UpdateProfileRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	in := auth.ProfileInput{Name: reqData.Name, Mobile: reqData.Mobile, Bio: reqData.Bio}
	if file, err := c.FormFile("avatar"); err == nil {
		url, err := utils.SaveUploadedImage(c.UserContext(), storage, file, "avatars", avatarMaxSide)
		if err != nil {
			log.Printf("[AUTH] Error saving avatar for user %d: %v", userId, err)
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid avatar image!", nil)
		}
		in.ProfileImage = url
	}

	user, err := service.UpdateProfile(database.Database.Db, userId, in)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Profile updated successfully.", user)
}

func ForgotPassword(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedForgotPassword").(*authValidator.ForgotPasswordRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	code, err := service.ForgotPassword(database.Database.Db, reqData.Email)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	if code != "" {
		if err := utils.SendOTPEmail(auth.NormalizeEmail(reqData.Email), code); err != nil {
			log.Printf("[AUTH] Error sending reset OTP: %v", err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to send OTP email!", nil)
		}
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "If the email is registered, an OTP has been sent.", nil)
}

func ResetPassword(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedResetPassword").(*authValidator.ResetPasswordRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	if err := service.ResetPassword(database.Database.Db, reqData.Email, reqData.OTP, reqData.Password); err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Password reset successfully.", nil)
}

func LoginHistoryList(c *fiber.Ctx) error {
	userId, _ := c.Locals("userId").(uint)
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	db := database.Database.Db.Model(&models.LoginTracking{}).Where("user_id = ? AND is_deleted = ?", userId, false)
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return middleware.HandleError(c, err)
	}

	var history []models.LoginTracking
	if err := db.Order("timestamp desc").Offset((page - 1) * limit).Limit(limit).Find(&history).Error; err != nil {
		return middleware.HandleError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login History List.", fiber.Map{
		"loginTracking": history,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}
