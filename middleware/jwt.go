package middleware

import (
	"fmt"
	"strings"
	"time"

	"lms/config"
	"lms/database"
	"lms/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

func tokenTTL() time.Duration {
	if config.AppConfig != nil && config.AppConfig.JWTTTLHours > 0 {
		return time.Duration(config.AppConfig.JWTTTLHours) * time.Hour
	}
	return 24 * time.Hour
}

// GenerateJWT generates a JWT token for the user
func GenerateJWT(user models.User) (string, error) {
	claims := jwt.MapClaims{
		"userId": user.ID,
		"name":   user.Name,
		"role":   user.Role,
		"email":  user.Email,
		"jti":    fmt.Sprintf("%d-%d", user.ID, time.Now().UnixNano()),
		"iat":    time.Now().Unix(),
		"exp":    time.Now().Add(tokenTTL()).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTKey))
}

func unauthorized(c *fiber.Ctx, message string) error {
	return JsonResponse(c, fiber.StatusUnauthorized, false, message, nil)
}

// JWTMiddleware is a middleware to check for valid JWT token in the request
func JWTMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return unauthorized(c, "Missing or invalid Authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return unauthorized(c, "Invalid Authorization header format")
	}
	tokenString := authHeader[len("Bearer "):]

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.JWTKey), nil
	})
	if err != nil || !token.Valid {
		return unauthorized(c, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["userId"] == nil {
		return unauthorized(c, "Invalid token payload")
	}

	var revoked int64
	if err := database.Database.Db.Model(&models.TokenBlacklist{}).
		Where("token = ?", tokenString).Count(&revoked).Error; err != nil {
		return HandleError(c, err)
	}
	if revoked > 0 {
		return unauthorized(c, "Token has been revoked")
	}

	userID, _ := claims["userId"].(float64)
	role, _ := claims["role"].(string)
	c.Locals("userId", uint(userID))
	c.Locals("role", role)
	c.Locals("token", tokenString)
	if exp, ok := claims["exp"].(float64); ok {
		c.Locals("tokenExpiresAt", time.Unix(int64(exp), 0))
	}

	return c.Next()
}

// CurrentUser loads the authenticated user. Blocked or deleted accounts are rejected.
func CurrentUser(c *fiber.Ctx) (models.User, error) {
	var user models.User
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return user, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error
	if database.IsNotFound(err) {
		return user, fiber.NewError(fiber.StatusUnauthorized, "User not found!")
	}
	return user, err
}
