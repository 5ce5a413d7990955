package auth

import (
	"strings"

	"lms/apperror"
	"lms/database"
	"lms/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var roles = map[string]bool{
	models.RoleStudent:    true,
	models.RoleInstructor: true,
	models.RoleAdmin:      true,
}

type UserFilter struct {
	Search string
	Role   string
	Page   int
	Limit  int
}

// ListUsers pages through accounts, matching Search against name and email.
func ListUsers(db *gorm.DB, f UserFilter) ([]models.User, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}

	query := db.Model(&models.User{}).Where("is_deleted = ?", false)
	if f.Role != "" {
		query = query.Where("role = ?", f.Role)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count users")
	}

	var users []models.User
	err := query.Order("created_at desc").Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&users).Error
	return users, total, errors.Wrap(err, "list users")
}

// SetRole changes a user's role. An admin cannot demote themselves.
func SetRole(db *gorm.DB, actorID, userID uint, role string) (models.User, error) {
	var user models.User
	if !roles[role] {
		return user, apperror.Validation(map[string]string{"role": "Role must be one of STUDENT, INSTRUCTOR, ADMIN!"})
	}
	if actorID == userID && role != models.RoleAdmin {
		return user, apperror.Forbidden("You cannot change your own role!")
	}

	if err := db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			return user, apperror.NotFound("User not found!")
		}
		return user, errors.Wrap(err, "load user")
	}
	if user.Role == role {
		return user, nil
	}
	if err := db.Model(&user).Update("role", role).Error; err != nil {
		return user, errors.Wrap(err, "update role")
	}
	user.Role = role
	return user, nil
}
