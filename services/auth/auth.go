// Package auth registers users, checks credentials with a short lockout after repeated
// failures, revokes tokens and resets passwords with emailed one time codes.
package auth

import (
	"log"
	"strings"
	"time"

	"lms/apperror"
	"lms/database"
	"lms/models"
	"lms/utils"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MaxFailedLogins = 3
	LockoutDuration = time.Minute
	// Failures older than this no longer count towards the lockout.
	FailureWindow = 15 * time.Minute
	OTPValidity   = 10 * time.Minute
)

// Service carries the knobs that come from configuration.
type Service struct {
	SaltRound int
	Now       func() time.Time
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Service) hash(password string) (string, error) {
	cost := s.SaltRound
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(hashed), errors.Wrap(err, "hash password")
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Mobile   string
	Role     string // empty means student
}

// Register creates an account, a student one unless in.Role says otherwise.
func (s Service) Register(db *gorm.DB, in RegisterInput) (models.User, error) {
	email := NormalizeEmail(in.Email)

	var taken int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
		return models.User{}, errors.Wrap(err, "check email")
	}
	if taken > 0 {
		return models.User{}, apperror.Validation(map[string]string{"email": "Email is already registered!"})
	}

	hashed, err := s.hash(in.Password)
	if err != nil {
		return models.User{}, err
	}

	role := in.Role
	if role == "" {
		role = models.RoleStudent
	}
	user := models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Mobile:   in.Mobile,
		Role:     role,
		Password: hashed,
	}
	if err := db.Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return models.User{}, apperror.Validation(map[string]string{"email": "Email is already registered!"})
		}
		return models.User{}, errors.Wrap(err, "create user")
	}
	return user, nil
}

// Login checks the password. Three wrong passwords within the failure window block the
// account for a minute.
func (s Service) Login(db *gorm.DB, email, password, ip, device string) (models.User, error) {
	var user models.User
	if err := db.Where("email = ? AND is_deleted = ?", NormalizeEmail(email), false).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			return user, apperror.Unauthorized("Invalid credentials!")
		}
		return user, errors.Wrap(err, "load user")
	}

	now := s.now()
	if user.IsBlocked && user.BlockedUntil != nil && user.BlockedUntil.After(now) {
		return user, apperror.Unauthorized("Your account is temporarily blocked. Try again later.")
	}
	if user.LastFailedLogin != nil && now.Sub(*user.LastFailedLogin) > FailureWindow {
		user.FailedLoginAttempts = 0
		user.LastFailedLogin = nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		user.FailedLoginAttempts++
		user.LastFailedLogin = &now
		if user.FailedLoginAttempts >= MaxFailedLogins {
			unblock := now.Add(LockoutDuration)
			user.IsBlocked = true
			user.BlockedUntil = &unblock
			user.FailedLoginAttempts = 0
			log.Printf("[AUTH] User %d blocked until %s", user.ID, unblock.Format(time.RFC3339))
		}
		if err := db.Save(&user).Error; err != nil {
			log.Printf("[AUTH] Error saving failed login for user %d: %v", user.ID, err)
		}
		return user, apperror.Unauthorized("Invalid credentials!")
	}

	user.LastLogin = &now
	user.FailedLoginAttempts = 0
	user.LastFailedLogin = nil
	user.IsBlocked = false
	user.BlockedUntil = nil
	if err := db.Save(&user).Error; err != nil {
		log.Printf("[AUTH] Error saving last login for user %d: %v", user.ID, err)
	}

	if err := db.Create(&models.LoginTracking{UserID: user.ID, IPAddress: ip, Device: device, Timestamp: now}).Error; err != nil {
		log.Printf("[AUTH] Error saving login tracking for user %d: %v", user.ID, err)
	}
	return user, nil
}

// Logout blacklists token until expiresAt.
func (s Service) Logout(db *gorm.DB, userID uint, token string, expiresAt time.Time) error {
	entry := models.TokenBlacklist{Token: token, UserID: userID, ExpiresAt: expiresAt}
	err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token"}}, DoNothing: true}).Create(&entry).Error
	return errors.Wrap(err, "blacklist token")
}

type ProfileInput struct {
	Name         string
	Mobile       string
	Bio          string
	ProfileImage string
}

// UpdateProfile changes the editable profile fields. Empty values leave a field unchanged.
func (s Service) UpdateProfile(db *gorm.DB, userID uint, in ProfileInput) (models.User, error) {
	updates := map[string]interface{}{}
	if in.Name != "" {
		updates["name"] = strings.TrimSpace(in.Name)
	}
	if in.Mobile != "" {
		updates["mobile"] = in.Mobile
	}
	if in.Bio != "" {
		updates["bio"] = in.Bio
	}
	if in.ProfileImage != "" {
		updates["profile_image"] = in.ProfileImage
	}

	var user models.User
	if err := db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			return user, apperror.NotFound("User not found!")
		}
		return user, errors.Wrap(err, "load user")
	}
	if len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return user, errors.Wrap(err, "update profile")
		}
	}
	return user, db.First(&user, userID).Error
}

// ForgotPassword stores a reset code and returns it. Unknown emails return an empty code and
// no error so the endpoint does not reveal which addresses exist.
func (s Service) ForgotPassword(db *gorm.DB, email string) (string, error) {
	var user models.User
	if err := db.Where("email = ? AND is_deleted = ?", NormalizeEmail(email), false).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			return "", nil
		}
		return "", errors.Wrap(err, "load user")
	}

	code := utils.GenerateOTP()
	otp := models.OTP{
		UserID:      user.ID,
		Email:       user.Email,
		Code:        code,
		ExpiresAt:   s.now().Add(OTPValidity),
		Description: models.OTPPasswordReset,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		// Older codes stop working once a new one is issued.
		if err := tx.Model(&models.OTP{}).
			Where("user_id = ? AND description = ? AND is_used = ?", user.ID, models.OTPPasswordReset, false).
			Update("is_used", true).Error; err != nil {
			return err
		}
		return tx.Create(&otp).Error
	})
	if err != nil {
		return "", errors.Wrap(err, "store otp")
	}
	return code, nil
}

// ResetPassword sets a new password when code is the latest unexpired reset code.
func (s Service) ResetPassword(db *gorm.DB, email, code, password string) error {
	var otp models.OTP
	err := db.Where("email = ? AND code = ? AND description = ? AND is_used = ? AND is_deleted = ?",
		NormalizeEmail(email), code, models.OTPPasswordReset, false, false).
		Order("id desc").First(&otp).Error
	if database.IsNotFound(err) {
		return apperror.Unauthorized("Invalid OTP or OTP expired!")
	}
	if err != nil {
		return errors.Wrap(err, "load otp")
	}
	if s.now().After(otp.ExpiresAt) {
		return apperror.Unauthorized("OTP has expired!")
	}

	hashed, err := s.hash(password)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&otp).Update("is_used", true).Error; err != nil {
			return errors.Wrap(err, "use otp")
		}
		return errors.Wrap(tx.Model(&models.User{}).Where("id = ?", otp.UserID).Updates(map[string]interface{}{
			"password":              hashed,
			"failed_login_attempts": 0,
			"is_blocked":            false,
			"blocked_until":         nil,
		}).Error, "set password")
	})
}
