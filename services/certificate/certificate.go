// Package certificate issues course certificates when an exam response is graded with a
// passing percentage.
package certificate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"lms/apperror"
	"lms/database"
	"lms/models"
	"lms/models/course"
	examModels "lms/models/exam"
	"lms/services/events"
	"lms/utils"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const DefaultPassPercentage = 40.0

// Issuer renders, stores and records certificates.
type Issuer struct {
	Renderer       Renderer
	Storage        utils.Storage
	Mailer         utils.Mailer
	PassPercentage float64
}

func (is *Issuer) passPercentage() float64 {
	if is.PassPercentage <= 0 {
		return DefaultPassPercentage
	}
	return is.PassPercentage
}

// Eligible reports whether a response earns a certificate.
func (is *Issuer) Eligible(r examModels.Response) bool {
	return r.Status == examModels.ResponseGraded && r.Percentage >= is.passPercentage()
}

// HandleExamResponseGraded is the events.Handler for ExamResponseGraded.
func (is *Issuer) HandleExamResponseGraded(db *gorm.DB, e events.Event) error {
	evt, ok := e.(events.ExamResponseGraded)
	if !ok {
		return fmt.Errorf("unexpected event %T", e)
	}
	_, err := is.Issue(db, evt.ResponseID)
	if err != nil {
		utils.ReportError("CERTIFICATE", err, map[string]interface{}{"exam_response_id": evt.ResponseID})
	}
	return err
}

// Issue creates the certificate for a response if it is eligible and has none yet. It returns
// nil when the response does not qualify, and the existing row when one was already issued.
func (is *Issuer) Issue(db *gorm.DB, responseID uint) (*course.Certificate, error) {
	var response examModels.Response
	if err := db.Preload("Exam").First(&response, responseID).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound("Exam response not found!")
		}
		return nil, errors.Wrap(err, "load response")
	}
	if !is.Eligible(response) || response.Exam == nil {
		return nil, nil
	}

	existing, err := byResponse(db, response.ID)
	if err != nil || existing != nil {
		return existing, err
	}

	user, crs, err := loadOwner(db, response.UserID, response.Exam.CourseID)
	if err != nil {
		return nil, err
	}

	cert := course.Certificate{
		UserID:         user.ID,
		CourseID:       crs.ID,
		ExamResponseID: response.ID,
		Code:           NewCode(),
		IssuedAt:       time.Now(),
	}
	if err := is.renderAndStore(&cert, user, crs); err != nil {
		return nil, err
	}

	if err := db.Create(&cert).Error; err != nil {
		if database.IsUniqueViolation(err) {
			// A concurrent grade of the same response issued it first.
			return byResponse(db, response.ID)
		}
		return nil, errors.Wrap(err, "create certificate")
	}
	log.Printf("[CERTIFICATE] Issued %s to user %d for course %d (response %d)", cert.Code, user.ID, crs.ID, response.ID)

	is.notify(user, crs, cert)
	return &cert, nil
}

// Regenerate re-renders the file of the certificate for a response, or issues it when the
// response qualifies and has none.
func (is *Issuer) Regenerate(db *gorm.DB, responseID uint) (*course.Certificate, error) {
	existing, err := byResponse(db, responseID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		cert, err := is.Issue(db, responseID)
		if err != nil {
			return nil, err
		}
		if cert == nil {
			return nil, apperror.Conflict("This exam response does not qualify for a certificate!")
		}
		return cert, nil
	}

	user, crs, err := loadOwner(db, existing.UserID, existing.CourseID)
	if err != nil {
		return nil, err
	}
	if err := is.renderAndStore(existing, user, crs); err != nil {
		return nil, err
	}
	if err := db.Model(existing).Updates(map[string]interface{}{
		"file_path": existing.FilePath,
		"file_url":  existing.FileURL,
	}).Error; err != nil {
		return nil, errors.Wrap(err, "update certificate")
	}
	log.Printf("[CERTIFICATE] Regenerated %s", existing.Code)
	return existing, nil
}

func (is *Issuer) renderAndStore(cert *course.Certificate, user models.User, crs course.Course) error {
	pdf, err := is.Renderer.Render(Data{
		StudentName: user.Name,
		CourseTitle: crs.Title,
		Code:        cert.Code,
		IssuedAt:    cert.IssuedAt,
	})
	if err != nil {
		return err
	}

	stored, url, err := is.Storage.Put(context.Background(), "certificates/"+FileName(user.Name, crs.Title, time.Now()), pdf, "application/pdf")
	if err != nil {
		return errors.Wrap(err, "store certificate")
	}
	cert.FilePath, cert.FileURL = stored, url
	return nil
}

func (is *Issuer) notify(user models.User, crs course.Course, cert course.Certificate) {
	if is.Mailer == nil {
		return
	}
	if err := utils.SendCertificateEmail(is.Mailer, user.Email, user.Name, crs.Title, cert.Code, cert.FileURL); err != nil {
		log.Printf("[CERTIFICATE] Error emailing %s: %v", user.Email, err)
	}
}

// FileName is "{slug(user course)}-{unix}.pdf".
func FileName(userName, courseTitle string, at time.Time) string {
	return fmt.Sprintf("%s-%d.pdf", utils.Slugify(userName+" "+courseTitle, 150), at.Unix())
}

// NewCode returns a random certificate code such as CERT-9F1C2A7B3D4E.
func NewCode() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "CERT-" + id[:12]
}

func byResponse(db *gorm.DB, responseID uint) (*course.Certificate, error) {
	var cert course.Certificate
	err := db.Where("exam_response_id = ?", responseID).First(&cert).Error
	if database.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load certificate")
	}
	return &cert, nil
}

func loadOwner(db *gorm.DB, userID, courseID uint) (models.User, course.Course, error) {
	var user models.User
	var crs course.Course
	if err := db.First(&user, userID).Error; err != nil {
		return user, crs, errors.Wrap(err, "load certificate owner")
	}
	if err := db.First(&crs, courseID).Error; err != nil {
		return user, crs, errors.Wrap(err, "load certificate course")
	}
	return user, crs, nil
}

// List returns the user's certificates, newest first.
func List(db *gorm.DB, userID uint) ([]course.Certificate, error) {
	var certs []course.Certificate
	err := db.Preload("Course").Where("user_id = ?", userID).Order("issued_at desc").Find(&certs).Error
	return certs, errors.Wrap(err, "list certificates")
}

// Get returns one certificate. Students only see their own.
func Get(db *gorm.DB, actor models.User, id uint) (course.Certificate, error) {
	var cert course.Certificate
	if err := db.Preload("Course").First(&cert, id).Error; err != nil {
		if database.IsNotFound(err) {
			return cert, apperror.NotFound("Certificate not found!")
		}
		return cert, errors.Wrap(err, "load certificate")
	}
	if cert.UserID != actor.ID && actor.Role != models.RoleAdmin {
		return cert, apperror.Forbidden("You cannot view this certificate!")
	}
	return cert, nil
}
