package certificate

import (
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"lms/models"
	"lms/models/course"
	examModels "lms/models/exam"
	"lms/services/events"
	"lms/services/exam"
	"lms/testutil"
	"lms/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mailRecorder struct {
	mu sync.Mutex
	to []string
}

func (m *mailRecorder) Send(to []string, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to...)
	return nil
}

type failingRenderer struct{}

func (failingRenderer) Render(Data) ([]byte, error) {
	return nil, errors.New("template unreadable")
}

type fixture struct {
	db       *gorm.DB
	user     models.User
	course   course.Course
	exam     examModels.Exam
	issuer   *Issuer
	mailer   *mailRecorder
	storeDir string
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")
	batch := testutil.Batch(t, db, crs.ID, "Go Basics Batch 1", 0)
	testutil.Enroll(t, db, user.ID, batch, course.EnrollmentActive)

	dir := t.TempDir()
	m := &mailRecorder{}
	return fixture{
		db:     db,
		user:   user,
		course: crs,
		exam:   testutil.Exam(t, db, batch, 30, 0, 1),
		issuer: &Issuer{
			Renderer: PDFRenderer{TemplatePath: "missing-template.png", Issuer: "LMS"},
			Storage:  utils.LocalStorage{Dir: dir, BaseURL: "/"},
			Mailer:   m,
		},
		mailer:   m,
		storeDir: dir,
	}
}

func (f fixture) response(t *testing.T, status string, percentage float64) examModels.Response {
	t.Helper()
	now := time.Now()
	r := examModels.Response{
		ExamID:     f.exam.ID,
		UserID:     f.user.ID,
		BatchID:    f.exam.BatchID,
		Score:      int(percentage),
		MaxScore:   100,
		Percentage: percentage,
		Status:     status,
		StartedAt:  now,
	}
	require.NoError(t, f.db.Create(&r).Error)
	return r
}

func countCertificates(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&course.Certificate{}).Count(&n).Error)
	return n
}

func TestIssueOncePerResponse(t *testing.T) {
	f := setup(t)
	r := f.response(t, examModels.ResponseGraded, 45)

	bus := events.New()
	bus.Subscribe(events.ExamResponseGradedEvent, f.issuer.HandleExamResponseGraded)

	require.NoError(t, bus.Publish(f.db, events.ExamResponseGraded{ResponseID: r.ID}))
	assert.EqualValues(t, 1, countCertificates(t, f.db))

	// An unrelated update keeps the response graded at 45%.
	require.NoError(t, f.db.Model(&r).Update("submitted_at", time.Now()).Error)
	require.NoError(t, bus.Publish(f.db, events.ExamResponseGraded{ResponseID: r.ID}))
	assert.EqualValues(t, 1, countCertificates(t, f.db))

	var cert course.Certificate
	require.NoError(t, f.db.First(&cert).Error)
	assert.Equal(t, r.ID, cert.ExamResponseID)
	assert.True(t, strings.HasPrefix(cert.Code, "CERT-"))
	assert.True(t, strings.HasPrefix(cert.FileURL, "/certificates/"))
	assert.True(t, strings.HasSuffix(cert.FileURL, ".pdf"))

	data, err := os.ReadFile(cert.FilePath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))

	assert.Equal(t, []string{f.user.Email}, f.mailer.to)
}

func TestNoCertificateBelowThresholdOrUngraded(t *testing.T) {
	f := setup(t)

	below := f.response(t, examModels.ResponseGraded, 39.99)
	cert, err := f.issuer.Issue(f.db, below.ID)
	require.NoError(t, err)
	assert.Nil(t, cert)

	other := testutil.User(t, f.db, models.RoleStudent)
	f.user = other
	failed := f.response(t, examModels.ResponseAutoFailed, 80)
	cert, err = f.issuer.Issue(f.db, failed.ID)
	require.NoError(t, err)
	assert.Nil(t, cert)

	assert.Zero(t, countCertificates(t, f.db))
}

func TestThresholdIsInclusive(t *testing.T) {
	f := setup(t)
	r := f.response(t, examModels.ResponseGraded, 40)

	cert, err := f.issuer.Issue(f.db, r.ID)
	require.NoError(t, err)
	require.NotNil(t, cert)
}

func TestRenderFailureReachesFinishCaller(t *testing.T) {
	f := setup(t)
	f.issuer.Renderer = failingRenderer{}

	bus := events.New()
	bus.Subscribe(events.ExamResponseGradedEvent, f.issuer.HandleExamResponseGraded)

	_, err := exam.Start(f.db, f.user.ID, f.exam.ID)
	require.NoError(t, err)

	res, err := exam.Finish(f.db, bus, f.user.ID, f.exam.ID, []examModels.Answer{
		{QuestionID: 0, Selected: 0},
		{QuestionID: 1, Selected: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, examModels.ResponseGraded, res.Response.Status)
	assert.Equal(t, 100.0, res.Response.Percentage)
	assert.Contains(t, res.CertificateError, "template unreadable")
	assert.Zero(t, countCertificates(t, f.db))

	// Once rendering works again the admin can issue the missing certificate.
	f.issuer.Renderer = PDFRenderer{}
	cert, err := f.issuer.Regenerate(f.db, res.Response.ID)
	require.NoError(t, err)
	require.NotNil(t, cert)
	assert.EqualValues(t, 1, countCertificates(t, f.db))

	again, err := f.issuer.Regenerate(f.db, res.Response.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.ID, again.ID)
	assert.Equal(t, cert.Code, again.Code)
	assert.EqualValues(t, 1, countCertificates(t, f.db))
}

func TestFileName(t *testing.T) {
	at := time.Unix(1700000000, 0)
	assert.Equal(t, "jose-garcia-go-basics-1700000000.pdf", FileName("José García", "Go Basics", at))
}

func TestGetAccess(t *testing.T) {
	f := setup(t)
	r := f.response(t, examModels.ResponseGraded, 90)
	cert, err := f.issuer.Issue(f.db, r.ID)
	require.NoError(t, err)

	_, err = Get(f.db, f.user, cert.ID)
	require.NoError(t, err)

	stranger := testutil.User(t, f.db, models.RoleStudent)
	_, err = Get(f.db, stranger, cert.ID)
	assert.Error(t, err)

	admin := testutil.User(t, f.db, models.RoleAdmin)
	_, err = Get(f.db, admin, cert.ID)
	assert.NoError(t, err)

	list, err := List(f.db, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
