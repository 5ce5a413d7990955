package utils

import (
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"lms/config"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer delivers one HTML email.
type Mailer interface {
	Send(to []string, subject, htmlBody string) error
}

// SMTPMailer sends through a plain-auth SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     string
	From     string
	Password string
	AppName  string
}

func (m SMTPMailer) Send(to []string, subject, htmlBody string) error {
	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: %s <%s>\r\n", m.AppName, m.From)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += htmlBody

	auth := smtp.PlainAuth("", m.From, m.Password, m.Host)
	return smtp.SendMail(m.Host+":"+m.Port, auth, m.From, to, []byte(msg))
}

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendgridMailer sends through the SendGrid v3 API.
type SendgridMailer struct {
	key  string
	from *sgmail.Email
}

func NewSendgridMailer(key, appName, fromEmail string) *SendgridMailer {
	return &SendgridMailer{key: key, from: sgmail.NewEmail(appName, fromEmail)}
}

func (m *SendgridMailer) Send(to []string, subject, htmlBody string) error {
	p := sgmail.NewPersonalization()
	p.Subject = subject
	for _, addr := range to {
		p.AddTos(sgmail.NewEmail("", addr))
	}

	msg := sgmail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.AddPersonalizations(p)
	msg.AddContent(sgmail.NewContent("text/html", htmlBody))

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(msg)

	res, err := sendgrid.API(req)
	if err != nil {
		return errors.Wrap(err, "sendgrid")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// ConsoleMailer only logs. Used in development and when no provider is configured.
type ConsoleMailer struct{}

func (ConsoleMailer) Send(to []string, subject, _ string) error {
	log.Printf("[EMAIL] to=%v subject=%q", to, subject)
	return nil
}

// NewMailer picks the backend named by EMAIL_DRIVER.
func NewMailer(cfg *config.Config) Mailer {
	switch cfg.EmailDriver {
	case "smtp":
		return SMTPMailer{Host: cfg.SMTPHost, Port: cfg.SMTPPort, From: cfg.EmailSender, Password: cfg.Password, AppName: cfg.AppName}
	case "sendgrid":
		if cfg.SendgridAPIKey == "" {
			log.Println("Warning: EMAIL_DRIVER is sendgrid but SENDGRID_API_KEY is empty. Falling back to console.")
			return ConsoleMailer{}
		}
		return NewSendgridMailer(cfg.SendgridAPIKey, cfg.AppName, cfg.EmailSender)
	}
	return ConsoleMailer{}
}

var (
	mailerMu sync.RWMutex
	mailer   Mailer = ConsoleMailer{}
)

// SetMailer replaces the mailer used by the Send*Email helpers.
func SetMailer(m Mailer) {
	mailerMu.Lock()
	defer mailerMu.Unlock()
	mailer = m
}

// CurrentMailer returns the mailer used by the Send*Email helpers.
func CurrentMailer() Mailer {
	mailerMu.RLock()
	defer mailerMu.RUnlock()
	return mailer
}

func appName() string {
	if config.AppConfig != nil && config.AppConfig.AppName != "" {
		return config.AppConfig.AppName
	}
	return "LMS"
}

// SendEmail delivers through the current mailer and logs failures.
func SendEmail(to []string, subject string, htmlBody string) error {
	if err := CurrentMailer().Send(to, subject, htmlBody); err != nil {
		log.Printf("[EMAIL] Error sending %q to %v: %v", subject, to, err)
		return err
	}
	return nil
}

func getEmailTemplate(title string, bodyContent string) string {
	name := appName()
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #1E3A5F; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1E3A5F; line-height: 1.6; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; }
			.btn { display: inline-block; padding: 12px 24px; background-color: #2E7D32; color: #FFFFFF; text-decoration: none; border-radius: 4px; font-weight: bold; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #2E7D32; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>%s</h1></div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">&copy; %d %s. All rights reserved.</div>
		</div>
	</body>
	</html>
	`, strings.ToUpper(name), title, bodyContent, time.Now().Year(), name)
}

// --- Triggers ---

func SendWelcomeEmail(email, name string) {
	subject := "Welcome to " + appName()
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your account has been created. Browse the catalog and enroll in your first course.</p>
	`, name)

	go SendEmail([]string{email}, subject, getEmailTemplate("Welcome Onboard!", body))
}

func SendOTPEmail(email, otp string) error {
	body := fmt.Sprintf(`
		<p>Your one time password is:</p>
		<h1 style="text-align: center; letter-spacing: 6px;">%s</h1>
		<p>It expires in 10 minutes. Do not share it with anyone.</p>
	`, otp)
	return SendEmail([]string{email}, "Password reset code", getEmailTemplate("Password Reset", body))
}

func SendEnrollmentEmail(email, userName, courseName, batchName string) {
	subject := "Enrollment confirmed: " + courseName
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>You are now enrolled in <strong>%s</strong>.</p>
		<div class="info-box">Batch: <strong>%s</strong></div>
		<p>Happy learning!</p>
	`, userName, courseName, batchName)

	go SendEmail([]string{email}, subject, getEmailTemplate("Enrollment Successful", body))
}

// SendCertificateEmail is synchronous so the caller can log the delivery result.
func SendCertificateEmail(m Mailer, email, userName, courseName, code, fileURL string) error {
	subject := "Your certificate for " + courseName
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Congratulations on passing <strong>%s</strong>.</p>
		<div class="info-box">Certificate code: <strong>%s</strong></div>
		<a href="%s" class="btn">Download certificate</a>
	`, userName, courseName, code, fileURL)

	return m.Send([]string{email}, subject, getEmailTemplate("Certificate of Completion", body))
}

func SendClassReminderEmail(m Mailer, email, userName, courseName, batchName, startTime, joinURL string) error {
	subject := fmt.Sprintf("Class reminder: %s starts at %s", courseName, startTime)
	link := ""
	if joinURL != "" {
		link = fmt.Sprintf(`<a href="%s" class="btn">Join class</a>`, joinURL)
	}
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your live class for <strong>%s</strong> (%s) starts at <strong>%s</strong>.</p>
		%s
	`, userName, courseName, batchName, startTime, link)

	return m.Send([]string{email}, subject, getEmailTemplate("Class Reminder", body))
}

func SendOrderPaidEmail(email, userName, orderNumber, amount string) {
	subject := "Payment received: " + orderNumber
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>We received your payment of <strong>%s</strong> for order <strong>%s</strong>.</p>
	`, userName, amount, orderNumber)

	go SendEmail([]string{email}, subject, getEmailTemplate("Payment Confirmed", body))
}
