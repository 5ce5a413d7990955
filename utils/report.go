package utils

import (
	"log"

	"lms/config"

	"github.com/rollbar/rollbar-go"
	rollbarErrors "github.com/rollbar/rollbar-go/errors"
)

var reporting bool

// InitErrorReporting enables rollbar when ROLLBAR_TOKEN is set.
func InitErrorReporting(cfg *config.Config) {
	if cfg.RollbarToken == "" {
		rollbar.SetEnabled(false)
		return
	}
	rollbar.SetToken(cfg.RollbarToken)
	rollbar.SetEnvironment(cfg.Env)
	rollbar.SetServerRoot("lms")
	rollbar.SetStackTracer(rollbarErrors.StackTracer)
	rollbar.SetEnabled(true)
	reporting = true
	log.Println("[ROLLBAR] Error reporting enabled")
}

// ReportError logs err under tag and forwards it to rollbar when enabled.
func ReportError(tag string, err error, extras map[string]interface{}) {
	if err == nil {
		return
	}
	log.Printf("[%s] %v", tag, err)
	if !reporting {
		return
	}
	if extras == nil {
		extras = map[string]interface{}{}
	}
	extras["component"] = tag
	rollbar.Error(err, extras)
}

// CloseErrorReporting flushes queued reports.
func CloseErrorReporting() {
	if reporting {
		rollbar.Close()
	}
}
