// Command sendClassReminders runs the class reminder job once, for a manual resend or to
// check a routine's configuration without waiting for the scheduler.
//
//	go run ./scripts/sendClassReminders.go -at 2026-01-05T08:30 -lead 30
package main

import (
	"flag"
	"log"
	"time"

	"lms/config"
	"lms/database"
	"lms/utils"
)

func main() {
	at := flag.String("at", "", "local time to run for, formatted 2006-01-02T15:04 (default now)")
	lead := flag.Int("lead", 0, "minutes before class start (default CLASS_REMINDER_LEAD_MINUTES)")
	flag.Parse()

	// Load config and connect to database
	config.LoadConfig()
	database.ConnectDb()

	mailer := utils.NewMailer(config.AppConfig)
	utils.SetMailer(mailer)

	t := time.Now()
	if *at != "" {
		parsed, err := time.ParseInLocation("2006-01-02T15:04", *at, time.Local)
		if err != nil {
			log.Fatalf("Invalid -at value: %v", err)
		}
		t = parsed
	}
	if *lead <= 0 {
		*lead = config.AppConfig.ClassReminderLeadMinutes
	}

	sent, err := utils.SendClassReminders(database.Database.Db, mailer, t, *lead)
	if err != nil {
		log.Fatalf("Class reminders failed: %v", err)
	}
	log.Printf("Class reminders sent: %d", sent)
}
