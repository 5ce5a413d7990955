package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"lms/config"
	authController "lms/controllers/auth"
	courseController "lms/controllers/course"
	"lms/database"
	"lms/routers"
	"lms/services/certificate"
	"lms/services/events"
	"lms/services/orders"
	"lms/services/provisioning"
	"lms/utils"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	utils.InitErrorReporting(cfg)
	defer utils.CloseErrorReporting()

	database.ConnectDb()

	mailer := utils.NewMailer(cfg)
	utils.SetMailer(mailer)

	storage, err := utils.NewStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	issuer := &certificate.Issuer{
		Renderer:       certificate.PDFRenderer{TemplatePath: cfg.CertificateTemplate, Issuer: cfg.AppName},
		Storage:        storage,
		Mailer:         mailer,
		PassPercentage: cfg.CertificatePassPercentage,
	}
	events.Default.Subscribe(events.OrderPaidEvent, provisioning.HandleOrderPaid)
	events.Default.Subscribe(events.ExamResponseGradedEvent, issuer.HandleExamResponseGraded)

	deps := courseController.Deps{
		Bus:               events.Default,
		Issuer:            issuer,
		MidtransServerKey: cfg.MidtransServerKey,
		Storage:           storage,
	}
	if cfg.MidtransServerKey != "" {
		deps.Checkout = orders.NewSnapCheckout(cfg.MidtransServerKey, cfg.MidtransProduction)
	} else {
		log.Println("Warning: MIDTRANS_SERVER_KEY not set. Orders are settled by manual approval only.")
	}
	if zoom := utils.NewZoomClientFromConfig(cfg); zoom != nil {
		deps.Meetings = zoom
	}
	courseController.Setup(deps)
	authController.Setup(cfg, storage)

	app := routers.NewApp(cfg)

	scheduler := utils.InitializeSchedulers(database.Database.Db, mailer, cfg.ClassReminderLeadMinutes, cfg.TokenBlacklistTTLDays)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down server...")
		<-scheduler.Stop().Done()
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown failed: %v", err)
		}
	}()

	log.Printf("Server is running on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
