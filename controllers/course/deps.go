package controllers

import (
	"lms/services/certificate"
	"lms/services/events"
	"lms/services/orders"
	"lms/services/schedule"
	"lms/utils"
)

// Deps are the collaborators the course controllers need besides the database.
type Deps struct {
	Bus               *events.Bus
	Issuer            *certificate.Issuer
	Checkout          orders.Checkout
	MidtransServerKey string
	Storage           utils.Storage
	Meetings          schedule.MeetingSource
}

var deps = Deps{Bus: events.Default}

// Setup replaces the controller dependencies. Call it once before serving.
func Setup(d Deps) {
	if d.Bus == nil {
		d.Bus = events.Default
	}
	deps = d
}
