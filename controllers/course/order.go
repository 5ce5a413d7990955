package controllers

import (
	"log"
	"time"

	"lms/database"
	"lms/middleware"
	"lms/models/commerce"
	"lms/services/catalog"
	"lms/services/coupon"
	"lms/services/orders"
	"lms/services/provisioning"
	"lms/utils"
	"lms/validators"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// CheckCoupon previews a coupon against a course price
func CheckCoupon(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedCouponCheck").(*courseValidator.CouponCheckRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	result, err := coupon.Check(database.Database.Db, reqData.Code, reqData.CourseID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, result.Valid, result.Message, result)
}

// afterPaid sends the emails that follow a paid order once its transaction has committed.
func afterPaid(order commerce.Order) {
	db := database.Database.Db
	provisioning.NotifyOrder(db, order.ID)

	user, err := catalog.LoadUser(db, order.UserID)
	if err != nil {
		log.Printf("[ORDER] Error loading user of order %s: %v", order.OrderNumber, err)
		return
	}
	utils.SendOrderPaidEmail(user.Email, user.Name, order.OrderNumber, order.FinalAmount.StringFixed(2))
}

func CreateOrder(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedOrder").(*courseValidator.CreateOrderRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	db := database.Database.Db
	order, err := orders.Create(db, deps.Bus, user.ID, orders.CreateInput{CourseID: reqData.CourseID, CouponCode: reqData.CouponCode})
	if err != nil {
		return middleware.HandleError(c, err)
	}

	if order.Status == commerce.OrderPaid {
		afterPaid(order)
		return middleware.JsonResponse(c, fiber.StatusCreated, true, "Order completed. You are now enrolled!", order)
	}

	if deps.Checkout != nil {
		crs, err := catalog.ByID(db, order.CourseID)
		if err != nil {
			return middleware.HandleError(c, err)
		}
		order, err = orders.AttachCheckout(db, deps.Checkout, order, user, crs.Title)
		if err != nil {
			utils.ReportError("ORDER", err, map[string]interface{}{"order": order.OrderNumber})
			return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Order created but the payment page could not be prepared. Please try again.", order)
		}
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Order created successfully!", order)
}

func GetMyOrders(c *fiber.Ctx) error {
	userId, _ := c.Locals("userId").(uint)
	reqData, ok := c.Locals("validatedOrderList").(*courseValidator.OrderListQuery)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	items, total, err := orders.List(database.Database.Db, orders.ListFilter{
		UserID: userId,
		Status: reqData.Status,
		Page:   reqData.Page,
		Limit:  reqData.Limit,
	})
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Orders fetched successfully!", fiber.Map{
		"orders": items,
		"pagination": fiber.Map{
			"total": total,
			"page":  reqData.Page,
			"limit": reqData.Limit,
		},
	})
}

func GetOrder(c *fiber.Ctx) error {
	orderID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	order, err := orders.Get(database.Database.Db, user, orderID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order fetched successfully!", order)
}

func CancelOrder(c *fiber.Ctx) error {
	orderID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	order, err := orders.Cancel(database.Database.Db, user, orderID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order cancelled successfully!", order)
}

func GetOrderStats(c *fiber.Ctx) error {
	userId, _ := c.Locals("userId").(uint)
	stats, err := orders.GetStats(database.Database.Db, userId, time.Now())
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order stats fetched successfully!", stats)
}

// MidtransNotification is the payment gateway webhook. It is not authenticated by JWT; the
// payload signature is checked instead.
func MidtransNotification(c *fiber.Ctx) error {
	var n orders.Notification
	if err := c.BodyParser(&n); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	wasPaid := isPaid(n.OrderID)
	order, err := orders.HandleNotification(database.Database.Db, deps.Bus, deps.MidtransServerKey, n)
	if err != nil {
		log.Printf("[PAYMENT] midtrans notification for %s failed: %v", n.OrderID, err)
		return middleware.HandleError(c, err)
	}
	if order.Status == commerce.OrderPaid && !wasPaid {
		afterPaid(order)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Notification processed.", fiber.Map{"status": order.Status})
}

func isPaid(orderNumber string) bool {
	var n int64
	database.Database.Db.Model(&commerce.Order{}).
		Where("order_number = ? AND status = ?", orderNumber, commerce.OrderPaid).Count(&n)
	return n > 0
}

// EnrollInCourse enrolls the user directly into a free course
func EnrollInCourse(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedEnroll").(*courseValidator.EnrollRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	userId, _ := c.Locals("userId").(uint)

	db := database.Database.Db
	outcomes, err := provisioning.EnrollFree(db, userId, reqData.CourseID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	for _, o := range outcomes {
		if o.Created {
			provisioning.NotifyUser(db, userId, o.Enrollment.BatchID)
		}
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Enrolled successfully!", outcomes)
}

// GetUserEnrollmentsList returns the user's enrollments with batch and course
func GetUserEnrollmentsList(c *fiber.Ctx) error {
	userId, _ := c.Locals("userId").(uint)
	rows, err := provisioning.ListForUser(database.Database.Db, userId)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", rows)
}
