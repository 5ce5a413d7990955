package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/models/commerce"
	"lms/services/coupon"
	"lms/services/dashboard"
	"lms/services/orders"
	"lms/services/provisioning"
	"lms/validators"
	adminValidator "lms/validators/admin"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func couponModel(r *adminValidator.CouponRequest) commerce.Coupon {
	c := commerce.Coupon{
		Code:       r.Code,
		Type:       r.Type,
		Value:      r.Value,
		UsageLimit: r.UsageLimit,
		ExpiresAt:  r.ExpiresAt,
		CourseIDs:  r.CourseIDs,
		IsActive:   r.IsActive,
	}
	if r.MinOrderAmount != nil {
		c.MinOrderAmount = decimal.NewNullDecimal(*r.MinOrderAmount)
	}
	return c
}

func AdminCreateCoupon(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedCoupon").(*adminValidator.CouponRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	created, err := coupon.Create(database.Database.Db, couponModel(reqData))
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Coupon created successfully!", created)
}

func AdminUpdateCoupon(c *fiber.Ctx) error {
	couponID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedCoupon").(*adminValidator.CouponRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	updated, err := coupon.Update(database.Database.Db, couponID, couponModel(reqData))
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Coupon updated successfully!", updated)
}

func AdminGetCoupons(c *fiber.Ctx) error {
	coupons, err := coupon.List(database.Database.Db)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Coupons fetched successfully!", coupons)
}

// ============ Orders ============

func AdminGetOrders(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedOrderList").(*adminValidator.OrderListQuery)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	items, total, err := orders.List(database.Database.Db, orders.ListFilter{
		UserID: reqData.UserID,
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

// AdminApprovePayment marks a pending order paid after a manual transfer was verified.
func AdminApprovePayment(c *fiber.Ctx) error {
	orderID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedApprove").(*adminValidator.ApprovePaymentRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	adminID, _ := c.Locals("userId").(uint)

	wasPaid := false
	var existing commerce.Order
	if err := database.Database.Db.Select("id", "status").First(&existing, orderID).Error; err == nil {
		wasPaid = existing.Status == commerce.OrderPaid
	}

	order, err := orders.MarkPaid(database.Database.Db, deps.Bus, orderID, orders.PaymentInput{
		Method:     commerce.PaymentMethodManual,
		Reference:  reqData.Reference,
		ApprovedBy: &adminID,
	})
	if err != nil {
		return middleware.HandleError(c, err)
	}
	if !wasPaid {
		afterPaid(order)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment approved successfully!", order)
}

func AdminCancelOrder(c *fiber.Ctx) error {
	orderID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	admin, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	order, err := orders.Cancel(database.Database.Db, admin, orderID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order cancelled successfully!", order)
}

// ============ Enrollments ============

// AdminBulkAdmit enrolls a list of users straight into one batch
func AdminBulkAdmit(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedBulkAdmit").(*adminValidator.BulkAdmitRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db
	result, err := provisioning.BulkAdmit(db, reqData.BatchID, reqData.UserIDs)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	for _, userID := range result.Admitted {
		provisioning.NotifyUser(db, userID, reqData.BatchID)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Users admitted successfully!", result)
}

// AdminGetEnrollments lists enrollments with the enrolled user's name and email
func AdminGetEnrollments(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedEnrollmentList").(*adminValidator.EnrollmentListQuery)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	rows, total, err := dashboard.Enrollments(database.Database.Db, dashboard.EnrollmentFilter{
		CourseID: reqData.CourseID,
		BatchID:  reqData.BatchID,
		Status:   reqData.Status,
		Page:     reqData.Page,
		Limit:    reqData.Limit,
	})
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", fiber.Map{
		"enrollments": rows,
		"pagination": fiber.Map{
			"total": total,
			"page":  reqData.Page,
			"limit": reqData.Limit,
		},
	})
}
