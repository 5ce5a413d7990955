package orders

import (
	"crypto/sha512"
	"encoding/hex"
	"log"
	"strings"

	"lms/apperror"
	"lms/database"
	"lms/models"
	"lms/models/commerce"
	"lms/services/events"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Checkout creates a hosted payment page for a pending order.
type Checkout interface {
	CreateTransaction(order commerce.Order, user models.User, title string) (token, redirectURL string, err error)
}

// SnapCheckout is the Midtrans Snap implementation of Checkout.
type SnapCheckout struct {
	client snap.Client
}

func NewSnapCheckout(serverKey string, production bool) *SnapCheckout {
	s := &SnapCheckout{}
	if production {
		s.client.New(serverKey, midtrans.Production)
	} else {
		s.client.New(serverKey, midtrans.Sandbox)
	}
	return s
}

func (s *SnapCheckout) CreateTransaction(order commerce.Order, user models.User, title string) (string, string, error) {
	gross := order.FinalAmount.Round(0).IntPart()
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  order.OrderNumber,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: user.Name,
			Email: user.Email,
			Phone: user.Mobile,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    order.OrderNumber,
			Price: gross,
			Qty:   1,
			Name:  truncate(title, 50),
		}},
	}

	resp, mErr := s.client.CreateTransaction(req)
	if mErr != nil {
		return "", "", errors.Wrap(mErr, "midtrans create transaction")
	}
	return resp.Token, resp.RedirectURL, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// AttachCheckout stores the gateway token on a pending order.
func AttachCheckout(db *gorm.DB, gw Checkout, order commerce.Order, user models.User, title string) (commerce.Order, error) {
	if gw == nil || order.Status != commerce.OrderPending {
		return order, nil
	}
	token, url, err := gw.CreateTransaction(order, user, title)
	if err != nil {
		return order, err
	}
	order.SnapToken = token
	order.SnapRedirectURL = url
	err = db.Model(&order).Updates(map[string]interface{}{
		"snap_token":        token,
		"snap_redirect_url": url,
	}).Error
	return order, errors.Wrap(err, "save checkout token")
}

// Notification is the payment status callback sent by Midtrans.
type Notification struct {
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
}

// Signature is SHA512(order_id + status_code + gross_amount + server key), hex encoded.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// HandleNotification verifies a Midtrans callback and applies it to the order it names.
// Settled payments go through MarkPaid; cancel, expire and deny cancel a pending order.
func HandleNotification(db *gorm.DB, bus *events.Bus, serverKey string, n Notification) (commerce.Order, error) {
	if serverKey == "" {
		return commerce.Order{}, apperror.NotFound("Payment gateway is not configured!")
	}
	want := strings.ToLower(n.SignatureKey)
	if want == "" || Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey) != want {
		return commerce.Order{}, apperror.Unauthorized("Invalid signature!")
	}

	var order commerce.Order
	if err := db.Where("order_number = ?", n.OrderID).First(&order).Error; err != nil {
		if database.IsNotFound(err) {
			return order, apperror.NotFound("Order not found!")
		}
		return order, errors.Wrap(err, "load order")
	}

	status := strings.ToLower(n.TransactionStatus)
	fraud := strings.ToLower(n.FraudStatus)
	switch {
	case status == "settlement", status == "capture" && (fraud == "" || fraud == "accept"):
		log.Printf("[PAYMENT] midtrans %s for order %s", status, order.OrderNumber)
		return MarkPaid(db, bus, order.ID, PaymentInput{
			Method:    commerce.PaymentMethodMidtrans,
			Reference: n.TransactionID,
		})
	case status == "cancel", status == "expire", status == "deny":
		if order.Status != commerce.OrderPending {
			return order, nil
		}
		log.Printf("[PAYMENT] midtrans %s, cancelling order %s", status, order.OrderNumber)
		return cancel(db, order.ID, nil)
	}
	return order, nil
}
