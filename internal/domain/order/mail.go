// internal/domain/order/mail.go
package order

import (
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/money"
)

// ConfirmationEmail builds the order confirmation email data
func ConfirmationEmail(o *Order) email.OrderConfirmationData {
	items := make([]email.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, email.OrderItem{
			Name:     item.Name,
			SKU:      item.SKU,
			Variant:  item.VariantTitle,
			Quantity: item.Quantity,
			Price:    money.Format(item.Price, o.Currency),
			Total:    money.Format(item.TotalPrice, o.Currency),
		})
	}

	data := email.OrderConfirmationData{
		OrderNumber:    o.OrderNumber,
		OrderDate:      o.CreatedAt.Format("January 2, 2006"),
		Subtotal:       money.Format(o.SubtotalAmount, o.Currency),
		Shipping:       money.Format(o.ShippingAmount, o.Currency),
		OrderTotal:     money.Format(o.TotalAmount, o.Currency),
		Items:          items,
		ShippingMethod: o.ShippingMethod,
		PaymentMethod:  o.PaymentMethod,
		ShippingAddress: email.Address{
			FirstName:    o.Customer.FirstName,
			LastName:     o.Customer.LastName,
			AddressLine1: o.ShippingAddress.AddressLine1,
			AddressLine2: o.ShippingAddress.AddressLine2,
			City:         o.ShippingAddress.City,
			State:        o.ShippingAddress.State,
			PostalCode:   o.ShippingAddress.PostalCode,
			Country:      o.ShippingAddress.Country,
			Phone:        o.Customer.Phone,
		},
	}
	data.UserName = o.Customer.FullName()
	data.UserEmail = o.Customer.Email
	return data
}

// StatusUpdateEmail builds the order status email data
func StatusUpdateEmail(o *Order, comment string) email.OrderStatusUpdateData {
	data := email.OrderStatusUpdateData{
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		StatusMessage: comment,
	}
	data.UserName = o.Customer.FullName()
	data.UserEmail = o.Customer.Email
	return data
}
