// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
)

// Sender delivers a rendered email
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// EmailService renders and sends transactional emails
type EmailService struct {
	config    config.EmailConfig
	sender    Sender
	templates map[string]*template.Template
	log       logrus.FieldLogger
}

// NewEmailService creates an email service sending over SMTP
func NewEmailService(cfg config.EmailConfig, log logrus.FieldLogger) *EmailService {
	return NewEmailServiceWithSender(cfg, NewSMTPSender(cfg), log)
}

// NewEmailServiceWithSender creates an email service with a custom sender
func NewEmailServiceWithSender(cfg config.EmailConfig, sender Sender, log logrus.FieldLogger) *EmailService {
	return &EmailService{
		config:    cfg,
		sender:    sender,
		templates: loadTemplates(),
		log:       log,
	}
}

// SendEmail sends an email. With email disabled it is logged and dropped.
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	if !s.config.Enabled {
		s.log.WithFields(logrus.Fields{
			"type":    email.Type,
			"to":      email.To,
			"subject": email.Subject,
		}).Debug("Email disabled, not sending")
		return nil
	}
	if err := s.sender.Send(ctx, email); err != nil {
		return fmt.Errorf("failed to send %s email: %w", email.Type, err)
	}
	return nil
}

// SendOrderConfirmationEmail sends order confirmation email
func (s *EmailService) SendOrderConfirmationEmail(ctx context.Context, data OrderConfirmationData) error {
	data.EmailTemplateData = GetBaseTemplateData(
		s.config.FromName,
		s.config.BaseURL,
		data.UserName,
		data.UserEmail,
	)
	data.OrderURL = fmt.Sprintf("%s/orders/%s", s.config.BaseURL, data.OrderNumber)

	htmlContent, err := s.renderTemplate("order_confirmation", data)
	if err != nil {
		return fmt.Errorf("failed to render order confirmation template: %w", err)
	}

	email := &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Order Confirmation - %s", data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
		Data: map[string]interface{}{
			"order_number": data.OrderNumber,
			"order_total":  data.OrderTotal,
		},
	}

	return s.SendEmail(ctx, email)
}

// SendOrderStatusUpdateEmail sends order status update notification
func (s *EmailService) SendOrderStatusUpdateEmail(ctx context.Context, data OrderStatusUpdateData) error {
	data.EmailTemplateData = GetBaseTemplateData(
		s.config.FromName,
		s.config.BaseURL,
		data.UserName,
		data.UserEmail,
	)
	data.OrderURL = fmt.Sprintf("%s/orders/%s", s.config.BaseURL, data.OrderNumber)

	htmlContent, err := s.renderTemplate("order_status_update", data)
	if err != nil {
		return fmt.Errorf("failed to render order status update template: %w", err)
	}

	email := &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Order Update - %s", data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderStatusUpdate,
		Data: map[string]interface{}{
			"order_number": data.OrderNumber,
			"status":       data.Status,
		},
	}

	return s.SendEmail(ctx, email)
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := s.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.String(), nil
}

func loadTemplates() map[string]*template.Template {
	return map[string]*template.Template{
		"order_confirmation":  template.Must(template.New("order_confirmation").Parse(layoutHead + orderConfirmationBody + layoutFoot)),
		"order_status_update": template.Must(template.New("order_status_update").Parse(layoutHead + orderStatusBody + layoutFoot)),
	}
}

const layoutHead = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #333;">{{.SiteName}}</h1>
        <p>Hello {{.UserName}},</p>
`

const layoutFoot = `
        <p>If you have any questions, please contact <a href="{{.SupportURL}}">our support team</a>.</p>
        <p>Best regards,<br>{{.SiteName}} Team</p>
        <hr>
        <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}. All rights reserved.</p>
    </div>
</body>
</html>`

const orderConfirmationBody = `
        <p>Thank you for your order <strong>{{.OrderNumber}}</strong> placed on {{.OrderDate}}.</p>
        <table style="width: 100%; border-collapse: collapse;">
            <tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th><th align="right">Total</th></tr>
            {{range .Items}}
            <tr>
                <td>{{.Name}}{{if .Variant}} ({{.Variant}}){{end}}<br><small>{{.SKU}}</small></td>
                <td align="right">{{.Quantity}}</td>
                <td align="right">{{.Price}}</td>
                <td align="right">{{.Total}}</td>
            </tr>
            {{end}}
        </table>
        <p>Subtotal: {{.Subtotal}}<br>Shipping ({{.ShippingMethod}}): {{.Shipping}}<br><strong>Total: {{.OrderTotal}}</strong></p>
        <p>Payment method: {{.PaymentMethod}}</p>
        <p>Shipping to:<br>
            {{.ShippingAddress.FirstName}} {{.ShippingAddress.LastName}}<br>
            {{.ShippingAddress.AddressLine1}}<br>
            {{if .ShippingAddress.AddressLine2}}{{.ShippingAddress.AddressLine2}}<br>{{end}}
            {{.ShippingAddress.City}} {{.ShippingAddress.PostalCode}}<br>
            {{.ShippingAddress.Country}}
        </p>
        <p><a href="{{.OrderURL}}">View your order</a></p>
`

const orderStatusBody = `
        <p>Your order <strong>{{.OrderNumber}}</strong> is now <strong>{{.Status}}</strong>.</p>
        {{if .StatusMessage}}<p>{{.StatusMessage}}</p>{{end}}
        <p><a href="{{.OrderURL}}">View your order</a></p>
`
