// Package notify sends transactional emails to customers and the shop inbox.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/google/uuid"
	"github.com/rookgm/bundlehub/internal/models"
)

// Message is rendered email
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers rendered email
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Gateway renders transactional emails and passes them to Sender
type Gateway struct {
	sender    Sender
	shopName  string
	shopInbox string
}

// NewGateway creates new Gateway instance
func NewGateway(sender Sender, shopName, shopInbox string) *Gateway {
	return &Gateway{
		sender:    sender,
		shopName:  shopName,
		shopInbox: shopInbox,
	}
}

var (
	otpTmpl = template.Must(template.New("otp").Parse(`Hi {{.Name}},

your {{.Shop}} verification code is {{.Code}}.
It expires in {{.ExpiryMinutes}} minutes. If you did not start a checkout, ignore this email.
`))

	rejectionTmpl = template.Must(template.New("rejection").Parse(`Hi {{.Name}},

we could not confirm the payment for order {{.OrderID}}.
Reason: {{.Reason}}

Reply to this email if you believe this is a mistake.
`))

	deliveryTmpl = template.Must(template.New("delivery").Parse(`Hi {{.Name}},

your payment for order {{.OrderID}} is confirmed. Thank you for shopping at {{.Shop}}!
{{range .Items}}
{{.Name}}: {{if .DownloadURL}}{{.DownloadURL}}{{else}}the download link will be sent separately{{end}}{{end}}
`))

	contactTmpl = template.Must(template.New("contact").Parse(`From: {{.Name}} <{{.Email}}>
Subject: {{.Subject}}

{{.Message}}
`))
)

// SendOtpEmail sends verification code to customer
func (g *Gateway) SendOtpEmail(ctx context.Context, to, code, name string, expiryMinutes int) error {
	return g.send(ctx, to, fmt.Sprintf("%s verification code", g.shopName), otpTmpl, map[string]any{
		"Name":          name,
		"Shop":          g.shopName,
		"Code":          code,
		"ExpiryMinutes": expiryMinutes,
	})
}

// SendRejectionEmail tells customer that payment was rejected
func (g *Gateway) SendRejectionEmail(ctx context.Context, to, name, reason string, orderID uuid.UUID) error {
	return g.send(ctx, to, fmt.Sprintf("%s order %s: payment rejected", g.shopName, orderID), rejectionTmpl, map[string]any{
		"Name":    name,
		"Reason":  reason,
		"OrderID": orderID,
	})
}

type deliveryItem struct {
	Name        string
	DownloadURL string
}

// SendDeliveryEmail sends download links of approved order
func (g *Gateway) SendDeliveryEmail(ctx context.Context, order *models.Order) error {
	items := make([]deliveryItem, 0, len(order.Items))
	for _, item := range order.Items {
		di := deliveryItem{Name: item.Bundle.Name}
		if item.Bundle.DownloadURL != nil {
			di.DownloadURL = *item.Bundle.DownloadURL
		}
		items = append(items, di)
	}

	return g.send(ctx, order.Email, fmt.Sprintf("%s order %s: your download", g.shopName, order.ID), deliveryTmpl, map[string]any{
		"Name":    order.CustomerName,
		"Shop":    g.shopName,
		"OrderID": order.ID,
		"Items":   items,
	})
}

// SendContactMessage forwards contact form message to shop inbox
func (g *Gateway) SendContactMessage(ctx context.Context, msg *models.ContactMessage) error {
	return g.send(ctx, g.shopInbox, fmt.Sprintf("[%s contact] %s", g.shopName, msg.Subject), contactTmpl, msg)
}

func (g *Gateway) send(ctx context.Context, to, subject string, tmpl *template.Template, data any) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render %s email: %w", tmpl.Name(), err)
	}

	if err := g.sender.Send(ctx, Message{To: to, Subject: subject, Body: body.String()}); err != nil {
		return fmt.Errorf("%w: %s email to %s: %w", models.ErrNotification, tmpl.Name(), to, err)
	}

	return nil
}
