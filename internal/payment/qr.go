// Package payment renders the merchant payment QR shown after email verification.
package payment

import (
	"encoding/base64"
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// QR is merchant QR code. The payer enters the amount, so the image is the
// same for every order.
type QR struct {
	dataURL string
}

// NewQR encodes content (e.g. UPI or payment link) into PNG
func NewQR(content string) (*QR, error) {
	if content == "" {
		return nil, errors.New("empty payment QR content")
	}

	png, err := qrcode.Encode(content, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode payment QR: %w", err)
	}

	return &QR{
		dataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// Reference returns QR as data URL
func (q *QR) Reference() string {
	return q.dataURL
}
