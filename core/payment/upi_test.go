package payment_test

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mahimaacademy/academy/core/payment"
)

func TestUPIIntent(t *testing.T) {
	m := payment.Merchant{VPA: "mahimaacademy@okaxis", Name: "Mahima Academy"}

	tests := []struct {
		name     string
		amount   decimal.Decimal
		wantLink string
	}{
		{
			name:     "whole amount",
			amount:   decimal.NewFromInt(499),
			wantLink: "upi://pay?pa=mahimaacademy@okaxis&pn=Mahima%20Academy&am=499.00&tn=Course-c-1&cu=INR",
		},
		{
			name:     "paise are kept",
			amount:   decimal.RequireFromString("1299.5"),
			wantLink: "upi://pay?pa=mahimaacademy@okaxis&pn=Mahima%20Academy&am=1299.50&tn=Course-c-1&cu=INR",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := payment.UPIIntent(m, "c-1", tt.amount)

			assert.Equal(t, tt.wantLink, intent.Link)
			assert.Equal(t, "c-1", intent.CourseID)
			assert.Equal(t, m.VPA, intent.Payee)
			assert.True(t, tt.amount.Equal(intent.Amount))

			query := tt.wantLink[len("upi://pay?"):]
			assert.Equal(t, map[string]string{
				"gpay":    "tez://upi/pay?" + query,
				"phonepe": "phonepe://upi/pay?" + query,
				"paytm":   "paytmmp://upi/pay?" + query,
				"bhim":    "bhim://upi/pay?" + query,
			}, intent.AppLinks)

			qr, err := url.Parse(intent.QRCode)
			if assert.NoError(t, err) {
				assert.Equal(t, "api.qrserver.com", qr.Host)
				assert.Equal(t, tt.wantLink, qr.Query().Get("data"))
			}
		})
	}
}
