package payment

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const qrServiceURL = "https://api.qrserver.com/v1/create-qr-code/"

// UPI apps with their own deep link scheme.
var upiApps = []struct {
	Name   string
	Scheme string
}{
	{"gpay", "tez"},
	{"phonepe", "phonepe"},
	{"paytm", "paytmmp"},
	{"bhim", "bhim"},
}

// Merchant is the payee of UPI transfers.
type Merchant struct {
	VPA  string
	Name string
}

// Intent is everything a purchaser needs to pay for a course from a UPI app.
type Intent struct {
	CourseID string            `json:"course_id"`
	Amount   decimal.Decimal   `json:"amount"`
	Payee    string            `json:"payee"`
	Link     string            `json:"link"`
	AppLinks map[string]string `json:"app_links"`
	QRCode   string            `json:"qr_code_url"`
}

// UPIIntent builds the upi://pay link for paying amount for courseID, along with
// app-specific variants and a QR image that encodes the generic link.
func UPIIntent(m Merchant, courseID string, amount decimal.Decimal) Intent {
	// the order of the parameters is the one UPI apps expect
	query := strings.Join([]string{
		"pa=" + upiEscape(m.VPA),
		"pn=" + upiEscape(m.Name),
		"am=" + amount.StringFixed(2),
		"tn=" + upiEscape("Course-"+courseID),
		"cu=INR",
	}, "&")

	intent := Intent{
		CourseID: courseID,
		Amount:   amount,
		Payee:    m.VPA,
		Link:     "upi://pay?" + query,
		AppLinks: make(map[string]string, len(upiApps)),
	}
	for _, app := range upiApps {
		intent.AppLinks[app.Name] = app.Scheme + "://upi/pay?" + query
	}

	intent.QRCode = qrServiceURL + "?size=250x250&data=" + url.QueryEscape(intent.Link)
	return intent
}

// upiEscape percent-encodes s for a UPI query, spaces as %20 and VPAs left readable.
func upiEscape(s string) string {
	return strings.NewReplacer("+", "%20", "%40", "@").Replace(url.QueryEscape(s))
}
