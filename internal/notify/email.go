package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/ariefcatur/go-shop-checkout/internal/checkout"
	"github.com/ariefcatur/go-shop-checkout/internal/shop"
)

const confirmationSubject = "Payment Successful - Order Confirmation"

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<html>
<body>
<h2>Thank you for your purchase!</h2>
<p>Your payment has been received and your orders are confirmed.</p>
<ul>
{{- range .Orders}}
<li>Order #{{.OrderID}}: {{.ProductName}} x {{.Quantity}} ({{.Total}})</li>
{{- end}}
</ul>
<p><strong>Shipping address:</strong> {{.Address}}</p>
<p><strong>Total paid:</strong> {{.Total}}</p>
</body>
</html>`))

type emailLine struct {
	OrderID     int64
	ProductName string
	Quantity    int64
	Total       string
}

type emailView struct {
	Orders  []emailLine
	Address string
	Total   string
}

// formatAmount shows a whole-unit total as the minor-unit amount the gateway
// charged for it.
func formatAmount(units int64) string {
	return shop.FormatMinor(shop.MinorUnits(units))
}

// RenderConfirmation returns the subject and HTML body sent after a
// successful checkout.
func RenderConfirmation(c checkout.Confirmation) (string, string, error) {
	v := emailView{Address: c.Address, Total: formatAmount(c.TotalAmount)}
	for _, o := range c.Orders {
		v.Orders = append(v.Orders, emailLine{
			OrderID:     o.OrderID,
			ProductName: o.ProductName,
			Quantity:    o.Quantity,
			Total:       formatAmount(o.TotalAmount),
		})
	}
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, v); err != nil {
		return "", "", fmt.Errorf("render confirmation: %w", err)
	}
	return confirmationSubject, buf.String(), nil
}
