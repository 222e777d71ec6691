package utils

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"

	"cake_back_end/internal/models"
	"cake_back_end/internal/pricing"
)

func confirmationSubject(order models.Order) string {
	return fmt.Sprintf("🎂 Pedido #%s recebido", shortOrderID(order))
}

func StatusSubject(status models.OrderStatus) string {
	switch status {
	case models.OrderConfirmed:
		return "✅ Pedido confirmado"
	case models.OrderPreparing:
		return "👩‍🍳 Seu bolo está sendo preparado"
	case models.OrderReady:
		return "📦 Seu pedido está pronto"
	case models.OrderDelivered:
		return "🎉 Pedido entregue"
	case models.OrderCancelled:
		return "❌ Pedido cancelado"
	default:
		return "📋 Atualização do seu pedido"
	}
}

func statusMessage(status models.OrderStatus) string {
	switch status {
	case models.OrderConfirmed:
		return "Recebemos e confirmamos o seu pedido."
	case models.OrderPreparing:
		return "Nossa equipe já começou a preparar o seu bolo."
	case models.OrderReady:
		return "Seu pedido está pronto para entrega ou retirada."
	case models.OrderDelivered:
		return "Seu pedido foi entregue. Bom apetite!"
	case models.OrderCancelled:
		return "Seu pedido foi cancelado. Em caso de dúvida, fale conosco."
	default:
		return "O status do seu pedido foi atualizado."
	}
}

func statusColor(status models.OrderStatus) string {
	switch status {
	case models.OrderConfirmed, models.OrderDelivered:
		return "#10b981" // Green
	case models.OrderPreparing, models.OrderReady:
		return "#3b82f6" // Blue
	case models.OrderCancelled:
		return "#ef4444" // Red
	default:
		return "#6b7280" // Gray
	}
}

func shortOrderID(order models.Order) string {
	return order.ID.String()[:8]
}

type emailLine struct {
	Name     string
	Quantity int
	Options  []string
	Unit     string
	Total    string
}

type emailData struct {
	ShortID      string
	CustomerName string
	Pickup       bool
	Address      string
	Date         string
	Time         string
	Lines        []emailLine
	DeliveryFee  string
	Total        string
	Notes        string
	Status       string
	StatusColor  string
	Message      string
}

func newEmailData(order models.Order) emailData {
	lines := make([]emailLine, 0, len(order.Items))
	for _, item := range order.Items {
		var options []string
		for _, t := range models.OptionTypes {
			if name := item.Options[t]; name != "" {
				options = append(options, name)
			}
		}
		lines = append(lines, emailLine{
			Name:     item.Name,
			Quantity: item.Quantity,
			Options:  options,
			Unit:     pricing.Display(item.UnitPrice),
			Total:    pricing.Display(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		})
	}
	data := emailData{
		ShortID:      shortOrderID(order),
		CustomerName: order.CustomerName,
		Pickup:       order.DeliveryType != models.DeliveryHome,
		Address:      order.Address,
		Date:         order.DeliveryDate,
		Time:         order.DeliveryTime,
		Lines:        lines,
		Total:        pricing.Display(order.Total),
		Notes:        order.Notes,
		Status:       string(order.Status),
		StatusColor:  statusColor(order.Status),
		Message:      statusMessage(order.Status),
	}
	if order.DeliveryFee.IsPositive() {
		data.DeliveryFee = pricing.Display(order.DeliveryFee)
	}
	return data
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="UTF-8"><title>Pedido #{{.ShortID}}</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Obrigado, {{.CustomerName}}!</h2>
		<p>Recebemos o seu pedido <strong>#{{.ShortID}}</strong>.</p>
		<p>{{if .Pickup}}Retirada no local{{else}}Entrega em {{.Address}}{{end}}, dia {{.Date}} às {{.Time}}.</p>
		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left;">Produto</th>
					<th style="padding: 10px; text-align: left;">Qtd</th>
					<th style="padding: 10px; text-align: left;">Unitário</th>
					<th style="padding: 10px; text-align: left;">Total</th>
				</tr>
			</thead>
			<tbody>
			{{range .Lines}}
				<tr>
					<td style="padding: 10px;">{{.Name}}{{if .Options}}<br><small>{{range $i, $o := .Options}}{{if $i}}, {{end}}{{$o}}{{end}}</small>{{end}}</td>
					<td style="padding: 10px;">{{.Quantity}}</td>
					<td style="padding: 10px;">R$ {{.Unit}}</td>
					<td style="padding: 10px;">R$ {{.Total}}</td>
				</tr>
			{{end}}
			</tbody>
			<tfoot>
				{{if .DeliveryFee}}<tr><td colspan="3" style="padding: 10px; text-align: right;">Taxa de entrega:</td><td style="padding: 10px;">R$ {{.DeliveryFee}}</td></tr>{{end}}
				<tr><td colspan="3" style="padding: 10px; text-align: right; font-weight: bold;">Total:</td><td style="padding: 10px; font-weight: bold;">R$ {{.Total}}</td></tr>
			</tfoot>
		</table>
		{{if .Notes}}<p><em>Observações:</em> {{.Notes}}</p>{{end}}
	</div>
</body>
</html>`))

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="UTF-8"><title>Pedido #{{.ShortID}}</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f5f5f5; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 30px; border-radius: 12px; text-align: center;">
		<div style="display: inline-block; padding: 12px 24px; background-color: {{.StatusColor}}; color: #ffffff; border-radius: 25px; font-weight: 600; text-transform: uppercase;">{{.Status}}</div>
		<p style="color: #333333; font-size: 16px;">{{.Message}}</p>
		<p style="color: #666666;">Pedido #{{.ShortID}} · {{.Date}} às {{.Time}} · R$ {{.Total}}</p>
	</div>
</body>
</html>`))

func render(t *template.Template, order models.Order) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, newEmailData(order)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func OrderConfirmationHTML(order models.Order) (string, error) {
	return render(confirmationTemplate, order)
}

func OrderStatusHTML(order models.Order) (string, error) {
	return render(statusTemplate, order)
}
