package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/skip2/go-qrcode"
	"golang.org/x/time/rate"

	"cake_back_end/internal/models"
	"cake_back_end/internal/pricing"
)

// OrderCreatedSubject : sujet NATS des nouvelles commandes
const OrderCreatedSubject = "orders.created"

type PayloadItem struct {
	Name      string   `json:"name"`
	Quantity  int      `json:"quantity"`
	UnitTotal string   `json:"unit_total"`
	Options   []string `json:"options"`
	ImageURLs []string `json:"image_urls,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// Payload : la commande telle qu'elle part vers la production (webhook, NATS)
type Payload struct {
	OrderID      string        `json:"order_id"`
	CustomerName string        `json:"customer_name"`
	Phone        string        `json:"phone"`
	Email        string        `json:"email,omitempty"`
	DeliveryType string        `json:"delivery_type"`
	Address      string        `json:"address"`
	DeliveryDate string        `json:"delivery_date"`
	DeliveryTime string        `json:"delivery_time"`
	Items        []PayloadItem `json:"items"`
	DeliveryFee  string        `json:"delivery_fee,omitempty"`
	Total        string        `json:"total"`
	Notes        string        `json:"notes,omitempty"`
	SubmittedAt  time.Time     `json:"submitted_at"`
	WhatsAppLink string        `json:"whatsapp_link,omitempty"`
}

// OptionLabels liste les libellés d'une ligne dans l'ordre du configurateur
func OptionLabels(options map[models.OptionType]string) []string {
	labels := make([]string, 0, len(options))
	for _, t := range models.OptionTypes {
		if name := options[t]; name != "" {
			labels = append(labels, fmt.Sprintf("%s: %s", t, name))
		}
	}
	return labels
}

func NewPayload(order models.Order) Payload {
	address := order.Address
	if order.DeliveryType == models.DeliveryPickup || address == "" {
		address = models.PickupAddress
	}

	items := make([]PayloadItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, PayloadItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitTotal: pricing.Display(item.UnitPrice),
			Options:   OptionLabels(item.Options),
			ImageURLs: item.ImageURLs,
			Notes:     item.Notes,
		})
	}

	p := Payload{
		OrderID:      order.ID.String(),
		CustomerName: order.CustomerName,
		Phone:        order.Phone,
		Email:        order.Email,
		DeliveryType: string(order.DeliveryType),
		Address:      address,
		DeliveryDate: order.DeliveryDate,
		DeliveryTime: order.DeliveryTime,
		Items:        items,
		Total:        pricing.Display(order.Total),
		Notes:        order.Notes,
		SubmittedAt:  order.CreatedAt,
	}
	if order.DeliveryFee.IsPositive() {
		p.DeliveryFee = pricing.Display(order.DeliveryFee)
	}
	return p
}

// OrderSummary : le texte envoyé au commerçant sur WhatsApp
func OrderSummary(order models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nova encomenda #%s\n", shortID(order.ID.String()))
	fmt.Fprintf(&b, "Cliente: %s (%s)\n", order.CustomerName, order.Phone)
	if order.DeliveryType == models.DeliveryHome {
		fmt.Fprintf(&b, "Entrega: %s\n", order.Address)
	} else {
		b.WriteString("Retirada no local\n")
	}
	fmt.Fprintf(&b, "Data: %s às %s\n", order.DeliveryDate, order.DeliveryTime)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %dx %s (R$ %s)", item.Quantity, item.Name, pricing.Display(item.UnitPrice))
		if labels := OptionLabels(item.Options); len(labels) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(labels, ", "))
		}
		b.WriteByte('\n')
	}
	if order.DeliveryFee.IsPositive() {
		fmt.Fprintf(&b, "Taxa de entrega: R$ %s\n", pricing.Display(order.DeliveryFee))
	}
	fmt.Fprintf(&b, "Total: R$ %s", pricing.Display(order.Total))
	if order.Notes != "" {
		fmt.Fprintf(&b, "\nObs: %s", order.Notes)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// WhatsAppLink construit le lien wa.me ; vide si aucun numéro n'est configuré
func WhatsAppLink(number string, order models.Order) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}
	return "https://wa.me/" + digits + "?text=" + url.QueryEscape(OrderSummary(order))
}

// WhatsAppQR encode le lien en PNG pour l'écran admin
func WhatsAppQR(link string) ([]byte, error) {
	if link == "" {
		return nil, errors.New("lien WhatsApp vide")
	}
	return qrcode.Encode(link, qrcode.Medium, 256)
}

// Relay pousse chaque nouvelle commande vers le webhook et NATS
type Relay struct {
	webhookURL     string
	whatsAppNumber string
	httpClient     *http.Client
	limiter        *rate.Limiter
	nats           *nats.Conn
}

type RelayConfig struct {
	WebhookURL     string
	WhatsAppNumber string
	NATS           *nats.Conn
	// RatePerSecond limite les appels webhook ; 0 vaut 2/s
	RatePerSecond float64
}

func NewRelay(cfg RelayConfig) *Relay {
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 2
	}
	return &Relay{
		webhookURL:     cfg.WebhookURL,
		whatsAppNumber: cfg.WhatsAppNumber,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		limiter:        rate.NewLimiter(rate.Limit(perSecond), 5),
		nats:           cfg.NATS,
	}
}

func (r *Relay) Payload(order models.Order) Payload {
	p := NewPayload(order)
	p.WhatsAppLink = WhatsAppLink(r.whatsAppNumber, order)
	return p
}

func (r *Relay) WhatsAppLink(order models.Order) string {
	return WhatsAppLink(r.whatsAppNumber, order)
}

// Notify envoie la commande à chaque destination configurée. Une destination en
// échec n'empêche pas les autres.
func (r *Relay) Notify(ctx context.Context, order models.Order) error {
	data, err := json.Marshal(r.Payload(order))
	if err != nil {
		return fmt.Errorf("encodage payload: %w", err)
	}

	var errs []error
	if r.webhookURL != "" {
		if err := r.postWebhook(ctx, data); err != nil {
			errs = append(errs, err)
		} else {
			log.Printf("✅ Commande %s relayée au webhook", order.ID)
		}
	}
	if r.nats != nil {
		if err := r.nats.Publish(OrderCreatedSubject, data); err != nil {
			errs = append(errs, fmt.Errorf("publication NATS: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (r *Relay) postWebhook(ctx context.Context, body []byte) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("webhook: statut %d", res.StatusCode)
	}
	return nil
}
