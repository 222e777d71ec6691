package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"cake_back_end/internal/reservation"
)

// Settings regroupe toute la configuration lue depuis l'environnement
type Settings struct {
	Port         string
	StoreBackend string // memory | scylla
	FrontendURL  string

	ScyllaHosts    []string
	ScyllaKeyspace string
	ScyllaUser     string
	ScyllaPassword string

	RedisAddr     string
	RedisPassword string

	ElasticURL      string
	ElasticUser     string
	ElasticPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	NATSURL         string
	RelayWebhookURL string
	WhatsAppNumber  string

	AdminUsername string
	AdminPassword string
	SessionSecret string
	JWTSecret     string

	DailyMaxOrders int
	MinLeadDays    int
	DeliverySlots  []string
	DeliveryFee    decimal.Decimal
	Location       *time.Location
}

// Load charge le .env puis lit les variables avec leurs valeurs par défaut
func Load() Settings {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
	return FromEnv(os.Getenv)
}

// FromEnv construit les réglages à partir d'une fonction de lecture (os.Getenv en prod)
func FromEnv(getenv func(string) string) Settings {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	s := Settings{
		Port:         get("PORT", "8080"),
		StoreBackend: strings.ToLower(get("STORE_BACKEND", "memory")),
		FrontendURL:  get("FRONTEND_URL", "http://localhost:5173"),

		ScyllaHosts:    splitList(get("SCYLLA_HOSTS", "127.0.0.1")),
		ScyllaKeyspace: get("SCYLLA_KEYSPACE", "cake_shop"),
		ScyllaUser:     getenv("SCYLLA_USERNAME"),
		ScyllaPassword: getenv("SCYLLA_PASSWORD"),

		RedisAddr:     getenv("REDIS_HOST"),
		RedisPassword: getenv("REDIS_PASSWORD"),

		ElasticURL:      getenv("ELASTIC_URL"),
		ElasticUser:     getenv("ELASTIC_USER"),
		ElasticPassword: getenv("ELASTIC_PASSWORD"),

		MinioEndpoint:  getenv("MINIO_ENDPOINT"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: getenv("MINIO_SECRET_KEY"),
		MinioBucket:    get("MINIO_BUCKET", "cake-images"),
		MinioUseSSL:    getenv("MINIO_USE_SSL") == "true",

		SMTPHost:     getenv("SMTP_HOST"),
		SMTPPort:     intOr(getenv("SMTP_PORT"), 587),
		SMTPUsername: getenv("SMTP_USERNAME"),
		SMTPPassword: getenv("SMTP_PASSWORD"),
		MailFrom:     get("MAIL_FROM", "noreply@localhost"),

		NATSURL:         getenv("NATS_URL"),
		RelayWebhookURL: getenv("RELAY_WEBHOOK_URL"),
		WhatsAppNumber:  getenv("WHATSAPP_NUMBER"),

		AdminUsername: get("ADMIN_USERNAME", "admin"),
		AdminPassword: getenv("ADMIN_PASSWORD"),
		SessionSecret: get("SESSION_SECRET", "change-me-session-secret"),
		JWTSecret:     get("JWT_SECRET", "super_secret"),

		DailyMaxOrders: intOr(getenv("DAILY_MAX_ORDERS"), reservation.DefaultDailyMax),
		MinLeadDays:    intOr(getenv("MIN_LEAD_DAYS"), reservation.DefaultMinLeadDays),
		DeliverySlots:  splitList(getenv("DELIVERY_SLOTS")),
		DeliveryFee:    decimal.Zero,
		Location:       time.Local,
	}

	if len(s.DeliverySlots) == 0 {
		s.DeliverySlots = append([]string(nil), reservation.DefaultSlots...)
	}
	if fee := getenv("DELIVERY_FEE"); fee != "" {
		if d, err := decimal.NewFromString(fee); err == nil && !d.IsNegative() {
			s.DeliveryFee = d
		} else {
			log.Printf("⚠️ DELIVERY_FEE invalide (%q), frais de livraison à 0", fee)
		}
	}
	if tz := getenv("TIMEZONE"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			s.Location = loc
		} else {
			log.Printf("⚠️ TIMEZONE inconnue (%q), fuseau local utilisé", tz)
		}
	}
	return s
}

// Policy traduit les réglages en politique de réservation
func (s Settings) Policy() reservation.Policy {
	return reservation.Policy{
		Slots:       s.DeliverySlots,
		DailyMax:    s.DailyMaxOrders,
		MinLeadDays: s.MinLeadDays,
		Location:    s.Location,
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
