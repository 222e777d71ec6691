package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"cake_back_end/internal/cache"
	"cake_back_end/internal/cart"
	"cake_back_end/internal/checkout"
	"cake_back_end/internal/config"
	"cake_back_end/internal/database"
	"cake_back_end/internal/handlers/admin"
	"cake_back_end/internal/handlers/booking"
	"cake_back_end/internal/handlers/product"
	"cake_back_end/internal/handlers/user"
	"cake_back_end/internal/middleware"
	"cake_back_end/internal/repository"
	"cake_back_end/internal/reservation"
	"cake_back_end/internal/routes"
	"cake_back_end/internal/services"
	"cake_back_end/internal/utils"
)

func main() {
	settings := config.Load()

	// les montants sortent en nombres JSON
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conns, err := database.Connect(ctx, settings)
	if err != nil {
		log.Fatalf("❌ Connexion aux bases impossible: %v", err)
	}
	defer conns.Close()

	store, err := openStore(ctx, settings, conns)
	if err != nil {
		log.Fatalf("❌ Initialisation du store impossible: %v", err)
	}
	cached := cache.NewCachedStore(store, conns.Redis)

	var cartStore cart.Store = cart.NewMemoryStore()
	if conns.Redis != nil {
		cartStore = cart.NewRedisStore(conns.Redis)
		log.Println("✅ Paniers stockés dans Redis")
	}
	carts := cart.NewService(cartStore)

	reservations := reservation.NewService(store, cache.NewAvailabilityCache(conns.Redis), settings.Policy(), time.Now)

	// --- Services secondaires ---
	var objects services.ObjectStore
	var signer admin.ImageSigner
	if conns.MinIO != nil {
		minioStore := services.NewMinioStore(conns.MinIO, settings.MinioEndpoint, settings.MinioBucket, settings.MinioUseSSL)
		objects, signer = minioStore, minioStore
	}
	search := services.NewProductSearch(conns.Elastic)
	relay := services.NewRelay(services.RelayConfig{
		WebhookURL:     settings.RelayWebhookURL,
		WhatsAppNumber: settings.WhatsAppNumber,
		NATS:           conns.NATS,
	})
	feed := services.NewOrderFeed(conns.Redis)
	mailer := utils.NewMailer(utils.MailConfig{
		Host:     settings.SMTPHost,
		Port:     settings.SMTPPort,
		Username: settings.SMTPUsername,
		Password: settings.SMTPPassword,
		From:     settings.MailFrom,
	})

	checkoutService := checkout.NewService(checkout.Deps{
		Reservations: reservations,
		Orders:       store,
		Carts:        carts,
		Images:       services.NewImageResolver(objects),
		Notifiers:    []checkout.Notifier{relay, mailer, feed},
		DeliveryFee:  settings.DeliveryFee,
	})

	if search.Enabled() {
		go indexCatalog(cached, search)
	}

	secure := strings.HasPrefix(settings.FrontendURL, "https://")
	sessions := middleware.NewAdminSessions(settings.SessionSecret, secure)

	r := gin.Default()
	r.Use(routes.CORS(settings.FrontendURL))
	routes.RegisterRoutes(r, routes.Handlers{
		Products:  product.NewHandler(cached, search),
		Bookings:  booking.NewHandler(reservations),
		Carts:     user.NewCartHandler(cached, carts, settings.JWTSecret),
		Checkouts: user.NewCheckoutHandler(checkoutService, reservations, relay),
		Admin: admin.NewHandler(admin.Deps{
			Store:        cached,
			Reservations: reservations,
			Sessions:     sessions,
			Redis:        conns.Redis,
			Username:     settings.AdminUsername,
			Password:     settings.AdminPassword,
			Search:       search,
			Feed:         feed,
			Mailer:       mailer,
			Relay:        relay,
			Images:       signer,
		}),
		Sessions:  sessions,
		Limiter:   middleware.NewRateLimiter(conns.Redis),
		JWTSecret: settings.JWTSecret,
	})

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("🚀 Serveur lancé sur le port", settings.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Serveur arrêté: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Arrêt en cours...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Arrêt forcé du serveur: %v", err)
	}
	// laisser partir les notifications en cours
	checkoutService.Wait()
	log.Println("✅ Serveur arrêté")
}

func openStore(ctx context.Context, s config.Settings, conns *database.Connections) (repository.Store, error) {
	if s.StoreBackend != "scylla" {
		log.Println("⚠️ STORE_BACKEND=memory : catalogue de démonstration, données perdues à l'arrêt")
		return repository.NewSeededMemoryStore(), nil
	}
	scylla := repository.NewScyllaStore(conns.Scylla)
	if err := scylla.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	log.Println("✅ Schéma ScyllaDB vérifié")
	return scylla, nil
}

// indexCatalog remplit Elasticsearch au démarrage
func indexCatalog(store repository.Store, search *services.ProductSearch) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	products, err := store.ListProducts(ctx, repository.ProductFilter{IncludeInactive: true})
	if err != nil {
		log.Printf("⚠️ Lecture du catalogue pour indexation échouée: %v", err)
		return
	}
	n, err := search.Reindex(ctx, products)
	if err != nil {
		log.Printf("⚠️ Indexation initiale partielle: %v", err)
	}
	log.Printf("✅ %d produit(s) indexé(s) dans Elasticsearch", n)
}
