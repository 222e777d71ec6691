package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"cake_back_end/internal/handlers/admin"
	"cake_back_end/internal/handlers/booking"
	"cake_back_end/internal/handlers/product"
	"cake_back_end/internal/handlers/user"
	"cake_back_end/internal/middleware"
)

type Handlers struct {
	Products  *product.Handler
	Bookings  *booking.Handler
	Carts     *user.CartHandler
	Checkouts *user.CheckoutHandler
	Admin     *admin.Handler
	Sessions  *middleware.AdminSessions
	Limiter   *middleware.RateLimiter
	JWTSecret string
}

// CORS autorise le front configuré (liste séparée par des virgules)
func CORS(frontendURL string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.CartTokenHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	var origins []string
	for _, o := range strings.Split(frontendURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:5173"}
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(h.Limiter.APIRateLimit())

	// =============================================
	// CATALOGUE
	// =============================================
	api.GET("/products", h.Products.GetAllProducts)
	api.GET("/products/search", h.Limiter.SearchRateLimit(), h.Products.SearchProducts)
	api.GET("/products/:id", h.Products.GetProduct)
	api.GET("/products/:id/options", h.Products.GetProductOptions)
	api.POST("/products/:id/quote", h.Products.Quote)
	api.POST("/products/:id/preview", h.Products.Preview)
	api.GET("/options", h.Products.GetOptions)

	// =============================================
	// DISPONIBILITÉS
	// =============================================
	api.GET("/availability", h.Bookings.GetAvailability)
	api.GET("/availability/:date", h.Bookings.GetDayAvailability)
	api.GET("/delivery-options", h.Checkouts.DeliveryOptions)

	// =============================================
	// PANIER ET COMMANDE
	// =============================================
	api.POST("/cart/token", h.Carts.IssueCartToken)

	cartGroup := api.Group("/cart")
	cartGroup.Use(middleware.CartToken(h.JWTSecret))
	{
		cartGroup.GET("", h.Carts.GetCart)
		cartGroup.DELETE("", h.Carts.ClearCart)
		cartGroup.POST("/items", h.Limiter.CartRateLimit(), h.Carts.AddToCart)
		cartGroup.PUT("/items/:itemId", h.Limiter.CartRateLimit(), h.Carts.UpdateCartItem)
		cartGroup.DELETE("/items/:itemId", h.Limiter.CartRateLimit(), h.Carts.RemoveCartItem)
	}

	api.POST("/checkout", middleware.CartToken(h.JWTSecret), h.Limiter.CheckoutRateLimit(), h.Checkouts.Checkout)

	// =============================================
	// ADMIN
	// =============================================
	adminGroup := api.Group("/admin")
	adminGroup.POST("/login", h.Limiter.LoginRateLimit(), h.Admin.Login)
	adminGroup.POST("/logout", h.Admin.Logout)

	protected := adminGroup.Group("")
	protected.Use(h.Sessions.RequireAdmin(), middleware.AdminAudit())
	{
		protected.GET("/products", h.Admin.ListProducts)
		protected.POST("/products", h.Admin.CreateProduct)
		protected.PUT("/products/:id", h.Admin.UpdateProduct)
		protected.DELETE("/products/:id", h.Admin.DeleteProduct)

		protected.GET("/options", h.Admin.ListOptions)
		protected.POST("/options", h.Admin.CreateOption)
		protected.PUT("/options/:type/:id", h.Admin.UpdateOption)
		protected.DELETE("/options/:type/:id", h.Admin.DeleteOption)

		protected.GET("/orders", h.Admin.ListOrders)
		protected.GET("/orders/:id", h.Admin.GetOrder)
		protected.GET("/orders/:id/whatsapp-qr", h.Admin.GetOrderQR)
		protected.PUT("/orders/:id/status", h.Admin.UpdateOrderStatus)
		protected.DELETE("/orders/:id", h.Admin.DeleteOrder)

		protected.GET("/reservations", h.Admin.GetReservations)
		protected.DELETE("/reservations/:id", h.Admin.CancelReservation)

		protected.GET("/capacity", h.Admin.GetCapacity)
		protected.GET("/stats", h.Admin.GetStats)
		protected.GET("/feed", h.Admin.OrderFeed)
		protected.POST("/reindex", h.Admin.Reindex)
	}
}
