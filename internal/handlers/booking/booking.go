package booking

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cake_back_end/internal/handlers"
	"cake_back_end/internal/models"
	"cake_back_end/internal/reservation"
)

// defaultWindow : plage du calendrier quand "to" est omis
const defaultWindow = 30

type Handler struct {
	reservations *reservation.Service
}

func NewHandler(reservations *reservation.Service) *Handler {
	return &Handler{reservations: reservations}
}

// Range lit from/to ; from vaut aujourd'hui, to vaut from + 30 jours
func Range(c *gin.Context, today string) (string, string, bool) {
	from := c.DefaultQuery("from", today)
	start, err := time.Parse(models.DateLayout, from)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'from' invalide (YYYY-MM-DD)"})
		return "", "", false
	}
	to := c.DefaultQuery("to", start.AddDate(0, 0, defaultWindow).Format(models.DateLayout))
	return from, to, true
}

// GetAvailability : résumé par jour (créneaux libres, jour complet, sélectionnable)
func (h *Handler) GetAvailability(c *gin.Context) {
	from, to, ok := Range(c, h.reservations.Today())
	if !ok {
		return
	}
	days, err := h.reservations.Calendar(c.Request.Context(), from, to)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from":          from,
		"to":            to,
		"earliest_date": h.reservations.EarliestDate(),
		"slots":         h.reservations.Policy().Slots,
		"days":          days,
	})
}

// GetDayAvailability relit toujours le store : c'est l'appel fait juste avant la commande
func (h *Handler) GetDayAvailability(c *gin.Context) {
	day, err := h.reservations.Day(c.Request.Context(), c.Param("date"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}
