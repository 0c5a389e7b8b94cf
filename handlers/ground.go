package handlers

import (
	"net/http"
	"time"

	groundRepo "groundbook/database/repository/ground"
	"groundbook/models"
	"groundbook/services/slots"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type GroundHandler struct {
	Repo groundRepo.GroundRepository
}

func NewGroundHandler(repo groundRepo.GroundRepository) *GroundHandler {
	return &GroundHandler{Repo: repo}
}

// ListGroundsHandler handles GET /api/grounds.
func (h *GroundHandler) ListGroundsHandler(c *gin.Context) {
	grounds, err := h.Repo.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, grounds)
}

// GetGroundHandler handles GET /api/grounds/:id.
func (h *GroundHandler) GetGroundHandler(c *gin.Context) {
	g, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// PutGroundHandler handles PUT /api/grounds/:id. Rate ranges must tile the day.
func (h *GroundHandler) PutGroundHandler(c *gin.Context) {
	var input models.GroundInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	g, err := BuildGround(c.Param("id"), input, time.Now())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if err := h.Repo.Upsert(c.Request.Context(), g); err != nil {
		writeServiceError(c, err)
		return
	}
	getLogger(c).Info("Ground saved", zap.String("resourceId", g.ID), zap.Int("rateRanges", len(g.RateRanges)))
	c.JSON(http.StatusOK, g)
}

// BuildGround parses and validates an operator's ground definition.
func BuildGround(id string, input models.GroundInput, now time.Time) (*models.Ground, error) {
	g := &models.Ground{
		ID:        id,
		Name:      input.Name,
		Capacity:  input.Capacity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, rr := range input.RateRanges {
		r, err := slots.ParseRange(rr.Range, true)
		if err != nil {
			return nil, err
		}
		g.RateRanges = append(g.RateRanges, models.RateRange{Label: rr.Label, Range: r, HourlyRate: rr.HourlyRate})
	}
	if err := slots.ValidateRateRanges(g.RateRanges); err != nil {
		return nil, err
	}
	return g, nil
}
