package handlers

import (
	"time"

	"hercules_backend/internal/models"
	"hercules_backend/internal/services"
	"hercules_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type FoodHandler struct {
	BaseHandler
	foods *services.FoodService
}

func NewFoodHandler(base BaseHandler, foods *services.FoodService) *FoodHandler {
	return &FoodHandler{BaseHandler: base, foods: foods}
}

// LookupBarcode resolves a scanned barcode, local database first.
func (h *FoodHandler) LookupBarcode(c *gin.Context) {
	product, err := h.foods.LookupBarcode(c.Request.Context(), GetDB(c),
		c.Param("barcode"), h.CurrentUserID(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, product)
}

func (h *FoodHandler) SearchProducts(c *gin.Context) {
	query := c.Query("q")
	if len(query) < 2 {
		h.HandleServiceError(c, apperrors.NewBadRequestError("Query must be at least 2 characters"))
		return
	}
	products, err := h.foods.SearchProducts(GetDB(c), query, h.CurrentUserID(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, products)
}

type createProductRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	Barcode       *string `json:"barcode" validate:"omitempty,barcode"`
	Brand         string  `json:"brand" validate:"max=120"`
	KcalPer100    float64 `json:"kcal_per_100" validate:"min=0"`
	ProteinPer100 float64 `json:"protein_per_100" validate:"min=0"`
	CarbsPer100   float64 `json:"carbs_per_100" validate:"min=0"`
	FatPer100     float64 `json:"fat_per_100" validate:"min=0"`
}

func (h *FoodHandler) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	product, err := h.foods.CreateProduct(GetDB(c), h.CurrentUserID(c), &models.FoodProduct{
		Name:          req.Name,
		Barcode:       req.Barcode,
		Brand:         req.Brand,
		KcalPer100:    req.KcalPer100,
		ProteinPer100: req.ProteinPer100,
		CarbsPer100:   req.CarbsPer100,
		FatPer100:     req.FatPer100,
	})
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.Created(c, product)
}

type logPortionRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Date      string  `json:"date" validate:"required"`
	Meal      string  `json:"meal" validate:"required,oneof=breakfast lunch dinner snack"`
	Grams     float64 `json:"grams" validate:"required,gt=0"`
}

func (h *FoodHandler) LogPortion(c *gin.Context) {
	var req logPortionRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	day, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		h.HandleServiceError(c, apperrors.NewBadRequestError("Date must be YYYY-MM-DD"))
		return
	}
	entry, err := h.foods.LogPortion(GetDB(c), h.CurrentUserID(c), req.ProductID, day, req.Meal, req.Grams)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.Created(c, entry)
}

func (h *FoodHandler) DeleteLogEntry(c *gin.Context) {
	if err := h.foods.DeleteLogEntry(GetDB(c), h.CurrentUserID(c), c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, gin.H{"deleted": true})
}

func (h *FoodHandler) GetDayLog(c *gin.Context) {
	day, err := time.Parse(time.DateOnly, c.DefaultQuery("date", time.Now().UTC().Format(time.DateOnly)))
	if err != nil {
		h.HandleServiceError(c, apperrors.NewBadRequestError("Date must be YYYY-MM-DD"))
		return
	}
	log, err := h.foods.GetDayLog(GetDB(c), h.CurrentUserID(c), day)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, log)
}

type recordWeightRequest struct {
	Date     string  `json:"date" validate:"required"`
	WeightKg float64 `json:"weight_kg" validate:"required,gt=0"`
}

func (h *FoodHandler) RecordWeight(c *gin.Context) {
	var req recordWeightRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	day, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		h.HandleServiceError(c, apperrors.NewBadRequestError("Date must be YYYY-MM-DD"))
		return
	}
	entry, err := h.foods.RecordWeight(GetDB(c), h.CurrentUserID(c), day, req.WeightKg)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.Created(c, entry)
}

func (h *FoodHandler) WeightHistory(c *gin.Context) {
	to := time.Now().UTC()
	from := to.AddDate(0, -3, 0)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			h.HandleServiceError(c, apperrors.NewBadRequestError("from must be YYYY-MM-DD"))
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			h.HandleServiceError(c, apperrors.NewBadRequestError("to must be YYYY-MM-DD"))
			return
		}
		to = parsed
	}

	entries, err := h.foods.WeightHistory(GetDB(c), h.CurrentUserID(c), from, to)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, lo.Ternary(entries != nil, entries, []models.WeightEntry{}))
}
