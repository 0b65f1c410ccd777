package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"hercules_backend/internal/models"

	"github.com/hashicorp/go-retryablehttp"
)

// ProductProvider resolves a barcode against an external food database.
type ProductProvider interface {
	LookupBarcode(ctx context.Context, barcode string) (*models.FoodProduct, error)
}

const openFoodFactsBaseURL = "https://world.openfoodfacts.org/api/v2"

// OpenFoodFactsClient is the default external food database.
type OpenFoodFactsClient struct {
	http    *retryablehttp.Client
	baseURL string
}

func NewOpenFoodFactsClient() *OpenFoodFactsClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil
	return &OpenFoodFactsClient{http: rc, baseURL: openFoodFactsBaseURL}
}

type offProduct struct {
	ProductName string `json:"product_name"`
	Brands      string `json:"brands"`
	ImageURL    string `json:"image_url"`
	Nutriments  struct {
		Kcal     float64 `json:"energy-kcal_100g"`
		Proteins float64 `json:"proteins_100g"`
		Carbs    float64 `json:"carbohydrates_100g"`
		Fat      float64 `json:"fat_100g"`
	} `json:"nutriments"`
}

// LookupBarcode fetches the product and maps it onto the local model.
// Returns (nil, nil) when the barcode is unknown upstream.
func (c *OpenFoodFactsClient) LookupBarcode(ctx context.Context, barcode string) (*models.FoodProduct, error) {
	url := fmt.Sprintf("%s/product/%s.json", c.baseURL, barcode)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openfoodfacts lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openfoodfacts lookup: status %d", resp.StatusCode)
	}

	var payload struct {
		Status  int        `json:"status"`
		Product offProduct `json:"product"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Status != 1 || payload.Product.ProductName == "" {
		return nil, nil
	}

	return &models.FoodProduct{
		Name:          payload.Product.ProductName,
		Barcode:       &barcode,
		Source:        "openfoodfacts",
		Brand:         payload.Product.Brands,
		ImageURL:      payload.Product.ImageURL,
		KcalPer100:    payload.Product.Nutriments.Kcal,
		ProteinPer100: payload.Product.Nutriments.Proteins,
		CarbsPer100:   payload.Product.Nutriments.Carbs,
		FatPer100:     payload.Product.Nutriments.Fat,
	}, nil
}
