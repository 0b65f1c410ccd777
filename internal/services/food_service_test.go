package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBarcode(t *testing.T) {
	assert.Equal(t, "7038010001604", NormalizeBarcode("7038010001604"))
	assert.Equal(t, "7038010001604", NormalizeBarcode(" 7038 0100 01604 "))
	assert.Equal(t, "7038010001604", NormalizeBarcode("7038010001604\n"))
}

func TestOpenFoodFactsLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/product/7038010001604.json", r.URL.Path)
		w.Write([]byte(`{
			"status": 1,
			"product": {
				"product_name": "Lettmelk",
				"brands": "Tine",
				"nutriments": {
					"energy-kcal_100g": 37,
					"proteins_100g": 3.5,
					"carbohydrates_100g": 4.5,
					"fat_100g": 0.5
				}
			}
		}`))
	}))
	defer server.Close()

	client := NewOpenFoodFactsClient()
	client.baseURL = server.URL

	product, err := client.LookupBarcode(context.Background(), "7038010001604")
	require.NoError(t, err)
	require.NotNil(t, product)

	assert.Equal(t, "Lettmelk", product.Name)
	assert.Equal(t, "openfoodfacts", product.Source)
	require.NotNil(t, product.Barcode)
	assert.Equal(t, "7038010001604", *product.Barcode)
	assert.Equal(t, 37.0, product.KcalPer100)
	assert.Equal(t, 3.5, product.ProteinPer100)
}

func TestOpenFoodFactsUnknownBarcode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": 0, "product": {}}`))
	}))
	defer server.Close()

	client := NewOpenFoodFactsClient()
	client.baseURL = server.URL

	product, err := client.LookupBarcode(context.Background(), "0000000000000")
	require.NoError(t, err)
	assert.Nil(t, product)
}
