package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/rl1809/visio/internal/adapter/handler"
	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/core/service"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	customerID := flag.Int64("customer", 1, "customer placing the orders (must exist)")
	initialStock := flag.Int("stock", 20, "stock of the product created for the run")
	totalRequests := flag.Int("requests", 50, "concurrent orders to place")
	quantity := flag.Int("quantity", 1, "units per order")
	flag.Parse()

	client := resty.New().
		SetBaseURL(*baseURL).
		SetTimeout(10*time.Second).
		SetHeader(handler.ActorHeader, "1")

	// Create a fresh product so the run does not depend on earlier state
	sku := "LOAD-" + uuid.NewString()[:8]
	var product domain.Product
	resp, err := client.R().
		SetBody(map[string]any{
			"sku":            sku,
			"name":           "Load test " + sku,
			"category":       "Load",
			"price":          "1.00",
			"stock_quantity": *initialStock,
		}).
		SetResult(&product).
		Post("/api/products")
	if err != nil {
		log.Fatalf("failed to create product: %v", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		log.Fatalf("failed to create product: %s %s", resp.Status(), resp.String())
	}

	var successCount, failCount, duplicates atomic.Int32
	var numbers sync.Map

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var result service.CreateOrderResult
			resp, err := client.R().
				SetBody(map[string]any{
					"request_id":  uuid.NewString(),
					"customer_id": *customerID,
					"items":       []domain.LineItem{{ProductID: product.ID, Quantity: *quantity}},
				}).
				SetResult(&result).
				Post("/api/orders")
			if err != nil || resp.StatusCode() != http.StatusCreated {
				failCount.Add(1)
				return
			}
			successCount.Add(1)
			if _, loaded := numbers.LoadOrStore(result.Order.OrderNumber, true); loaded {
				duplicates.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("=========== LOAD TEST RESULTS ===========")
	fmt.Printf("Product:          %s (id %d)\n", sku, product.ID)
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d x %d units\n", *totalRequests, *quantity)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Stock floors at zero, so every accepted order must be reflected exactly
	var found []domain.Product
	resp, err = client.R().
		SetQueryParam("q", sku).
		SetResult(&found).
		Get("/api/products/search")
	if err != nil {
		log.Fatalf("failed to read product: %v", err)
	}
	if resp.StatusCode() != http.StatusOK || len(found) != 1 {
		log.Fatalf("failed to read product %s: %s", sku, resp.Status())
	}
	final := found[0]

	expected := *initialStock - int(success)*(*quantity)
	if expected < 0 {
		expected = 0
	}
	fmt.Printf("Final Stock:      %d\n", final.StockQuantity)
	if final.StockQuantity == expected {
		fmt.Printf("PASS: stock is %d, no lost decrement\n", expected)
	} else {
		fmt.Printf("FAIL: expected stock %d, got %d\n", expected, final.StockQuantity)
	}

	if d := duplicates.Load(); d == 0 {
		fmt.Println("PASS: every order number is unique")
	} else {
		fmt.Printf("FAIL: %d duplicate order numbers\n", d)
	}
}
