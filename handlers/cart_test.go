package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront-backend/middleware"
	"storefront-backend/models"
)

func TestAddToCartRequiresSignIn(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "products-LAPTOPSNEW", "p1", "Ultrabook", 100)

	w := env.serve(jsonRequest("POST", "/api/cart", map[string]string{
		"category":   "products-LAPTOPSNEW",
		"product_id": "p1",
	}))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
	if parseResponse(w)["redirect"] != middleware.LoginPath {
		t.Errorf("expected redirect to %s", middleware.LoginPath)
	}
}

func TestAddToCartCreatesThenIncrements(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "products-LAPTOPSNEW", "p1", "Ultrabook", 100)
	token := customerToken("u1")
	body := map[string]string{"category": "products-LAPTOPSNEW", "product_id": "p1"}

	first := env.serve(authRequest("POST", "/api/cart", body, token))
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
	}
	item := parseResponse(first)
	if item["qty"] != float64(1) || item["TotalProductPrice"] != float64(100) {
		t.Errorf("expected qty 1 / total 100, got %v / %v", item["qty"], item["TotalProductPrice"])
	}
	if item["uid"] != "u1" {
		t.Errorf("expected uid u1, got %v", item["uid"])
	}

	second := env.serve(authRequest("POST", "/api/cart", body, token))
	item = parseResponse(second)
	if item["qty"] != float64(2) || item["TotalProductPrice"] != float64(200) {
		t.Errorf("expected qty 2 / total 200, got %v / %v", item["qty"], item["TotalProductPrice"])
	}

	if n := env.store.Len(models.CartCollection("u1")); n != 1 {
		t.Errorf("expected one cart document, got %d", n)
	}
}

func TestAddToCartIgnoresClientPrice(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "products-LAPTOPSNEW", "p1", "Ultrabook", 100)

	w := env.serve(authRequest("POST", "/api/cart", map[string]interface{}{
		"category":   "products-LAPTOPSNEW",
		"product_id": "p1",
		"price":      1,
	}, customerToken("u1")))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if parseResponse(w)["price"] != float64(100) {
		t.Errorf("expected catalog price to be used")
	}
}

func TestAddToCartUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	w := env.serve(authRequest("POST", "/api/cart", map[string]string{
		"category":   "products-LAPTOPSNEW",
		"product_id": "nope",
	}, customerToken("u1")))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if n := env.store.Len(models.CartCollection("u1")); n != 0 {
		t.Errorf("expected no cart write, got %d documents", n)
	}
}

func TestAddToCartValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.serve(authRequest("POST", "/api/cart", map[string]string{"category": "products-LAPTOPSNEW"}, customerToken("u1")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetCartTotals(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "products-SPEAKERS", "s1", "Speaker", 80)
	env.seedProduct(t, "products-MONITORS", "m1", "Monitor", 220)
	token := customerToken("u1")

	env.serve(authRequest("POST", "/api/cart", map[string]string{"category": "products-SPEAKERS", "product_id": "s1"}, token))
	env.serve(authRequest("POST", "/api/cart", map[string]string{"category": "products-SPEAKERS", "product_id": "s1"}, token))
	env.serve(authRequest("POST", "/api/cart", map[string]string{"category": "products-MONITORS", "product_id": "m1"}, token))

	w := env.serve(authRequest("GET", "/api/cart", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := parseResponse(w)
	if body["totalQty"] != float64(3) {
		t.Errorf("expected totalQty 3, got %v", body["totalQty"])
	}
	if body["totalPrice"] != float64(380) {
		t.Errorf("expected totalPrice 380, got %v", body["totalPrice"])
	}
	if items := body["items"].([]interface{}); len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}
}

// readCartEvent reads SSE lines until the next "cart" event and decodes it.
func readCartEvent(t *testing.T, lines <-chan string) models.Cart {
	t.Helper()
	timeout := time.After(3 * time.Second)
	isCart := false
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before cart event")
			}
			if line == "event:cart" {
				isCart = true
				continue
			}
			if isCart && strings.HasPrefix(line, "data:") {
				var c models.Cart
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &c); err != nil {
					t.Fatalf("decode cart event: %v", err)
				}
				return c
			}
		case <-timeout:
			t.Fatal("timed out waiting for cart event")
		}
	}
}

func TestStreamCartDeliversUpdatesAndCancels(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "products-LAPTOPSNEW", "p1", "Ultrabook", 100)
	server := httptest.NewServer(env.router)
	defer server.Close()

	token := customerToken("u-stream")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+"/api/cart/stream?token="+token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	initial := readCartEvent(t, lines)
	if initial.TotalQty != 0 {
		t.Fatalf("expected empty initial cart, got %d items", initial.TotalQty)
	}

	env.serve(authRequest("POST", "/api/cart", map[string]string{"category": "products-LAPTOPSNEW", "product_id": "p1"}, token))

	updated := readCartEvent(t, lines)
	if updated.TotalQty != 1 || updated.TotalPrice != 100 {
		t.Fatalf("expected qty 1 / total 100, got %d / %v", updated.TotalQty, updated.TotalPrice)
	}

	cancel()

	collection := models.CartCollection("u-stream")
	deadline := time.Now().Add(3 * time.Second)
	for env.store.Watchers(collection) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected the cart subscription to be cancelled after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStreamCartRequiresSignIn(t *testing.T) {
	env := newTestEnv(t)

	w := env.serve(jsonRequest("GET", "/api/cart/stream", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
