package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMetalsDevProvider_GramPrice(t *testing.T) {
	// 3110.34768 per ounce divides to exactly 100.00 per gram.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"status":"success","metals":{"gold":3110.34768,"silver":31.1034768}}`)
	}))
	defer server.Close()

	p := NewMetalsDevProvider(server.Client(), server.URL, "test-key")

	gold, err := p.GramPrice(context.Background(), MetalGold, "USD")
	if err != nil {
		t.Fatalf("GramPrice(gold) failed: %v", err)
	}
	if gold != 10000 {
		t.Errorf("expected gold gram price 10000 cents, got %d", gold)
	}

	silver, err := p.GramPrice(context.Background(), MetalSilver, "USD")
	if err != nil {
		t.Fatalf("GramPrice(silver) failed: %v", err)
	}
	if silver != 100 {
		t.Errorf("expected silver gram price 100 cents, got %d", silver)
	}
}

func TestMetalsDevProvider_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http_error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"provider_failure", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"failure"}`)
		}},
		{"malformed_body", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{`)
		}},
		{"zero_quote", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"success","metals":{"gold":0,"silver":0}}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			p := NewMetalsDevProvider(server.Client(), server.URL, "k")
			_, err := p.GramPrice(context.Background(), MetalGold, "USD")
			if !errors.Is(err, ErrPriceUnavailable) {
				t.Errorf("expected ErrPriceUnavailable, got %v", err)
			}
		})
	}
}

func TestStaticProvider(t *testing.T) {
	p := &StaticProvider{Prices: map[Metal]int64{MetalGold: 6050, MetalSilver: 75}}

	gold, err := p.GramPrice(context.Background(), MetalGold, "USD")
	if err != nil || gold != 6050 {
		t.Errorf("gold: got (%d, %v)", gold, err)
	}

	p2 := &StaticProvider{}
	if _, err := p2.GramPrice(context.Background(), MetalSilver, "USD"); !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("expected ErrPriceUnavailable for unconfigured provider, got %v", err)
	}
}
