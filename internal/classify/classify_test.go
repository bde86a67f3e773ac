package classify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"faturas/internal/cache"
	"faturas/internal/core"
)

func TestParseSuggestion(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Suggestion
		wantErr bool
	}{
		{"valid", `{"category":"Alimentação","tip":" Cozinhe em casa. "}`, Suggestion{Category: core.CategoryFood, Tip: "Cozinhe em casa."}, false},
		{"empty", "  ", Suggestion{}, true},
		{"garbage", "not json", Suggestion{}, true},
		{"unknown category", `{"category":"Groceries","tip":"x"}`, Suggestion{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSuggestion(tt.text)
			if tt.wantErr {
				if !errors.Is(err, ErrUnavailable) {
					t.Fatalf("expected ErrUnavailable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDisabled(t *testing.T) {
	if _, err := (Disabled{}).Classify(context.Background(), "x", core.Money{Cents: 1}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGeminiClassify(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		answer := `{"category":"Transporte","tip":"Vá de bicicleta."}`
		resp := map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": answer}}},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "test-key", "",
		WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	got, err := g.Classify(context.Background(), "Uber", core.Money{Cents: 2350})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Category != core.CategoryTransport || got.Tip != "Vá de bicicleta." {
		t.Fatalf("unexpected suggestion %+v", got)
	}
	if !strings.HasSuffix(gotPath, "models/"+DefaultModel+":generateContent") {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header = %q", gotKey)
	}
	raw, _ := json.Marshal(gotBody)
	if !strings.Contains(string(raw), "R$ 23.50") {
		t.Fatalf("prompt missing amount: %s", raw)
	}
	gen, _ := gotBody["generationConfig"].(map[string]any)
	if gen["responseMimeType"] != "application/json" || gen["responseSchema"] == nil {
		t.Fatalf("structured output not requested: %v", gen)
	}
	if temp, _ := gen["temperature"].(float64); temp < 0.29 || temp > 0.31 {
		t.Fatalf("temperature = %v, want 0.3", gen["temperature"])
	}
}

func TestGeminiServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "k", "m",
		WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Classify(context.Background(), "x", core.Money{Cents: 100}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

type countingClassifier struct {
	calls int
	err   error
}

func (c *countingClassifier) Classify(context.Context, string, core.Money) (Suggestion, error) {
	c.calls++
	if c.err != nil {
		return Suggestion{}, c.err
	}
	return Suggestion{Category: core.CategoryFood, Tip: "ok"}, nil
}

func TestCached(t *testing.T) {
	next := &countingClassifier{}
	c := NewCached(next, cache.NewLRU[Suggestion](8, time.Hour))
	ctx := context.Background()

	for _, desc := range []string{"Mercado", " mercado ", "MERCADO"} {
		if _, err := c.Classify(ctx, desc, core.Money{Cents: 1000}); err != nil {
			t.Fatal(err)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", next.calls)
	}
	if _, err := c.Classify(ctx, "Mercado", core.Money{Cents: 2000}); err != nil {
		t.Fatal(err)
	}
	if next.calls != 2 {
		t.Fatalf("different amount should miss, calls=%d", next.calls)
	}

	failing := &countingClassifier{err: ErrUnavailable}
	c = NewCached(failing, cache.NewLRU[Suggestion](8, time.Hour))
	c.Classify(ctx, "x", core.Money{Cents: 1})
	c.Classify(ctx, "x", core.Money{Cents: 1})
	if failing.calls != 2 {
		t.Fatalf("errors must not be cached, calls=%d", failing.calls)
	}
}
