package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/ozidan13/codehub/internal/config"
)

func TestLoadDocsPageListsEveryOperation(t *testing.T) {
	page, err := loadDocsPage(openAPIDocument)
	if err != nil {
		t.Fatalf("loadDocsPage: %v", err)
	}

	want := map[string]bool{
		"POST /api/v1/enroll":                  false,
		"PUT /api/v1/enroll":                   false,
		"PATCH /api/v1/booking":                false,
		"POST /api/v1/slot/range":              false,
		"PATCH /api/v1/transaction":            false,
		"DELETE /api/v1/slot/{id}":             false,
		"GET /api/v1/transaction/{id}/receipt": false,
	}
	for _, e := range page.Endpoints {
		key := e.Method + " " + e.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, found := range want {
		if !found {
			t.Errorf("expected %s in the docs page", key)
		}
	}
}

func TestLoadDocsPageRejectsMalformedYAML(t *testing.T) {
	if _, err := loadDocsPage([]byte("paths: [unclosed")); err == nil {
		t.Fatalf("expected a parse error")
	}
}

func TestDocsRoutesInDevelopment(t *testing.T) {
	app := fiber.New()
	if err := registerDocsRoutes(app, &config.Config{AppEnv: "development", EnableDocs: true}); err != nil {
		t.Fatalf("registerDocsRoutes: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/docs", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "/api/v1/slot/range") {
		t.Fatalf("expected the endpoint table to list the slot range route")
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get(fiber.HeaderContentType); !strings.HasPrefix(got, "application/yaml") {
		t.Fatalf("expected yaml content type, got %q", got)
	}
}

func TestDocsRoutesDisabled(t *testing.T) {
	for _, cfg := range []*config.Config{
		{AppEnv: "production", EnableDocs: true},
		{AppEnv: "development", EnableDocs: false},
	} {
		app := fiber.New()
		if err := registerDocsRoutes(app, cfg); err != nil {
			t.Fatalf("registerDocsRoutes: %v", err)
		}

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/docs", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 for env=%s docs=%v, got %d", cfg.AppEnv, cfg.EnableDocs, resp.StatusCode)
		}
	}
}
