package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestErrorHandlerWritesErrorBody(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.ErrTooManyRequests
	})

	tests := []struct {
		target string
		status int
		code   string
	}{
		{target: "/missing", status: http.StatusNotFound, code: "NotFound"},
		{target: "/boom", status: http.StatusTooManyRequests, code: "TooManyRequests"},
	}

	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.target, nil))
		if err != nil {
			t.Fatalf("app.Test %s: %v", tt.target, err)
		}

		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode %s: %v", tt.target, err)
		}
		resp.Body.Close()

		if resp.StatusCode != tt.status || body.Error.Code != tt.code {
			t.Fatalf("%s: expected %d %s, got %d %s", tt.target, tt.status, tt.code, resp.StatusCode, body.Error.Code)
		}
	}
}
