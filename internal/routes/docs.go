package routes

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ozidan13/codehub/internal/config"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIDocument []byte

type openAPIOperation struct {
	Summary string `yaml:"summary"`
}

type openAPIFile struct {
	Info struct {
		Title   string `yaml:"title"`
		Version string `yaml:"version"`
	} `yaml:"info"`
	Servers []struct {
		URL string `yaml:"url"`
	} `yaml:"servers"`
	Paths map[string]map[string]openAPIOperation `yaml:"paths"`
}

type endpoint struct {
	Method  string
	Path    string
	Summary string
}

type docsPage struct {
	Title     string
	Version   string
	Endpoints []endpoint
}

var httpMethods = []string{"get", "post", "put", "patch", "delete"}

func loadDocsPage(raw []byte) (docsPage, error) {
	var doc openAPIFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return docsPage{}, fmt.Errorf("parse openapi document: %w", err)
	}

	base := ""
	if len(doc.Servers) > 0 {
		base = strings.TrimRight(doc.Servers[0].URL, "/")
	}

	page := docsPage{Title: doc.Info.Title, Version: doc.Info.Version}
	for path, operations := range doc.Paths {
		for _, method := range httpMethods {
			op, ok := operations[method]
			if !ok {
				continue
			}
			page.Endpoints = append(page.Endpoints, endpoint{
				Method:  strings.ToUpper(method),
				Path:    base + path,
				Summary: op.Summary,
			})
		}
	}
	sort.Slice(page.Endpoints, func(i, j int) bool {
		if page.Endpoints[i].Path != page.Endpoints[j].Path {
			return page.Endpoints[i].Path < page.Endpoints[j].Path
		}
		return page.Endpoints[i].Method < page.Endpoints[j].Method
	})
	return page, nil
}

var docsTemplate = template.Must(template.New("docs").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
<style>
body { margin: 0 auto; max-width: 960px; padding: 32px 16px; font-family: system-ui, sans-serif; color: #1b2430; }
table { width: 100%; border-collapse: collapse; }
td, th { text-align: left; padding: 6px 8px; border-bottom: 1px solid #e3e7ec; }
code { font-size: 0.9rem; }
</style>
</head>
<body>
<h1>{{ .Title }} <small>v{{ .Version }}</small></h1>
<p>OpenAPI document: <a href="/docs/openapi.yaml">/docs/openapi.yaml</a></p>
<table>
<tr><th>Method</th><th>Path</th><th>Summary</th></tr>
{{ range .Endpoints }}<tr><td><code>{{ .Method }}</code></td><td><code>{{ .Path }}</code></td><td>{{ .Summary }}</td></tr>
{{ end }}</table>
</body>
</html>
`))

func registerDocsRoutes(router fiber.Router, cfg *config.Config) error {
	if !cfg.DocsEnabled() {
		return nil
	}

	page, err := loadDocsPage(openAPIDocument)
	if err != nil {
		return err
	}
	var rendered bytes.Buffer
	if err := docsTemplate.Execute(&rendered, page); err != nil {
		return fmt.Errorf("render docs page: %w", err)
	}
	html := rendered.Bytes()

	index := func(c *fiber.Ctx) error {
		setDocsHeaders(c, fiber.MIMETextHTMLCharsetUTF8)
		c.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; base-uri 'none'; form-action 'none'; frame-ancestors 'none'")
		return c.Send(html)
	}
	router.Get("/docs", index)
	router.Get("/docs/", index)

	router.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		setDocsHeaders(c, "application/yaml; charset=utf-8")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		return c.Send(openAPIDocument)
	})
	return nil
}

func setDocsHeaders(c *fiber.Ctx, contentType string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderXFrameOptions, "DENY")
	c.Set("Referrer-Policy", "no-referrer")
}
