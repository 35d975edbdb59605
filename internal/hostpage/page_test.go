// internal/hostpage/page_test.go
package hostpage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFromHTML_DataLayerDecodedEagerly(t *testing.T) {
	html := `<html><head><title> Widget Shop </title></head><body>
<script id="tf-data-layer" type="application/json">{"platform": "shopify", "product": {"id": "sku-1"}}</script>
</body></html>`

	page, err := FromHTML(html, "https://shop.example.com/")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	layer := page.DataLayer()
	if layer == nil || layer["platform"] != "shopify" {
		t.Fatalf("data layer not decoded: %v", layer)
	}
	if page.Title() != "Widget Shop" {
		t.Fatalf("title should be trimmed, got %q", page.Title())
	}
}

func TestFromHTML_MalformedDataLayerIgnored(t *testing.T) {
	html := `<html><body><script id="tf-data-layer">{broken json</script></body></html>`

	page, err := FromHTML(html, "https://shop.example.com/")
	if err != nil {
		t.Fatalf("malformed data layer must not fail the parse: %v", err)
	}
	if page.DataLayer() != nil {
		t.Fatalf("expected nil data layer, got %v", page.DataLayer())
	}
}

func TestPage_SetURL(t *testing.T) {
	page, err := FromHTML(`<html><body></body></html>`, "https://shop.example.com/a")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if page.URL() != "https://shop.example.com/a" {
		t.Fatalf("unexpected initial URL %q", page.URL())
	}
	page.SetURL("https://shop.example.com/b")
	if page.URL() != "https://shop.example.com/b" {
		t.Fatalf("navigation not recorded, got %q", page.URL())
	}
}

func TestPage_Find(t *testing.T) {
	page, err := FromHTML(`<html><body><div class="x">hit</div></body></html>`, "u")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if got := page.Find(".x").Text(); got != "hit" {
		t.Fatalf("unexpected selection text %q", got)
	}
	if page.Find(".missing").Length() != 0 {
		t.Fatal("expected empty selection for unmatched selector")
	}
}

func TestPage_SetDataLayer(t *testing.T) {
	page, err := FromHTML(`<html><body></body></html>`, "u")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	page.SetDataLayer(map[string]interface{}{"platform": "magento"})
	if page.DataLayer()["platform"] != "magento" {
		t.Fatalf("data layer override lost: %v", page.DataLayer())
	}
}

func TestHTTPLoader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "TagFusion/") {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`<html><head><title>Remote</title></head><body></body></html>`))
	}))
	defer server.Close()

	loader := NewHTTPLoader(HTTPLoaderOptions{})
	page, err := loader.Load(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if page.Title() != "Remote" {
		t.Fatalf("unexpected title %q", page.Title())
	}
	if page.URL() != server.URL {
		t.Fatalf("page URL should be the fetched URL, got %q", page.URL())
	}
}

func TestHTTPLoader_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	loader := NewHTTPLoader(HTTPLoaderOptions{})
	if _, err := loader.Load(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for HTTP 404")
	}
}
