package uiautomator2

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestFindElement(t *testing.T) {
	client, server := newTestClientWithSession(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/element") {
			t.Errorf("expected /element suffix, got %s", r.URL.Path)
		}

		var req FindElementRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Strategy != StrategyID {
			t.Errorf("expected id strategy, got %s", req.Strategy)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"value": map[string]interface{}{"ELEMENT": "element-123"},
		})
	})
	defer server.Close()

	elem, err := client.FindElement(context.Background(), StrategyID, "com.example:id/search")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elem.ID() != "element-123" {
		t.Errorf("expected element-123, got %s", elem.ID())
	}
}

func TestFindElementW3CKey(t *testing.T) {
	client, server := newTestClientWithSession(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"value": map[string]interface{}{"element-6066-11e4-a52e-4f735466cecf": "w3c-1"},
		})
	})
	defer server.Close()

	elem, err := client.FindElement(context.Background(), StrategyXPath, "//x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elem.ID() != "w3c-1" {
		t.Errorf("expected w3c-1, got %s", elem.ID())
	}
}

func TestFindElementNotFound(t *testing.T) {
	client, server := newTestClientWithSession(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"value": map[string]interface{}{}})
	})
	defer server.Close()

	if _, err := client.FindElement(context.Background(), StrategyID, "missing"); err == nil {
		t.Error("expected error for element not found")
	}
}

func TestActiveElementSendKeys(t *testing.T) {
	var typed string
	client, server := newTestClientWithSession(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/element/active"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"value": map[string]interface{}{"ELEMENT": "focused"},
			})
		case strings.HasSuffix(r.URL.Path, "/element/focused/value"):
			var req SendKeysRequest
			json.NewDecoder(r.Body).Decode(&req)
			typed = req.Text
			w.Write([]byte(`{"value":null}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	defer server.Close()

	elem, err := client.ActiveElement(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := elem.SendKeys(context.Background(), "手机壳"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typed != "手机壳" {
		t.Errorf("expected 手机壳, got %q", typed)
	}
}
