package jsonapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artpar/deepgraph/pkg/jsonapi"
)

func TestResourceBuilder(t *testing.T) {
	r := jsonapi.NewResource("components", "Bob").
		Attrs(map[string]any{"id": "ignored", "type": "ignored", "name": "Bob"}).
		Meta("kind", "greetings").
		Build()

	if r.Type != "components" || r.ID != "Bob" {
		t.Errorf("identity = %s/%s", r.Type, r.ID)
	}
	if len(r.Attributes) != 1 || r.Attributes["name"] != "Bob" {
		t.Errorf("Attributes = %v, want only name", r.Attributes)
	}
	if r.Meta["kind"] != "greetings" {
		t.Errorf("Meta = %v", r.Meta)
	}
}

func TestErrorsClearData(t *testing.T) {
	doc := jsonapi.NewDocument().
		Data(jsonapi.NewResource("components", "a").Build()).
		Errors(jsonapi.ErrBadRequest("bad")).
		Build()

	if doc.Data != nil {
		t.Error("Data should be cleared when errors are set")
	}
	if len(doc.Errors) != 1 || doc.Errors[0].StatusCode() != http.StatusBadRequest {
		t.Errorf("Errors = %+v", doc.Errors)
	}
}

func TestWriteCollection(t *testing.T) {
	rec := httptest.NewRecorder()
	jsonapi.WriteCollection(rec, http.StatusOK, nil)

	if ct := rec.Header().Get("Content-Type"); ct != jsonapi.ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	var body struct {
		Data []jsonapi.Resource `json:"data"`
		Meta jsonapi.Meta       `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data == nil || len(body.Data) != 0 {
		t.Errorf("data = %v, want empty array", body.Data)
	}
	if body.Meta["total"] != float64(0) {
		t.Errorf("meta.total = %v", body.Meta["total"])
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		errs   []jsonapi.Error
		status int
	}{
		{"none", nil, http.StatusInternalServerError},
		{"not found", []jsonapi.Error{jsonapi.ErrNotFound("component", "x")}, http.StatusNotFound},
		{"unauthorized", []jsonapi.Error{jsonapi.ErrUnauthorized("no token")}, http.StatusUnauthorized},
		{"no status", []jsonapi.Error{{Code: "odd"}}, http.StatusInternalServerError},
		{"custom", []jsonapi.Error{jsonapi.NewError(http.StatusConflict, "conflict", "Conflict").Parameter("id").Build()}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			jsonapi.WriteError(rec, tt.errs...)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var doc jsonapi.Document
			if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(doc.Errors) == 0 {
				t.Error("no errors in body")
			}
		})
	}
}
