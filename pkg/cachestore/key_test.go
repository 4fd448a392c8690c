package cachestore

import (
	"net/http"
	"net/url"
	"testing"
)

func TestRequestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  RequestKey
		want string
	}{
		{
			name: "simple path no params",
			key: RequestKey{
				Method: "GET",
				Path:   "/v1/forecast/",
			},
			want: "req:GET:v1/forecast",
		},
		{
			name: "path with origin",
			key: RequestKey{
				Method: "GET",
				Origin: "https://api.open-meteo.com",
				Path:   "/v1/forecast",
			},
			want: "req:GET:https://api.open-meteo.com:v1/forecast",
		},
		{
			name: "path with query params",
			key: RequestKey{
				Method: "GET",
				Path:   "/v1/search",
				Query: url.Values{
					"name": []string{"Paris"},
				},
			},
			want: "req:GET:v1/search:name=Paris",
		},
		{
			name: "multiple query params sorted",
			key: RequestKey{
				Method: "GET",
				Path:   "/v1/forecast",
				Query: url.Values{
					"longitude": []string{"2.35"},
					"latitude":  []string{"48.85"},
				},
			},
			want: "req:GET:v1/forecast:latitude=48.85:longitude=2.35",
		},
		{
			name: "empty method defaults to GET",
			key: RequestKey{
				Path: "/app.js",
			},
			want: "req:GET:app.js",
		},
		{
			name: "lowercase method is uppercased",
			key: RequestKey{
				Method: "get",
				Path:   "/app.js",
			},
			want: "req:GET:app.js",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Parameter order must not affect cache identity.
func TestRequestKey_ParameterOrderIndependence(t *testing.T) {
	req1, _ := http.NewRequest("GET", "https://api.open-meteo.com/v1/forecast?latitude=48.85&longitude=2.35&hourly=temperature_2m", nil)
	req2, _ := http.NewRequest("GET", "https://api.open-meteo.com/v1/forecast?hourly=temperature_2m&longitude=2.35&latitude=48.85", nil)

	key1 := KeyFromRequest(req1)
	key2 := KeyFromRequest(req2)

	if key1.String() != key2.String() {
		t.Errorf("Keys differ for reordered parameters:\n  %s\n  %s", key1.String(), key2.String())
	}
}

func TestRequestKey_DifferentParamsDiffer(t *testing.T) {
	req1, _ := http.NewRequest("GET", "https://api.open-meteo.com/v1/forecast?latitude=48.85", nil)
	req2, _ := http.NewRequest("GET", "https://api.open-meteo.com/v1/forecast?latitude=52.52", nil)

	if KeyFromRequest(req1).String() == KeyFromRequest(req2).String() {
		t.Error("Keys must differ for different parameter values")
	}
}

func TestKeyFromRequest(t *testing.T) {
	req, _ := http.NewRequest("GET", "https://geocoding-api.open-meteo.com/v1/search?name=Berlin&count=5", nil)

	key := KeyFromRequest(req)

	if key.Method != "GET" {
		t.Errorf("Method = %q, want GET", key.Method)
	}
	if key.Origin != "https://geocoding-api.open-meteo.com" {
		t.Errorf("Origin = %q", key.Origin)
	}
	if key.Path != "/v1/search" {
		t.Errorf("Path = %q", key.Path)
	}
	if key.Query.Get("name") != "Berlin" {
		t.Errorf("Query name = %q", key.Query.Get("name"))
	}
}
