package cachestore

import (
	"bytes"
	"io"
	"net/http"
	"testing"
)

func TestResponseToEntry(t *testing.T) {
	tests := []struct {
		name    string
		resp    *http.Response
		wantErr bool
	}{
		{
			name: "valid response",
			resp: &http.Response{
				StatusCode: 200,
				Header: http.Header{
					"Content-Type":  []string{"application/json"},
					"Cache-Control": []string{"no-store"},
				},
				Body: io.NopCloser(bytes.NewReader([]byte(`{"temperature": 21.5}`))),
			},
			wantErr: false,
		},
		{
			name: "response without headers",
			resp: &http.Response{
				StatusCode: 200,
				Header:     http.Header{},
				Body:       io.NopCloser(bytes.NewReader([]byte(`ok`))),
			},
			wantErr: false,
		},
		{
			name:    "nil response",
			resp:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := ResponseToEntry(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Errorf("ResponseToEntry() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				return
			}

			if entry == nil {
				t.Fatal("ResponseToEntry() returned nil entry")
			}
			if entry.StatusCode != tt.resp.StatusCode {
				t.Errorf("StatusCode = %d, want %d", entry.StatusCode, tt.resp.StatusCode)
			}
			if entry.StoredAt.IsZero() {
				t.Error("StoredAt not set")
			}

			// Body must be restored for the caller
			body, err := io.ReadAll(tt.resp.Body)
			if err != nil {
				t.Fatalf("re-read body: %v", err)
			}
			if string(body) != string(entry.Data) {
				t.Errorf("restored body = %q, entry data = %q", body, entry.Data)
			}
		})
	}
}

func TestEntryToResponse(t *testing.T) {
	entry := &Entry{
		Data:       []byte(`{"temperature": 21.5}`),
		Headers:    map[string]string{"Content-Type": "application/json"},
		StatusCode: 200,
	}

	resp := EntryToResponse(entry)

	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != string(entry.Data) {
		t.Errorf("body = %q, want %q", body, entry.Data)
	}
}

func TestEntryToResponse_ZeroStatusDefaultsToOK(t *testing.T) {
	resp := EntryToResponse(&Entry{Data: []byte("x")})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
}

func TestRoundTrip(t *testing.T) {
	orig := &http.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"image/png"}},
		Body:       io.NopCloser(bytes.NewReader([]byte("png-bytes"))),
	}

	entry, err := ResponseToEntry(orig)
	if err != nil {
		t.Fatalf("ResponseToEntry failed: %v", err)
	}

	resp := EntryToResponse(entry)
	body, _ := io.ReadAll(resp.Body)

	if string(body) != "png-bytes" {
		t.Errorf("round-trip body = %q", body)
	}
	if resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("round-trip content type = %q", resp.Header.Get("Content-Type"))
	}
}
