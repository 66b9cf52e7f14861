package httpclient

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
)

func TestDecompressionTransport_Gzip(t *testing.T) {
	t.Parallel()
	const payload = "1\n00:00:01,000 --> 00:00:02,000\nHello\n"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ae := r.Header.Get("Accept-Encoding"); ae != "gzip, br, zstd" {
			t.Errorf("Accept-Encoding = %q", ae)
		}
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		gz.Write([]byte(payload))
		gz.Close()

		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	client := &http.Client{Transport: NewDecompressionTransport(nil)}
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(body) != payload {
		t.Errorf("body = %q, want %q", body, payload)
	}
	if resp.Header.Get("Content-Encoding") != "" {
		t.Error("Content-Encoding header should be cleared after decoding")
	}
}

func TestDecompressionTransport_Brotli(t *testing.T) {
	t.Parallel()
	const payload = "subtitle content"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		br := brotli.NewWriter(&buf)
		br.Write([]byte(payload))
		br.Close()

		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	client := &http.Client{Transport: NewDecompressionTransport(nil)}
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != payload {
		t.Errorf("body = %q, want %q", body, payload)
	}
}

func TestDecompressionTransport_Identity(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain"))
	}))
	defer server.Close()

	client := &http.Client{Transport: NewDecompressionTransport(nil)}
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "plain" {
		t.Errorf("body = %q", body)
	}
}

func TestPrimaryEncoding(t *testing.T) {
	t.Parallel()
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"gzip", "gzip"},
		{"GZIP ", "gzip"},
		{"br, gzip", "br"},
		{" zstd", "zstd"},
	}
	for _, tt := range tests {
		if got := primaryEncoding(tt.header); got != tt.want {
			t.Errorf("primaryEncoding(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
