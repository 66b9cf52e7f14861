package httpclient

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// decompressionTransport wraps an http.RoundTripper to advertise and
// transparently decode gzip, brotli, and zstd response encodings.
type decompressionTransport struct {
	base http.RoundTripper
}

// NewDecompressionTransport wraps base with automatic response decompression.
func NewDecompressionTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &decompressionTransport{base: base}
}

// RoundTrip executes a single HTTP transaction, adding an Accept-Encoding
// header and decompressing the response body.
func (t *decompressionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = cloneRequest(req)
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "gzip, br, zstd")
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// Nothing to decode for HEAD, 204, 304 responses.
	if resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}

	var reader io.ReadCloser
	switch primaryEncoding(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		reader = gz
	case "br":
		reader = io.NopCloser(brotli.NewReader(resp.Body))
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		reader = zr.IOReadCloser()
	default:
		return resp, nil
	}

	resp.Body = &decodedBody{reader: reader, original: resp.Body}
	// The stored length and encoding no longer describe the body.
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1

	return resp, nil
}

// decodedBody closes both the decoder and the underlying network body.
type decodedBody struct {
	reader   io.ReadCloser
	original io.ReadCloser
}

func (d *decodedBody) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decodedBody) Close() error {
	readerErr := d.reader.Close()
	bodyErr := d.original.Close()
	if readerErr != nil {
		return readerErr
	}
	return bodyErr
}

func cloneRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = make(http.Header, len(req.Header))
	for k, v := range req.Header {
		r.Header[k] = append([]string(nil), v...)
	}
	return r
}

// primaryEncoding extracts the first encoding from a Content-Encoding header,
// handling comma-separated lists and whitespace.
func primaryEncoding(header string) string {
	if header == "" {
		return ""
	}
	if idx := strings.Index(header, ","); idx >= 0 {
		header = header[:idx]
	}
	return strings.ToLower(strings.TrimSpace(header))
}
