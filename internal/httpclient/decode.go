package httpclient

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
)

// readBody reads the response body, undoing any Content-Encoding we asked for.
func readBody(resp *http.Response) ([]byte, error) {
	// apparently, Body can be nil in some cases
	if resp.Body == nil {
		return nil, nil
	}

	var reader io.Reader
	decoded := true
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl, err := newDeflateReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		defer fl.Close()
		reader = fl
	case "br":
		reader = brotli.NewReader(resp.Body)
	default:
		reader = resp.Body
		decoded = false
	}

	body := &bytes.Buffer{}
	if _, err := io.Copy(body, reader); err != nil {
		return nil, err
	}
	if decoded {
		resp.Header.Del("Content-Encoding")
		resp.Header.Del("Content-Length")
		resp.ContentLength = -1
		resp.Uncompressed = true
	}
	return body.Bytes(), nil
}

// newDeflateReader reads an HTTP "deflate" body. That is zlib-wrapped
// DEFLATE, but some servers send raw DEFLATE, so the zlib header is sniffed
// first.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if isZlibHeader(header) {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

// isZlibHeader checks CM=8 and the FCHECK checksum of a zlib stream header.
func isZlibHeader(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	return b[0]&0x0f == 8 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}
