package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressData compresses a response body with the named algorithm. Callers
// gate on NegotiateEncoding first; an algorithm outside gzip, zstd and
// deflate is an error.
func CompressData(data []byte, lib string) ([]byte, error) {
	var buf bytes.Buffer
	switch lib {
	case "deflate":
		writer, err := flate.NewWriter(&buf, flate.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := writer.Write(data); err != nil {
			writer.Close()
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
	case "gzip":
		writer := gzip.NewWriter(&buf)
		if _, err := writer.Write(data); err != nil {
			writer.Close()
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
	case "zstd":
		writer, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := writer.Write(data); err != nil {
			writer.Close()
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported compression: %s", lib)
	}
	return buf.Bytes(), nil
}

// NegotiateEncoding reports whether an accept-encoding header value admits
// the named algorithm, either by name or through a wildcard. Quality values
// are not weighed; naming the algorithm at all counts as acceptance.
func NegotiateEncoding(acceptEncoding, lib string) bool {
	for _, part := range strings.Split(acceptEncoding, ",") {
		token := strings.TrimSpace(part)
		if i := strings.IndexByte(token, ';'); i >= 0 {
			token = strings.TrimSpace(token[:i])
		}
		if token == "*" || strings.EqualFold(token, lib) {
			return true
		}
	}
	return false
}
