// Package imagequery normalizes image references into data URIs and runs a
// single question/answer cycle against a vision backend, discarding answers
// that arrive after the image has changed.
package imagequery

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// DefaultMIMEType is assumed for payloads that carry no type prefix.
const DefaultMIMEType = "image/jpeg"

// Kind tags where an image came from.
type Kind string

const (
	KindFile Kind = "file"
	KindURL  Kind = "url"
)

// ErrNotImage is returned for content that does not look like an image.
var ErrNotImage = errors.New("content is not an image")

// ImageRef is an immutable reference to the image being asked about. File
// refs are canonicalized when created; URL refs are fetched at ask time.
type ImageRef struct {
	kind      Kind
	location  string
	canonical string
}

// FromBytes builds a file ref from raw image bytes.
func FromBytes(data []byte) (ImageRef, error) {
	if len(data) == 0 {
		return ImageRef{}, errors.New("image is empty")
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return ImageRef{}, fmt.Errorf("%w: detected %s", ErrNotImage, mime)
	}
	return ImageRef{kind: KindFile, canonical: EncodeDataURI(data, mime)}, nil
}

// FromFile reads and canonicalizes a local image file.
func FromFile(path string) (ImageRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageRef{}, fmt.Errorf("reading image: %w", err)
	}
	ref, err := FromBytes(data)
	if err != nil {
		return ImageRef{}, fmt.Errorf("%s: %w", path, err)
	}
	ref.location = path
	return ref, nil
}

// FromURL builds a URL ref. Only http and https are accepted.
func FromURL(location string) (ImageRef, error) {
	u, err := url.Parse(location)
	if err != nil {
		return ImageRef{}, fmt.Errorf("parsing image URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ImageRef{}, fmt.Errorf("unsupported image URL %q", location)
	}
	return ImageRef{kind: KindURL, location: location}, nil
}

// Parse accepts an http(s) URL or a local file path.
func Parse(s string) (ImageRef, error) {
	if IsURL(s) {
		return FromURL(s)
	}
	return FromFile(s)
}

// IsURL reports whether s looks like an http(s) URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (r ImageRef) Kind() Kind { return r.kind }

// Location is the file path or URL the ref was created from.
func (r ImageRef) Location() string { return r.location }

// Canonical returns the data URI of a file ref. It is empty for URL refs.
func (r ImageRef) Canonical() string { return r.canonical }

// IsZero reports whether r is unset.
func (r ImageRef) IsZero() bool { return r.kind == "" }

// EncodeDataURI returns data as a base64 data URI.
func EncodeDataURI(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI parses a base64 data URI. A bare base64 payload without a
// prefix is accepted as DefaultMIMEType.
func DecodeDataURI(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	mime := DefaultMIMEType
	payload := s

	if strings.HasPrefix(s, "data:") {
		header, rest, ok := strings.Cut(s, ",")
		if !ok {
			return nil, "", errors.New("malformed data URI")
		}
		header = strings.TrimPrefix(header, "data:")
		t, enc, _ := strings.Cut(header, ";")
		if enc != "base64" {
			return nil, "", errors.New("data URI is not base64 encoded")
		}
		if t != "" {
			mime = t
		}
		payload = rest
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decoding image payload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", errors.New("image is empty")
	}
	return data, mime, nil
}
