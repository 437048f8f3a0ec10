package atdw

import (
	"bytes"
	"fmt"
	"mime"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decodeBody приводит тело ответа к UTF-8. API иногда отдаёт UTF-16,
// не всегда указывая charset.
func decodeBody(contentType string, body []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(body, bomUTF8):
		return body[len(bomUTF8):], nil
	case bytes.HasPrefix(body, bomUTF16LE), bytes.HasPrefix(body, bomUTF16BE):
		return transcode(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), body)
	}

	if cs := charsetOf(contentType); cs != "" && cs != "utf-8" && cs != "utf8" {
		enc, err := htmlindex.Get(cs)
		if err != nil {
			return nil, fmt.Errorf("unsupported charset %q: %w", cs, err)
		}
		return transcode(enc, body)
	}

	if len(body) >= 2 && len(body)%2 == 0 {
		switch {
		case body[0] != 0 && body[1] == 0:
			return transcode(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), body)
		case body[0] == 0 && body[1] != 0:
			return transcode(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), body)
		}
	}
	return body, nil
}

func transcode(enc encoding.Encoding, body []byte) ([]byte, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return out, nil
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}
