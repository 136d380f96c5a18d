package nem

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/url"
)

// ParsedBody returns the decoded request body, decoding it on first use.
// JSON bodies decode to their JSON value (map[string]any for objects),
// url-encoded forms to map[string]any holding the first value per key,
// anything else to the raw bytes. An empty body is nil.
func ParsedBody(req Request) (any, error) {
	if v := req.Get(BodyKey); v != nil {
		return v, nil
	}
	raw, err := req.Body()
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	contentType, _ := req.Header("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)

	var body any
	switch mediaType {
	case "application/json", "":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			if mediaType == "" {
				body = raw
				break
			}
			return nil, ErrBadRequest("Body invalid, JSON expected", err)
		}
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, ErrBadRequest("Body invalid, form expected", err)
		}
		fields := make(map[string]any, len(values))
		for k := range values {
			fields[k] = values.Get(k)
		}
		body = fields
	case "text/plain":
		body = string(raw)
	default:
		body = raw
	}
	req.Set(BodyKey, body)
	return body, nil
}

// BodyParser decodes the body up front so that middleware and handlers see
// the same parsed value
func BodyParser() HandlerFunc {
	return func(req Request, _ Response, next Next) error {
		if _, err := ParsedBody(req); err != nil {
			return err
		}
		return next()
	}
}
