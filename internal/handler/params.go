package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/donation-backend/internal/model"
)

const maxBodyBytes = 1 << 20

// params is a flat view of submitted values. JSON scalars are converted to
// their text form so form and JSON submissions take the same path.
type params map[string]string

// submission is a POST /donations body after decoding: the top-level values
// and, when present, the nested "donation" values.
type submission struct {
	flat   params
	nested params // nil when no nested donation was sent
}

// parseSubmission reads a form (urlencoded or multipart) or JSON body.
// Form fields named donation[field] make up the nested donation.
func parseSubmission(w http.ResponseWriter, r *http.Request) (submission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return parseJSON(r.Body)
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return submission{}, fmt.Errorf("parsing multipart form: %w", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return submission{}, fmt.Errorf("parsing form: %w", err)
	}

	sub := submission{flat: params{}}
	for key, values := range r.PostForm {
		if len(values) == 0 {
			continue
		}
		value := values[len(values)-1]
		if name, ok := nestedKey(key); ok {
			if sub.nested == nil {
				sub.nested = params{}
			}
			sub.nested[name] = value
			continue
		}
		sub.flat[key] = value
	}
	return sub, nil
}

// nestedKey returns "amount" for "donation[amount]".
func nestedKey(key string) (string, bool) {
	if !strings.HasPrefix(key, "donation[") || !strings.HasSuffix(key, "]") {
		return "", false
	}
	name := key[len("donation[") : len(key)-1]
	return name, name != ""
}

func parseJSON(body io.Reader) (submission, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return submission{}, fmt.Errorf("decoding JSON body: %w", err)
	}

	sub := submission{flat: params{}}
	for key, value := range raw {
		if key == "donation" {
			nested, err := jsonObject(value)
			if err != nil {
				return submission{}, fmt.Errorf("decoding donation: %w", err)
			}
			sub.nested = nested
			continue
		}
		if s, ok := jsonScalar(value); ok {
			sub.flat[key] = s
		}
	}
	return sub, nil
}

func jsonObject(data json.RawMessage) (params, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := params{}
	for key, value := range raw {
		if s, ok := jsonScalar(value); ok {
			out[key] = s
		}
	}
	return out, nil
}

// jsonScalar returns strings unquoted and numbers and booleans as written.
// null, objects and arrays are skipped.
func jsonScalar(data json.RawMessage) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", false
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[', 'n':
		return "", false
	default:
		return string(data), true
	}
}

// fields builds the donation fields from a submission.
//
// The nested donation wins when present; otherwise the top-level values are
// used. An empty package becomes model.DefaultPackage, and stripeToken fills
// the card token when the donation carries none.
func (s submission) fields() model.Fields {
	src := s.flat
	if s.nested != nil {
		src = s.nested
	}

	f := model.Fields{
		CardToken:     src["stripe_card_token"],
		Package:       strings.TrimSpace(src["package"]),
		Amount:        toInt(src["amount"]),
		AddVAT:        toBool(src["add_vat"]),
		VATID:         src["vat_id"],
		Name:          src["name"],
		Email:         src["email"],
		Address:       src["address"],
		Zip:           src["zip"],
		City:          src["city"],
		State:         src["state"],
		Country:       src["country"],
		TwitterHandle: src["twitter_handle"],
		GithubHandle:  src["github_handle"],
		Homepage:      src["homepage"],
		Comment:       src["comment"],
	}
	if v, ok := src["display"]; ok {
		display := toBool(v)
		f.Display = &display
	}

	if f.Package == "" {
		f.Package = model.DefaultPackage
	}
	if strings.TrimSpace(f.CardToken) == "" {
		f.CardToken = s.flat["stripeToken"]
	}
	return f
}

// toInt reads the leading integer of s: "1000" → 1000, "10.50" → 10,
// "abc" → 0. Values that overflow int64 become 0 and fail validation.
func toInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// toBool accepts the values HTML checkboxes and JSON clients send.
func toBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "on", "yes":
		return true
	default:
		return false
	}
}
