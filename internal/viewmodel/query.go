package viewmodel

import (
	"net/url"

	"github.com/gorilla/schema"
)

var (
	queryEncoder = schema.NewEncoder()
	queryDecoder = func() *schema.Decoder {
		d := schema.NewDecoder()
		d.IgnoreUnknownKeys(true)
		return d
	}()
)

// Navigator receives the URL a view-model wants the address bar to show
// after its query state changed.
type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(target string)

// Navigate calls f.
func (f NavigatorFunc) Navigate(target string) { f(target) }

// EncodeQuery serialises src (a struct with schema tags) and then drops
// every key whose value equals the one in defaults, so URLs stay minimal.
func EncodeQuery(src any, defaults url.Values) (url.Values, error) {
	values := url.Values{}
	if err := queryEncoder.Encode(src, values); err != nil {
		return nil, err
	}
	for key, def := range defaults {
		if got, ok := values[key]; ok && len(got) == len(def) && equalStrings(got, def) {
			values.Del(key)
		}
	}
	for key, got := range values {
		if len(got) == 1 && got[0] == "" {
			values.Del(key)
		}
	}
	return values, nil
}

// DecodeQuery fills dst from values. Malformed values leave the
// corresponding field untouched; callers normalise afterwards.
func DecodeQuery(dst any, values url.Values) error {
	return queryDecoder.Decode(dst, values)
}

// BuildURL joins a path and an encoded query.
func BuildURL(path string, values url.Values) string {
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}

func equalStrings(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
