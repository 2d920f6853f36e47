package platform

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// ErrInvalidResponse is wrapped by every error caused by a success response
// that does not match the expected shape.
var ErrInvalidResponse = errors.New("invalid response")

var timeType = reflect.TypeOf(time.Time{})

// timeLayouts are tried in order. The platform emits RFC 3339, but older
// deployments omit the zone offset.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func stringToTimeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != timeType {
		return data, nil
	}
	return parseTime(data.(string))
}

// wholeNumberHook rejects JSON numbers with a fractional part bound for an
// integer field, which mapstructure would otherwise truncate.
func wholeNumberHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	f := data.(float64)
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("expected integer, got %v", f)
	}
	return data, nil
}

// decodeModel validates that raw is an object carrying every required key
// with a non-null value, then decodes it into out.
func decodeModel(raw any, required []string, out any, what string) error {
	m, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %s: expected object, got %T", ErrInvalidResponse, what, raw)
	}

	var missing []string
	for _, key := range required {
		if v, ok := m[key]; !ok || v == nil {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s: missing required fields: %s", ErrInvalidResponse, what, strings.Join(missing, ", "))
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		TagName:    "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(stringToTimeHook, wholeNumberHook),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(m); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, what, err)
	}
	return nil
}

func decodeList[T any](raw any, required []string, what string) ([]T, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s list: expected array, got %T", ErrInvalidResponse, what, raw)
	}
	out := make([]T, len(items))
	for i, item := range items {
		if err := decodeModel(item, required, &out[i], fmt.Sprintf("%s[%d]", what, i)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// envelopeData returns the "data" member of a response envelope.
func envelopeData(resp map[string]any) (any, error) {
	data, ok := resp["data"]
	if !ok {
		return nil, fmt.Errorf("%w: envelope has no data", ErrInvalidResponse)
	}
	return data, nil
}

// envelopeObject returns the "data" member as a raw mapping, or an empty
// mapping when the envelope carries none.
func envelopeObject(resp map[string]any) map[string]any {
	data, ok := resp["data"].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return data
}

func decodeEnvelope(resp map[string]any, required []string, out any, what string) error {
	data, err := envelopeData(resp)
	if err != nil {
		return err
	}
	return decodeModel(data, required, out, what)
}

func decodeMeta(resp map[string]any) (ListMeta, error) {
	var meta ListMeta
	if err := decodeModel(resp["meta"], listMetaRequired, &meta, "meta"); err != nil {
		return ListMeta{}, err
	}
	return meta, nil
}
