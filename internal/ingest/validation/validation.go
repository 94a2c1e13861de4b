// Package validation turns a raw ingest body into a typed payload or a
// flattened validation error.
package validation

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"ingestgate/internal/ingest/models"
	dErrors "ingestgate/pkg/domain-errors"
	"ingestgate/pkg/email"
)

const (
	msgRequired      = "Required"
	msgInvalidJSON   = "Invalid JSON"
	msgFailed        = "Validation failed"
	msgInvalidDate   = "Invalid datetime"
	msgInvalidEmail  = "Invalid email"
	msgExpectedInt   = "Expected integer, received float"
	msgOutOfRange    = "Number out of range"
	fieldEventType   = "eventType"
	fieldPayload     = "payload"
	payloadFieldPath = fieldPayload + "."

	maxExactInt = 1 << 53
)

type kind int

const (
	kindString kind = iota
	kindEmail
	kindNumber
	kindInteger
	kindTimestamp
	kindObject
)

type field struct {
	name     string
	kind     kind
	required bool
}

func required(name string, k kind) field { return field{name: name, kind: k, required: true} }
func optional(name string, k kind) field { return field{name: name, kind: k} }

var schemas = map[models.EventType][]field{
	models.EventUserProfileUpdate: {
		required("userId", kindString),
		optional("email", kindEmail),
		optional("firstName", kindString),
		optional("lastName", kindString),
		optional("role", kindString),
		optional("company", kindString),
		optional("lastSeenAt", kindTimestamp),
		optional("customAttributes", kindObject),
	},
	models.EventEventDetailsUpdate: {
		required("eventId", kindString),
		required("eventName", kindString),
		required("startAt", kindTimestamp),
		required("endAt", kindTimestamp),
		optional("location", kindString),
		optional("category", kindString),
		optional("capacity", kindInteger),
	},
	models.EventSalesTransaction: {
		required("transactionId", kindString),
		required("userId", kindString),
		required("productId", kindString),
		required("value", kindNumber),
		required("currency", kindString),
		required("quantity", kindNumber),
		required("transactionAt", kindTimestamp),
		optional("eventId", kindString),
	},
	models.EventUserEngagement: {
		required("userId", kindString),
		required("engagementType", kindString),
		required("engagementAt", kindTimestamp),
		optional("resourceId", kindString),
		optional("eventId", kindString),
		optional("duration", kindNumber),
		optional("metadata", kindObject),
	},
	models.EventEventAttendance: {
		required("eventId", kindString),
		required("actualAttendees", kindNumber),
		required("registeredAttendees", kindNumber),
		required("recordedAt", kindTimestamp),
		optional("attendanceRate", kindNumber),
		optional("demographicBreakdown", kindObject),
	},
}

// Parse decodes body and validates it against the schema selected by its
// eventType. Unparseable JSON is CodeMalformedInput; anything that parses
// but does not match a schema is CodeValidation with per-field causes keyed
// by dotted path. Validation is all-or-nothing.
func Parse(body []byte) (models.Payload, error) {
	if !json.Valid(body) {
		return nil, dErrors.New(dErrors.CodeMalformedInput, msgInvalidJSON)
	}
	var root any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeMalformedInput, msgInvalidJSON)
	}

	envelope, ok := root.(map[string]any)
	if !ok {
		return nil, dErrors.Validation(msgFailed, []string{expected("object", root)}, nil)
	}

	eventType, fieldErr := discriminator(envelope)
	if fieldErr != "" {
		return nil, dErrors.Validation(msgFailed, nil, map[string][]string{fieldEventType: {fieldErr}})
	}

	rawPayload, present := envelope[fieldPayload]
	if !present {
		return nil, dErrors.Validation(msgFailed, nil, map[string][]string{fieldPayload: {msgRequired}})
	}
	payload, ok := rawPayload.(map[string]any)
	if !ok {
		return nil, dErrors.Validation(msgFailed, nil, map[string][]string{fieldPayload: {expected("object", rawPayload)}})
	}

	errs := make(map[string][]string)
	for _, f := range schemas[eventType] {
		v, present := payload[f.name]
		if !present {
			if f.required {
				errs[payloadFieldPath+f.name] = []string{msgRequired}
			}
			continue
		}
		if msg := check(f.kind, v); msg != "" {
			errs[payloadFieldPath+f.name] = []string{msg}
			continue
		}
		if f.kind == kindInteger {
			i, _ := integral(v.(json.Number))
			payload[f.name] = json.Number(strconv.FormatInt(i, 10))
		}
	}
	if len(errs) > 0 {
		return nil, dErrors.Validation(msgFailed, nil, errs)
	}

	return decodeTyped(eventType, payload)
}

func discriminator(envelope map[string]any) (models.EventType, string) {
	raw, present := envelope[fieldEventType]
	if !present {
		return "", msgRequired
	}
	s, ok := raw.(string)
	if !ok || !models.EventType(s).IsValid() {
		return "", invalidDiscriminator()
	}
	return models.EventType(s), ""
}

func invalidDiscriminator() string {
	quoted := make([]string, len(models.EventTypes))
	for i, t := range models.EventTypes {
		quoted[i] = "'" + string(t) + "'"
	}
	return "Invalid discriminator value. Expected " + strings.Join(quoted, " | ")
}

func check(k kind, v any) string {
	switch k {
	case kindString:
		if _, ok := v.(string); !ok {
			return expected("string", v)
		}
	case kindEmail:
		s, ok := v.(string)
		if !ok {
			return expected("string", v)
		}
		if !email.Valid(s) {
			return msgInvalidEmail
		}
	case kindNumber:
		n, ok := v.(json.Number)
		if !ok {
			return expected("number", v)
		}
		if _, err := n.Float64(); err != nil {
			return msgOutOfRange
		}
	case kindInteger:
		n, ok := v.(json.Number)
		if !ok {
			return expected("number", v)
		}
		if _, msg := integral(n); msg != "" {
			return msg
		}
	case kindTimestamp:
		s, ok := v.(string)
		if !ok {
			return expected("string", v)
		}
		if _, err := models.ParseTimestamp(s); err != nil {
			return msgInvalidDate
		}
	case kindObject:
		if _, ok := v.(map[string]any); !ok {
			return expected("object", v)
		}
	}
	return ""
}

// integral accepts any JSON number with an integral value that fits the
// exactly representable float64 range, so 1e3 and 250.0 both read as ints.
func integral(n json.Number) (int64, string) {
	if i, err := n.Int64(); err == nil {
		if i < -maxExactInt || i > maxExactInt {
			return 0, msgOutOfRange
		}
		return i, ""
	}
	f, err := n.Float64()
	if err != nil {
		return 0, msgOutOfRange
	}
	if f != math.Trunc(f) {
		return 0, msgExpectedInt
	}
	if f < -maxExactInt || f > maxExactInt {
		return 0, msgOutOfRange
	}
	return int64(f), ""
}

func expected(want string, got any) string {
	return fmt.Sprintf("Expected %s, received %s", want, typeName(got))
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// decodeTyped re-encodes the checked payload into its variant struct.
// Fields outside the schema are dropped.
func decodeTyped(t models.EventType, payload map[string]any) (models.Payload, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "re-encode payload")
	}
	p, err := models.DecodePayload(t, raw)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode payload")
	}
	return p, nil
}
