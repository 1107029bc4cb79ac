package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// NotAvailable is the sentinel for string fields the page did not mention.
const NotAvailable = "N/A"

// ContactInfo holds the contact channels found on a homepage.
type ContactInfo struct {
	Email       *string           `json:"email"`
	Phone       *string           `json:"phone"`
	SocialMedia map[string]string `json:"social_media"`
}

// CompanyInfo is the structured profile extracted from a homepage. Every key
// is always present in its JSON form.
type CompanyInfo struct {
	Industry                 string      `json:"industry"`
	CompanySize              string      `json:"company_size"`
	Location                 string      `json:"location"`
	CoreProductsServices     []string    `json:"core_products_services"`
	UniqueSellingProposition string      `json:"unique_selling_proposition"`
	TargetAudience           string      `json:"target_audience"`
	ContactInfo              ContactInfo `json:"contact_info"`
}

// DefaultCompanyInfo returns a CompanyInfo with every field at its default.
func DefaultCompanyInfo() CompanyInfo {
	return CompanyInfo{
		Industry:                 NotAvailable,
		CompanySize:              NotAvailable,
		Location:                 NotAvailable,
		CoreProductsServices:     []string{},
		UniqueSellingProposition: NotAvailable,
		TargetAudience:           NotAvailable,
		ContactInfo:              ContactInfo{SocialMedia: map[string]string{}},
	}
}

// MarshalJSON emits empty collections instead of null so hand-built values
// keep the same shape as normalized ones.
func (c CompanyInfo) MarshalJSON() ([]byte, error) {
	type plain CompanyInfo
	out := plain(c)
	if out.CoreProductsServices == nil {
		out.CoreProductsServices = []string{}
	}
	if out.ContactInfo.SocialMedia == nil {
		out.ContactInfo.SocialMedia = map[string]string{}
	}
	return json.Marshal(out)
}

// ValidationError reports a model reply whose shape cannot be represented as
// a CompanyInfo.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "company info: " + e.Reason
	}
	return fmt.Sprintf("company info: %s: %s", e.Field, e.Reason)
}

// ErrInvalidJSON reports model output that is not a single JSON document.
var ErrInvalidJSON = errors.New("company info: output is not valid JSON")

// ParseCompanyInfo decodes raw model output and normalizes it. Only
// surrounding whitespace is tolerated; prose or code fences around the
// object make it invalid.
func ParseCompanyInfo(raw []byte) (CompanyInfo, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace(raw)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return CompanyInfo{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return CompanyInfo{}, fmt.Errorf("%w: trailing data after JSON value", ErrInvalidJSON)
	}
	return NormalizeCompanyInfo(v)
}

// NormalizeCompanyInfo builds a CompanyInfo from decoded JSON. Missing or null
// keys take their defaults and unknown keys are ignored; only values of a
// grossly wrong shape produce a *ValidationError.
func NormalizeCompanyInfo(raw any) (CompanyInfo, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return CompanyInfo{}, &ValidationError{Reason: fmt.Sprintf("expected a JSON object, got %s", kindOf(raw))}
	}

	info := DefaultCompanyInfo()
	var err error

	strFields := []struct {
		key string
		dst *string
	}{
		{"industry", &info.Industry},
		{"company_size", &info.CompanySize},
		{"location", &info.Location},
		{"unique_selling_proposition", &info.UniqueSellingProposition},
		{"target_audience", &info.TargetAudience},
	}
	for _, f := range strFields {
		v, present := obj[f.key]
		if !present || v == nil {
			continue
		}
		if *f.dst, err = scalarString(f.key, v); err != nil {
			return CompanyInfo{}, err
		}
	}

	if info.CoreProductsServices, err = stringList("core_products_services", obj["core_products_services"]); err != nil {
		return CompanyInfo{}, err
	}

	if info.ContactInfo, err = contactInfo(obj["contact_info"]); err != nil {
		return CompanyInfo{}, err
	}

	return info, nil
}

func contactInfo(raw any) (ContactInfo, error) {
	ci := ContactInfo{SocialMedia: map[string]string{}}
	if raw == nil {
		return ci, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return ContactInfo{}, &ValidationError{Field: "contact_info", Reason: "expected an object, got " + kindOf(raw)}
	}

	for _, f := range []struct {
		key string
		dst **string
	}{
		{"email", &ci.Email},
		{"phone", &ci.Phone},
	} {
		v := obj[f.key]
		if v == nil {
			continue
		}
		s, err := scalarString("contact_info."+f.key, v)
		if err != nil {
			return ContactInfo{}, err
		}
		*f.dst = &s
	}

	switch sm := obj["social_media"].(type) {
	case nil:
	case map[string]any:
		for platform, v := range sm {
			if v == nil {
				continue
			}
			s, err := scalarString("contact_info.social_media."+platform, v)
			if err != nil {
				return ContactInfo{}, err
			}
			ci.SocialMedia[platform] = s
		}
	default:
		return ContactInfo{}, &ValidationError{Field: "contact_info.social_media", Reason: "expected an object, got " + kindOf(sm)}
	}

	return ci, nil
}

// stringList accepts a JSON array of scalars or a single string.
func stringList(field string, raw any) ([]string, error) {
	out := []string{}
	switch v := raw.(type) {
	case nil:
		return out, nil
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
		return out, nil
	case []any:
		for i, item := range v {
			if item == nil {
				continue
			}
			s, err := scalarString(fmt.Sprintf("%s[%d]", field, i), item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, &ValidationError{Field: field, Reason: "expected a list, got " + kindOf(raw)}
	}
}

func scalarString(field string, v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(s), nil
	default:
		return "", &ValidationError{Field: field, Reason: "expected a string, got " + kindOf(v)}
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
