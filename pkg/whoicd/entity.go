package whoicd

import (
	"encoding/json"
	"strings"
)

// LangValue is a WHO API text field. The API returns either a bare string
// or a language-tagged object {"@value": "...", "@language": "en"} depending
// on the endpoint; both decode to the plain value.
type LangValue string

// UnmarshalJSON accepts both representations.
func (v *LangValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = LangValue(s)
		return nil
	}
	var obj struct {
		Value string `json:"@value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*v = LangValue(obj.Value)
	return nil
}

// Entity is an ICD-11 entity as returned by search and lookup endpoints.
// Fields cover both the foundation and the MMS linearization formats.
type Entity struct {
	ID         string    `json:"id"`
	FoundryID  string    `json:"@id"`
	Title      LangValue `json:"title"`
	Definition LangValue `json:"definition"`
	TheCode    string    `json:"theCode"`
	Chapter    string    `json:"chapter"`
	StemID     string    `json:"stemId"`
	CodeRange  struct {
		Start string `json:"start"`
	} `json:"codeRange"`
}

// Code returns the linearization code, falling back to a code-range start
// for grouping entities.
func (e *Entity) Code() string {
	if e.TheCode != "" {
		return e.TheCode
	}
	return e.CodeRange.Start
}

// EntityID extracts the trailing entity identifier from the URI form.
func (e *Entity) EntityID() string {
	uri := e.FoundryID
	if uri == "" {
		uri = e.ID
	}
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}

// tmKeywords flags entities in traditional-medicine territory when the
// chapter metadata is absent from a search response.
var tmKeywords = []string{
	"traditional medicine",
	"ayurveda",
	"unani",
	"siddha",
	"homeopathy",
	"naturopathy",
	"yoga",
	"acupuncture",
	"traditional chinese medicine",
	"complementary medicine",
	"alternative medicine",
	"traditional healing",
	"herbal medicine",
}

// IsTraditionalMedicine reports whether the entity belongs to the ICD-11
// traditional-medicine chapters, by chapter code when present and by
// keyword scan of title/definition otherwise.
func (e *Entity) IsTraditionalMedicine() bool {
	switch strings.ToUpper(strings.TrimSpace(e.Chapter)) {
	case "26", "27", "TM1", "TM2", "TM1 TM2":
		return true
	}

	title := strings.ToLower(string(e.Title))
	definition := strings.ToLower(string(e.Definition))
	for _, keyword := range tmKeywords {
		if strings.Contains(title, keyword) || strings.Contains(definition, keyword) {
			return true
		}
	}
	return false
}
