package models

// Term is a coded concept from the source terminology being mapped.
// Terms are immutable once ingested; the ingestion pipeline owns their
// construction and this engine only reads them.
type Term struct {
	// Code is unique within the source terminology.
	Code string `json:"code"`
	// Display is the human-readable label, possibly in a non-Latin script.
	Display string `json:"display"`
	// Definition is free text and may be empty.
	Definition string `json:"definition,omitempty"`
	// SystemURI identifies the terminology that defines this term.
	SystemURI string `json:"system_uri"`
	// Synonyms preserves authoring order. Designations in alternate
	// scripts (devanagari, tamil, arabic) land here during ingestion.
	Synonyms []string `json:"synonyms,omitempty"`
	// Categories holds discipline tags such as "ayurveda" or "respiratory".
	Categories []string `json:"categories,omitempty"`
	// Properties carries arbitrary key/value concept properties.
	Properties map[string]string `json:"properties,omitempty"`
}
