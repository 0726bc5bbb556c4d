package domain

// APIDocument is a fetched upstream API description prior to indexing. It
// holds the raw bytes and the parser-specific representation so later stages
// never reparse.
type APIDocument struct {
	// Source is the origin of the document (URL or file path).
	Source string
	// RawData is the unprocessed document content (JSON or YAML).
	RawData []byte
	// Parsed is the library-specific parse result (*openapi3.T for OpenAPI
	// sources). Kept as interface{} so the domain stays parser-agnostic.
	Parsed interface{}
}
