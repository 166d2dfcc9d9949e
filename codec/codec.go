// Package codec centralizes the structured-document encoding used for
// snapshot manifests.
//
// Codec selection is a compatibility boundary: manifests written by one
// codec must be decodable by the codec chosen on read. Both built-in
// codecs emit standard JSON, so they are interchangeable; the registry
// exists for callers that plug in their own document format.
package codec

// Codec encodes/decodes structured documents.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Default is the codec used when none is configured.
var Default Codec = GoJSON{}
