package webutil

const (
	// Header Keys
	HeaderAccept        = "Accept"
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"

	// Content Types
	ContentTypeJSON          = "application/json"
	ContentTypeJSONUTF8      = "application/json; charset=utf-8"
	ContentTypeTextPlainUTF8 = "text/plain; charset=utf-8"

	BearerPrefix = "Bearer "
)
