package constants

import "errors"

// Configuration errors.
var (
	ErrAPIKeyRequired   = errors.New("an API key is required")
	ErrBaseIDRequired   = errors.New("a base ID is required")
	ErrEndpointRequired = errors.New("an endpoint URL is required")
)

// CLI errors.
var (
	ErrTableRequired      = errors.New("--table flag is required")
	ErrNoFieldsProvided   = errors.New("no fields provided, use --field or --file")
	ErrInvalidFieldFlag   = errors.New("invalid --field value, expected name=value")
	ErrUnsupportedFormat  = errors.New("unsupported output format")
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
	ErrInvalidSortFlag    = errors.New("invalid --sort value, expected field or field:asc|desc")
	ErrEmptyAPIKeyEntered = errors.New("no API key entered")
)
