package extract

import "errors"

// Structural errors reject the whole upload.
var (
	ErrUnsupportedFile   = errors.New("unsupported file type")
	ErrMalformedWorkbook = errors.New("malformed workbook")
	ErrMissingSheet      = errors.New("required sheet not found")
	ErrMissingColumn     = errors.New("required column not found")
)

// IsStructural reports whether err rejects the upload as a whole.
func IsStructural(err error) bool {
	return errors.Is(err, ErrUnsupportedFile) ||
		errors.Is(err, ErrMalformedWorkbook) ||
		errors.Is(err, ErrMissingSheet) ||
		errors.Is(err, ErrMissingColumn)
}
