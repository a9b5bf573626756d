package schema

import "github.com/cockroachdb/errors"

// ErrConfiguration marks errors caused by a layout or request naming
// something the configuration does not define. Test with errors.Is.
var ErrConfiguration = errors.New("configuration error")

// UnknownFieldError reports a request for a field absent from the config.
func UnknownFieldError(name string) error {
	return newConfigurationErrorf("unknown field %q", name)
}

func newConfigurationErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

// IsConfigurationError reports whether err is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
