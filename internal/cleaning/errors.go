package cleaning

import "errors"

var (
	// ErrEmptyText is returned before any upstream call when the input is blank.
	ErrEmptyText = errors.New("raw text cannot be empty")

	// ErrTimeout wraps every attempt that ran past its deadline.
	ErrTimeout = errors.New("text cleaning timeout")

	// ErrNoCleanedText is returned when the upstream answered with blank content.
	ErrNoCleanedText = errors.New("no cleaned text received")
)

// DefaultFailureMessage replaces failures that carry no usable message.
const DefaultFailureMessage = "Text cleaning failed"

// NormalizeFailure turns an arbitrary failure value (an error, a recovered panic
// value, nil) into an error with a readable message.
func NormalizeFailure(v any) error {
	if err, ok := v.(error); ok && err != nil && err.Error() != "" {
		return err
	}
	return errors.New(DefaultFailureMessage)
}
