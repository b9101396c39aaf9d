package pipeline

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the pipeline wraps exactly one of
// them together with its cause, so both can be matched with errors.Is.
var (
	ErrInput  = errors.New("input error")
	ErrConfig = errors.New("config error")
	ErrRender = errors.New("render error")
)

func wrap(kind error, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInput) || errors.Is(err, ErrConfig) || errors.Is(err, ErrRender) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
