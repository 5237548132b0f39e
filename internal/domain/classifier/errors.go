package classifier

import (
	"errors"
	"fmt"
	"io"

	"github.com/corey/bayes/internal/ports"
)

func invalid(what string) error {
	return fmt.Errorf("%w: %s", ports.ErrInvalidArgument, what)
}

// release closes v if it owns resources. Strategies without state are
// plain values and have nothing to release.
func release(v any) error {
	if c, ok := v.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// releaseAll closes every strategy and joins the errors.
func releaseAll(vs ...any) error {
	var errs []error
	for _, v := range vs {
		if err := release(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
