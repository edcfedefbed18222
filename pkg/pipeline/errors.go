package pipeline

import (
	"context"
	"errors"

	ferrors "github.com/matzehuels/fastroot/pkg/errors"
	"github.com/matzehuels/fastroot/pkg/rooting"
	"github.com/matzehuels/fastroot/pkg/tree"
)

// classify maps a rooting failure to an error code, keeping the original
// error as the cause.
func classify(err error, index int) error {
	code := ferrors.ErrCodeInternal
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = ferrors.ErrCodeCancelled
	case errors.Is(err, rooting.ErrMissingCovariate):
		code = ferrors.ErrCodeMissingCovariate
	case errors.Is(err, rooting.ErrNoOutgroup), errors.Is(err, rooting.ErrOutgroupCoversTree):
		code = ferrors.ErrCodeInvalidOutgroup
	case errors.Is(err, rooting.ErrTooFewLeaves),
		errors.Is(err, tree.ErrNoRoot),
		errors.Is(err, tree.ErrMissingLength),
		errors.Is(err, tree.ErrNegativeLength),
		errors.Is(err, tree.ErrEmptyLabel),
		errors.Is(err, tree.ErrDuplicateLabel):
		code = ferrors.ErrCodeInvalidTree
	case errors.Is(err, rooting.ErrInvalidConfig), errors.Is(err, rooting.ErrInvalidCovariate):
		code = ferrors.ErrCodeInvalidInput
	}
	return ferrors.Wrap(code, err, "tree %d", index)
}
