package model

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedVariant is matched (errors.Is) by *UnsupportedVariantError.
	ErrUnsupportedVariant = errors.New("unsupported model variant")

	// ErrLabelCountMismatch is matched (errors.Is) by *LabelCountMismatchError.
	ErrLabelCountMismatch = errors.New("label count mismatch")

	// ErrFeatureNotFound is returned when a named input or output does not exist.
	ErrFeatureNotFound = errors.New("feature not found")
)

// UnsupportedVariantError reports a model, or a model nested in a pipeline,
// whose representation cannot be relabeled.
type UnsupportedVariantError struct {
	// Tag is the variant's name, e.g. "neuralNetworkRegressor".
	Tag string

	// Path locates the model in the tree, e.g. "pipeline.models[1]".
	// It is empty for the root model.
	Path string
}

func (e *UnsupportedVariantError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("unsupported model variant %q", e.Tag)
	}
	return fmt.Sprintf("unsupported model variant %q at %s", e.Tag, e.Path)
}

// Is reports whether target is ErrUnsupportedVariant.
func (e *UnsupportedVariantError) Is(target error) bool {
	return target == ErrUnsupportedVariant
}

// LabelCountMismatchError reports a label list whose length differs from the
// number of classes the model was converted with.
type LabelCountMismatchError struct {
	Want, Got int
}

func (e *LabelCountMismatchError) Error() string {
	return fmt.Sprintf("model has %d classes, got %d labels", e.Want, e.Got)
}

// Is reports whether target is ErrLabelCountMismatch.
func (e *LabelCountMismatchError) Is(target error) bool {
	return target == ErrLabelCountMismatch
}
