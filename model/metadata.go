package model

import (
	"github.com/pkg/errors"
)

// Metadata returns the model's metadata, creating the description and the
// metadata if the model has none.
func (m *Model) Metadata() *Metadata {
	if m.Description == nil {
		m.Description = &Description{}
	}
	if m.Description.Metadata == nil {
		m.Description.Metadata = &Metadata{}
	}
	return m.Description.Metadata
}

// SetUserDefined sets a user-defined metadata entry.
func (md *Metadata) SetUserDefined(key, value string) {
	if md.UserDefined == nil {
		md.UserDefined = make(map[string]string)
	}
	md.UserDefined[key] = value
}

// SetInputDescription sets the short description of the named input.
func (m *Model) SetInputDescription(name, text string) error {
	if m.Description == nil {
		return errors.Wrapf(ErrFeatureNotFound, "input %q", name)
	}
	f := m.Description.Input(name)
	if f == nil {
		return errors.Wrapf(ErrFeatureNotFound, "input %q", name)
	}
	f.ShortDescription = text
	return nil
}

// SetOutputDescription sets the short description of the named output.
func (m *Model) SetOutputDescription(name, text string) error {
	if m.Description == nil {
		return errors.Wrapf(ErrFeatureNotFound, "output %q", name)
	}
	f := m.Description.Output(name)
	if f == nil {
		return errors.Wrapf(ErrFeatureNotFound, "output %q", name)
	}
	f.ShortDescription = text
	return nil
}
