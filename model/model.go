// Package model is an editable, in-memory view of a CoreML model
// specification (the protobuf stored in a .mlmodel file or inside an
// .mlpackage), focused on what a converted classifier exposes: its
// inputs and outputs, its metadata and its class labels.
//
// Decode parses only the parts of the specification this package edits.
// Everything else (layers, weights, MIL programs, fields added by newer
// specification versions) is kept as raw wire data and written back
// verbatim by Encode.
//
// A Model is not safe for concurrent mutation; callers own the tree they
// decoded.
package model

import (
	"github.com/gomlx/coreml-relabel/internal/wire"
)

// Default names of the classifier outputs, as produced by coremltools when a
// ClassifierConfig is given at conversion time.
const (
	DefaultPredictedFeatureName       = "classLabel"
	DefaultPredictedProbabilitiesName = "classLabelProbs"
)

// PreviewTypeKey is the user-defined metadata key Xcode reads to pick a
// model preview.
const PreviewTypeKey = "com.apple.coreml.model.preview.type"

// Model is the root of a model specification, or a model nested in a
// pipeline.
type Model struct {
	SpecificationVersion int32
	Description          *Description

	// Variant is the model's representation: *Classifier, *Pipeline,
	// *PipelineClassifier, *Program or *Unsupported. It is nil only for a
	// Model that has no representation at all.
	Variant Variant

	extra []wire.Field
}

// Description describes a model's interface.
type Description struct {
	Inputs  []*Feature
	Outputs []*Feature

	// PredictedFeatureName names the output holding the predicted label.
	PredictedFeatureName string

	// PredictedProbabilitiesName names the output holding the label to
	// probability dictionary.
	PredictedProbabilitiesName string

	Metadata *Metadata

	extra []wire.Field
}

// Metadata is the descriptive metadata shown by Xcode.
type Metadata struct {
	ShortDescription string
	Version          string
	Author           string
	License          string
	UserDefined      map[string]string

	extra []wire.Field
}

// Feature describes one model input or output.
type Feature struct {
	Name             string
	ShortDescription string
	Type             *FeatureType

	extra []wire.Field
}

// FeatureKind enumerates the CoreML feature types.
type FeatureKind int

const (
	KindUnknown FeatureKind = iota
	KindInt64
	KindDouble
	KindString
	KindImage
	KindMultiArray
	KindDictionary
	KindSequence
	KindState
)

var featureKindNames = []string{"unknown", "int64", "double", "string", "image", "multiArray", "dictionary", "sequence", "state"}

// String implements fmt.Stringer.
func (k FeatureKind) String() string {
	if int(k) < 0 || int(k) >= len(featureKindNames) {
		return featureKindNames[KindUnknown]
	}
	return featureKindNames[k]
}

// FeatureType is the type of a Feature.
type FeatureType struct {
	Kind FeatureKind

	// Dictionary is set when Kind is KindDictionary.
	Dictionary *Dictionary

	// member is the decoded oneof member. It is re-emitted as is while Kind
	// and the dictionary key type still match what was decoded.
	member     *wire.Field
	memberKind FeatureKind
	memberKey  KeyType

	extra []wire.Field
}

// KeyType is the key type of a dictionary feature.
type KeyType int

const (
	KeyUnknown KeyType = iota
	KeyString
	KeyInt64
)

// String implements fmt.Stringer.
func (k KeyType) String() string {
	switch k {
	case KeyString:
		return "string"
	case KeyInt64:
		return "int64"
	default:
		return "unknown"
	}
}

// Dictionary describes a dictionary-typed feature, such as a classifier's
// label to probability output.
//
// CoreML does not store the keys: they are implied by the classifier's class
// labels. Keys and KeyCount mirror them in memory. They are bound when a
// model is decoded and rewritten by PatchLabels, and are never encoded.
type Dictionary struct {
	KeyType KeyType

	// Keys is the ordered key list of a string-keyed dictionary.
	Keys []string

	// KeyCount is the size of the implicit 0..KeyCount-1 key range of an
	// integer-keyed dictionary.
	KeyCount int
}

// Output returns the output feature with the given name, or nil.
func (d *Description) Output(name string) *Feature {
	return findFeature(d.Outputs, name)
}

// Input returns the input feature with the given name, or nil.
func (d *Description) Input(name string) *Feature {
	return findFeature(d.Inputs, name)
}

func findFeature(features []*Feature, name string) *Feature {
	for _, f := range features {
		if f != nil && f.Name == name {
			return f
		}
	}
	return nil
}

// predictedFeatureName returns the predicted label output name, or its default.
func (d *Description) predictedFeatureName() string {
	if d.PredictedFeatureName == "" {
		return DefaultPredictedFeatureName
	}
	return d.PredictedFeatureName
}

// predictedProbabilitiesName returns the probabilities output name, or its default.
func (d *Description) predictedProbabilitiesName() string {
	if d.PredictedProbabilitiesName == "" {
		return DefaultPredictedProbabilitiesName
	}
	return d.PredictedProbabilitiesName
}
