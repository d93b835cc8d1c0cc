package model

import (
	"github.com/gomlx/coreml-relabel/internal/wire"
	"github.com/gomlx/coreml-relabel/proto/coreml"
	"google.golang.org/protobuf/encoding/protowire"
)

// Variant is one of the mutually exclusive representations of a model.
// The set is closed: *Classifier, *Pipeline, *PipelineClassifier, *Program
// and *Unsupported.
type Variant interface {
	// Tag returns the variant's name in the CoreML specification,
	// e.g. "neuralNetworkClassifier" or "mlProgram".
	Tag() string

	isVariant()
}

// ClassifierKind identifies which CoreML classifier message a Classifier is.
type ClassifierKind protowire.Number

// Classifier kinds. Each stores its class labels directly.
const (
	NeuralNetworkClassifier     = ClassifierKind(coreml.ModelNeuralNetworkClassifier)
	GLMClassifier               = ClassifierKind(coreml.ModelGLMClassifier)
	SupportVectorClassifier     = ClassifierKind(coreml.ModelSupportVectorClassifier)
	TreeEnsembleClassifier      = ClassifierKind(coreml.ModelTreeEnsembleClassifier)
	KNearestNeighborsClassifier = ClassifierKind(coreml.ModelKNearestNeighborsClassifier)
)

// String implements fmt.Stringer.
func (k ClassifierKind) String() string {
	if tag, ok := coreml.VariantTags[protowire.Number(k)]; ok {
		return tag
	}
	return "unknownClassifier"
}

func isClassifierKind(num protowire.Number) bool {
	switch ClassifierKind(num) {
	case NeuralNetworkClassifier, GLMClassifier, SupportVectorClassifier,
		TreeEnsembleClassifier, KNearestNeighborsClassifier:
		return true
	}
	return false
}

// Classifier is a model that holds a flat list of class labels: a neural
// network, GLM, SVM, tree ensemble or k-NN classifier.
type Classifier struct {
	Kind ClassifierKind

	// Labels are string class labels. When set they take precedence over
	// IntLabels.
	Labels []string

	// IntLabels are integer class labels.
	IntLabels []int64

	// extra holds the classifier's other fields (layers, weights, ...).
	extra []wire.Field
}

// Tag implements Variant.
func (c *Classifier) Tag() string { return c.Kind.String() }
func (*Classifier) isVariant()    {}

// NumClasses returns the number of class labels stored in the classifier.
func (c *Classifier) NumClasses() int {
	if c.Labels != nil {
		return len(c.Labels)
	}
	return len(c.IntLabels)
}

// Pipeline is a sequence of models evaluated in order.
type Pipeline struct {
	Models []*Model

	// Names optionally names each model of the pipeline.
	Names []string

	extra []wire.Field
}

// Tag implements Variant.
func (*Pipeline) Tag() string { return coreml.VariantTags[coreml.ModelPipeline] }
func (*Pipeline) isVariant()  {}

// PipelineClassifier is a pipeline whose last stage produces the
// classification.
type PipelineClassifier struct {
	Pipeline *Pipeline

	extra []wire.Field
}

// Tag implements Variant.
func (*PipelineClassifier) Tag() string {
	return coreml.VariantTags[coreml.ModelPipelineClassifier]
}
func (*PipelineClassifier) isVariant() {}

// Program is an ML Program (MIL). Its class labels are compiled into the
// program at conversion time and cannot be edited structurally.
type Program struct {
	// Raw is the encoded MIL program.
	Raw []byte
}

// Tag implements Variant.
func (*Program) Tag() string { return coreml.VariantTags[coreml.ModelMLProgram] }
func (*Program) isVariant()  {}

// Unsupported is any other representation (regressors, feature
// engineering models, text models, ...). It round-trips through Decode and
// Encode but cannot be relabeled.
type Unsupported struct {
	// Num is the field number of the variant in the Model message.
	Num protowire.Number

	// Raw is the encoded variant message.
	Raw []byte
}

// Tag implements Variant. Variants unknown to this package are named by
// their field number.
func (u *Unsupported) Tag() string { return variantTag(u.Num) }
func (*Unsupported) isVariant() {}
