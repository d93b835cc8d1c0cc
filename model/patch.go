package model

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// PatchLabels rewrites the class labels of a converted classifier in place.
//
// The output named by the description's PredictedProbabilitiesName
// ("classLabelProbs" when unset) gets its dictionary keys replaced: string
// keys become labels, integer keys become the range 0..len(labels)-1. Output
// names, count and order are never changed. Then labels are injected
// according to the model's variant:
//
//   - *Classifier: its label list is replaced by a copy of labels.
//   - *Pipeline, *PipelineClassifier: every nested model is patched the same way.
//   - *Program: nothing to do, ML Programs carry the labels given at
//     conversion time.
//   - anything else: an *UnsupportedVariantError naming the variant.
//
// The whole tree is checked before anything is modified, so on error m is
// left untouched. PatchLabels does not check len(labels) against the number
// of classes of the model (see CheckLabelCount), and it is idempotent.
func PatchLabels(m *Model, labels []string) error {
	if m == nil {
		return errors.New("patching labels: nil model")
	}
	if err := checkVariants(m, ""); err != nil {
		return err
	}
	if m.Description != nil {
		rewriteProbabilities(m.Description, labels)
	}
	injectLabels(m, labels)
	return nil
}

// checkVariants returns an error for the first model in the tree whose
// labels cannot be patched.
func checkVariants(m *Model, path string) error {
	if m == nil {
		return &UnsupportedVariantError{Tag: "none", Path: path}
	}
	switch v := m.Variant.(type) {
	case *Classifier, *Program:
		return nil
	case *Pipeline:
		return checkPipeline(v, joinPath(path, v.Tag()))
	case *PipelineClassifier:
		if v.Pipeline == nil {
			return nil
		}
		return checkPipeline(v.Pipeline, joinPath(path, v.Tag()+".pipeline"))
	case *Unsupported:
		return &UnsupportedVariantError{Tag: v.Tag(), Path: path}
	case nil:
		return &UnsupportedVariantError{Tag: "none", Path: path}
	default:
		return &UnsupportedVariantError{Tag: v.Tag(), Path: path}
	}
}

func checkPipeline(p *Pipeline, path string) error {
	for i, sub := range p.Models {
		if err := checkVariants(sub, fmt.Sprintf("%s.models[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func joinPath(path, elem string) string {
	if path == "" {
		return elem
	}
	return path + "." + elem
}

// injectLabels assumes checkVariants accepted m.
func injectLabels(m *Model, labels []string) {
	switch v := m.Variant.(type) {
	case *Classifier:
		v.Labels = append(make([]string, 0, len(labels)), labels...)
		v.IntLabels = nil
	case *Pipeline:
		injectPipeline(v, labels)
	case *PipelineClassifier:
		if v.Pipeline != nil {
			injectPipeline(v.Pipeline, labels)
		}
	case *Program:
		// Labels are part of the compiled program.
	}
}

func injectPipeline(p *Pipeline, labels []string) {
	for _, sub := range p.Models {
		injectLabels(sub, labels)
	}
}

// rewriteProbabilities replaces the keys of the predicted probabilities
// output, if it exists and is a dictionary.
func rewriteProbabilities(d *Description, labels []string) {
	out := d.Output(d.predictedProbabilitiesName())
	if out == nil || out.Type == nil || out.Type.Kind != KindDictionary || out.Type.Dictionary == nil {
		return
	}
	dict := out.Type.Dictionary
	switch dict.KeyType {
	case KeyString:
		dict.Keys = append(make([]string, 0, len(labels)), labels...)
		dict.KeyCount = 0
	case KeyInt64:
		dict.Keys = nil
		dict.KeyCount = len(labels)
	}
}

// ClassifierOutputs returns the names of the predicted label output and of
// the predicted probabilities output, falling back to the coremltools
// defaults when the description does not set them.
func ClassifierOutputs(m *Model) (label, probabilities string) {
	if m == nil || m.Description == nil {
		return DefaultPredictedFeatureName, DefaultPredictedProbabilitiesName
	}
	return m.Description.predictedFeatureName(), m.Description.predictedProbabilitiesName()
}

// findClassifier returns the classifier of the tree that holds labels,
// searching pipelines from their last stage, where classification happens.
func findClassifier(m *Model) *Classifier {
	if m == nil {
		return nil
	}
	switch v := m.Variant.(type) {
	case *Classifier:
		if v.Labels != nil || v.IntLabels != nil {
			return v
		}
	case *Pipeline:
		return findInPipeline(v)
	case *PipelineClassifier:
		if v.Pipeline != nil {
			return findInPipeline(v.Pipeline)
		}
	}
	return nil
}

func findInPipeline(p *Pipeline) *Classifier {
	for i := len(p.Models) - 1; i >= 0; i-- {
		if c := findClassifier(p.Models[i]); c != nil {
			return c
		}
	}
	return nil
}

// storedKeys returns the class labels stored in the model as strings.
func storedKeys(m *Model) ([]string, bool) {
	c := findClassifier(m)
	if c == nil {
		return nil, false
	}
	if c.Labels != nil {
		return append([]string{}, c.Labels...), true
	}
	keys := make([]string, len(c.IntLabels))
	for i, v := range c.IntLabels {
		keys[i] = strconv.FormatInt(v, 10)
	}
	return keys, true
}

// ClassLabels returns a copy of the class labels stored in the model, with
// integer labels formatted in decimal. It returns nil when the model stores
// no labels, as is the case for ML Programs.
func ClassLabels(m *Model) []string {
	keys, _ := storedKeys(m)
	return keys
}

// ClassCount returns the number of classes of the model, when it can be
// determined from its stored labels.
func ClassCount(m *Model) (int, bool) {
	c := findClassifier(m)
	if c == nil {
		return 0, false
	}
	return c.NumClasses(), true
}

// CheckLabelCount returns a *LabelCountMismatchError if the model's class
// count is known and differs from len(labels). Models whose class count
// cannot be determined are accepted.
func CheckLabelCount(m *Model, labels []string) error {
	want, ok := ClassCount(m)
	if !ok || want == len(labels) {
		return nil
	}
	return &LabelCountMismatchError{Want: want, Got: len(labels)}
}
