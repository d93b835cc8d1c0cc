// Package relabel edits CoreML classifiers after conversion.
//
// Converters such as coremltools attach whatever class labels they were given
// at conversion time, often none or placeholder indices. This module rewrites
// the labels of an already converted model, keeps the label probabilities
// output consistent with them, and stamps the descriptive metadata Xcode
// shows, without touching layers or weights.
//
// # Architecture
//
// The module is organized into several packages:
//
//   - model: In-memory model specification, wire codec, label patching and metadata editing
//   - mlpackage: Reading and writing .mlmodel files and .mlpackage directories
//   - labels: Label sources (JSON class indices, text files, HTTP downloads)
//   - proto/coreml: Field numbers of the CoreML specification messages
//   - cmd/coreml-relabel: Command line tool wiring them together
//
// # Usage
//
//	import (
//	    "github.com/gomlx/coreml-relabel/labels"
//	    "github.com/gomlx/coreml-relabel/mlpackage"
//	    "github.com/gomlx/coreml-relabel/model"
//	)
//
//	pkg, err := mlpackage.Load("ResNet50.mlpackage")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	names, err := labels.File{Path: "imagenet_class_index.json"}.Labels(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := model.PatchLabels(pkg.Model, names); err != nil {
//	    log.Fatal(err)
//	}
//	err = mlpackage.Save(pkg.Model, "ResNet50-labeled.mlpackage",
//	    mlpackage.SaveOptions{WeightsDir: pkg.WeightsDir()})
//
// # Supported Models
//
// Labels are patched in plain classifiers (neural network, GLM, SVM, tree
// ensemble, k-NN), in pipelines and pipeline classifiers, recursively. ML
// Programs carry no label list in their specification and are left
// unchanged. Any other model type is rejected with ErrUnsupportedVariant
// before anything is modified.
package relabel
