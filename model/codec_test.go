package model

import (
	"bytes"
	"testing"

	"github.com/gomlx/coreml-relabel/internal/wire"
	"github.com/gomlx/coreml-relabel/proto/coreml"
	"google.golang.org/protobuf/encoding/protowire"
)

func message(build func(b *wire.Builder)) []byte {
	var b wire.Builder
	build(&b)
	return b.Encode()
}

func stringVector(values ...string) []byte {
	return message(func(b *wire.Builder) { b.Strings(coreml.VectorValues, values) })
}

func feature(name string, featureType []byte) []byte {
	return message(func(b *wire.Builder) {
		b.String(coreml.FeatureName, name)
		b.Bytes(coreml.FeatureType, featureType)
	})
}

// encodedClassifier returns a canonically serialized neural network
// classifier, with fields this package does not interpret (layers,
// labelProbabilityLayerName, image size, isUpdatable).
func encodedClassifier(labels ...string) []byte {
	classifier := message(func(b *wire.Builder) {
		b.Bytes(1, []byte("opaque layer"))
		b.Bytes(coreml.ClassifierStringClassLabels, stringVector(labels...))
		b.String(200, "softmax_out")
	})

	imageType := message(func(b *wire.Builder) {
		b.Bytes(coreml.FeatureTypeImage, message(func(b *wire.Builder) {
			b.Varint(1, 224)
			b.Varint(2, 224)
		}))
	})
	stringType := message(func(b *wire.Builder) { b.Bytes(coreml.FeatureTypeString, nil) })
	dictType := message(func(b *wire.Builder) {
		b.Bytes(coreml.FeatureTypeDictionary, wire.AppendBytes(nil, coreml.DictionaryStringKeyType, nil))
	})

	metadata := message(func(b *wire.Builder) {
		b.String(coreml.MetadataShortDescription, "Detects the dominant objects")
		b.String(coreml.MetadataAuthor, "Original Paper")
		b.Bytes(coreml.MetadataUserDefined, message(func(b *wire.Builder) {
			b.String(coreml.MapEntryKey, PreviewTypeKey)
			b.String(coreml.MapEntryValue, "imageClassifier")
		}))
	})

	description := message(func(b *wire.Builder) {
		b.Bytes(coreml.DescriptionInput, feature("image", imageType))
		b.Bytes(coreml.DescriptionOutput, feature("classLabel", stringType))
		b.Bytes(coreml.DescriptionOutput, feature("classLabelProbs", dictType))
		b.String(coreml.DescriptionPredictedFeatureName, "classLabel")
		b.String(coreml.DescriptionPredictedProbabilitiesName, "classLabelProbs")
		b.Bytes(coreml.DescriptionMetadata, metadata)
	})

	return message(func(b *wire.Builder) {
		b.Varint(coreml.ModelSpecificationVersion, 4)
		b.Bytes(coreml.ModelDescription, description)
		b.Varint(10, 1)
		b.Bytes(coreml.ModelNeuralNetworkClassifier, classifier)
	})
}

func TestDecodeClassifier(t *testing.T) {
	m, err := Decode(encodedClassifier("cat", "dog"))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if m.SpecificationVersion != 4 {
		t.Errorf("expected spec version 4, got %d", m.SpecificationVersion)
	}
	c, ok := m.Variant.(*Classifier)
	if !ok {
		t.Fatalf("expected *Classifier, got %T", m.Variant)
	}
	if c.Kind != NeuralNetworkClassifier {
		t.Errorf("expected neuralNetworkClassifier, got %s", c.Kind)
	}
	assertStrings(t, "labels", c.Labels, []string{"cat", "dog"})

	d := m.Description
	if len(d.Inputs) != 1 || d.Inputs[0].Type.Kind != KindImage {
		t.Errorf("unexpected inputs: %+v", d.Inputs)
	}
	if len(d.Outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(d.Outputs))
	}
	probs := d.Output("classLabelProbs")
	if probs.Type.Kind != KindDictionary || probs.Type.Dictionary.KeyType != KeyString {
		t.Fatalf("classLabelProbs: got kind %s", probs.Type.Kind)
	}
	assertStrings(t, "bound probability keys", probs.Type.Dictionary.Keys, []string{"cat", "dog"})

	if d.Metadata == nil || d.Metadata.Author != "Original Paper" {
		t.Errorf("unexpected metadata: %+v", d.Metadata)
	}
	if d.Metadata.UserDefined[PreviewTypeKey] != "imageClassifier" {
		t.Errorf("user-defined metadata not decoded: %v", d.Metadata.UserDefined)
	}
}

func TestEncodeRoundTripIsLossless(t *testing.T) {
	data := encodedClassifier("cat", "dog")
	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	got, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip changed the encoding:\n got %x\nwant %x", got, data)
	}
}

func TestPatchThenEncode(t *testing.T) {
	m, err := Decode(encodedClassifier("cat", "dog"))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if err := PatchLabels(m, []string{"cat", "dog", "bird"}); err != nil {
		t.Fatalf("PatchLabels failed: %v", err)
	}
	got, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if want := encodedClassifier("cat", "dog", "bird"); !bytes.Equal(got, want) {
		t.Errorf("patched encoding differs from a model converted with the new labels:\n got %x\nwant %x", got, want)
	}
}

func TestDecodeIntLabelsAndIntKeys(t *testing.T) {
	intType := message(func(b *wire.Builder) {
		b.Bytes(coreml.FeatureTypeDictionary, wire.AppendBytes(nil, coreml.DictionaryInt64KeyType, nil))
	})
	data := message(func(b *wire.Builder) {
		b.Bytes(coreml.ModelDescription, message(func(b *wire.Builder) {
			b.Bytes(coreml.DescriptionOutput, feature("classLabelProbs", intType))
		}))
		b.Bytes(coreml.ModelGLMClassifier, message(func(b *wire.Builder) {
			b.Bytes(coreml.ClassifierInt64ClassLabels, message(func(b *wire.Builder) {
				b.PackedInt64s(coreml.VectorValues, []int64{0, 1, 2, 3})
			}))
		}))
	})

	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	c := m.Variant.(*Classifier)
	if c.Kind != GLMClassifier || len(c.IntLabels) != 4 || c.Labels != nil {
		t.Errorf("unexpected classifier: %+v", c)
	}
	if n := m.Description.Output("classLabelProbs").Type.Dictionary.KeyCount; n != 4 {
		t.Errorf("expected key range of 4, got %d", n)
	}

	got, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip changed the encoding:\n got %x\nwant %x", got, data)
	}
}

func TestDecodeNestedPipeline(t *testing.T) {
	stage := func(labels ...string) []byte {
		return message(func(b *wire.Builder) {
			b.Bytes(coreml.ModelNeuralNetworkClassifier, message(func(b *wire.Builder) {
				b.Bytes(coreml.ClassifierStringClassLabels, stringVector(labels...))
			}))
		})
	}
	pipeline := message(func(b *wire.Builder) {
		b.Bytes(coreml.PipelineModels, message(func(b *wire.Builder) {
			b.Bytes(coreml.ModelMLProgram, []byte{0x08, 0x01})
		}))
		b.Bytes(coreml.PipelineModels, stage("a", "b"))
		b.Strings(coreml.PipelineNames, []string{"features", "classifier"})
	})
	data := message(func(b *wire.Builder) {
		b.Bytes(coreml.ModelPipelineClassifier, wire.AppendBytes(nil, coreml.PipelineClassifierPipeline, pipeline))
	})

	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	pc, ok := m.Variant.(*PipelineClassifier)
	if !ok {
		t.Fatalf("expected *PipelineClassifier, got %T", m.Variant)
	}
	if len(pc.Pipeline.Models) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(pc.Pipeline.Models))
	}
	if _, ok := pc.Pipeline.Models[0].Variant.(*Program); !ok {
		t.Errorf("stage 0: expected *Program, got %T", pc.Pipeline.Models[0].Variant)
	}
	assertStrings(t, "pipeline names", pc.Pipeline.Names, []string{"features", "classifier"})
	assertStrings(t, "class labels", ClassLabels(m), []string{"a", "b"})

	got, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip changed the encoding:\n got %x\nwant %x", got, data)
	}
}

func TestDecodeUnsupportedVariant(t *testing.T) {
	data := message(func(b *wire.Builder) {
		b.Bytes(coreml.ModelNeuralNetworkRegressor, []byte{0x0a, 0x01, 0x00})
	})
	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if tag := m.Variant.Tag(); tag != "neuralNetworkRegressor" {
		t.Errorf("expected neuralNetworkRegressor, got %q", tag)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"truncated", encodedClassifier("a")[:20]},
		{"bad tag", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
		{"description as varint", protowire.AppendVarint(protowire.AppendTag(nil, coreml.ModelDescription, protowire.VarintType), 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncodeChangedFeatureType(t *testing.T) {
	data := message(func(b *wire.Builder) {
		b.Bytes(coreml.ModelDescription, message(func(b *wire.Builder) {
			b.Bytes(coreml.DescriptionOutput, feature("probs", message(func(b *wire.Builder) {
				b.Bytes(coreml.FeatureTypeDictionary, wire.AppendBytes(nil, coreml.DictionaryInt64KeyType, nil))
			})))
		}))
	})
	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	m.Description.Output("probs").Type.Dictionary.KeyType = KeyString

	encoded, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	again, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if kt := again.Description.Output("probs").Type.Dictionary.KeyType; kt != KeyString {
		t.Errorf("expected string keys after re-encoding, got %s", kt)
	}
}
