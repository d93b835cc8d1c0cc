package model

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/gomlx/coreml-relabel/internal/wire"
	"github.com/gomlx/coreml-relabel/proto/coreml"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// firstVariantField is the lowest field number of the Model "Type" oneof.
// Higher numbered fields of Model are all variants, including ones added by
// specification versions newer than this package.
const firstVariantField protowire.Number = 200

// Decode parses a serialized CoreML model specification (the content of a
// .mlmodel file).
//
// Dictionary outputs get their in-memory keys bound from the model's class
// labels when those can be found.
func Decode(data []byte) (*Model, error) {
	m, err := decodeModel(bytes.Clone(data))
	if err != nil {
		return nil, errors.Wrap(err, "decoding CoreML model")
	}
	if keys, ok := storedKeys(m); ok && m.Description != nil {
		rewriteProbabilities(m.Description, keys)
	}
	return m, nil
}

// Encode serializes m back into a CoreML model specification.
func Encode(m *Model) ([]byte, error) {
	if m == nil {
		return nil, errors.New("encoding CoreML model: nil model")
	}
	data, err := encodeModel(m)
	if err != nil {
		return nil, errors.Wrap(err, "encoding CoreML model")
	}
	return data, nil
}

func decodeModel(b []byte) (*Model, error) {
	fields, err := wire.Parse(b)
	if err != nil {
		return nil, err
	}
	m := &Model{}
	for _, f := range fields {
		switch {
		case f.Num == coreml.ModelSpecificationVersion:
			if err := f.Expect(protowire.VarintType); err != nil {
				return nil, err
			}
			m.SpecificationVersion = int32(f.Varint)

		case f.Num == coreml.ModelDescription:
			if err := f.Expect(protowire.BytesType); err != nil {
				return nil, err
			}
			if m.Description, err = decodeDescription(f.Bytes); err != nil {
				return nil, errors.WithMessage(err, "description")
			}

		case f.Num >= firstVariantField && f.Type == protowire.BytesType:
			if m.Variant, err = decodeVariant(f.Num, f.Bytes); err != nil {
				return nil, errors.WithMessage(err, variantTag(f.Num))
			}

		default:
			m.extra = append(m.extra, f)
		}
	}
	return m, nil
}

func decodeVariant(num protowire.Number, b []byte) (Variant, error) {
	switch {
	case num == coreml.ModelPipelineClassifier:
		return decodePipelineClassifier(b)
	case num == coreml.ModelPipeline:
		return decodePipeline(b)
	case num == coreml.ModelMLProgram:
		return &Program{Raw: b}, nil
	case isClassifierKind(num):
		return decodeClassifier(ClassifierKind(num), b)
	default:
		return &Unsupported{Num: num, Raw: b}, nil
	}
}

func decodeClassifier(kind ClassifierKind, b []byte) (*Classifier, error) {
	fields, err := wire.Parse(b)
	if err != nil {
		return nil, err
	}
	c := &Classifier{Kind: kind}
	for _, f := range fields {
		switch f.Num {
		case coreml.ClassifierStringClassLabels:
			if err := f.Expect(protowire.BytesType); err != nil {
				return nil, err
			}
			if c.Labels, err = wire.Strings(f.Bytes, coreml.VectorValues); err != nil {
				return nil, errors.WithMessage(err, "stringClassLabels")
			}
			c.IntLabels = nil
		case coreml.ClassifierInt64ClassLabels:
			if err := f.Expect(protowire.BytesType); err != nil {
				return nil, err
			}
			if c.IntLabels, err = wire.Int64s(f.Bytes, coreml.VectorValues); err != nil {
				return nil, errors.WithMessage(err, "int64ClassLabels")
			}
			c.Labels = nil
		default:
			c.extra = append(c.extra, f)
		}
	}
	return c, nil
}

func decodePipeline(b []byte) (*Pipeline, error) {
	fields, err := wire.Parse(b)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{}
	for _, f := range fields {
		switch f.Num {
		case coreml.PipelineModels:
			if err := f.Expect(protowire.BytesType); err != nil {
				return nil, err
			}
			sub, err := decodeModel(f.Bytes)
			if err != nil {
				return nil, errors.WithMessagef(err, "models[%d]", len(p.Models))
			}
			p.Models = append(p.Models, sub)
		case coreml.PipelineNames:
			name, err := f.Text()
			if err != nil {
				return nil, err
			}
			p.Names = append(p.Names, name)
		default:
			p.extra = append(p.extra, f)
		}
	}
	return p, nil
}

func decodePipelineClassifier(b []byte) (*PipelineClassifier, error) {
	fields, err := wire.Parse(b)
	if err != nil {
		return nil, err
	}
	pc := &PipelineClassifier{}
	for _, f := range fields {
		if f.Num != coreml.PipelineClassifierPipeline {
			pc.extra = append(pc.extra, f)
			continue
		}
		if err := f.Expect(protowire.BytesType); err != nil {
			return nil, err
		}
		if pc.Pipeline, err = decodePipeline(f.Bytes); err != nil {
			return nil, errors.WithMessage(err, "pipeline")
		}
	}
	return pc, nil
}

func decodeDescription(b []byte) (*Description, error) {
	fields, err := wire.Parse(b)
	if err != nil {
		return nil, err
	}
	d := &Description{}
	for _, f := range fields {
		switch f.Num {
		case coreml.DescriptionInput, coreml.DescriptionOutput:
			if err := f.Expect(protowire.BytesType); err != nil {
				return nil, err
			}
			feature, err := decodeFeature(f.Bytes)
			if err != nil {
				return nil, err
			}
			if f.Num == coreml.DescriptionInput {
				d.Inputs = append(d.Inputs, feature)
			} else {
				d.Outputs = append(d.Outputs, feature)
			}
		case coreml.DescriptionPredictedFeatureName:
			if d.PredictedFeatureName, err = f.Text(); err != nil {
				return nil, err
			}
		case coreml.DescriptionPredictedProbabilitiesName:
			if d.PredictedProbabilitiesName, err = f.Text(); err != nil {
				return nil, err
			}
		case coreml.DescriptionMetadata:
			if err := f.Expect(protowire.BytesType); err != nil {
				return nil, err
			}
			if d.Metadata, err = decodeMetadata(f.Bytes); err != nil {
				return nil, errors.WithMessage(err, "metadata")
			}
		default:
			d.extra = append(d.extra, f)
		}
	}
	return d, nil
}

func decodeFeature(b []byte) (*Feature, error) {
	fields, err := wire.Parse(b)
	if err != nil {
		return nil, err
	}
	feature := &Feature{}
	for _, f := range fields {
		switch f.Num {
		case coreml.FeatureName:
			if feature.Name, err = f.Text(); err != nil {
				return nil, err
			}
		case coreml.FeatureShortDescription:
			if feature.ShortDescription, err = f.Text(); err != nil {
				return nil, err
			}
		case coreml.FeatureType:
			if err := f.Expect(protowire.BytesType); err != nil {
				return nil, err
			}
			if feature.Type, err = decodeFeatureType(f.Bytes); err != nil {
				return nil, errors.WithMessagef(err, "feature %q", feature.Name)
			}
		default:
			feature.extra = append(feature.extra, f)
		}
	}
	return feature, nil
}

var featureKindFields = map[protowire.Number]FeatureKind{
	coreml.FeatureTypeInt64:      KindInt64,
	coreml.FeatureTypeDouble:     KindDouble,
	coreml.FeatureTypeString:     KindString,
	coreml.FeatureTypeImage:      KindImage,
	coreml.FeatureTypeMultiArray: KindMultiArray,
	coreml.FeatureTypeDictionary: KindDictionary,
	coreml.FeatureTypeSequence:   KindSequence,
	coreml.FeatureTypeState:      KindState,
}

func decodeFeatureType(b []byte) (*FeatureType, error) {
	fields, err := wire.Parse(b)
	if err != nil {
		return nil, err
	}
	ft := &FeatureType{}
	for _, f := range fields {
		kind, ok := featureKindFields[f.Num]
		if !ok || f.Type != protowire.BytesType {
			ft.extra = append(ft.extra, f)
			continue
		}
		member := f
		ft.Kind, ft.memberKind, ft.member = kind, kind, &member
		ft.Dictionary, ft.memberKey = nil, KeyUnknown
		if kind != KindDictionary {
			continue
		}
		dictFields, err := wire.Parse(f.Bytes)
		if err != nil {
			return nil, errors.WithMessage(err, "dictionaryType")
		}
		ft.Dictionary = &Dictionary{}
		for _, df := range dictFields {
			switch df.Num {
			case coreml.DictionaryStringKeyType:
				ft.Dictionary.KeyType = KeyString
			case coreml.DictionaryInt64KeyType:
				ft.Dictionary.KeyType = KeyInt64
			}
		}
		ft.memberKey = ft.Dictionary.KeyType
	}
	return ft, nil
}

func decodeMetadata(b []byte) (*Metadata, error) {
	fields, err := wire.Parse(b)
	if err != nil {
		return nil, err
	}
	md := &Metadata{}
	for _, f := range fields {
		switch f.Num {
		case coreml.MetadataShortDescription:
			md.ShortDescription, err = f.Text()
		case coreml.MetadataVersionString:
			md.Version, err = f.Text()
		case coreml.MetadataAuthor:
			md.Author, err = f.Text()
		case coreml.MetadataLicense:
			md.License, err = f.Text()
		case coreml.MetadataUserDefined:
			err = decodeMapEntry(f, md)
		default:
			md.extra = append(md.extra, f)
		}
		if err != nil {
			return nil, err
		}
	}
	return md, nil
}

func decodeMapEntry(f wire.Field, md *Metadata) error {
	if err := f.Expect(protowire.BytesType); err != nil {
		return err
	}
	entry, err := wire.Parse(f.Bytes)
	if err != nil {
		return errors.WithMessage(err, "userDefined")
	}
	var key, value string
	for _, ef := range entry {
		switch ef.Num {
		case coreml.MapEntryKey:
			key, err = ef.Text()
		case coreml.MapEntryValue:
			value, err = ef.Text()
		}
		if err != nil {
			return errors.WithMessage(err, "userDefined")
		}
	}
	if md.UserDefined == nil {
		md.UserDefined = make(map[string]string)
	}
	md.UserDefined[key] = value
	return nil
}

// Encoding

func encodeModel(m *Model) ([]byte, error) {
	var b wire.Builder
	b.Raw(m.extra...)
	b.Varint(coreml.ModelSpecificationVersion, uint64(m.SpecificationVersion))
	if m.Description != nil {
		b.Bytes(coreml.ModelDescription, encodeDescription(m.Description))
	}
	if m.Variant != nil {
		num, body, err := encodeVariant(m.Variant)
		if err != nil {
			return nil, err
		}
		b.Bytes(num, body)
	}
	return b.Encode(), nil
}

func encodeVariant(v Variant) (protowire.Number, []byte, error) {
	switch v := v.(type) {
	case *Classifier:
		if !isClassifierKind(protowire.Number(v.Kind)) {
			return 0, nil, errors.Errorf("invalid classifier kind %d", v.Kind)
		}
		return protowire.Number(v.Kind), encodeClassifier(v), nil
	case *Pipeline:
		body, err := encodePipeline(v)
		return coreml.ModelPipeline, body, err
	case *PipelineClassifier:
		var b wire.Builder
		b.Raw(v.extra...)
		if v.Pipeline != nil {
			body, err := encodePipeline(v.Pipeline)
			if err != nil {
				return 0, nil, err
			}
			b.Bytes(coreml.PipelineClassifierPipeline, body)
		}
		return coreml.ModelPipelineClassifier, b.Encode(), nil
	case *Program:
		return coreml.ModelMLProgram, v.Raw, nil
	case *Unsupported:
		return v.Num, v.Raw, nil
	default:
		return 0, nil, errors.Errorf("unknown variant type %T", v)
	}
}

func encodeClassifier(c *Classifier) []byte {
	var b wire.Builder
	b.Raw(c.extra...)
	switch {
	case c.Labels != nil:
		var vec wire.Builder
		vec.Strings(coreml.VectorValues, c.Labels)
		b.Bytes(coreml.ClassifierStringClassLabels, vec.Encode())
	case c.IntLabels != nil:
		var vec wire.Builder
		vec.PackedInt64s(coreml.VectorValues, c.IntLabels)
		b.Bytes(coreml.ClassifierInt64ClassLabels, vec.Encode())
	}
	return b.Encode()
}

func encodePipeline(p *Pipeline) ([]byte, error) {
	var b wire.Builder
	b.Raw(p.extra...)
	for i, sub := range p.Models {
		if sub == nil {
			return nil, errors.Errorf("pipeline models[%d] is nil", i)
		}
		body, err := encodeModel(sub)
		if err != nil {
			return nil, errors.WithMessagef(err, "pipeline models[%d]", i)
		}
		b.Bytes(coreml.PipelineModels, body)
	}
	b.Strings(coreml.PipelineNames, p.Names)
	return b.Encode(), nil
}

func encodeDescription(d *Description) []byte {
	var b wire.Builder
	b.Raw(d.extra...)
	for _, f := range d.Inputs {
		b.Bytes(coreml.DescriptionInput, encodeFeature(f))
	}
	for _, f := range d.Outputs {
		b.Bytes(coreml.DescriptionOutput, encodeFeature(f))
	}
	b.String(coreml.DescriptionPredictedFeatureName, d.PredictedFeatureName)
	b.String(coreml.DescriptionPredictedProbabilitiesName, d.PredictedProbabilitiesName)
	if d.Metadata != nil {
		b.Bytes(coreml.DescriptionMetadata, encodeMetadata(d.Metadata))
	}
	return b.Encode()
}

func encodeFeature(f *Feature) []byte {
	var b wire.Builder
	b.Raw(f.extra...)
	b.String(coreml.FeatureName, f.Name)
	b.String(coreml.FeatureShortDescription, f.ShortDescription)
	if f.Type != nil {
		b.Bytes(coreml.FeatureType, encodeFeatureType(f.Type))
	}
	return b.Encode()
}

func encodeFeatureType(ft *FeatureType) []byte {
	var b wire.Builder
	b.Raw(ft.extra...)

	keyType := KeyUnknown
	if ft.Dictionary != nil {
		keyType = ft.Dictionary.KeyType
	}
	if ft.member != nil && ft.Kind == ft.memberKind && keyType == ft.memberKey {
		b.Raw(*ft.member)
		return b.Encode()
	}

	for num, kind := range featureKindFields {
		if kind != ft.Kind {
			continue
		}
		var body []byte
		switch keyType {
		case KeyString:
			body = wire.AppendBytes(nil, coreml.DictionaryStringKeyType, nil)
		case KeyInt64:
			body = wire.AppendBytes(nil, coreml.DictionaryInt64KeyType, nil)
		}
		if kind != KindDictionary {
			body = nil
		}
		b.Bytes(num, body)
	}
	return b.Encode()
}

func encodeMetadata(md *Metadata) []byte {
	var b wire.Builder
	b.Raw(md.extra...)
	b.String(coreml.MetadataShortDescription, md.ShortDescription)
	b.String(coreml.MetadataVersionString, md.Version)
	b.String(coreml.MetadataAuthor, md.Author)
	b.String(coreml.MetadataLicense, md.License)

	keys := make([]string, 0, len(md.UserDefined))
	for k := range md.UserDefined {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var entry wire.Builder
		entry.String(coreml.MapEntryKey, k)
		entry.String(coreml.MapEntryValue, md.UserDefined[k])
		b.Bytes(coreml.MetadataUserDefined, entry.Encode())
	}
	return b.Encode()
}

func variantTag(num protowire.Number) string {
	if tag, ok := coreml.VariantTags[num]; ok {
		return tag
	}
	return "field#" + strconv.Itoa(int(num))
}
