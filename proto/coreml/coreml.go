// Package coreml holds the field numbers of Apple's CoreML protobuf
// specification (Model.proto and the messages it references) that the
// model codec reads or rewrites.
//
// Only the fields the codec interprets are listed. Everything else in a
// model is carried through as raw, unparsed wire data.
//
// Reference: https://apple.github.io/coremltools/mlmodel/index.html
package coreml

import "google.golang.org/protobuf/encoding/protowire"

// Model fields.
const (
	ModelSpecificationVersion protowire.Number = 1
	ModelDescription          protowire.Number = 2
)

// Model "Type" oneof members. The field number identifies the variant.
const (
	ModelPipelineClassifier          protowire.Number = 200
	ModelPipelineRegressor           protowire.Number = 201
	ModelPipeline                    protowire.Number = 202
	ModelGLMRegressor                protowire.Number = 300
	ModelSupportVectorRegressor      protowire.Number = 301
	ModelTreeEnsembleRegressor       protowire.Number = 302
	ModelNeuralNetworkRegressor      protowire.Number = 303
	ModelBayesianProbitRegressor     protowire.Number = 304
	ModelGLMClassifier               protowire.Number = 400
	ModelSupportVectorClassifier     protowire.Number = 401
	ModelTreeEnsembleClassifier      protowire.Number = 402
	ModelNeuralNetworkClassifier     protowire.Number = 403
	ModelKNearestNeighborsClassifier protowire.Number = 404
	ModelNeuralNetwork               protowire.Number = 500
	ModelItemSimilarityRecommender   protowire.Number = 501
	ModelMLProgram                   protowire.Number = 502
	ModelCustomModel                 protowire.Number = 555
	ModelLinkedModel                 protowire.Number = 556
	ModelClassConfidenceThresholding protowire.Number = 560
	ModelOneHotEncoder               protowire.Number = 600
	ModelImputer                     protowire.Number = 601
	ModelFeatureVectorizer           protowire.Number = 602
	ModelDictVectorizer              protowire.Number = 603
	ModelScaler                      protowire.Number = 604
	ModelCategoricalMapping          protowire.Number = 606
	ModelNormalizer                  protowire.Number = 607
	ModelArrayFeatureExtractor       protowire.Number = 609
	ModelNonMaximumSuppression       protowire.Number = 610
	ModelIdentity                    protowire.Number = 900
	ModelTextClassifier              protowire.Number = 2000
	ModelWordTagger                  protowire.Number = 2001
	ModelVisionFeaturePrint          protowire.Number = 2002
	ModelSoundAnalysisPreprocessing  protowire.Number = 2003
	ModelGazetteer                   protowire.Number = 2004
	ModelWordEmbedding               protowire.Number = 2005
	ModelAudioFeaturePrint           protowire.Number = 2006
	ModelSerializedModel             protowire.Number = 3000
)

// VariantTags maps the Model "Type" oneof field numbers to the proto field
// names, which double as variant tags in error messages.
var VariantTags = map[protowire.Number]string{
	ModelPipelineClassifier:          "pipelineClassifier",
	ModelPipelineRegressor:           "pipelineRegressor",
	ModelPipeline:                    "pipeline",
	ModelGLMRegressor:                "glmRegressor",
	ModelSupportVectorRegressor:      "supportVectorRegressor",
	ModelTreeEnsembleRegressor:       "treeEnsembleRegressor",
	ModelNeuralNetworkRegressor:      "neuralNetworkRegressor",
	ModelBayesianProbitRegressor:     "bayesianProbitRegressor",
	ModelGLMClassifier:               "glmClassifier",
	ModelSupportVectorClassifier:     "supportVectorClassifier",
	ModelTreeEnsembleClassifier:      "treeEnsembleClassifier",
	ModelNeuralNetworkClassifier:     "neuralNetworkClassifier",
	ModelKNearestNeighborsClassifier: "kNearestNeighborsClassifier",
	ModelNeuralNetwork:               "neuralNetwork",
	ModelItemSimilarityRecommender:   "itemSimilarityRecommender",
	ModelMLProgram:                   "mlProgram",
	ModelCustomModel:                 "customModel",
	ModelLinkedModel:                 "linkedModel",
	ModelClassConfidenceThresholding: "classConfidenceThresholding",
	ModelOneHotEncoder:               "oneHotEncoder",
	ModelImputer:                     "imputer",
	ModelFeatureVectorizer:           "featureVectorizer",
	ModelDictVectorizer:              "dictVectorizer",
	ModelScaler:                      "scaler",
	ModelCategoricalMapping:          "categoricalMapping",
	ModelNormalizer:                  "normalizer",
	ModelArrayFeatureExtractor:       "arrayFeatureExtractor",
	ModelNonMaximumSuppression:       "nonMaximumSuppression",
	ModelIdentity:                    "identity",
	ModelTextClassifier:              "textClassifier",
	ModelWordTagger:                  "wordTagger",
	ModelVisionFeaturePrint:          "visionFeaturePrint",
	ModelSoundAnalysisPreprocessing:  "soundAnalysisPreprocessing",
	ModelGazetteer:                   "gazetteer",
	ModelWordEmbedding:               "wordEmbedding",
	ModelAudioFeaturePrint:           "audioFeaturePrint",
	ModelSerializedModel:             "serializedModel",
}

// ModelDescription fields.
const (
	DescriptionInput                      protowire.Number = 1
	DescriptionOutput                     protowire.Number = 10
	DescriptionPredictedFeatureName       protowire.Number = 11
	DescriptionPredictedProbabilitiesName protowire.Number = 12
	DescriptionMetadata                   protowire.Number = 100
)

// Metadata fields. UserDefined is a map<string, string>, encoded as
// repeated MetadataEntry messages.
const (
	MetadataShortDescription protowire.Number = 1
	MetadataVersionString    protowire.Number = 2
	MetadataAuthor           protowire.Number = 3
	MetadataLicense          protowire.Number = 4
	MetadataUserDefined      protowire.Number = 100

	MapEntryKey   protowire.Number = 1
	MapEntryValue protowire.Number = 2
)

// FeatureDescription fields.
const (
	FeatureName             protowire.Number = 1
	FeatureShortDescription protowire.Number = 2
	FeatureType             protowire.Number = 3
)

// FeatureType "Type" oneof members.
const (
	FeatureTypeInt64      protowire.Number = 1
	FeatureTypeDouble     protowire.Number = 2
	FeatureTypeString     protowire.Number = 3
	FeatureTypeImage      protowire.Number = 4
	FeatureTypeMultiArray protowire.Number = 5
	FeatureTypeDictionary protowire.Number = 6
	FeatureTypeSequence   protowire.Number = 7
	FeatureTypeState      protowire.Number = 8
)

// DictionaryFeatureType "KeyType" oneof members.
const (
	DictionaryInt64KeyType  protowire.Number = 1
	DictionaryStringKeyType protowire.Number = 2
)

// Pipeline and PipelineClassifier fields.
const (
	PipelineModels protowire.Number = 1
	PipelineNames  protowire.Number = 2

	PipelineClassifierPipeline protowire.Number = 1
)

// "ClassLabels" oneof shared by every classifier message (GLMClassifier,
// SupportVectorClassifier, TreeEnsembleClassifier, NeuralNetworkClassifier,
// KNearestNeighborsClassifier).
const (
	ClassifierStringClassLabels protowire.Number = 100
	ClassifierInt64ClassLabels  protowire.Number = 101
)

// StringVector / Int64Vector field.
const VectorValues protowire.Number = 1
