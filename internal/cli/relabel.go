package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gomlx/coreml-relabel/internal/config"
	"github.com/gomlx/coreml-relabel/internal/logging"
	"github.com/gomlx/coreml-relabel/labels"
	"github.com/gomlx/coreml-relabel/mlpackage"
	"github.com/gomlx/coreml-relabel/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/spf13/cobra"
)

var (
	relabelLabels      string
	relabelSkip        int
	relabelStrict      bool
	relabelAuthor      string
	relabelLicense     string
	relabelDescription string
	relabelVersion     string
	relabelPreviewType string
	relabelMeta        map[string]string
	relabelInputDesc   map[string]string
	relabelOutputDesc  map[string]string
)

var relabelCmd = &cobra.Command{
	Use:   "relabel [model] [output]",
	Short: "Replace the class labels of a classifier and stamp its metadata",
	Long: `Replace the class labels of a converted classifier, rewrite the keys of its
label probabilities output to match, apply metadata and feature descriptions,
and save the result.

The model and output default to the config file values. Outputs ending in
.mlmodel are written as a single file; anything else is written as an
.mlpackage, carrying over the source package's weights.`,
	Example: `  coreml-relabel relabel ResNet50.mlpackage ResNet50-labeled.mlpackage --labels imagenet_class_index.json
  coreml-relabel relabel MobileNetV2.mlpackage out.mlpackage \
    --labels https://storage.googleapis.com/download.tensorflow.org/data/ImageNetLabels.txt --skip 1 \
    --preview-type imageClassifier --input-desc input_1="Input image to be classified"`,
	Args: cobra.MaximumNArgs(2),
	RunE: runRelabel,
}

func init() {
	f := relabelCmd.Flags()
	f.StringVarP(&relabelLabels, "labels", "l", "", "label source: .json file, text file or http(s) URL")
	f.IntVar(&relabelSkip, "skip", 0, "drop the first N labels (e.g. 1 for a background class)")
	f.BoolVar(&relabelStrict, "strict", false, "fail when the label count differs from the model's class count")
	f.StringVar(&relabelAuthor, "author", "", "metadata author")
	f.StringVar(&relabelLicense, "license", "", "metadata license")
	f.StringVar(&relabelDescription, "description", "", "metadata short description")
	f.StringVar(&relabelVersion, "version-string", "", "metadata version string")
	f.StringVar(&relabelPreviewType, "preview-type", "", "Xcode preview type, e.g. imageClassifier")
	f.StringToStringVar(&relabelMeta, "meta", nil, "user-defined metadata key=value pairs")
	f.StringToStringVar(&relabelInputDesc, "input-desc", nil, "input descriptions as name=text pairs")
	f.StringToStringVar(&relabelOutputDesc, "output-desc", nil, "output descriptions as name=text pairs")
}

func runRelabel(cmd *cobra.Command, args []string) error {
	job := *cfg
	applyRelabelFlags(cmd, args, &job)
	return relabel(cmd.Context(), &job, cmd.OutOrStdout())
}

// applyRelabelFlags overrides the configured job with the arguments and the
// flags given on the command line.
func applyRelabelFlags(cmd *cobra.Command, args []string, job *config.Config) {
	if len(args) > 0 {
		job.Model = args[0]
	}
	if len(args) > 1 {
		job.Output = args[1]
	}

	f := cmd.Flags()
	if f.Changed("labels") {
		job.Labels.Source = relabelLabels
	}
	if f.Changed("skip") {
		job.Labels.Skip = relabelSkip
	}
	if f.Changed("strict") {
		job.Strict = relabelStrict
	}
	if f.Changed("author") {
		job.Metadata.Author = relabelAuthor
	}
	if f.Changed("license") {
		job.Metadata.License = relabelLicense
	}
	if f.Changed("description") {
		job.Metadata.ShortDescription = relabelDescription
	}
	if f.Changed("version-string") {
		job.Metadata.Version = relabelVersion
	}
	if f.Changed("preview-type") {
		job.Metadata.PreviewType = relabelPreviewType
	}
	for _, k := range sortedKeys(relabelMeta) {
		job.Metadata.UserDefined = append(job.Metadata.UserDefined, config.KeyValue{Key: k, Value: relabelMeta[k]})
	}
	for _, k := range sortedKeys(relabelInputDesc) {
		job.Descriptions.Inputs = append(job.Descriptions.Inputs, config.FeatureDescription{Name: k, Text: relabelInputDesc[k]})
	}
	for _, k := range sortedKeys(relabelOutputDesc) {
		job.Descriptions.Outputs = append(job.Descriptions.Outputs, config.FeatureDescription{Name: k, Text: relabelOutputDesc[k]})
	}
	job.ExpandPaths()
}

// relabel runs a relabel job: load the labels and the model, patch, stamp
// the metadata and save.
func relabel(ctx context.Context, job *config.Config, out io.Writer) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if err := job.ValidateJob(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.ForModel(job.Model)

	names, err := labels.FromSpec(job.Labels.Source, job.Labels.Skip).Labels(ctx)
	if err != nil {
		return err
	}
	log.Debugf("loaded %d labels from %s", len(names), job.Labels.Source)

	pkg, err := mlpackage.Load(job.Model)
	if err != nil {
		return err
	}

	if err := model.CheckLabelCount(pkg.Model, names); err != nil {
		if job.Strict {
			return errors.WithMessagef(err, "relabeling %q", job.Model)
		}
		log.Warn(err)
	}
	if err := model.PatchLabels(pkg.Model, names); err != nil {
		return errors.WithMessagef(err, "relabeling %q", job.Model)
	}

	applied := model.ClassLabels(pkg.Model) != nil
	if !applied {
		if job.Strict {
			return errors.Errorf("relabeling %q: the %s stores no class labels to replace", job.Model, variantName(pkg.Model.Variant))
		}
		log.Warnf("labels not applied: the %s stores no class labels, they are fixed at conversion time", variantName(pkg.Model.Variant))
	}
	warnLabelType(log, pkg.Model)

	if err := applyMetadata(pkg.Model, job); err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(job.Output), ".mlmodel") {
		if pkg.WeightsDir() != "" {
			log.Warn("the weights directory cannot be carried by a single .mlmodel file")
		}
		err = mlpackage.SaveFile(pkg.Model, job.Output)
	} else {
		err = mlpackage.Save(pkg.Model, job.Output, mlpackage.SaveOptions{WeightsDir: pkg.WeightsDir()})
	}
	if err != nil {
		return err
	}

	if !applied {
		fmt.Fprintf(out, "Wrote %s (metadata only, labels not applied)\n", job.Output)
		return nil
	}
	log.Infof("applied %d labels", len(names))
	fmt.Fprintf(out, "Wrote %s (%d labels)\n", job.Output, len(names))
	return nil
}

// warnLabelType warns when the predicted label output is integer typed: the
// patched labels are strings, which CoreML rejects for an int64 output.
func warnLabelType(log *logrus.Entry, m *model.Model) {
	if m.Description == nil {
		return
	}
	name, _ := model.ClassifierOutputs(m)
	f := m.Description.Output(name)
	if f == nil || f.Type == nil || f.Type.Kind != model.KindInt64 {
		return
	}
	log.Warnf("output %q is int64 but the labels are strings; CoreML expects the label output to be a string", name)
}

// applyMetadata stamps the job's metadata and feature descriptions on m.
// Empty values leave the model's current metadata untouched.
func applyMetadata(m *model.Model, job *config.Config) error {
	md := job.Metadata
	if md.Author != "" {
		m.Metadata().Author = md.Author
	}
	if md.License != "" {
		m.Metadata().License = md.License
	}
	if md.ShortDescription != "" {
		m.Metadata().ShortDescription = md.ShortDescription
	}
	if md.Version != "" {
		m.Metadata().Version = md.Version
	}
	if md.PreviewType != "" {
		m.Metadata().SetUserDefined(model.PreviewTypeKey, md.PreviewType)
	}
	for _, kv := range md.UserDefined {
		m.Metadata().SetUserDefined(kv.Key, kv.Value)
	}

	for _, d := range job.Descriptions.Inputs {
		if err := m.SetInputDescription(d.Name, d.Text); err != nil {
			return err
		}
	}
	for _, d := range job.Descriptions.Outputs {
		if err := m.SetOutputDescription(d.Name, d.Text); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
