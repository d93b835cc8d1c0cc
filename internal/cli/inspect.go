package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/gomlx/coreml-relabel/mlpackage"
	"github.com/gomlx/coreml-relabel/model"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"github.com/spf13/cobra"
)

var inspectLimit int

var inspectCmd = &cobra.Command{
	Use:   "inspect [model]",
	Short: "Show the interface, metadata and class labels of a model",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().IntVarP(&inspectLimit, "limit", "n", 10, "number of labels to show (0 = all)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := cfg.Model
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return errors.New("no model given")
	}
	pkg, err := mlpackage.Load(path)
	if err != nil {
		return err
	}
	printModel(cmd.OutOrStdout(), pkg, inspectLimit)
	return nil
}

// printModel prints the model's variant, features, metadata and up to limit
// class labels.
func printModel(out io.Writer, pkg *mlpackage.Package, limit int) {
	m := pkg.Model

	fmt.Fprintf(out, "\n=== %s ===\n", pkg.Path)
	fmt.Fprintf(out, "Specification version: %d\n", m.SpecificationVersion)
	fmt.Fprintf(out, "Variant: %s\n", variantName(m.Variant))
	if weights := pkg.WeightsDir(); weights != "" {
		fmt.Fprintf(out, "Weights: %s\n", weights)
	}
	label, probs := model.ClassifierOutputs(m)
	fmt.Fprintf(out, "Predicted label output: %s\n", label)
	fmt.Fprintf(out, "Predicted probabilities output: %s\n\n", probs)

	if d := m.Description; d != nil {
		tbl := tablewriter.NewWriter(out)
		tbl.Header("Direction", "Name", "Type", "Description")
		for _, f := range d.Inputs {
			tbl.Append([]string{"input", f.Name, featureTypeName(f.Type), f.ShortDescription})
		}
		for _, f := range d.Outputs {
			tbl.Append([]string{"output", f.Name, featureTypeName(f.Type), f.ShortDescription})
		}
		_ = tbl.Render()

		if md := d.Metadata; md != nil {
			fmt.Fprintln(out, "\nMetadata:")
			tbl := tablewriter.NewWriter(out)
			tbl.Header("Field", "Value")
			tbl.Append([]string{"author", md.Author})
			tbl.Append([]string{"license", md.License})
			tbl.Append([]string{"short description", md.ShortDescription})
			tbl.Append([]string{"version", md.Version})
			keys := make([]string, 0, len(md.UserDefined))
			for k := range md.UserDefined {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				tbl.Append([]string{k, md.UserDefined[k]})
			}
			_ = tbl.Render()
		}
	}

	count, ok := model.ClassCount(m)
	if !ok {
		fmt.Fprintln(out, "\nNo class labels stored in the model.")
		return
	}
	fmt.Fprintf(out, "\nClass labels: %d\n", count)
	printLabels(out, model.ClassLabels(m), limit)
}

// printLabels prints up to limit labels with their class index.
func printLabels(out io.Writer, names []string, limit int) {
	shown := names
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	tbl := tablewriter.NewWriter(out)
	tbl.Header("Index", "Label")
	for i, name := range shown {
		tbl.Append([]string{strconv.Itoa(i), name})
	}
	_ = tbl.Render()
	if len(shown) < len(names) {
		fmt.Fprintf(out, "... %d more\n", len(names)-len(shown))
	}
}

func variantName(v model.Variant) string {
	if v == nil {
		return "none"
	}
	return v.Tag()
}

func featureTypeName(ft *model.FeatureType) string {
	if ft == nil {
		return model.KindUnknown.String()
	}
	if ft.Kind == model.KindDictionary && ft.Dictionary != nil {
		return fmt.Sprintf("dictionary<%s>", ft.Dictionary.KeyType)
	}
	return ft.Kind.String()
}
