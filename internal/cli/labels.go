package cli

import (
	"fmt"

	"github.com/gomlx/coreml-relabel/labels"
	"github.com/pkg/errors"

	"github.com/spf13/cobra"
)

var (
	labelsSkip  int
	labelsLimit int
)

var labelsCmd = &cobra.Command{
	Use:   "labels [source]",
	Short: "Show the labels a label source produces",
	Long:  "Load labels from a .json file, a text file or an http(s) URL and print them with their class index, as relabel would apply them.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLabels,
}

func init() {
	labelsCmd.Flags().IntVar(&labelsSkip, "skip", 0, "drop the first N labels")
	labelsCmd.Flags().IntVarP(&labelsLimit, "limit", "n", 0, "number of labels to show (0 = all)")
}

func runLabels(cmd *cobra.Command, args []string) error {
	source := cfg.Labels.Source
	if len(args) > 0 {
		source = args[0]
	}
	if source == "" {
		return errors.New("no label source given")
	}
	skip := cfg.Labels.Skip
	if cmd.Flags().Changed("skip") {
		skip = labelsSkip
	}

	names, err := labels.FromSpec(source, skip).Labels(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d labels from %s\n", len(names), source)
	printLabels(out, names, labelsLimit)
	return nil
}
