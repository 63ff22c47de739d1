package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/deepbark-api/internal/breeds"
	"github.com/Brownie44l1/deepbark-api/internal/model"
)

func newClassifyCmd(flags *globalFlags) *cobra.Command {
	top := 2
	cmd := &cobra.Command{
		Use:   "classify <image>...",
		Short: "Classify images from the command line",
		Example: `
  deepbark classify dog.jpg
  deepbark classify --top 5 --device cpu a.jpg b.png
		`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if top <= 0 {
				return fmt.Errorf("--top must be positive")
			}
			logrus.SetLevel(logrus.WarnLevel)

			server, err := model.NewServer(cfg.ModelOptions(breeds.Labels()))
			if err != nil {
				return err
			}
			defer server.Close()

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Image", "Rank", "Breed", "Korean", "Confidence", "Labels"})
			for _, path := range args {
				prediction, err := classifyFile(cmd, server, path, cfg.MaxImagePixels)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				labels := strings.Join(prediction.Labels, ", ")
				for i, s := range prediction.Top(top) {
					t.AppendRow(table.Row{path, i + 1, s.Class, breeds.KoreanName(s.Class), fmt.Sprintf("%.2f%%", s.Confidence()), labels})
				}
				t.AppendSeparator()
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", top, "number of breeds to show per image")
	return cmd
}

func classifyFile(cmd *cobra.Command, server *model.Server, path string, maxPixels int64) (*model.Prediction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := model.DecodeImage(f, maxPixels)
	if err != nil {
		return nil, err
	}
	return server.Classify(cmd.Context(), img)
}
