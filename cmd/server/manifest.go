package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/deepbark-api/internal/breeds"
	"github.com/Brownie44l1/deepbark-api/internal/model"
)

func newManifestCmd() *cobra.Command {
	var (
		output     string
		imageSize  = model.DefaultImageSize
		threshold  = float32(model.DefaultThreshold)
		inputName  = model.DefaultInputName
		outputName = model.DefaultOutputName
	)
	cmd := &cobra.Command{
		Use:   "manifest <model.onnx>",
		Short: "Write the manifest for an exported model",
		Long: `Writes a manifest next to the model that records the breed order,
tensor shapes, preprocessing and the model digest. The server refuses to
start when the manifest and the model disagree.`,
		Example: `
  deepbark manifest models/dog_breeds_b4.onnx
  deepbark manifest --image-size 300 -o models/b3.json models/dog_breeds_b3.onnx
		`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modelPath := args[0]
			m, err := model.NewManifest(modelPath, breeds.Labels(), imageSize)
			if err != nil {
				return err
			}
			m.InputName = inputName
			m.OutputName = outputName
			m.Threshold = threshold
			if err := m.Validate(breeds.Labels()); err != nil {
				return err
			}

			if output == "" {
				output = strings.TrimSuffix(modelPath, ".onnx") + ".json"
			}
			if err := m.Save(output); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "wrote %s (%d classes, %s)\n", output, len(m.Classes), m.ModelDigest)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "manifest path (default: model path with .json)")
	f.IntVar(&imageSize, "image-size", imageSize, "input resolution, 300 for B3 and 380 for B4")
	f.Float32Var(&threshold, "threshold", threshold, "probability threshold for predicted labels")
	f.StringVar(&inputName, "input-name", inputName, "model input tensor name")
	f.StringVar(&outputName, "output-name", outputName, "model output tensor name")
	return cmd
}
