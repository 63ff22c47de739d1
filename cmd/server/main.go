package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/deepbark-api/internal/config"
)

const ErrExitCode = 1

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(ErrExitCode)
	}
}

// globalFlags are shared by every subcommand that loads the model.
type globalFlags struct {
	configPath    string
	modelPath     string
	manifestPath  string
	device        string
	sharedLibrary string
}

func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "deepbark",
		Short: "Dog breed classifier",
		Long: `deepbark classifies dog photos into 30 breeds with an
EfficientNet model exported to ONNX.

Run "deepbark serve" for the upload page and JSON API, or
"deepbark classify" to score images from the command line.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	pflags := cmd.PersistentFlags()
	pflags.StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	pflags.StringVar(&flags.modelPath, "model", "", "path to the ONNX model")
	pflags.StringVar(&flags.manifestPath, "manifest", "", "path to the model manifest")
	pflags.StringVar(&flags.device, "device", "", "execution device: auto, cpu or cuda")
	pflags.StringVar(&flags.sharedLibrary, "ort-lib", "", "path to the onnxruntime shared library")

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newClassifyCmd(flags))
	cmd.AddCommand(newManifestCmd())

	return cmd
}

// loadConfig layers defaults, the config file, the environment and finally
// any flags set on the command line.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath, os.LookupEnv)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("model") {
		cfg.Model.Path = flags.modelPath
	}
	if changed("manifest") {
		cfg.Model.Manifest = flags.manifestPath
	}
	if changed("device") {
		cfg.Model.Device = flags.device
	}
	if changed("ort-lib") {
		cfg.Model.SharedLibrary = flags.sharedLibrary
	}
	return cfg, nil
}
