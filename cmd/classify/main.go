package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Gamlio/MechineLearning-skin-cancer/internal/backend/classifier"
	"github.com/Gamlio/MechineLearning-skin-cancer/internal/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	modelPath       string
	onnxLibraryPath string
	showAll         bool

	colorRed    = color.New(color.FgRed, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow)
	colorCyan   = color.New(color.FgCyan)
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		colorRed.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "classify <image>...",
	Short: "Classify skin lesion images with the exported model",
	Long: `Runs the same preprocessing and model as the API server against local files.

Use it to check a model artifact before deploying it.

Example:
  classify --model models/efficientnet_b0.onnx lesion1.jpg lesion2.png`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runClassify,
}

func init() {
	rootCmd.Flags().StringVarP(&modelPath, "model", "m", "models/efficientnet_b0.onnx", "path to the ONNX model")
	rootCmd.Flags().StringVar(&onnxLibraryPath, "onnx-lib", os.Getenv("ONNX_LIBRARY_PATH"), "path to the ONNX Runtime shared library")
	rootCmd.Flags().BoolVarP(&showAll, "all", "a", false, "print the probability of every class")
}

func runClassify(cmd *cobra.Command, args []string) error {
	if err := classifier.InitializeRuntime(onnxLibraryPath); err != nil {
		return err
	}
	defer classifier.DestroyRuntime()

	model, err := classifier.LoadClassifier(modelPath)
	if err != nil {
		return fmt.Errorf("failed to load model %s: %w", modelPath, err)
	}
	defer func() {
		_ = model.Close()
	}()

	colorCyan.Fprintf(cmd.OutOrStdout(), "model: %s\n", modelPath)
	if failed := classifyFiles(cmd.OutOrStdout(), model, args, showAll); failed > 0 {
		return fmt.Errorf("%d of %d images could not be classified", failed, len(args))
	}
	return nil
}

// classifyFiles prints one result line per path and returns the number of failures.
func classifyFiles(w io.Writer, model *classifier.Classifier, paths []string, all bool) int {
	failed := 0
	for _, path := range paths {
		name := filepath.Base(path)

		data, err := os.ReadFile(path)
		if err != nil {
			colorRed.Fprintf(w, "%s: %v\n", name, err)
			failed++
			continue
		}

		prediction, err := model.Predict(data)
		if err != nil {
			colorRed.Fprintf(w, "%s: %v\n", name, err)
			failed++
			continue
		}

		colorGreen.Fprintf(w, "%s: %s (%.2f%%)\n", name, prediction.Label, prediction.Confidence*100)
		if all {
			for _, label := range common.Labels() {
				colorYellow.Fprintf(w, "    %-4s %.4f\n", label, prediction.Probabilities[label])
			}
		}
	}
	return failed
}
