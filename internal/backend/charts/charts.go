// Package charts serves placeholder data for the dashboard charts. None of the
// values are derived from a real training run; every payload is marked Placeholder.
package charts

import (
	"math/rand/v2"

	"github.com/Gamlio/MechineLearning-skin-cancer/internal/common"
)

type Dataset struct {
	Label       string    `json:"label"`
	Data        []float64 `json:"data"`
	BorderColor string    `json:"borderColor"`
}

type LineChart struct {
	Title       string    `json:"title"`
	Labels      []int     `json:"labels"`
	Datasets    []Dataset `json:"datasets"`
	Placeholder bool      `json:"placeholder"`
}

type ConfusionMatrixChart struct {
	Title       string         `json:"title"`
	Labels      []common.Label `json:"labels"`
	Matrix      [][]int        `json:"matrix"`
	Placeholder bool           `json:"placeholder"`
}

const (
	matrixNoiseCeiling = 20
	matrixDiagonalBias = 50
)

// LossChart returns fixed training and validation loss curves over ten epochs.
func LossChart() LineChart {
	epochs := make([]int, 10)
	for i := range epochs {
		epochs[i] = i + 1
	}
	return LineChart{
		Title:  "Loss",
		Labels: epochs,
		Datasets: []Dataset{
			{Label: "Training Loss", Data: []float64{0.6, 0.4, 0.3, 0.2, 0.15, 0.12, 0.1, 0.08, 0.07, 0.06}, BorderColor: "blue"},
			{Label: "Validation Loss", Data: []float64{0.7, 0.5, 0.4, 0.3, 0.25, 0.2, 0.18, 0.17, 0.16, 0.15}, BorderColor: "red"},
		},
		Placeholder: true,
	}
}

// ConfusionMatrix returns random counts in [0,20) with 50 added on the diagonal.
func ConfusionMatrix(rng *rand.Rand) ConfusionMatrixChart {
	labels := common.Labels()
	matrix := make([][]int, len(labels))
	for i := range matrix {
		matrix[i] = make([]int, len(labels))
		for j := range matrix[i] {
			matrix[i][j] = rng.IntN(matrixNoiseCeiling)
		}
		matrix[i][i] += matrixDiagonalBias
	}
	return ConfusionMatrixChart{
		Title:       "Confusion Matrix",
		Labels:      labels,
		Matrix:      matrix,
		Placeholder: true,
	}
}
