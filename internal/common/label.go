package common

import (
	"errors"
	"fmt"
)

// Label is one of the diagnostic classes the model predicts
type Label string

const (
	LabelBCC Label = "BCC"
	LabelSCC Label = "SCC"
	LabelMel Label = "Mel"
)

// PredictionErrorLabel is stored as the prediction of a failed attempt. It is not a class.
const PredictionErrorLabel = "Error"

var ErrInvalidLabel = errors.New("invalid label")

// Labels returns the class enumeration in model output order.
func Labels() []Label {
	return []Label{LabelBCC, LabelSCC, LabelMel}
}

func (l Label) String() string {
	return string(l)
}

func (l Label) IsValid() bool {
	switch l {
	case LabelBCC, LabelSCC, LabelMel:
		return true
	}
	return false
}

// ParseLabel returns the matching Label. Matching is case-sensitive.
func ParseLabel(value string) (Label, error) {
	label := Label(value)
	if !label.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLabel, value)
	}
	return label, nil
}
