package model

// Manifest describes an exported classifier and is stored next to the
// .onnx file. Classes are in output index order.
type Manifest struct {
	InputName   string    `json:"input_name"`
	OutputName  string    `json:"output_name"`
	InputShape  []int64   `json:"input_shape"`
	OutputShape []int64   `json:"output_shape"`
	Classes     []string  `json:"classes"`
	ImageSize   int       `json:"image_size"`
	Mean        []float32 `json:"mean"`
	Std         []float32 `json:"std"`
	Threshold   float32   `json:"threshold"`
	ModelDigest string    `json:"model_digest,omitempty"`
}

// Score is the sigmoid probability for one class, in [0, 1].
type Score struct {
	Class       string
	Index       int
	Probability float32
}

// Prediction holds every class score in output order and the classes whose
// probability exceeds the manifest threshold.
type Prediction struct {
	Scores []Score
	Labels []string
}

type ClassConfidence struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

type ClassifyResponse struct {
	Predictions []ClassConfidence `json:"predictions"`
	ImagePath   string            `json:"image_path"`
}

type PredictResponse struct {
	PredictedLabels    []string           `json:"predicted_labels"`
	ClassProbabilities map[string]float64 `json:"class_probabilities"`
	ImagePath          string             `json:"image_path"`
}
