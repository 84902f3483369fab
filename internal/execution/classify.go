package execution

import "strings"

// OutputType is the inferred content type of a stage's output.
type OutputType string

const (
	OutputText OutputType = "text"
	OutputSVG  OutputType = "svg"
)

// Extension returns the artifact file extension for the type.
// Unknown types are stored as text.
func (t OutputType) Extension() string {
	switch t {
	case OutputSVG:
		return "svg"
	default:
		return "txt"
	}
}

// Detector inspects model output and reports a type when it recognizes one.
type Detector func(output string) (OutputType, bool)

// Classifier runs detectors in order; the first match wins and unrecognized
// output is text.
type Classifier struct {
	detectors []Detector
}

// NewClassifier creates a Classifier from detectors.
func NewClassifier(detectors ...Detector) *Classifier {
	return &Classifier{detectors: detectors}
}

// DefaultClassifier recognizes SVG markup.
func DefaultClassifier() *Classifier {
	return NewClassifier(DetectSVG)
}

// Classify returns the type of output.
func (c *Classifier) Classify(output string) OutputType {
	for _, detect := range c.detectors {
		if t, ok := detect(output); ok {
			return t
		}
	}
	return OutputText
}

const sniffLength = 500

// DetectSVG matches output whose leading characters open an <svg> element,
// optionally preceded by an XML declaration.
func DetectSVG(output string) (OutputType, bool) {
	head := strings.ToLower(leading(strings.TrimLeft(output, " \t\r\n\f\v"), sniffLength))

	if strings.HasPrefix(head, "<svg") {
		return OutputSVG, true
	}
	if strings.HasPrefix(head, "<?xml") && strings.Contains(head, "<svg") {
		return OutputSVG, true
	}
	return "", false
}

func leading(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
