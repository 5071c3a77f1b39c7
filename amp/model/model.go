// Package model implements the neural amplifier model variant: a closed set
// of recurrent-cell shapes identified from a JSON descriptor and dispatched
// on the audio thread without allocation.
package model

import "fmt"

// hiddenSizes and inputSizes are the closed sets the model's tagged union
// ranges over. io_dim == 3 arms are generated for every (cell, hidden) pair.
var hiddenSizes = [...]int{8, 12, 16, 20, 32, 40}
var inputSizes = [...]int{1, 2, 3}

const maxSupportedInputSize = 3

// Variant is satisfied by every non-null model arm and by Null itself.
type Variant interface {
	// Forward runs one inference step and returns the scalar output.
	Forward(input []float32) float32
	Reset()
	InputSize() int
	HiddenSize() int
}

// Null is the zero arm of the tagged union: present whenever no model has
// been successfully identified and loaded.
type Null struct{}

func (Null) Forward([]float32) float32 { return 0 }
func (Null) Reset()                    {}
func (Null) InputSize() int            { return 0 }
func (Null) HiddenSize() int           { return 0 }

func validHidden(h int) bool {
	for _, v := range hiddenSizes {
		if v == h {
			return true
		}
	}
	return false
}

func validInput(n int) bool {
	for _, v := range inputSizes {
		if v == n {
			return true
		}
	}
	return false
}

// LoadError kinds, per the spec's error-handling design: every failure to
// identify or populate a variant is contained on the control thread.
type LoadError struct {
	Kind string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

func newLoadError(kind string, err error) *LoadError {
	return &LoadError{Kind: kind, Err: err}
}
