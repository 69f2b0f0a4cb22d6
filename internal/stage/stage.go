package stage

import (
	"errors"
	"fmt"
	"strings"
)

// Stage names a mockable pipeline stage.
type Stage string

const (
	SDG   Stage = "sdg"
	Train Stage = "train"
	Eval  Stage = "eval"
)

// ErrUnknownStage is returned when a stage name is not one of All().
var ErrUnknownStage = errors.New("unknown stage")

// All returns every stage in pipeline order.
func All() []Stage {
	return []Stage{SDG, Train, Eval}
}

// Parse converts a case-insensitive name into a Stage.
func Parse(name string) (Stage, error) {
	s := Stage(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range All() {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w '%s', expected one of %v", ErrUnknownStage, name, All())
}

// Mode selects the real or mocked implementation of a stage.
type Mode int

const (
	Real Mode = iota
	Mocked
)

func (m Mode) String() string {
	switch m {
	case Real:
		return "real"
	case Mocked:
		return "mocked"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Provider is implemented by every stage/mode combination.
type Provider interface {
	Stage() Stage
	Mode() Mode
	// CompileArgs are passed to the upstream compile command.
	CompileArgs() []string
	// Requires reports whether an executor of this stage that is declared
	// required must be present in the manifest.
	Requires(declared bool) bool
}

type realProvider struct{ stage Stage }

func (p realProvider) Stage() Stage                { return p.stage }
func (p realProvider) Mode() Mode                  { return Real }
func (p realProvider) CompileArgs() []string       { return nil }
func (p realProvider) Requires(declared bool) bool { return declared }

// mockedProvider stands in for a stage whose executors may be replaced or
// dropped by the compiler, so none of them is required.
type mockedProvider struct{ stage Stage }

func (p mockedProvider) Stage() Stage          { return p.stage }
func (p mockedProvider) Mode() Mode            { return Mocked }
func (p mockedProvider) CompileArgs() []string { return []string{"--mock", string(p.stage)} }
func (p mockedProvider) Requires(bool) bool    { return false }
