package dragon

import (
	"fmt"

	"github.com/chemkit/dragonctl/pkg/errors"
)

// Version identifies a supported Dragon release.  Only versions 6 and 7 are
// recognised; every other value is rejected with an explicit error at build
// time rather than silently producing nothing.
type Version int

// Supported Dragon versions.
const (
	Version6 Version = 6
	Version7 Version = 7
)

// Supported returns true when v is one of the two Dragon versions this
// package can generate scripts for.
func (v Version) Supported() bool {
	return v == Version6 || v == Version7
}

func (v Version) String() string {
	return fmt.Sprintf("%d", int(v))
}

// Molecule input sources.  Dragon reads structures either from an inline
// stream ("stdin") or from a molecule file on disk.
const (
	MolInputStdin = "stdin"
	MolInputFile  = "file"
)

// Log modes accepted by the OUTPUT section.
const (
	LogModeNone   = "none"
	LogModeStderr = "stderr"
	LogModeFile   = "file"
)

// validWeights is the fixed six-item vocabulary of atomic weighting schemes
// Dragon accepts.  Duplicates in Options.Weights are allowed and serialized
// verbatim.
var validWeights = map[string]struct{}{
	"Mass":             {},
	"VdWVolume":        {},
	"Electronegativity": {},
	"Polarizability":   {},
	"Ionization":       {},
	"I-State":          {},
}

// DefaultWeights returns the full weight vocabulary in its canonical order,
// which is also the default weight selection.
func DefaultWeights() []string {
	return []string{"Mass", "VdWVolume", "Electronegativity", "Polarizability", "Ionization", "I-State"}
}

// Options aggregates every Dragon tunable the script wizard can emit.
// Numeric tuning parameters are kept as strings because the script format
// carries them verbatim; no arithmetic is ever performed on them.
//
// Fields marked "v6 only" or "v7 only" are ignored when building a script for
// the other version; the active schema decides what is emitted.
type Options struct {
	Version Version

	// OPTIONS section.
	CheckUpdates              bool
	PreserveTemporaryProjects bool // v7 only
	SaveLayout                bool
	ShowWorksheet             bool   // v6 only
	DecimalSeparator          string // emitted as Decimal_Separator
	MissingString             string // emitted as Missing_String; v7 maps "NaN" to "na"
	DefaultMolFormat          string
	HelpBrowser               string // v6 only
	RejectDisconnectedStructure bool // v7 only
	RetainBiggestFragment       bool // v7 only
	RejectUnusualValence        bool
	Add2DHydrogens              bool
	DisconnectedCalculationOption string // v7 only
	MaxSRforAllCircuit          string
	MaxSR                       string // v6 only
	MaxSRDetour                 string
	MaxAtomWalkPath             string
	RoundCoordinates            bool // v7 only
	RoundWeights                bool // v7 only
	LogPathWalk                 bool
	LogEdge                     bool
	Weights                     []string
	SaveOnlyData                bool
	SaveLabelsOnSeparateFile    bool
	SaveFormatBlock             string
	SaveFormatSubBlock          string
	SaveExcludeMisVal           bool
	SaveExcludeAllMisVal        bool
	SaveExcludeConst            bool
	SaveExcludeNearConst        bool
	SaveExcludeStdDev           bool
	SaveStdDevThreshold         string
	SaveExcludeCorrelated       bool
	SaveCorrThreshold           string
	SaveExclusionOptionsToVariables bool
	SaveExcludeMisMolecules         bool
	SaveExcludeRejectedMolecules    bool
	RoundDescriptorValues           bool // v7 only

	// DESCRIPTORS section: ids of descriptor blocks to enable, each emitted
	// with SelectAll="true".  Valid range depends on the version.
	Blocks []int

	// MOLFILES section.
	MolInput       string // "stdin" or "file"
	MolInputFormat string // required when MolInput is "stdin"
	MolFile        string // used when MolInput is "file"; may be empty (known gap)

	// OUTPUT section.
	KnimeMode       bool // v7 only
	SaveStdOut      bool
	SaveProject     bool
	SaveProjectFile string
	SaveFile        bool
	SaveType        string // "singlefile", "block" or "subblock"
	SaveFilePath    string // file name; anchored under the output directory at build time
	LogMode         string // "none", "stderr" or "file"
	LogFile         string // anchored under the output directory when LogMode is "file"

	// EXTERNAL section, appended only when External is true.  All four fields
	// are emitted together.
	External             bool
	FileName             string
	Delimiter            string
	ConsecutiveDelimiter bool
	MissingValue         string
}

// DefaultOptions returns the documented Dragon defaults for the given
// version.  The default block selection is 1..29 for both versions, matching
// the historical wizard behaviour (block 30 exists only in version 7 and must
// be opted into explicitly).
func DefaultOptions(v Version) Options {
	blocks := make([]int, 0, 29)
	for i := 1; i <= 29; i++ {
		blocks = append(blocks, i)
	}
	return Options{
		Version:                   v,
		CheckUpdates:              true,
		PreserveTemporaryProjects: true,
		SaveLayout:                true,
		ShowWorksheet:             false,
		DecimalSeparator:          ".",
		MissingString:             "NaN",
		DefaultMolFormat:          "1",
		HelpBrowser:               "/usr/bin/xdg-open",
		RejectDisconnectedStructure:   false,
		RetainBiggestFragment:         false,
		RejectUnusualValence:          false,
		Add2DHydrogens:                false,
		DisconnectedCalculationOption: "0",
		MaxSRforAllCircuit:            "19",
		MaxSR:                         "35",
		MaxSRDetour:                   "30",
		MaxAtomWalkPath:               "2000",
		RoundCoordinates:              true,
		RoundWeights:                  true,
		LogPathWalk:                   true,
		LogEdge:                       true,
		Weights:                       DefaultWeights(),
		SaveFormatBlock:               "%b-%n.txt",
		SaveFormatSubBlock:            "%b-%s-%n-%m.txt",
		SaveStdDevThreshold:           "0.0001",
		SaveCorrThreshold:             "0.95",
		RoundDescriptorValues:         true,
		Blocks:                        blocks,
		MolInput:                      MolInputStdin,
		MolInputFormat:                "SMILES",
		SaveProjectFile:               "Dragon_project.drp",
		SaveFile:                      true,
		SaveType:                      "singlefile",
		SaveFilePath:                  "Dragon_descriptors.txt",
		LogMode:                       LogModeFile,
		LogFile:                       "Dragon_log.txt",
		Delimiter:                     ",",
		MissingValue:                  "NaN",
	}
}

// validate checks every enumerated and range-constrained field against the
// active version schema.  It is called by Wizard.Build before any document is
// emitted, so a validation failure never leaves a persisted script behind.
func (o *Options) validate(s *schema) error {
	for _, w := range o.Weights {
		if _, ok := validWeights[w]; !ok {
			return errors.Newf(errors.ErrCodeScriptInvalidWeight,
				"'%s' is not a valid weight type", w)
		}
	}

	for _, id := range o.Blocks {
		if id < 1 || id > s.maxBlock {
			return errors.Newf(errors.ErrCodeScriptBlockOutOfRange,
				"block id must be in range 1 to %d", s.maxBlock).
				WithDetail(fmt.Sprintf("got %d", id))
		}
	}

	switch o.MolInput {
	case MolInputStdin:
		if !s.molFormatValid(o.MolInputFormat) {
			return errors.Newf(errors.ErrCodeScriptInvalidMolFormat,
				"'%s' is not a valid molInputFormat", o.MolInputFormat).
				WithDetail(fmt.Sprintf("formats: %v", s.molFormats))
		}
	case MolInputFile:
		// MolFile may be empty; the empty value attribute is serialized as-is.
	default:
		return errors.Newf(errors.ErrCodeScriptInvalidMolInput,
			"enter a valid molInput: '%s' or '%s'", MolInputStdin, MolInputFile).
			WithDetail(fmt.Sprintf("got %q", o.MolInput))
	}

	return nil
}
