package dragon

import (
	"github.com/chemkit/dragonctl/pkg/errors"
)

// boolString renders a boolean the way the Dragon script format requires:
// the literal strings "true" and "false", never native boolean tokens.
func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// optionField is one leaf element of the OPTIONS section: the tag to emit and
// a getter that renders its value attribute from the active Options.
type optionField struct {
	tag   string
	value func(o *Options) string
}

func boolField(tag string, get func(o *Options) bool) optionField {
	return optionField{tag: tag, value: func(o *Options) string { return boolString(get(o)) }}
}

func stringField(tag string, get func(o *Options) string) optionField {
	return optionField{tag: tag, value: get}
}

// schema is one explicit Dragon version variant.  The two supported versions
// differ in which OPTIONS elements exist and in what order, in the valid
// descriptor block range, in the allowed molecule input formats, and in
// whether the OUTPUT section starts with knimemode.  Modelling each variant
// as a single ordered table keeps the divergence in one place instead of
// scattering version conditionals through the builder.
type schema struct {
	version       Version
	versionString string // root "version" attribute
	description   string // root "description" attribute; empty when absent
	maxBlock      int
	molFormats    []string
	knimeMode     bool // OUTPUT carries a leading knimemode element

	// OPTIONS elements before and after the nested Weights element.
	preWeights  []optionField
	postWeights []optionField
}

func (s *schema) molFormatValid(format string) bool {
	for _, f := range s.molFormats {
		if f == format {
			return true
		}
	}
	return false
}

// savePostWeights is the save/exclusion tail of the OPTIONS section, shared
// verbatim by both versions (version 7 appends RoundDescriptorValues).
func savePostWeights() []optionField {
	return []optionField{
		boolField("SaveOnlyData", func(o *Options) bool { return o.SaveOnlyData }),
		boolField("SaveLabelsOnSeparateFile", func(o *Options) bool { return o.SaveLabelsOnSeparateFile }),
		stringField("SaveFormatBlock", func(o *Options) string { return o.SaveFormatBlock }),
		stringField("SaveFormatSubBlock", func(o *Options) string { return o.SaveFormatSubBlock }),
		boolField("SaveExcludeMisVal", func(o *Options) bool { return o.SaveExcludeMisVal }),
		boolField("SaveExcludeAllMisVal", func(o *Options) bool { return o.SaveExcludeAllMisVal }),
		boolField("SaveExcludeConst", func(o *Options) bool { return o.SaveExcludeConst }),
		boolField("SaveExcludeNearConst", func(o *Options) bool { return o.SaveExcludeNearConst }),
		boolField("SaveExcludeStdDev", func(o *Options) bool { return o.SaveExcludeStdDev }),
		stringField("SaveStdDevThreshold", func(o *Options) string { return o.SaveStdDevThreshold }),
		boolField("SaveExcludeCorrelated", func(o *Options) bool { return o.SaveExcludeCorrelated }),
		stringField("SaveCorrThreshold", func(o *Options) string { return o.SaveCorrThreshold }),
		boolField("SaveExclusionOptionsToVariables", func(o *Options) bool { return o.SaveExclusionOptionsToVariables }),
		boolField("SaveExcludeMisMolecules", func(o *Options) bool { return o.SaveExcludeMisMolecules }),
		boolField("SaveExcludeRejectedMolecules", func(o *Options) bool { return o.SaveExcludeRejectedMolecules }),
	}
}

func schema6() *schema {
	return &schema{
		version:       Version6,
		versionString: "6.0.0",
		maxBlock:      29,
		molFormats:    []string{"SYBYL", "MDL", "HYPERCHEM", "SMILES", "MACROMODEL"},
		preWeights: []optionField{
			boolField("CheckUpdates", func(o *Options) bool { return o.CheckUpdates }),
			boolField("SaveLayout", func(o *Options) bool { return o.SaveLayout }),
			boolField("ShowWorksheet", func(o *Options) bool { return o.ShowWorksheet }),
			stringField("Decimal_Separator", func(o *Options) string { return o.DecimalSeparator }),
			stringField("Missing_String", func(o *Options) string { return o.MissingString }),
			stringField("DefaultMolFormat", func(o *Options) string { return o.DefaultMolFormat }),
			stringField("HelpBrowser", func(o *Options) string { return o.HelpBrowser }),
			boolField("RejectUnusualValence", func(o *Options) bool { return o.RejectUnusualValence }),
			boolField("Add2DHydrogens", func(o *Options) bool { return o.Add2DHydrogens }),
			stringField("MaxSRforAllCircuit", func(o *Options) string { return o.MaxSRforAllCircuit }),
			stringField("MaxSR", func(o *Options) string { return o.MaxSR }),
			stringField("MaxSRDetour", func(o *Options) string { return o.MaxSRDetour }),
			stringField("MaxAtomWalkPath", func(o *Options) string { return o.MaxAtomWalkPath }),
			boolField("LogPathWalk", func(o *Options) bool { return o.LogPathWalk }),
			boolField("LogEdge", func(o *Options) bool { return o.LogEdge }),
		},
		postWeights: savePostWeights(),
	}
}

func schema7() *schema {
	post := append(savePostWeights(),
		boolField("RoundDescriptorValues", func(o *Options) bool { return o.RoundDescriptorValues }),
	)
	return &schema{
		version:       Version7,
		versionString: "7.0.0",
		description:   "Dragon7 - FP1 - MD5270",
		maxBlock:      30,
		molFormats:    []string{"SYBYL", "MDL", "HYPERCHEM", "SMILES", "CML", "MACROMODEL"},
		knimeMode:     true,
		preWeights: []optionField{
			boolField("CheckUpdates", func(o *Options) bool { return o.CheckUpdates }),
			boolField("PreserveTemporaryProjects", func(o *Options) bool { return o.PreserveTemporaryProjects }),
			boolField("SaveLayout", func(o *Options) bool { return o.SaveLayout }),
			stringField("Decimal_Separator", func(o *Options) string { return o.DecimalSeparator }),
			// Dragon 7 uses "na" where Dragon 6 used "NaN".
			stringField("Missing_String", func(o *Options) string {
				if o.MissingString == "NaN" {
					return "na"
				}
				return o.MissingString
			}),
			stringField("DefaultMolFormat", func(o *Options) string { return o.DefaultMolFormat }),
			// The misspelled tag is what Dragon 7 actually parses.
			boolField("RejectDisconnectedStrucuture", func(o *Options) bool { return o.RejectDisconnectedStructure }),
			boolField("RetainBiggestFragment", func(o *Options) bool { return o.RetainBiggestFragment }),
			boolField("RejectUnusualValence", func(o *Options) bool { return o.RejectUnusualValence }),
			boolField("Add2DHydrogens", func(o *Options) bool { return o.Add2DHydrogens }),
			stringField("DisconnectedCalculationOption", func(o *Options) string { return o.DisconnectedCalculationOption }),
			stringField("MaxSRforAllCircuit", func(o *Options) string { return o.MaxSRforAllCircuit }),
			stringField("MaxSRDetour", func(o *Options) string { return o.MaxSRDetour }),
			stringField("MaxAtomWalkPath", func(o *Options) string { return o.MaxAtomWalkPath }),
			boolField("RoundCoordinates", func(o *Options) bool { return o.RoundCoordinates }),
			boolField("RoundWeights", func(o *Options) bool { return o.RoundWeights }),
			boolField("LogPathWalk", func(o *Options) bool { return o.LogPathWalk }),
			boolField("LogEdge", func(o *Options) bool { return o.LogEdge }),
		},
		postWeights: post,
	}
}

// schemaFor returns the schema variant for v, or an explicit error when v is
// not a supported Dragon version.  The historical wizard only warned and then
// silently produced no document; callers here get a hard failure instead.
func schemaFor(v Version) (*schema, error) {
	switch v {
	case Version6:
		return schema6(), nil
	case Version7:
		return schema7(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeScriptVersionUnsupported,
			"only Dragon versions 6 and 7 are supported, got %d", int(v))
	}
}
