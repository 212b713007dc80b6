package dragon_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemkit/dragonctl/internal/dragon"
	"github.com/chemkit/dragonctl/internal/infrastructure/monitoring/logging"
	"github.com/chemkit/dragonctl/internal/testutil"
	"github.com/chemkit/dragonctl/pkg/errors"
)

// buildInDir builds a fresh script in a temp directory and returns the wizard
// together with the parsed document.
func buildInDir(t *testing.T, opts dragon.Options) (*dragon.Wizard, *etree.Document) {
	t.Helper()
	dir := t.TempDir()
	w := dragon.New(opts, logging.NewNopLogger())
	require.NoError(t, w.Build(dir))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(w.ScriptPath()))
	return w, doc
}

func TestBuild_AllSixWeightsAccepted(t *testing.T) {
	t.Parallel()

	for _, weight := range dragon.DefaultWeights() {
		weight := weight
		t.Run(weight, func(t *testing.T) {
			t.Parallel()
			opts := dragon.DefaultOptions(dragon.Version7)
			opts.Weights = []string{weight}

			_, doc := buildInDir(t, opts)
			el := doc.FindElement("//OPTIONS/Weights/weight")
			require.NotNil(t, el)
			assert.Equal(t, weight, el.SelectAttrValue("name", ""))
		})
	}
}

func TestBuild_InvalidWeightFails(t *testing.T) {
	t.Parallel()

	for _, version := range []dragon.Version{dragon.Version6, dragon.Version7} {
		version := version
		t.Run(version.String(), func(t *testing.T) {
			t.Parallel()
			opts := dragon.DefaultOptions(version)
			opts.Weights = []string{"Mass", "Charge"}

			w := dragon.New(opts, logging.NewNopLogger())
			err := w.Build(t.TempDir())
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeScriptInvalidWeight))
			assert.Contains(t, err.Error(), "Charge")
			assert.False(t, w.Built())
		})
	}
}

func TestBuild_DuplicateWeightsSerializedVerbatim(t *testing.T) {
	t.Parallel()

	opts := dragon.DefaultOptions(dragon.Version7)
	opts.Weights = []string{"Mass", "Mass", "VdWVolume"}

	_, doc := buildInDir(t, opts)
	els := doc.FindElements("//OPTIONS/Weights/weight")
	require.Len(t, els, 3)
	assert.Equal(t, "Mass", els[0].SelectAttrValue("name", ""))
	assert.Equal(t, "Mass", els[1].SelectAttrValue("name", ""))
	assert.Equal(t, "VdWVolume", els[2].SelectAttrValue("name", ""))
}

func TestBuild_BlockRangePerVersion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		version dragon.Version
		block   int
		wantErr bool
	}{
		{"v6 lower bound", dragon.Version6, 1, false},
		{"v6 upper bound", dragon.Version6, 29, false},
		{"v6 zero", dragon.Version6, 0, true},
		{"v6 block 30 invalid", dragon.Version6, 30, true},
		{"v7 upper bound", dragon.Version7, 30, false},
		{"v7 zero", dragon.Version7, 0, true},
		{"v7 block 31 invalid", dragon.Version7, 31, true},
		{"v7 negative", dragon.Version7, -3, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			opts := dragon.DefaultOptions(tc.version)
			opts.Blocks = []int{tc.block}

			w := dragon.New(opts, logging.NewNopLogger())
			err := w.Build(t.TempDir())
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeScriptBlockOutOfRange))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestBuild_StdinFormatValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		version dragon.Version
		format  string
		wantErr bool
	}{
		{"v6 SMILES", dragon.Version6, "SMILES", false},
		{"v6 MACROMODEL", dragon.Version6, "MACROMODEL", false},
		{"v6 CML rejected", dragon.Version6, "CML", true},
		{"v7 CML accepted", dragon.Version7, "CML", false},
		{"v7 unknown rejected", dragon.Version7, "PDB", true},
		{"v7 lowercase rejected", dragon.Version7, "smiles", true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			opts := dragon.DefaultOptions(tc.version)
			opts.MolInput = dragon.MolInputStdin
			opts.MolInputFormat = tc.format

			w := dragon.New(opts, logging.NewNopLogger())
			err := w.Build(t.TempDir())
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeScriptInvalidMolFormat))
				return
			}
			require.NoError(t, err)

			doc := etree.NewDocument()
			require.NoError(t, doc.ReadFromFile(w.ScriptPath()))
			el := doc.FindElement("//MOLFILES/molInputFormat")
			require.NotNil(t, el)
			assert.Equal(t, tc.format, el.SelectAttrValue("value", ""))
		})
	}
}

// A file input with no molFile path still serializes an empty value attribute
// instead of failing validation.  Known gap, preserved deliberately.
func TestBuild_FileInputWithoutPathSerializesEmptyValue(t *testing.T) {
	t.Parallel()

	opts := dragon.DefaultOptions(dragon.Version7)
	opts.MolInput = dragon.MolInputFile
	opts.MolFile = ""

	_, doc := buildInDir(t, opts)
	el := doc.FindElement("//MOLFILES/molFile")
	require.NotNil(t, el)
	assert.Equal(t, "", el.SelectAttrValue("value", "missing"))
	assert.Nil(t, doc.FindElement("//MOLFILES/molInputFormat"))
}

func TestBuild_UnknownMolInputFails(t *testing.T) {
	t.Parallel()

	opts := dragon.DefaultOptions(dragon.Version7)
	opts.MolInput = "pipe"

	w := dragon.New(opts, logging.NewNopLogger())
	err := w.Build(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScriptInvalidMolInput))
}

func TestBuild_UnsupportedVersionIsExplicitError(t *testing.T) {
	t.Parallel()

	opts := dragon.DefaultOptions(dragon.Version7)
	opts.Version = dragon.Version(5)

	w := dragon.New(opts, logging.NewNopLogger())
	err := w.Build(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScriptVersionUnsupported))
	assert.False(t, w.Built())
}

func TestBuild_OutputDirNormalization(t *testing.T) {
	t.Parallel()

	sep := string(filepath.Separator)

	t.Run("without trailing separator", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		require.False(t, strings.HasSuffix(dir, sep))

		w := dragon.New(dragon.DefaultOptions(dragon.Version7), logging.NewNopLogger())
		require.NoError(t, w.Build(dir))
		assert.Equal(t, dir+sep, w.OutputDir())
	})

	t.Run("with trailing separator", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir() + sep

		w := dragon.New(dragon.DefaultOptions(dragon.Version7), logging.NewNopLogger())
		require.NoError(t, w.Build(dir))
		assert.Equal(t, dir, w.OutputDir())
		assert.False(t, strings.HasSuffix(w.OutputDir(), sep+sep))
	})

	t.Run("directory is created if absent", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "nested", "out")

		w := dragon.New(dragon.DefaultOptions(dragon.Version7), logging.NewNopLogger())
		require.NoError(t, w.Build(dir))
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestBuild_ExternalSectionAllFourOrAbsent(t *testing.T) {
	t.Parallel()

	t.Run("enabled", func(t *testing.T) {
		t.Parallel()
		opts := dragon.DefaultOptions(dragon.Version7)
		opts.External = true
		opts.FileName = "extra_vars.txt"
		opts.Delimiter = ";"
		opts.ConsecutiveDelimiter = true
		opts.MissingValue = "na"

		_, doc := buildInDir(t, opts)
		ext := doc.FindElement("//EXTERNAL")
		require.NotNil(t, ext)
		require.Len(t, ext.ChildElements(), 4)
		assert.Equal(t, "extra_vars.txt", doc.FindElement("//EXTERNAL/fileName").SelectAttrValue("value", ""))
		assert.Equal(t, ";", doc.FindElement("//EXTERNAL/delimiter").SelectAttrValue("value", ""))
		assert.Equal(t, "true", doc.FindElement("//EXTERNAL/consecutiveDelimiter").SelectAttrValue("value", ""))
		assert.Equal(t, "na", doc.FindElement("//EXTERNAL/MissingValue").SelectAttrValue("value", ""))
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		opts := dragon.DefaultOptions(dragon.Version7)
		opts.External = false

		_, doc := buildInDir(t, opts)
		assert.Nil(t, doc.FindElement("//EXTERNAL"))
	})
}

func TestBuild_SectionOrderAndRootAttributes(t *testing.T) {
	t.Parallel()

	opts := dragon.DefaultOptions(dragon.Version7)
	opts.External = true
	opts.FileName = "vars.txt"

	_, doc := buildInDir(t, opts)
	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "DRAGON", root.Tag)
	assert.Equal(t, "7.0.0", root.SelectAttrValue("version", ""))
	assert.Equal(t, "Dragon7 - FP1 - MD5270", root.SelectAttrValue("description", ""))
	assert.Equal(t, "1", root.SelectAttrValue("script_version", ""))
	assert.Regexp(t, regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`), root.SelectAttrValue("generation_date", ""))

	var tags []string
	for _, child := range root.ChildElements() {
		tags = append(tags, child.Tag)
	}
	assert.Equal(t, []string{"OPTIONS", "DESCRIPTORS", "MOLFILES", "OUTPUT", "EXTERNAL"}, tags)
}

func TestBuild_Version6OmitsVersion7Fields(t *testing.T) {
	t.Parallel()

	_, doc := buildInDir(t, dragon.DefaultOptions(dragon.Version6))
	root := doc.Root()
	assert.Equal(t, "6.0.0", root.SelectAttrValue("version", ""))
	assert.Equal(t, "", root.SelectAttrValue("description", ""))

	// v6-only elements present.
	assert.NotNil(t, doc.FindElement("//OPTIONS/ShowWorksheet"))
	assert.NotNil(t, doc.FindElement("//OPTIONS/HelpBrowser"))
	assert.NotNil(t, doc.FindElement("//OPTIONS/MaxSR"))
	// v7-only elements absent.
	assert.Nil(t, doc.FindElement("//OPTIONS/PreserveTemporaryProjects"))
	assert.Nil(t, doc.FindElement("//OPTIONS/RoundDescriptorValues"))
	assert.Nil(t, doc.FindElement("//OUTPUT/knimemode"))
	// v6 keeps the NaN missing-value marker.
	assert.Equal(t, "NaN", doc.FindElement("//OPTIONS/Missing_String").SelectAttrValue("value", ""))
}

func TestBuild_Version7MapsMissingStringAndAddsKnimemode(t *testing.T) {
	t.Parallel()

	_, doc := buildInDir(t, dragon.DefaultOptions(dragon.Version7))
	assert.Equal(t, "na", doc.FindElement("//OPTIONS/Missing_String").SelectAttrValue("value", ""))
	assert.NotNil(t, doc.FindElement("//OPTIONS/PreserveTemporaryProjects"))
	assert.NotNil(t, doc.FindElement("//OPTIONS/RejectDisconnectedStrucuture"))
	assert.NotNil(t, doc.FindElement("//OPTIONS/RoundDescriptorValues"))
	require.NotNil(t, doc.FindElement("//OUTPUT/knimemode"))
	assert.Equal(t, "false", doc.FindElement("//OUTPUT/knimemode").SelectAttrValue("value", ""))
	// v6-only elements absent.
	assert.Nil(t, doc.FindElement("//OPTIONS/ShowWorksheet"))
	assert.Nil(t, doc.FindElement("//OPTIONS/MaxSR"))
}

func TestBuild_BooleansAreLiteralStrings(t *testing.T) {
	t.Parallel()

	opts := dragon.DefaultOptions(dragon.Version7)
	opts.SaveExcludeConst = true

	_, doc := buildInDir(t, opts)
	assert.Equal(t, "true", doc.FindElement("//OPTIONS/CheckUpdates").SelectAttrValue("value", ""))
	assert.Equal(t, "true", doc.FindElement("//OPTIONS/SaveExcludeConst").SelectAttrValue("value", ""))
	assert.Equal(t, "false", doc.FindElement("//OPTIONS/SaveExcludeNearConst").SelectAttrValue("value", ""))
}

func TestBuild_ProjectAndLogConditionals(t *testing.T) {
	t.Parallel()

	t.Run("save project on", func(t *testing.T) {
		t.Parallel()
		opts := dragon.DefaultOptions(dragon.Version7)
		opts.SaveProject = true

		w, doc := buildInDir(t, opts)
		el := doc.FindElement("//OUTPUT/SaveProjectFile")
		require.NotNil(t, el)
		assert.Equal(t, "Dragon_project.drp", el.SelectAttrValue("value", ""))
		_ = w
	})

	t.Run("save project off", func(t *testing.T) {
		t.Parallel()
		_, doc := buildInDir(t, dragon.DefaultOptions(dragon.Version7))
		assert.Nil(t, doc.FindElement("//OUTPUT/SaveProjectFile"))
	})

	t.Run("log mode stderr omits logFile", func(t *testing.T) {
		t.Parallel()
		opts := dragon.DefaultOptions(dragon.Version7)
		opts.LogMode = dragon.LogModeStderr

		_, doc := buildInDir(t, opts)
		assert.Equal(t, "stderr", doc.FindElement("//OUTPUT/logMode").SelectAttrValue("value", ""))
		assert.Nil(t, doc.FindElement("//OUTPUT/logFile"))
	})

	t.Run("log mode file anchors logFile under output dir", func(t *testing.T) {
		t.Parallel()
		w, doc := buildInDir(t, dragon.DefaultOptions(dragon.Version7))
		el := doc.FindElement("//OUTPUT/logFile")
		require.NotNil(t, el)
		assert.Equal(t, w.OutputDir()+"Dragon_log.txt", el.SelectAttrValue("value", ""))
	})
}

func TestBuild_ValidationFailureLeavesNoScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := dragon.DefaultOptions(dragon.Version7)
	opts.Weights = []string{"NotAWeight"}

	w := dragon.New(opts, logging.NewNopLogger())
	require.Error(t, w.Build(dir))

	_, err := os.Stat(filepath.Join(dir, dragon.ScriptFileName))
	assert.True(t, os.IsNotExist(err), "no partial script may be persisted")
}

func TestDataPath_EmptyWhenSaveFileDisabled(t *testing.T) {
	t.Parallel()

	opts := dragon.DefaultOptions(dragon.Version7)
	opts.SaveFile = false

	w, doc := buildInDir(t, opts)
	assert.Empty(t, w.DataPath())
	assert.Nil(t, doc.FindElement("//OUTPUT/SaveFilePath"))
	assert.Nil(t, doc.FindElement("//OUTPUT/SaveType"))
}

func TestRoundTrip_BuildPersistLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := dragon.New(dragon.DefaultOptions(dragon.Version7), logging.NewNopLogger())
	require.NoError(t, w.Build(dir))

	loaded := dragon.New(dragon.Options{}, logging.NewNopLogger())
	require.NoError(t, loaded.Load(w.ScriptPath()))
	assert.True(t, loaded.Built())
	assert.Equal(t, w.DataPath(), loaded.DataPath())
	assert.Equal(t, w.ScriptPath(), loaded.ScriptPath())
}

func TestLoad_MissingMandatorySectionsIsFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "broken.drs")
	content := `<DRAGON version="7.0.0" script_version="1"><OPTIONS/><DESCRIPTORS/></DRAGON>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	w := dragon.New(dragon.Options{}, logging.NewNopLogger())
	err := w.Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScriptMissingSections))
	assert.Contains(t, err.Error(), "MOLFILES")
	assert.Contains(t, err.Error(), "OUTPUT")
	assert.False(t, w.Built())
}

func TestLoad_ForeignVersionWarnsButSucceeds(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "old.drs")
	content := `<DRAGON version="5.5.0" script_version="1">` +
		`<OPTIONS/><DESCRIPTORS/><MOLFILES/>` +
		`<OUTPUT><SaveFilePath value="/data/out.txt"/></OUTPUT></DRAGON>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	mock := testutil.NewMockLogger()
	w := dragon.New(dragon.Options{}, mock)
	require.NoError(t, w.Load(path))
	assert.True(t, w.Built())
	assert.Equal(t, "/data/out.txt", w.DataPath())
	assert.True(t, mock.HasMessageContaining("warn", "not labeled with a supported version"))
}

func TestLoad_UnparsableFileFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "garbage.drs")
	require.NoError(t, os.WriteFile(path, []byte("<DRAGON"), 0o644))

	w := dragon.New(dragon.Options{}, logging.NewNopLogger())
	err := w.Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScriptParseFailed))
}

func TestDump_RequiresBuilt(t *testing.T) {
	t.Parallel()

	w := dragon.New(dragon.DefaultOptions(dragon.Version7), logging.NewNopLogger())
	_, err := w.Dump()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScriptNotBuilt))

	require.NoError(t, w.Build(t.TempDir()))
	out, err := w.Dump()
	require.NoError(t, err)
	assert.Contains(t, out, "<DRAGON")
	assert.Contains(t, out, "<OPTIONS>")
}

// The end-to-end scenario from the wizard's reference usage: version 7,
// blocks 1-3, two weights, stdin/SMILES input.
func TestExampleScenario_Version7(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := dragon.DefaultOptions(dragon.Version7)
	opts.Blocks = []int{1, 2, 3}
	opts.Weights = []string{"Mass", "VdWVolume"}
	opts.MolInput = dragon.MolInputStdin
	opts.MolInputFormat = "SMILES"

	w := dragon.New(opts, logging.NewNopLogger())
	require.NoError(t, w.Build(dir))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(w.ScriptPath()))

	blocks := doc.FindElements("//DESCRIPTORS/block")
	require.Len(t, blocks, 3)
	for i, el := range blocks {
		assert.Equal(t, strconv.Itoa(i+1), el.SelectAttrValue("id", ""))
		assert.Equal(t, "true", el.SelectAttrValue("SelectAll", ""))
	}

	weights := doc.FindElements("//OPTIONS/Weights/weight")
	require.Len(t, weights, 2)

	assert.Equal(t, "stdin", doc.FindElement("//MOLFILES/molInput").SelectAttrValue("value", ""))
	assert.Equal(t, "SMILES", doc.FindElement("//MOLFILES/molInputFormat").SelectAttrValue("value", ""))

	sep := string(filepath.Separator)
	assert.Equal(t, dir+sep+"Dragon_descriptors.txt", w.DataPath())
	assert.Equal(t, dir+sep+dragon.ScriptFileName, w.ScriptPath())
}
