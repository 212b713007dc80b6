package dragon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/chemkit/dragonctl/internal/infrastructure/monitoring/logging"
	"github.com/chemkit/dragonctl/pkg/errors"
)

// ScriptFileName is the fixed name of the persisted script inside the output
// directory.  Concurrent wizards targeting the same directory would race on
// this file; a Wizard is strictly single-owner.
const ScriptFileName = "Dragon_script.drs"

// scriptVersion is the value of the root element's script_version attribute.
const scriptVersion = "1"

// generationDateLayout renders the root generation_date attribute
// (e.g. 2026/08/26).
const generationDateLayout = "2006/01/02"

// mandatorySections are the four child elements every valid Dragon script
// must carry, in their canonical order.  EXTERNAL is optional.
var mandatorySections = []string{"OPTIONS", "DESCRIPTORS", "MOLFILES", "OUTPUT"}

// Wizard assembles, persists, and loads Dragon script documents.  It mirrors
// the Script Wizard of the Dragon GUI: configure Options, call Build (or Load
// for an existing script), then hand the result to a Runner.
//
// Lifecycle: a Wizard starts unbuilt; Build or Load transitions it to built,
// after which DataPath, ScriptPath, and Dump are meaningful.  A Wizard is not
// safe for concurrent use.
type Wizard struct {
	opts   Options
	logger logging.Logger
	now    func() time.Time

	doc        *etree.Document
	outputDir  string
	scriptPath string
	dataPath   string
	built      bool
}

// New returns an unbuilt Wizard for the given options.  A nil logger falls
// back to the process default.
func New(opts Options, logger logging.Logger) *Wizard {
	if logger == nil {
		logger = logging.Default()
	}
	return &Wizard{
		opts:   opts,
		logger: logger.Named("wizard"),
		now:    time.Now,
	}
}

// Options returns a copy of the options the Wizard was constructed with.
func (w *Wizard) Options() Options { return w.opts }

// Built reports whether the Wizard holds a complete document.
func (w *Wizard) Built() bool { return w.built }

// OutputDir returns the normalized output directory.  It always ends with
// exactly one path separator once Build has succeeded.
func (w *Wizard) OutputDir() string { return w.outputDir }

// ScriptPath returns the path of the persisted (or loaded) script document.
func (w *Wizard) ScriptPath() string { return w.scriptPath }

// DataPath returns the expected path of the descriptor data file, read back
// from the document's OUTPUT/SaveFilePath element.  It is empty when the
// script disables file saving.
func (w *Wizard) DataPath() string { return w.dataPath }

// Build constructs a fresh script document from the Wizard's options and
// persists it as ScriptFileName inside outputDir.  The directory is created
// if absent and its path normalized to carry a single trailing separator.
//
// Validation failures (invalid weight, out-of-range block, bad molecule
// input) and unsupported versions abort the build before anything is written,
// so no partial document is ever left on disk.
func (w *Wizard) Build(outputDir string) error {
	s, err := schemaFor(w.opts.Version)
	if err != nil {
		return err
	}
	if err := w.opts.validate(s); err != nil {
		return err
	}

	dir := normalizeDir(outputDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeScriptWriteFailed,
			"failed to create output directory").WithDetail(dir)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("DRAGON")
	root.CreateAttr("version", s.versionString)
	if s.description != "" {
		root.CreateAttr("description", s.description)
	}
	root.CreateAttr("script_version", scriptVersion)
	root.CreateAttr("generation_date", w.now().Format(generationDateLayout))

	w.buildOptions(root, s)
	w.buildDescriptors(root)
	w.buildMolFiles(root)
	w.buildOutput(root, s, dir)
	if w.opts.External {
		w.buildExternal(root)
	}

	doc.Indent(2)
	path := dir + ScriptFileName
	if err := doc.WriteToFile(path); err != nil {
		return errors.Wrap(err, errors.ErrCodeScriptWriteFailed,
			"failed to save Dragon script").WithDetail(path)
	}

	w.doc = doc
	w.outputDir = dir
	w.scriptPath = path
	w.dataPath = readDataPath(root)
	w.built = true

	w.logger.Info("Dragon script built",
		logging.String("version", w.opts.Version.String()),
		logging.String("script", path),
		logging.String("data", w.dataPath))
	return nil
}

// Load parses an existing script document from path and verifies the four
// mandatory sections are present as direct children of the root.  A version
// attribute whose major prefix is neither 6 nor 7 is reported as a warning
// only; the document is still accepted.  Load does not re-run option
// validation: the document is taken as-is.
func (w *Wizard) Load(path string) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return errors.Wrap(err, errors.ErrCodeScriptParseFailed,
			"failed to parse Dragon script").WithDetail(path)
	}
	root := doc.Root()
	if root == nil {
		return errors.New(errors.ErrCodeScriptParseFailed,
			"Dragon script has no root element").WithDetail(path)
	}

	version := root.SelectAttrValue("version", "")
	if !strings.HasPrefix(version, "6") && !strings.HasPrefix(version, "7") {
		w.logger.Warn("Dragon script is not labeled with a supported version (6 or 7); this may cause problems",
			logging.String("version", version),
			logging.String("script", path))
	}

	present := make(map[string]bool)
	for _, child := range root.ChildElements() {
		present[child.Tag] = true
	}
	var missing []string
	for _, tag := range mandatorySections {
		if !present[tag] {
			missing = append(missing, tag)
		}
	}
	if len(missing) > 0 {
		return errors.New(errors.ErrCodeScriptMissingSections,
			"Dragon script does not contain all mandatory sections").
			WithDetail(fmt.Sprintf("missing: %v", missing))
	}

	w.doc = doc
	w.scriptPath = path
	w.outputDir = normalizeDir(filepath.Dir(path))
	w.dataPath = readDataPath(root)
	w.built = true

	w.logger.Info("Dragon script loaded",
		logging.String("script", path),
		logging.String("data", w.dataPath))
	return nil
}

// Dump returns the pretty-printed document for inspection.  It has no side
// effects and is only valid once the Wizard is built.
func (w *Wizard) Dump() (string, error) {
	if !w.built {
		return "", errors.New(errors.ErrCodeScriptNotBuilt,
			"call Build or Load before Dump")
	}
	w.doc.Indent(2)
	return w.doc.WriteToString()
}

func (w *Wizard) buildOptions(root *etree.Element, s *schema) {
	options := root.CreateElement("OPTIONS")
	for _, f := range s.preWeights {
		options.CreateElement(f.tag).CreateAttr("value", f.value(&w.opts))
	}
	weights := options.CreateElement("Weights")
	for _, name := range w.opts.Weights {
		weights.CreateElement("weight").CreateAttr("name", name)
	}
	for _, f := range s.postWeights {
		options.CreateElement(f.tag).CreateAttr("value", f.value(&w.opts))
	}
}

func (w *Wizard) buildDescriptors(root *etree.Element) {
	descriptors := root.CreateElement("DESCRIPTORS")
	for _, id := range w.opts.Blocks {
		block := descriptors.CreateElement("block")
		block.CreateAttr("id", strconv.Itoa(id))
		block.CreateAttr("SelectAll", "true")
	}
}

func (w *Wizard) buildMolFiles(root *etree.Element) {
	molfiles := root.CreateElement("MOLFILES")
	molfiles.CreateElement("molInput").CreateAttr("value", w.opts.MolInput)
	switch w.opts.MolInput {
	case MolInputStdin:
		molfiles.CreateElement("molInputFormat").CreateAttr("value", w.opts.MolInputFormat)
	case MolInputFile:
		molfiles.CreateElement("molFile").CreateAttr("value", w.opts.MolFile)
	}
}

func (w *Wizard) buildOutput(root *etree.Element, s *schema, dir string) {
	output := root.CreateElement("OUTPUT")
	if s.knimeMode {
		output.CreateElement("knimemode").CreateAttr("value", boolString(w.opts.KnimeMode))
	}
	output.CreateElement("SaveStdOut").CreateAttr("value", boolString(w.opts.SaveStdOut))
	output.CreateElement("SaveProject").CreateAttr("value", boolString(w.opts.SaveProject))
	if w.opts.SaveProject {
		output.CreateElement("SaveProjectFile").CreateAttr("value", w.opts.SaveProjectFile)
	}
	output.CreateElement("SaveFile").CreateAttr("value", boolString(w.opts.SaveFile))
	if w.opts.SaveFile {
		output.CreateElement("SaveType").CreateAttr("value", w.opts.SaveType)
		output.CreateElement("SaveFilePath").CreateAttr("value", dir+w.opts.SaveFilePath)
	}
	output.CreateElement("logMode").CreateAttr("value", w.opts.LogMode)
	if w.opts.LogMode == LogModeFile {
		output.CreateElement("logFile").CreateAttr("value", dir+w.opts.LogFile)
	}
}

func (w *Wizard) buildExternal(root *etree.Element) {
	external := root.CreateElement("EXTERNAL")
	external.CreateElement("fileName").CreateAttr("value", w.opts.FileName)
	external.CreateElement("delimiter").CreateAttr("value", w.opts.Delimiter)
	external.CreateElement("consecutiveDelimiter").CreateAttr("value", boolString(w.opts.ConsecutiveDelimiter))
	external.CreateElement("MissingValue").CreateAttr("value", w.opts.MissingValue)
}

// readDataPath extracts the descriptor data path from OUTPUT/SaveFilePath.
// It returns "" when the element is absent (file saving disabled).
func readDataPath(root *etree.Element) string {
	if el := root.FindElement("OUTPUT/SaveFilePath"); el != nil {
		return el.SelectAttrValue("value", "")
	}
	return ""
}

// normalizeDir appends a path separator to dir unless one is already present,
// so that file names can be joined by plain concatenation the way the script
// format's path fields expect.
func normalizeDir(dir string) string {
	sep := string(filepath.Separator)
	if dir == "" {
		return "." + sep
	}
	if strings.HasSuffix(dir, sep) {
		return dir
	}
	return dir + sep
}
