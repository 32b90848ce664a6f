// pkg/t2p/input.go
package t2p

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrMissingPreproc   = errors.New("pre-processor file is required for IWFM models")
	ErrInvalidDelimiter = errors.New("invalid template delimiter")
)

// ModelType is the groundwater model the control file drives
type ModelType string

const (
	ModelMODFLOW ModelType = "MODFLOW"
	ModelIWFM    ModelType = "IWFM"
)

// DefaultFileName is the control file name Texture2Par looks for
const DefaultFileName = "Texture2Par.in"

var settingParameters = []string{
	"sill", "range_max", "range_min", "anisotropy", "nugget", "nkrige_wells",
	"KCk", "KFk", "KHp", "KVp", "Syp",
}

var (
	headerLine = "*" + strings.Repeat("=", 79) + "\n"
	divider    = "*" + strings.Repeat("-", 79) + "\n"
)

const headerText = "Texture2Par Input File  |  Written by texingest"

// Settings are the scalar entries of a control file
type Settings struct {
	WellLogFile  string
	UnitFile     string // hydrogeologic units
	SimFile      string // a .nam file selects MODFLOW, anything else IWFM
	PreprocFile  string // IWFM only
	TemplateFile string
	PPZoneFile   string

	// MODFLOW grid placement
	XOffset  float64
	YOffset  float64
	Rotation float64

	FullOutput bool

	VariogramType int
	Sill          float64
	RangeMax      float64
	RangeMin      float64
	Anisotropy    float64 // angle from north
	Nugget        float64
	NKrigeWells   int

	KCk float64
	KFk float64
	KHp float64
	KVp float64
	Syp float64
}

// DefaultSettings returns Texture2Par's documented defaults
func DefaultSettings() Settings {
	return Settings{
		VariogramType: 1,
		Sill:          1.0,
		RangeMax:      1e7,
		RangeMin:      1e7,
		NKrigeWells:   16,
		KCk:           0.007,
		KFk:           0.0099,
		KHp:           0.93,
		KVp:           -0.62,
		Syp:           1.0,
	}
}

// WriteOptions selects plain or PEST template output
type WriteOptions struct {
	Template  bool
	Delimiter string // template field marker, "$" when empty
}

// InputFile builds a Texture2Par control file
type InputFile struct {
	settings  Settings
	modelType ModelType
	aquifer   []*PilotPoint
	aquitard  []*PilotPoint
	estimate  map[string]bool
	logger    *zap.Logger
}

// NewInputFile detects the model type from the simulation file
func NewInputFile(s Settings, logger *zap.Logger) (*InputFile, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mt := ModelIWFM
	if strings.EqualFold(filepath.Ext(s.SimFile), ".nam") {
		mt = ModelMODFLOW
	} else if s.PreprocFile == "" {
		return nil, ErrMissingPreproc
	}
	logger.Debug("Detected model type", zap.String("type", string(mt)), zap.String("simFile", s.SimFile))

	return &InputFile{
		settings:  s,
		modelType: mt,
		estimate:  make(map[string]bool),
		logger:    logger,
	}, nil
}

func (f *InputFile) ModelType() ModelType { return f.modelType }

func (f *InputFile) Settings() Settings { return f.settings }

// AddPilotPoint appends p to the aquifer or aquitard section its Aquitard flag selects
func (f *InputFile) AddPilotPoint(p *PilotPoint) {
	if p.Aquitard {
		f.aquitard = append(f.aquitard, p)
		return
	}
	f.aquifer = append(f.aquifer, p)
}

// PilotPoints returns the number of aquifer and aquitard pilot points
func (f *InputFile) PilotPoints() (aquifer, aquitard int) {
	return len(f.aquifer), len(f.aquitard)
}

// Parameters lists the setting names SetEstimated accepts
func (f *InputFile) Parameters() []string {
	return append([]string(nil), settingParameters...)
}

// SetEstimated marks settings to be written as PEST template fields
func (f *InputFile) SetEstimated(names ...string) error {
	if err := checkNames(settingParameters, names); err != nil {
		return err
	}
	for _, n := range names {
		f.estimate[n] = true
	}
	return nil
}

// Estimated returns the settings marked for estimation, in file order
func (f *InputFile) Estimated() []string {
	var out []string
	for _, n := range settingParameters {
		if f.estimate[n] {
			out = append(out, n)
		}
	}
	return out
}

// SetPilotPointsEstimated marks parameters on every aquifer or every aquitard pilot point
func (f *InputFile) SetPilotPointsEstimated(aquitard bool, names ...string) error {
	points := f.aquifer
	if aquitard {
		points = f.aquitard
	}
	for _, p := range points {
		if err := p.SetEstimated(names...); err != nil {
			return err
		}
	}
	return nil
}

// Write renders the control file. Template output starts with the PEST "ptf" line and
// replaces estimated values with delimited parameter names. Pilot point parameters are
// numbered across both sections so every name is unique.
func (f *InputFile) Write(w io.Writer, opts WriteOptions) error {
	delim := opts.Delimiter
	if delim == "" {
		delim = "$"
	}
	if opts.Template && (len([]rune(delim)) != 1 || strings.ContainsAny(delim, " \t\r\n")) {
		return fmt.Errorf("%w: %q", ErrInvalidDelimiter, delim)
	}

	cw := &controlWriter{w: bufio.NewWriter(w), template: opts.Template, delim: delim, estimate: f.estimate}
	s := f.settings

	if opts.Template {
		cw.raw("ptf " + delim + "\n")
	}
	cw.raw(headerLine)
	cw.raw("* " + headerText + "\n")
	cw.raw(headerLine)
	cw.str(string(f.modelType), "Model Type")
	cw.str(s.WellLogFile, "Well Log File")
	cw.str(s.UnitFile, "Hydrogeologic Units File")

	cw.section(fmt.Sprintf("Model Settings (%s)", f.modelType))
	interpPoint := "Node"
	switch f.modelType {
	case ModelIWFM:
		cw.str(s.SimFile, "Simulation File")
		cw.str(s.PreprocFile, "Pre-processor File")
		cw.str(s.TemplateFile, "GW Template File")
		cw.str(s.PPZoneFile, "Pilot Point Node Zones File")
	case ModelMODFLOW:
		cw.str(s.SimFile, "Name File")
		cw.str(s.TemplateFile, "Layer Parameter Template File")
		cw.str(s.PPZoneFile, "Pilot Point Node Zones File")
		cw.value("", fixed(s.XOffset), "xOffset")
		cw.value("", fixed(s.YOffset), "yOffset")
		cw.value("", fixed(s.Rotation), "Rotation")
		interpPoint = "Cell"
	}

	cw.section("Program Settings (True/False)")
	cw.str(titleBool(s.FullOutput), fmt.Sprintf("Output %s Files", interpPoint))

	cw.section("Variogram Settings")
	cw.value("", strconv.Itoa(s.VariogramType), "Variogram Type (itype)")
	cw.value("sill", fixed(s.Sill), "Sill")
	cw.value("range_max", sci(s.RangeMax), "[Maximum] Range")
	cw.value("range_min", sci(s.RangeMin), "Minimum Range")
	cw.value("anisotropy", fixed(s.Anisotropy), "Anisotropy Angle (from North)")
	cw.value("nugget", fixed(s.Nugget), "Nugget")
	cw.value("nkrige_wells", strconv.Itoa(s.NKrigeWells), "[Maximum] Wells used in kriging")

	cw.section("Global Settings")
	cw.value("KCk", fixed(s.KCk), "KCk")
	cw.value("KFk", fixed(s.KFk), "KFk")
	cw.value("KHp", fixed(s.KHp), "KHp")
	cw.value("KVp", fixed(s.KVp), "KVp")
	cw.value("Syp", fixed(s.Syp), "Syp")

	cw.section("Pilot Points - X  Y  KCMin  deltaKC  KFMin  deltaKF  SsC  SsF  SyC  SyF  AnisoC  AnisoF  Zone")
	for i, p := range f.aquifer {
		cw.raw(p.line(i, opts.Template, delim))
	}
	cw.section("Aquitard Pilot Points - X  Y  KCMin  deltaKC  KFMin  deltaKF  AnisoC  AnisoF  Zone")
	for i, p := range f.aquitard {
		cw.raw(p.line(len(f.aquifer)+i, opts.Template, delim))
	}

	cw.raw(divider)
	cw.raw("* EOF\n")

	if cw.err != nil {
		return fmt.Errorf("failed to write control file: %w", cw.err)
	}
	if err := cw.w.Flush(); err != nil {
		return fmt.Errorf("failed to write control file: %w", err)
	}
	return nil
}

// WriteFile writes the control file to path
func (f *InputFile) WriteFile(path string, opts WriteOptions) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create control file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close control file: %w", cerr)
		}
	}()

	if err := f.Write(out, opts); err != nil {
		return err
	}

	f.logger.Info("Wrote control file",
		zap.String("path", path),
		zap.String("model", string(f.modelType)),
		zap.Bool("template", opts.Template),
		zap.Int("aquiferPoints", len(f.aquifer)),
		zap.Int("aquitardPoints", len(f.aquitard)))
	return nil
}

// controlWriter keeps the first write error
type controlWriter struct {
	w        *bufio.Writer
	template bool
	delim    string
	estimate map[string]bool
	err      error
}

func (c *controlWriter) raw(s string) {
	if c.err != nil {
		return
	}
	_, c.err = c.w.WriteString(s)
}

func (c *controlWriter) section(title string) {
	c.raw(divider)
	c.raw("* " + title + "\n")
	c.raw(divider)
}

// entry pads the value to 40 columns before the description
func (c *controlWriter) entry(line, description string) {
	c.raw(fmt.Sprintf("%-40s/ %s\n", line, description))
}

func (c *controlWriter) str(s, description string) {
	c.entry(" "+s, description)
}

func (c *controlWriter) value(name, formatted, description string) {
	line := " " + formatted
	if c.template && name != "" && c.estimate[name] {
		line = templateField(name, c.delim)
	}
	c.entry(line, description)
}

func fixed(v float64) string { return fmt.Sprintf("%.4f", v) }

func sci(v float64) string { return fmt.Sprintf("%.4e", v) }

func titleBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
