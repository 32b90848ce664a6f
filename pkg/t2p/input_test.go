package t2p

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func modflowSettings() Settings {
	s := DefaultSettings()
	s.WellLogFile = "wells.dat"
	s.UnitFile = "hsu.dat"
	s.SimFile = "model.nam"
	s.TemplateFile = "layers.tpl"
	s.PPZoneFile = "ppzones.dat"
	return s
}

func entry(value, description string) string {
	return value + strings.Repeat(" ", 40-len(value)) + "/ " + description
}

func render(t *testing.T, f *InputFile, opts WriteOptions) []string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf, opts))
	return strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
}

func TestNewInputFileModelType(t *testing.T) {
	f, err := NewInputFile(modflowSettings(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, ModelMODFLOW, f.ModelType())

	s := modflowSettings()
	s.SimFile = "Simulation.in"
	_, err = NewInputFile(s, nil)
	assert.True(t, errors.Is(err, ErrMissingPreproc))

	s.PreprocFile = "PreProcessor.in"
	f, err = NewInputFile(s, nil)
	require.NoError(t, err)
	assert.Equal(t, ModelIWFM, f.ModelType())
}

func TestWriteModflow(t *testing.T) {
	f, err := NewInputFile(modflowSettings(), zaptest.NewLogger(t))
	require.NoError(t, err)
	f.AddPilotPoint(NewPilotPoint(100, 200, 1, 2, 0.1, 0.2, 1e-5, 2e-5, 0.1, 0.2))
	f.AddPilotPoint(NewAquitardPilotPoint(1, 2, 3, 4, 5, 6))

	lines := render(t, f, WriteOptions{})

	assert.Equal(t, "*"+strings.Repeat("=", 79), lines[0])
	assert.Equal(t, "* Texture2Par Input File  |  Written by texingest", lines[1])
	assert.Equal(t, entry(" MODFLOW", "Model Type"), lines[3])
	assert.Equal(t, entry(" wells.dat", "Well Log File"), lines[4])
	assert.Contains(t, lines, "* Model Settings (MODFLOW)")
	assert.Contains(t, lines, entry(" model.nam", "Name File"))
	assert.Contains(t, lines, entry(" 0.0000", "Rotation"))
	assert.Contains(t, lines, entry(" False", "Output Cell Files"))
	assert.Contains(t, lines, entry(" 1", "Variogram Type (itype)"))
	assert.Contains(t, lines, entry(" 1.0000", "Sill"))
	assert.Contains(t, lines, entry(" 1.0000e+07", "[Maximum] Range"))
	assert.Contains(t, lines, entry(" 16", "[Maximum] Wells used in kriging"))
	assert.Contains(t, lines, entry(" -0.6200", "KVp"))
	assert.Contains(t, lines,
		"100.00 200.00 1.00 2.00 0.10 0.20 1.000e-05 2.000e-05 1.000e-01 2.000e-01 10.00 10.00 1")
	assert.Contains(t, lines, "1.00 2.00 3.00 4.00 5.00 6.00 10.00 10.00 1")
	assert.Equal(t, "* EOF", lines[len(lines)-1])

	aquifer, aquitard := f.PilotPoints()
	assert.Equal(t, 1, aquifer)
	assert.Equal(t, 1, aquitard)
}

func TestWriteIWFM(t *testing.T) {
	s := modflowSettings()
	s.SimFile = "Simulation.in"
	s.PreprocFile = "PreProcessor.in"
	s.FullOutput = true
	f, err := NewInputFile(s, nil)
	require.NoError(t, err)

	lines := render(t, f, WriteOptions{})
	assert.Contains(t, lines, entry(" PreProcessor.in", "Pre-processor File"))
	assert.Contains(t, lines, entry(" layers.tpl", "GW Template File"))
	assert.Contains(t, lines, entry(" True", "Output Node Files"))
	assert.NotContains(t, lines, entry(" 0.0000", "xOffset"))
}

func TestWriteTemplate(t *testing.T) {
	f, err := NewInputFile(modflowSettings(), nil)
	require.NoError(t, err)
	f.AddPilotPoint(NewPilotPoint(100, 200, 1, 2, 0.1, 0.2, 1e-5, 2e-5, 0.1, 0.2))
	f.AddPilotPoint(NewAquitardPilotPoint(1, 2, 3, 4, 5, 6))

	require.NoError(t, f.SetEstimated("sill", "KHp"))
	require.NoError(t, f.SetPilotPointsEstimated(false, "KCMin", "SyF"))
	require.NoError(t, f.SetPilotPointsEstimated(true, "deltaKF"))
	assert.Equal(t, []string{"sill", "KHp"}, f.Estimated())

	lines := render(t, f, WriteOptions{Template: true})
	assert.Equal(t, "ptf $", lines[0])
	assert.Contains(t, lines, entry("$ sill         $", "Sill"))
	assert.Contains(t, lines, entry("$ KHp          $", "KHp"))
	assert.Contains(t, lines, entry(" 0.0070", "KCk"))
	assert.Contains(t, lines,
		"100.00 200.00 $ KCMin_00     $ 2.00 0.10 0.20 1.000e-05 2.000e-05 1.000e-01 $ SyF_00       $ 10.00 10.00 1")
	assert.Contains(t, lines, "1.00 2.00 3.00 4.00 5.00 $ deltaKF_01   $ 10.00 10.00 1")

	// estimated values are plain outside template mode
	plain := render(t, f, WriteOptions{})
	assert.Contains(t, plain, entry(" 1.0000", "Sill"))
	assert.NotEqual(t, "ptf $", plain[0])
}

func TestWriteTemplateDelimiter(t *testing.T) {
	f, err := NewInputFile(modflowSettings(), nil)
	require.NoError(t, err)
	require.NoError(t, f.SetEstimated("nugget"))

	lines := render(t, f, WriteOptions{Template: true, Delimiter: "#"})
	assert.Equal(t, "ptf #", lines[0])
	assert.Contains(t, lines, entry("# nugget       #", "Nugget"))

	var buf bytes.Buffer
	err = f.Write(&buf, WriteOptions{Template: true, Delimiter: "##"})
	assert.True(t, errors.Is(err, ErrInvalidDelimiter))
}

func TestSetEstimatedUnknown(t *testing.T) {
	f, err := NewInputFile(modflowSettings(), nil)
	require.NoError(t, err)
	err = f.SetEstimated("sill", "porosity")
	assert.True(t, errors.Is(err, ErrUnknownParameter))
	assert.Empty(t, f.Estimated())

	pp := NewAquitardPilotPoint(1, 2, 3, 4, 5, 6)
	err = pp.SetEstimated("SsC")
	assert.True(t, errors.Is(err, ErrUnknownParameter))
	assert.Equal(t, []string{"KCMin", "deltaKC", "KFMin", "deltaKF", "AnisoC", "AnisoF"}, pp.Parameters())

	aq := NewPilotPoint(0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	require.NoError(t, aq.SetEstimated("AnisoF", "SsC"))
	assert.Equal(t, []string{"SsC", "AnisoF"}, aq.Estimated())
}

func TestWriteFile(t *testing.T) {
	f, err := NewInputFile(modflowSettings(), zaptest.NewLogger(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, f.WriteFile(path, WriteOptions{}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(b), "* EOF\n"))

	err = f.WriteFile(filepath.Join(t.TempDir(), "missing", DefaultFileName), WriteOptions{})
	assert.Error(t, err)
}
