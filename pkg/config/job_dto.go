// pkg/config/job_dto.go
package config

// YAMLJob is the on-disk shape of a job file
type YAMLJob struct {
	Name            string       `yaml:"name"`
	Dataset         YAMLDataset  `yaml:"dataset"`
	Sources         []YAMLSource `yaml:"sources"`
	Output          YAMLOutput   `yaml:"output"`
	Audit           bool         `yaml:"audit"`
	ContinueOnError bool         `yaml:"continue_on_error"`
}

type YAMLDataset struct {
	Classes            []string `yaml:"classes"`
	HSULayers          int      `yaml:"nlay"`
	ElevationPolicy    string   `yaml:"elevation_policy"`
	Strict             bool     `yaml:"strict"`
	AllowNegativeDepth bool     `yaml:"allow_negative_depth"`
}

type YAMLSource struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter"`
	Query     string `yaml:"query"`
	Table     string `yaml:"table"`

	Columns         *YAMLColumns      `yaml:"columns"`
	Classes         map[string]string `yaml:"classes"`
	FillMissing     *bool             `yaml:"fill_missing"`
	FillFromSurface bool              `yaml:"fill_from_surface"`
}

// YAMLColumns overrides the default column names; an empty string unmaps a column
type YAMLColumns struct {
	Name  *string `yaml:"name"`
	X     *string `yaml:"x"`
	Y     *string `yaml:"y"`
	Zland *string `yaml:"zland"`
	Depth *string `yaml:"depth"`
	Top   *string `yaml:"top"`
	N     *string `yaml:"n"`
}

type YAMLOutput struct {
	Path      string  `yaml:"path"`
	Layout    string  `yaml:"layout"`
	Separator *string `yaml:"separator"`
	Header    *bool   `yaml:"header"`
	Precision *int    `yaml:"precision"`
	NAToken   *string `yaml:"na_token"`

	PostgresTable  string `yaml:"postgres_table"`
	PostgresSchema string `yaml:"postgres_schema"`

	WellLog *YAMLWellLog `yaml:"well_log"`
	Control *YAMLControl `yaml:"control"`
}

// YAMLWellLog requests a point well log of one texture class
type YAMLWellLog struct {
	Path  string `yaml:"path"`
	Class string `yaml:"class"`
}

// YAMLControl describes a Texture2Par control file; unset values keep Texture2Par's defaults
type YAMLControl struct {
	Path         string `yaml:"path"`
	TemplatePath string `yaml:"template_path"`
	Delimiter    string `yaml:"delimiter"`

	WellLogFile  string `yaml:"well_log_file"`
	UnitFile     string `yaml:"hydrogeo_unit_file"`
	SimFile      string `yaml:"sim_file"`
	PreprocFile  string `yaml:"preproc_file"`
	TemplateFile string `yaml:"template_file"`
	PPZoneFile   string `yaml:"pp_zone_file"`

	XOffset    float64 `yaml:"x_offset"`
	YOffset    float64 `yaml:"y_offset"`
	Rotation   float64 `yaml:"rotation"`
	FullOutput bool    `yaml:"full_output"`

	VariogramType *int     `yaml:"variogram_type"`
	Sill          *float64 `yaml:"sill"`
	RangeMax      *float64 `yaml:"range_max"`
	RangeMin      *float64 `yaml:"range_min"`
	Anisotropy    *float64 `yaml:"anisotropy"`
	Nugget        *float64 `yaml:"nugget"`
	NKrigeWells   *int     `yaml:"nkrige_wells"`
	KCk           *float64 `yaml:"kck"`
	KFk           *float64 `yaml:"kfk"`
	KHp           *float64 `yaml:"khp"`
	KVp           *float64 `yaml:"kvp"`
	Syp           *float64 `yaml:"syp"`

	Estimate            []string         `yaml:"estimate"`
	PilotPoints         []YAMLPilotPoint `yaml:"pilot_points"`
	AquitardPilotPoints []YAMLPilotPoint `yaml:"aquitard_pilot_points"`
}

// YAMLPilotPoint is one pilot point; storage values are ignored for aquitard points
type YAMLPilotPoint struct {
	X        float64  `yaml:"x"`
	Y        float64  `yaml:"y"`
	KCMin    float64  `yaml:"kc_min"`
	DeltaKC  float64  `yaml:"delta_kc"`
	KFMin    float64  `yaml:"kf_min"`
	DeltaKF  float64  `yaml:"delta_kf"`
	SsC      float64  `yaml:"ss_c"`
	SsF      float64  `yaml:"ss_f"`
	SyC      float64  `yaml:"sy_c"`
	SyF      float64  `yaml:"sy_f"`
	AnisoC   *float64 `yaml:"aniso_c"`
	AnisoF   *float64 `yaml:"aniso_f"`
	Zone     *int     `yaml:"zone"`
	Estimate []string `yaml:"estimate"`
}
