package types

// Item is a deliverable under inspection: a raster file or a database table.
// Items are immutable once enumerated.
type Item interface {
	// ID is the identity reported in outcomes: a file path or schema.table.
	ID() string
	Domain() Domain
}

// RasterFile is a raster image on disk.
type RasterFile struct {
	Path string `json:"path" yaml:"path"`
	// WorldFile is the sidecar world file, empty when none was found.
	WorldFile string `json:"world_file,omitempty" yaml:"world_file,omitempty"`
}

func (f RasterFile) ID() string { return f.Path }

func (RasterFile) Domain() Domain { return DomainRaster }

// Table is a spatial table of the schema under inspection.
type Table struct {
	Schema         string `json:"schema" yaml:"schema"`
	Name           string `json:"name" yaml:"name"`
	GeometryColumn string `json:"geometry_column" yaml:"geometry_column"`
	GeometryType   string `json:"geometry_type,omitempty" yaml:"geometry_type,omitempty"`
	IDColumn       string `json:"id_column" yaml:"id_column"`
}

func (t Table) ID() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

func (Table) Domain() Domain { return DomainVector }
