// Package dataset reads and writes map dataset files. A dataset file holds
// the vertex, edge and map image collections in JSON or YAML.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vanshika/mapnav/backend/internal/domain"
)

// Format selects the file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for file extensions other than .json, .yaml and .yml.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// VertexRecord is the on-disk shape of a vertex.
type VertexRecord struct {
	ID    int64   `json:"id" yaml:"id" validate:"gte=0"`
	XPos  float64 `json:"xPos" yaml:"xPos"`
	YPos  float64 `json:"yPos" yaml:"yPos"`
	Floor int     `json:"floor" yaml:"floor"`
}

// EdgeRecord is the on-disk shape of an edge.
type EdgeRecord struct {
	NodeA int64 `json:"nodeA" yaml:"nodeA" validate:"gte=0"`
	NodeB int64 `json:"nodeB" yaml:"nodeB" validate:"gte=0"`
}

// MapImageRecord is the on-disk shape of a floor plan overlay.
type MapImageRecord struct {
	Name         string  `json:"name" yaml:"name" validate:"required"`
	TopLeftX     float64 `json:"topLeftX" yaml:"topLeftX"`
	TopLeftY     float64 `json:"topLeftY" yaml:"topLeftY"`
	TopRightX    float64 `json:"topRightX" yaml:"topRightX"`
	TopRightY    float64 `json:"topRightY" yaml:"topRightY"`
	BottomRightX float64 `json:"bottomRightX" yaml:"bottomRightX"`
	BottomRightY float64 `json:"bottomRightY" yaml:"bottomRightY"`
	Floor        int     `json:"floor" yaml:"floor"`
}

// File is the top-level document.
type File struct {
	Vertices  []VertexRecord   `json:"vertices" yaml:"vertices" validate:"dive"`
	Edges     []EdgeRecord     `json:"edges" yaml:"edges" validate:"dive"`
	MapImages []MapImageRecord `json:"mapImages,omitempty" yaml:"mapImages,omitempty" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FormatFor picks the encoding from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads and validates the dataset stored at path.
func Load(path string) (domain.Dataset, error) {
	format, err := FormatFor(path)
	if err != nil {
		return domain.Dataset{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("read %s: %w", path, err)
	}
	ds, err := Decode(bytes.NewReader(raw), format)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return ds, nil
}

// Decode parses a dataset document and validates every record.
func Decode(r io.Reader, format Format) (domain.Dataset, error) {
	var file File
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return domain.Dataset{}, fmt.Errorf("json: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return domain.Dataset{}, fmt.Errorf("yaml: %w", err)
		}
	default:
		return domain.Dataset{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err := Validate(file); err != nil {
		return domain.Dataset{}, err
	}
	return file.ToDomain(), nil
}

// Validate checks record-level constraints. Referential integrity between
// edges and vertices is left to the graph builder.
func Validate(file File) error {
	if err := validate.Struct(file); err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}
	return nil
}

// Write encodes the dataset to path, creating parent directories. The
// encoding follows the file extension.
func Write(path string, ds domain.Dataset) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := Encode(file, format, ds); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// Encode writes ds to w in the given format.
func Encode(w io.Writer, format Format, ds domain.Dataset) error {
	doc := FromDomain(ds)
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(doc)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(doc); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ToDomain converts the file records to domain values.
func (f File) ToDomain() domain.Dataset {
	ds := domain.Dataset{
		Vertices:  make([]domain.Vertex, 0, len(f.Vertices)),
		Edges:     make([]domain.Edge, 0, len(f.Edges)),
		MapImages: make([]domain.MapImage, 0, len(f.MapImages)),
	}
	for _, v := range f.Vertices {
		ds.Vertices = append(ds.Vertices, v.ToDomain())
	}
	for _, e := range f.Edges {
		ds.Edges = append(ds.Edges, e.ToDomain())
	}
	for _, img := range f.MapImages {
		ds.MapImages = append(ds.MapImages, img.ToDomain())
	}
	return ds
}

// FromDomain converts domain values to file records.
func FromDomain(ds domain.Dataset) File {
	f := File{
		Vertices:  make([]VertexRecord, 0, len(ds.Vertices)),
		Edges:     make([]EdgeRecord, 0, len(ds.Edges)),
		MapImages: make([]MapImageRecord, 0, len(ds.MapImages)),
	}
	for _, v := range ds.Vertices {
		f.Vertices = append(f.Vertices, VertexFromDomain(v))
	}
	for _, e := range ds.Edges {
		f.Edges = append(f.Edges, EdgeFromDomain(e))
	}
	for _, img := range ds.MapImages {
		f.MapImages = append(f.MapImages, MapImageFromDomain(img))
	}
	return f
}

func (r VertexRecord) ToDomain() domain.Vertex {
	return domain.Vertex{ID: r.ID, X: r.XPos, Y: r.YPos, Floor: r.Floor}
}

func (r EdgeRecord) ToDomain() domain.Edge {
	return domain.Edge{NodeA: r.NodeA, NodeB: r.NodeB}
}

func (r MapImageRecord) ToDomain() domain.MapImage {
	return domain.MapImage{
		Name:        r.Name,
		TopLeft:     domain.Point{X: r.TopLeftX, Y: r.TopLeftY},
		TopRight:    domain.Point{X: r.TopRightX, Y: r.TopRightY},
		BottomRight: domain.Point{X: r.BottomRightX, Y: r.BottomRightY},
		Floor:       r.Floor,
	}
}

func VertexFromDomain(v domain.Vertex) VertexRecord {
	return VertexRecord{ID: v.ID, XPos: v.X, YPos: v.Y, Floor: v.Floor}
}

func EdgeFromDomain(e domain.Edge) EdgeRecord {
	return EdgeRecord{NodeA: e.NodeA, NodeB: e.NodeB}
}

func MapImageFromDomain(img domain.MapImage) MapImageRecord {
	return MapImageRecord{
		Name:         img.Name,
		TopLeftX:     img.TopLeft.X,
		TopLeftY:     img.TopLeft.Y,
		TopRightX:    img.TopRight.X,
		TopRightY:    img.TopRight.Y,
		BottomRightX: img.BottomRight.X,
		BottomRightY: img.BottomRight.Y,
		Floor:        img.Floor,
	}
}
