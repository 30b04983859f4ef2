// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/routekit/editor/v2/internal/geo"
	v1 "github.com/routekit/editor/v2/internal/storage/memory/export/v1"
	"github.com/routekit/editor/v2/pkg/core"
)

// exportGeoJSON writes the route as a GeoJSON FeatureCollection file.
// Caller holds b.mu.
func (b *Backend) exportGeoJSON(record *RouteRecord) error {
	if b.cfg.OutputDir == "" {
		// memory-only mode, nothing to write
		return nil
	}

	export := v1.Build(&v1.RouteData{
		Meta:   record.Meta,
		Points: record.Points,
	})

	// Build filename
	routeName := record.Meta.Name
	if routeName == "" {
		routeName = "route"
	}
	routeName = strings.ReplaceAll(routeName, " ", "_")
	routeName = strings.ReplaceAll(routeName, ":", "_")
	timestamp := exportTime(record).Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.geojson.gz", routeName, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.geojson", routeName, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	b.lastExportMeta = core.UploadMetadata{
		RouteName: record.Meta.Name,
		Tag:       record.Meta.Tag,
		Points:    len(record.Points),
		DistanceM: geo.RouteDistance(record.Points),
	}
	return nil
}

// exportTime picks the filename timestamp: the first stamped point if
// the route has one, the wall clock otherwise. UTC keeps filenames
// stable across host timezones.
func exportTime(record *RouteRecord) time.Time {
	for _, p := range record.Points {
		if p.Timestamp != 0 {
			return time.UnixMilli(p.Timestamp).UTC()
		}
	}
	return time.Now().UTC()
}

func (b *Backend) writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
