package process_blob

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/pkg/errors"

	"procmem/process"
	"procmem/process/memory_map"
)

// MaxRegionSize is the largest region written to a dump
const MaxRegionSize = 100 * 1024 * 1024

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-dump"))

// Source is a live view of a process that can be captured
type Source interface {
	PID() process.ProcessID
	Regions() []memory_map.Region
	ReadRegion(region memory_map.Region) ([]byte, error)
}

// Manifest is the metadata.json of a dump
type Manifest struct {
	PID            process.ProcessID   `json:"pid"`
	Name           string              `json:"name"`
	ModulePath     string              `json:"module_path,omitempty"`
	PebBaseAddress uint64              `json:"peb_base_address,omitempty"`
	PointerSize    int                 `json:"pointer_size,omitempty"`
	Regions        []memory_map.Region `json:"regions"`
}

// SaveStats summarises what Save wrote
type SaveStats struct {
	Saved     int
	Skipped   int
	ReadError int
}

func blobName(region memory_map.Region) string {
	return fmt.Sprintf("blob_0x%x_%d.bin", region.Address, region.Size)
}

// Save writes the manifest and every readable region of src into dirname.
// Regions that cannot be read are recorded in the manifest without data.
func Save(dirname string, m Manifest, src Source) (SaveStats, error) {
	var stats SaveStats

	if err := os.MkdirAll(dirname, 0755); err != nil {
		return stats, errors.Wrap(err, "failed to create directory")
	}

	m.PID = src.PID()
	m.Regions = src.Regions()

	for _, region := range m.Regions {
		if region.State != memory_map.StateCommit || !region.IsReadable() {
			stats.Skipped++
			continue
		}

		if region.Size > MaxRegionSize {
			log.Infoln("Skipping large region at", fmt.Sprintf("%x", region.Address), "(size:", region.Size/1024/1024, "MB)")
			stats.Skipped++
			continue
		}

		data, err := src.ReadRegion(region)
		if err != nil {
			log.Debugln("Failed to read memory region at", fmt.Sprintf("%x", region.Address), ":", err)
			stats.ReadError++
			continue
		}

		if err := os.WriteFile(filepath.Join(dirname, blobName(region)), data, 0644); err != nil {
			return stats, errors.Wrapf(err, "failed to write region 0x%x", region.Address)
		}
		stats.Saved++
	}

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return stats, errors.Wrap(err, "failed to marshal metadata")
	}

	if err := os.WriteFile(filepath.Join(dirname, "metadata.json"), manifest, 0644); err != nil {
		return stats, errors.Wrap(err, "failed to write metadata file")
	}

	log.Infoln("Process dump saved:", stats.Saved, "regions saved,", stats.ReadError, "errors")

	return stats, nil
}

// Load reads a dump written by Save into a System holding a single process
func Load(dirname string) (*System, *Process, error) {
	raw, err := os.ReadFile(filepath.Join(dirname, "metadata.json"))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to read metadata")
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, errors.Wrap(err, "failed to unmarshal metadata")
	}

	p := &Process{
		PID:            m.PID,
		Name:           m.Name,
		ModulePath:     m.ModulePath,
		PebBaseAddress: m.PebBaseAddress,
		PointerSize:    m.PointerSize,
	}

	for _, region := range m.Regions {
		r := &Region{Address: region.Address, Size: region.Size, State: region.State}

		data, err := os.ReadFile(filepath.Join(dirname, blobName(region)))
		switch {
		case err == nil:
			r.Data = data
		case os.IsNotExist(err):
			// not captured, reads fail as a partial copy
		default:
			return nil, nil, errors.Wrapf(err, "failed to read blob for region 0x%x", region.Address)
		}

		p.Regions = append(p.Regions, r)
	}

	s := NewSystem()
	s.Add(p)

	return s, p, nil
}
