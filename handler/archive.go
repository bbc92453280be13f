package handler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/moyoez/gcomserver-go/tool"
	"github.com/moyoez/gcomserver-go/types"
)

// ManifestName is the file written next to the archived objects of a group.
const ManifestName = "manifest.cbor"

var (
	manifestEncMode cbor.EncMode
	manifestDecMode cbor.DecMode
)

func init() {
	var err error
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	manifestEncMode, err = encOptions.EncMode()
	if err != nil {
		panic("handler: CBOR encoder initialization failed: " + err.Error())
	}
	manifestDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("handler: CBOR decoder initialization failed: " + err.Error())
	}
}

// Manifest describes one archived group.
type Manifest struct {
	GroupID    string          `cbor:"groupId"`
	SessionID  string          `cbor:"sessionId"`
	Remote     string          `cbor:"remote"`
	BeganAt    time.Time       `cbor:"beganAt"`
	ReceivedAt time.Time       `cbor:"receivedAt"`
	Objects    []ManifestEntry `cbor:"objects"`
}

type ManifestEntry struct {
	File string           `cbor:"file"` // relative to the manifest
	Info types.ObjectInfo `cbor:"info"`
}

type ArchiveResult struct {
	Dir      string
	Manifest string
	Files    []string
}

// ObjectFileName names an archived object after its acquisition, image,
// reconstruction and image type numbers.
func ObjectFileName(info types.ObjectInfo) string {
	return fmt.Sprintf("%d_%d_r%d_t%d.acr", info.AcquisitionNumber, info.ImageNumber, info.Reconstruction, info.ImageType)
}

// GroupDirName names the directory of a group after its patient and study.
func GroupDirName(group types.Group) string {
	patient, study := "", ""
	if len(group.Slots) > 0 {
		patient = group.Slots[0].Info.PatientName
		study = group.Slots[0].Info.StudyID
	}
	return tool.SanitizeName(patient) + "_" + tool.SanitizeName(study)
}

// Archive copies the staged files of group under outputDir and writes a
// manifest. Existing files are never overwritten. On error the files copied
// so far are left in place and listed in the result.
func Archive(ctx context.Context, outputDir string, group types.Group) (ArchiveResult, error) {
	dir := filepath.Join(outputDir, GroupDirName(group))
	result := ArchiveResult{Dir: dir}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result, fmt.Errorf("create archive dir failed: %w", err)
	}

	manifest := Manifest{
		GroupID:    group.ID,
		SessionID:  group.SessionID,
		Remote:     group.Remote,
		BeganAt:    group.BeganAt,
		ReceivedAt: group.ReceivedAt,
	}
	for _, slot := range group.Slots {
		target := tool.NextAvailablePath(dir, ObjectFileName(slot.Info))
		if _, err := tool.CopyFile(ctx, target, slot.StagedPath); err != nil {
			return result, fmt.Errorf("archive %s failed: %w", slot.StagedPath, err)
		}
		result.Files = append(result.Files, target)
		manifest.Objects = append(manifest.Objects, ManifestEntry{File: filepath.Base(target), Info: slot.Info})
	}

	data, err := manifestEncMode.Marshal(manifest)
	if err != nil {
		return result, fmt.Errorf("encode manifest failed: %w", err)
	}
	result.Manifest = tool.NextAvailablePath(dir, ManifestName)
	if err := os.WriteFile(result.Manifest, data, 0o644); err != nil {
		return result, fmt.Errorf("write manifest failed: %w", err)
	}
	return result, nil
}

// ReadManifest decodes a manifest written by Archive.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := manifestDecMode.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return m, nil
}
