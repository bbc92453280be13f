package types

import "time"

// ObjectInfo is the metadata pulled from a received data object's header.
type ObjectInfo struct {
	PatientName       string `json:"patientName,omitempty" cbor:"patientName,omitempty"`
	StudyID           string `json:"studyId,omitempty" cbor:"studyId,omitempty"`
	AcquisitionNumber int    `json:"acquisitionNumber" cbor:"acquisitionNumber"`
	ImageNumber       int    `json:"imageNumber" cbor:"imageNumber"`
	Reconstruction    int    `json:"reconstruction" cbor:"reconstruction"`
	ImageType         int    `json:"imageType" cbor:"imageType"`
	Size              int64  `json:"size" cbor:"size"`
	Digest            string `json:"digest,omitempty" cbor:"digest,omitempty"` // BLAKE3, hex
}

// Slot is one received data object of a group.
type Slot struct {
	StagedPath string     `json:"stagedPath" cbor:"stagedPath"`
	Info       ObjectInfo `json:"info" cbor:"info"`
}

// Group is the hand-off given to the completion handler once a group has fully arrived.
type Group struct {
	ID         string    `json:"id" cbor:"id"`
	SessionID  string    `json:"sessionId" cbor:"sessionId"`
	Remote     string    `json:"remote" cbor:"remote"`
	Slots      []Slot    `json:"slots" cbor:"slots"`
	BeganAt    time.Time `json:"beganAt" cbor:"beganAt"`
	ReceivedAt time.Time `json:"receivedAt" cbor:"receivedAt"`
}

// Paths returns the staged paths in arrival order.
func (g Group) Paths() []string {
	paths := make([]string, 0, len(g.Slots))
	for _, s := range g.Slots {
		paths = append(paths, s.StagedPath)
	}
	return paths
}

// GroupSummary is the record kept for recently completed groups.
type GroupSummary struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Remote     string    `json:"remote"`
	Objects    int       `json:"objects"`
	Bytes      int64     `json:"bytes"`
	Patient    string    `json:"patient,omitempty"`
	Study      string    `json:"study,omitempty"`
	ArchiveDir string    `json:"archiveDir,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Summarize condenses g for status reporting.
func (g Group) Summarize() GroupSummary {
	sum := GroupSummary{
		ID:         g.ID,
		SessionID:  g.SessionID,
		Remote:     g.Remote,
		Objects:    len(g.Slots),
		ReceivedAt: g.ReceivedAt,
	}
	for _, s := range g.Slots {
		sum.Bytes += s.Info.Size
	}
	if len(g.Slots) > 0 {
		sum.Patient = g.Slots[0].Info.PatientName
		sum.Study = g.Slots[0].Info.StudyID
	}
	return sum
}
