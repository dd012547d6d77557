package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/google/uuid"
)

// All snapshots live under this prefix
const SnapshotPrefix = "snapshots/"

// Snapshots stores the JPEG evidence attached to alerts.
// Names are time ordered, so a listing is also a timeline.
type Snapshots struct {
	log   logs.Log
	store Storage
}

func NewSnapshots(log logs.Log, store Storage) *Snapshots {
	return &Snapshots{
		log:   log,
		store: store,
	}
}

func (s *Snapshots) Storage() Storage {
	return s.store
}

// SnapshotName returns a unique name like "snapshots/2025-01-31/fire_1738310000_<uuidv7>.jpg".
// A v7 UUID embeds a millisecond timestamp, so names sort in creation order.
func SnapshotName(at time.Time, label string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	at = at.UTC()
	return fmt.Sprintf("%v%v/%v_%v_%v.jpg", SnapshotPrefix, at.Format("2006-01-02"), strings.ToLower(label), at.Unix(), id.String()), nil
}

// Save writes jpg under a fresh name, and returns that name
func (s *Snapshots) Save(at time.Time, label string, jpg []byte) (string, error) {
	name, err := SnapshotName(at, label)
	if err != nil {
		return "", err
	}
	if err := WriteFile(s.store, name, bytes.NewReader(jpg)); err != nil {
		return "", fmt.Errorf("Failed to save snapshot %v: %w", name, err)
	}
	return name, nil
}

func (s *Snapshots) Read(name string) ([]byte, error) {
	if !strings.HasPrefix(name, SnapshotPrefix) {
		return nil, fmt.Errorf("Invalid snapshot name %v", name)
	}
	return ReadFile(s.store, name)
}

func (s *Snapshots) List() ([]FileInfo, error) {
	return s.store.ListFiles(SnapshotPrefix)
}

// DeleteOlderThan removes every snapshot last modified before cutoff.
// Returns the number of snapshots deleted.
func (s *Snapshots) DeleteOlderThan(cutoff time.Time) (int, error) {
	files, err := s.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range files {
		if f.ModifiedAt.Before(cutoff) {
			err := s.store.DeleteFile(f.Name)
			if errors.Is(err, fs.ErrNotExist) {
				// Somebody else got there first
				continue
			} else if err != nil {
				s.log.Warnf("Failed to delete old snapshot %v: %v", f.Name, err)
				continue
			}
			n++
		}
	}
	return n, nil
}
