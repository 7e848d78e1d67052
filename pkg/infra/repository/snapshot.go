package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	quotadomain "github.com/numgate/numgate/pkg/domain/quota"
)

// SnapshotStore mirrors the quota ledger to a flat JSON file so bans, grants
// and referral edges survive a restart. Writes are best-effort: a failed save
// is logged and retried on the next tick, never fatal.
type SnapshotStore struct {
	path   string
	logger *logrus.Logger
}

func NewSnapshotStore(path string, logger *logrus.Logger) *SnapshotStore {
	return &SnapshotStore{path: path, logger: logger}
}

// Load reads the snapshot written by a previous run. A missing file is not
// an error; the ledger simply starts empty.
func (s *SnapshotStore) Load() (*quotadomain.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var snap quotadomain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save writes the snapshot atomically via a temp file rename.
func (s *SnapshotStore) Save(snap *quotadomain.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Run persists the ledger on the given interval until the context is
// cancelled, then takes one final snapshot on the way out.
func (s *SnapshotStore) Run(ctx context.Context, interval time.Duration, snapshot func() *quotadomain.Snapshot) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.Save(snapshot()); err != nil {
				s.logger.WithError(err).Error("final ledger snapshot failed")
			}
			return
		case <-ticker.C:
			if err := s.Save(snapshot()); err != nil {
				s.logger.WithError(err).Warn("ledger snapshot failed")
			}
		}
	}
}
