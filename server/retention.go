package server

import "time"

// Snapshots are pruned once a day, shortly after midnight
const retentionSchedule = "5 0 * * *"

func (s *Server) startRetention() error {
	if s.Config.RetentionDays == 0 {
		s.Log.Infof("Snapshot retention is disabled. Snapshots will be kept forever")
		return nil
	}
	if _, err := s.cron.AddFunc(retentionSchedule, func() { s.pruneSnapshots(time.Now()) }); err != nil {
		return err
	}
	s.cron.Start()
	s.Log.Infof("Snapshots older than %v days will be deleted", s.Config.RetentionDays)
	return nil
}

// Delete snapshots older than the retention period. Returns the number deleted.
func (s *Server) pruneSnapshots(now time.Time) int {
	cutoff := now.Add(-s.Config.Retention())
	n, err := s.snapshots.DeleteOlderThan(cutoff)
	if err != nil {
		s.Log.Errorf("Snapshot retention failed after deleting %v snapshots: %v", n, err)
	} else if n != 0 {
		s.Log.Infof("Deleted %v snapshots older than %v", n, cutoff.Format(time.DateOnly))
	}
	return n
}
