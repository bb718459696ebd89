package service

// TrackedJobs reports the sizes of the job index and its eviction order.
func (s *Service) TrackedJobs() (jobs, order int) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	return len(s.jobs), len(s.jobOrder)
}
