package jobfilter

import (
	"sort"
	"time"

	"job_applier_go/model"
)

type memAppliedStore struct {
	rows map[string]*model.AppliedJobEntity
}

func newMemAppliedStore() *memAppliedStore {
	return &memAppliedStore{rows: map[string]*model.AppliedJobEntity{}}
}

func (s *memAppliedStore) FindAllKeys() ([]string, error) {
	keys := make([]string, 0, len(s.rows))
	for k := range s.rows {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *memAppliedStore) Save(job *model.AppliedJobEntity) error {
	if _, ok := s.rows[job.JobKey]; !ok {
		s.rows[job.JobKey] = job
	}
	return nil
}

func (s *memAppliedStore) CountAll() (int64, error) {
	return int64(len(s.rows)), nil
}

func (s *memAppliedStore) CountSince(t time.Time) (int64, error) {
	var n int64
	for _, r := range s.rows {
		if !r.AppliedAt.Before(t) {
			n++
		}
	}
	return n, nil
}

func (s *memAppliedStore) DistinctCompanies() ([]string, error) {
	set := map[string]bool{}
	for _, r := range s.rows {
		set[r.Company] = true
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (s *memAppliedStore) DeleteBefore(t time.Time) (int64, error) {
	var n int64
	for k, r := range s.rows {
		if r.AppliedAt.Before(t) {
			delete(s.rows, k)
			n++
		}
	}
	return n, nil
}

type memBlacklistStore struct {
	rows []*model.BlacklistEntity
}

func (s *memBlacklistStore) FindAll() ([]*model.BlacklistEntity, error) {
	return s.rows, nil
}

func (s *memBlacklistStore) Save(b *model.BlacklistEntity) error {
	s.rows = append(s.rows, b)
	return nil
}

func (s *memBlacklistStore) DeleteByTypeAndValue(typ, value string) error {
	out := s.rows[:0]
	for _, r := range s.rows {
		if r.Type != typ || r.Value != value {
			out = append(out, r)
		}
	}
	s.rows = out
	return nil
}

func (s *memBlacklistStore) CountByTypeAndValue(typ, value string) (int64, error) {
	var n int64
	for _, r := range s.rows {
		if r.Type == typ && r.Value == value {
			n++
		}
	}
	return n, nil
}
