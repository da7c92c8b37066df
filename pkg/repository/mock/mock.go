package mock

import (
	"context"
	"sort"
	"strconv"

	"github.com/shiftlog/shiftlog/pkg/models"
)

// Test helpers and mocks
type Mocks struct {
	Store    *JobStore
	Remote   *RemoteSource
	Tasks    *TaskRepo
	TechRepo *TechnicianRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		Store:    NewJobStore(),
		Remote:   &RemoteSource{},
		Tasks:    &TaskRepo{ByID: map[string]models.Job{}},
		TechRepo: &TechnicianRepo{ByID: map[string]models.Technician{}},
	}
}

// JobStore is an in-memory stand-in for the device store.
type JobStore struct {
	Jobs      map[string]models.Job
	Blacklist map[string]struct{}
	Saves     int
	Removes   int

	ListErr error
	SaveErr error
}

func NewJobStore() *JobStore {
	return &JobStore{
		Jobs:      map[string]models.Job{},
		Blacklist: map[string]struct{}{},
	}
}

func (s *JobStore) List(ctx context.Context) ([]models.Job, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]models.Job, 0, len(s.Jobs))
	for _, j := range s.Jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		ti, tk := out[i].EffectiveTime(), out[k].EffectiveTime()
		if ti.Equal(tk) {
			return out[i].ID < out[k].ID
		}
		return ti.After(tk)
	})
	return out, nil
}

func (s *JobStore) Save(ctx context.Context, job models.Job) (models.Job, error) {
	if s.SaveErr != nil {
		return models.Job{}, s.SaveErr
	}
	if job.ID == "" {
		job.ID = "generated-" + strconv.Itoa(len(s.Jobs)+1)
	}
	s.Jobs[job.ID] = job
	s.Saves++
	return job, nil
}

func (s *JobStore) Delete(ctx context.Context, id string) error {
	delete(s.Jobs, id)
	s.Blacklist[id] = struct{}{}
	return nil
}

func (s *JobStore) Remove(ctx context.Context, id string) error {
	delete(s.Jobs, id)
	s.Removes++
	return nil
}

func (s *JobStore) DeletedIDs(ctx context.Context) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(s.Blacklist))
	for id := range s.Blacklist {
		out[id] = struct{}{}
	}
	return out, nil
}

// RemoteSource replays a fixed listing and records upserts. FailUpsertIDs
// simulates per-record push failures; ListErr simulates a dead transport.
type RemoteSource struct {
	Listing       []models.Job
	Upserts       []models.Job
	ListErr       error
	UpsertErr     error
	FailUpsertIDs map[string]struct{}
	ListCalls     int
}

func (r *RemoteSource) List(ctx context.Context) ([]models.Job, error) {
	r.ListCalls++
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := make([]models.Job, len(r.Listing))
	copy(out, r.Listing)
	return out, nil
}

func (r *RemoteSource) Upsert(ctx context.Context, job models.Job) error {
	if r.UpsertErr != nil {
		return r.UpsertErr
	}
	if _, bad := r.FailUpsertIDs[job.ID]; bad {
		return errString("upsert rejected")
	}
	r.Upserts = append(r.Upserts, job)
	return nil
}

// TaskRepo is an in-memory stand-in for the server task table.
type TaskRepo struct {
	ByID      map[string]models.Job
	ListErr   error
	UpsertErr error
}

func (t *TaskRepo) ListTasks(ctx context.Context) ([]models.Job, error) {
	if t.ListErr != nil {
		return nil, t.ListErr
	}
	out := make([]models.Job, 0, len(t.ByID))
	for _, j := range t.ByID {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].EffectiveTime().After(out[k].EffectiveTime())
	})
	return out, nil
}

func (t *TaskRepo) GetTask(ctx context.Context, id string) (*models.Job, error) {
	j, ok := t.ByID[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (t *TaskRepo) UpsertTask(ctx context.Context, j *models.Job) error {
	if t.UpsertErr != nil {
		return t.UpsertErr
	}
	t.ByID[j.ID] = *j
	return nil
}

func (t *TaskRepo) SoftDeleteTask(ctx context.Context, id string) (bool, error) {
	j, ok := t.ByID[id]
	if !ok {
		return false, nil
	}
	j.Deleted = true
	t.ByID[id] = j
	return true, nil
}

type TechnicianRepo struct {
	ByID map[string]models.Technician
}

func (r *TechnicianRepo) ListActiveTechnicians(ctx context.Context) ([]models.Technician, error) {
	out := make([]models.Technician, 0, len(r.ByID))
	for _, tech := range r.ByID {
		out = append(out, tech)
	}
	sort.Slice(out, func(i, k int) bool {
		if (out[i].Role == models.RoleAdmin) != (out[k].Role == models.RoleAdmin) {
			return out[i].Role == models.RoleAdmin
		}
		return out[i].Name < out[k].Name
	})
	return out, nil
}

func (r *TechnicianRepo) GetTechnician(ctx context.Context, id string) (*models.Technician, error) {
	tech, ok := r.ByID[id]
	if !ok {
		return nil, nil
	}
	return &tech, nil
}

func (r *TechnicianRepo) UpsertTechnician(ctx context.Context, t *models.Technician) error {
	r.ByID[t.ID] = *t
	return nil
}

type errString string

func (e errString) Error() string { return string(e) }
