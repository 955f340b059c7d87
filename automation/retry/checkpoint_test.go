package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job_applier_go/model"
)

type memCheckpointStore struct {
	rows map[string]*model.CheckpointEntity
}

func (s *memCheckpointStore) FindByTaskID(taskID string) (*model.CheckpointEntity, error) {
	return s.rows[taskID], nil
}

func (s *memCheckpointStore) FindAll() ([]*model.CheckpointEntity, error) {
	out := make([]*model.CheckpointEntity, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	return out, nil
}

func (s *memCheckpointStore) Upsert(cp *model.CheckpointEntity) error {
	cp.UpdatedAt = time.Now()
	s.rows[cp.TaskID] = cp
	return nil
}

func (s *memCheckpointStore) DeleteByTaskID(taskID string) error {
	delete(s.rows, taskID)
	return nil
}

type batchState struct {
	CurrentIndex int      `json:"current_index"`
	Done         []string `json:"done"`
}

func TestCheckpointRoundTrip(t *testing.T) {
	m := NewCheckpointManager(&memCheckpointStore{rows: map[string]*model.CheckpointEntity{}})

	var st batchState
	ok, err := m.Load("batch_apply", &st)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Save("batch_apply", batchState{CurrentIndex: 3, Done: []string{"a", "b", "c"}}))
	require.NoError(t, m.Save("batch_apply", batchState{CurrentIndex: 4, Done: []string{"a", "b", "c", "d"}}))

	ok, err = m.Load("batch_apply", &st)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, st.CurrentIndex)

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "batch_apply", list[0].TaskID)
	assert.JSONEq(t, `{"current_index":4,"done":["a","b","c","d"]}`, string(list[0].State))

	require.NoError(t, m.Delete("batch_apply"))
	ok, err = m.Load("batch_apply", &st)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckpointCorruptState(t *testing.T) {
	store := &memCheckpointStore{rows: map[string]*model.CheckpointEntity{
		"broken": {TaskID: "broken", State: "{not json"},
	}}
	m := NewCheckpointManager(store)
	var st batchState
	ok, err := m.Load("broken", &st)
	assert.Error(t, err)
	assert.False(t, ok)
}
