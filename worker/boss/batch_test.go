package boss

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job_applier_go/automation/jobfilter"
	"job_applier_go/automation/retry"
	"job_applier_go/model"
)

func TestRunAppliesAllJobs(t *testing.T) {
	h := newHarness(10, BatchOptions{SayHi: "您好"})
	behavior := &fakeBehavior{}
	h.runner.SetBehavior(behavior)
	page := &fakePage{}
	jobs := makeJobs("a", "b", "c")

	res, err := h.runner.Run(context.Background(), page, jobs, "Go")
	require.NoError(t, err)

	assert.Equal(t, BatchResult{Total: 3, Success: 3}, res)
	assert.Equal(t, []string{"a", "b", "c"}, page.applied)
	assert.Equal(t, []string{"您好", "您好", "您好"}, page.greetings)
	assert.Equal(t, []bool{true, true, true}, h.throttle.results)
	assert.Equal(t, 3, behavior.reading)
	assert.Equal(t, 3, behavior.hesitation)
	assert.Len(t, h.records.calls, 3)
	assert.Equal(t, model.RecordSuccess, h.records.calls[0].Status)
	assert.Equal(t, []string{"a:" + model.RecordSuccess, "b:" + model.RecordSuccess, "c:" + model.RecordSuccess}, h.notifier.apps)
	for _, job := range jobs {
		assert.Equal(t, model.DeliveryDone, h.delivery.status[job.JobID])
		ok, reason := h.filter.ShouldApply(job)
		assert.False(t, ok)
		assert.Equal(t, jobfilter.ReasonApplied, reason)
	}
	assert.Empty(t, h.cpStore.rows, "完成后检查点应删除")
}

func TestRunUsesAIGreeting(t *testing.T) {
	h := newHarness(10, BatchOptions{SayHi: "您好", EnableAI: true})
	h.runner.greeter = fakeGreeter{}
	page := &fakePage{}

	_, err := h.runner.Run(context.Background(), page, makeJobs("a"), "Go")
	require.NoError(t, err)
	assert.Equal(t, []string{"AI:Go:Go 开发 a"}, page.greetings)
	assert.Equal(t, "AI:Go:Go 开发 a", h.records.calls[0].Cover)
}

func TestRunStopsWhenThrottleDenies(t *testing.T) {
	h := newHarness(1, BatchOptions{})
	page := &fakePage{}

	res, err := h.runner.Run(context.Background(), page, makeJobs("a", "b", "c"), "Go")
	require.NoError(t, err)

	assert.Equal(t, BatchResult{Total: 3, Success: 1, Skipped: 2, Stopped: true}, res)
	assert.Equal(t, []string{"a"}, page.applied)
	assert.Equal(t, model.DeliverySkipped, h.delivery.status["b"])
	assert.Equal(t, "超过每小时投递上限", h.delivery.reasons["c"])
}

func TestRunStopsOnDailyLimit(t *testing.T) {
	h := newHarness(10, BatchOptions{})
	page := &fakePage{applyErr: map[string]error{
		"b": ClassifyFailure("今日沟通人数已达上限"),
	}}

	res, err := h.runner.Run(context.Background(), page, makeJobs("a", "b", "c"), "Go")
	require.NoError(t, err)

	assert.Equal(t, BatchResult{Total: 3, Success: 1, Failed: 1, Skipped: 1, Stopped: true}, res)
	assert.Equal(t, []string{"a", "b"}, page.applied, "平台上限不重试")
	assert.Equal(t, model.DeliveryFailed, h.delivery.status["b"])
	assert.Equal(t, model.RecordFailed, h.records.calls[1].Status)
	assert.Equal(t, []bool{true, false}, h.throttle.results)
}

func TestRunRetriesTransientApplyError(t *testing.T) {
	h := newHarness(10, BatchOptions{})
	attempts := 0
	page := &fakePage{}
	page.onApply = func(job *model.Job) {
		attempts++
		if attempts == 1 {
			page.applyErr = map[string]error{job.JobID: retry.Retryable(errors.New("网络抖动"))}
		} else {
			page.applyErr = nil
		}
	}

	res, err := h.runner.Run(context.Background(), page, makeJobs("a"), "Go")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)
	assert.Equal(t, []string{"a", "a"}, page.applied)
	assert.Len(t, h.records.calls, 1)
}

func TestRunOpenFailureContinues(t *testing.T) {
	h := newHarness(10, BatchOptions{})
	page := &fakePage{openErr: map[string]error{
		"a": retry.Permanent(errors.New("岗位已下线")),
	}}

	res, err := h.runner.Run(context.Background(), page, makeJobs("a", "b"), "Go")
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Total: 2, Success: 1, Failed: 1}, res)
	assert.Equal(t, []string{"b"}, page.applied)
	assert.Equal(t, model.DeliveryFailed, h.delivery.status["a"])
	assert.Equal(t, 1, h.throttle.acquired, "打开失败不占用配额")
}

func TestRunFiltersDeadHR(t *testing.T) {
	h := newHarness(10, BatchOptions{FilterDeadHR: true, DeadStatus: []string{"半年前活跃"}})
	page := &fakePage{hrStatus: map[string]string{"a": "半年前活跃", "b": "刚刚活跃"}}

	res, err := h.runner.Run(context.Background(), page, makeJobs("a", "b"), "Go")
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Total: 2, Success: 1, Filtered: 1}, res)
	assert.Equal(t, []string{"b"}, page.applied)
	assert.Equal(t, model.DeliveryFiltered, h.delivery.status["a"])
	assert.Equal(t, "HR不活跃: 半年前活跃", h.delivery.reasons["a"])
}

func TestRunDebuggerSkipsApply(t *testing.T) {
	h := newHarness(10, BatchOptions{Debugger: true})
	page := &fakePage{}

	res, err := h.runner.Run(context.Background(), page, makeJobs("a", "b"), "Go")
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Total: 2, Skipped: 2}, res)
	assert.Equal(t, []string{"a", "b"}, page.opened)
	assert.Empty(t, page.applied)
	assert.Zero(t, h.throttle.acquired)
	assert.Empty(t, h.records.calls)
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	h := newHarness(10, BatchOptions{})
	jobs := makeJobs("a", "b", "c")
	require.NoError(t, h.checkpoints.Save(checkpointTask, batchCheckpoint{
		CurrentIndex: 2,
		FirstJob:     jobfilter.JobKey(jobs[0]),
		Total:        3,
		Results:      BatchResult{Success: 1, Failed: 1},
	}))
	page := &fakePage{}

	res, err := h.runner.Run(context.Background(), page, jobs, "Go")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, page.opened)
	assert.Equal(t, BatchResult{Total: 3, Success: 2, Failed: 1}, res)
}

func TestRunIgnoresForeignCheckpoint(t *testing.T) {
	h := newHarness(10, BatchOptions{})
	jobs := makeJobs("a", "b", "c")
	require.NoError(t, h.checkpoints.Save(checkpointTask, batchCheckpoint{
		CurrentIndex: 2,
		FirstJob:     "other",
		Total:        3,
	}))
	page := &fakePage{}

	res, err := h.runner.Run(context.Background(), page, jobs, "Go")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, page.opened)
	assert.Equal(t, 3, res.Success)
}

func TestRunCancelKeepsCheckpoint(t *testing.T) {
	h := newHarness(10, BatchOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	page := &fakePage{}
	page.onApply = func(job *model.Job) {
		if job.JobID == "b" {
			cancel()
			page.applyErr = map[string]error{"b": context.Canceled}
		}
	}
	jobs := makeJobs("a", "b", "c")

	res, err := h.runner.Run(ctx, page, jobs, "Go")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Success)

	var cp batchCheckpoint
	found, err := h.checkpoints.Load(checkpointTask, &cp)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, cp.CurrentIndex)
	assert.Equal(t, jobfilter.JobKey(jobs[0]), cp.FirstJob)
	assert.Equal(t, 1, cp.Results.Success)
}

func TestScreen(t *testing.T) {
	h := newHarness(10, BatchOptions{Expected: []int{25, 40}})
	_, err := h.blacklist.Add(model.BlacklistCompany, "公司b", "外包")
	require.NoError(t, err)

	jobs := makeJobs("a", "b", "c", "d")
	jobs[2].Salary = "8-12K"
	require.NoError(t, h.filter.MarkApplied(jobs[3]))

	passed, filtered := h.runner.Screen(jobs)
	require.Len(t, passed, 1)
	assert.Equal(t, "a", passed[0].JobID)
	assert.Equal(t, 3, filtered)

	assert.Equal(t, []string{"a", "b", "c", "d"}, h.delivery.saved)
	assert.Equal(t, model.DeliveryFiltered, h.delivery.status["b"])
	assert.NotEmpty(t, h.delivery.reasons["b"])
	assert.Equal(t, "薪资不符合预期", h.delivery.reasons["c"])
	assert.Equal(t, jobfilter.ReasonApplied, h.delivery.reasons["d"])
	assert.NotContains(t, h.delivery.status, "a")
}

func TestBatchResultAdd(t *testing.T) {
	total := BatchResult{Total: 2, Success: 1, Failed: 1}
	total.Add(BatchResult{Total: 3, Success: 1, Skipped: 2, Filtered: 1, Stopped: true})
	assert.Equal(t, BatchResult{Total: 5, Success: 2, Failed: 1, Skipped: 2, Filtered: 1, Stopped: true}, total)
}
