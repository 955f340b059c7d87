package service

import (
	"sort"

	"job_applier_go/model"
	"job_applier_go/repository"
)

type memOptionRepo struct {
	rows []*model.BossOptionEntity
}

func (r *memOptionRepo) FindByType(typeStr string) ([]*model.BossOptionEntity, error) {
	var out []*model.BossOptionEntity
	for _, o := range r.rows {
		if o.Type == typeStr {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memOptionRepo) FindByTypeAndCode(typeStr, code string) (*model.BossOptionEntity, error) {
	for _, o := range r.rows {
		if o.Type == typeStr && o.Code == code {
			return o, nil
		}
	}
	return nil, nil
}

func (r *memOptionRepo) FindByTypeAndName(typeStr, name string) (*model.BossOptionEntity, error) {
	for _, o := range r.rows {
		if o.Type == typeStr && o.Name == name {
			return o, nil
		}
	}
	return nil, nil
}

func (r *memOptionRepo) Save(o *model.BossOptionEntity) error {
	r.rows = append(r.rows, o)
	return nil
}

type memBossConfigRepo struct {
	row *model.BossConfigEntity
}

func (r *memBossConfigRepo) FindFirst() (*model.BossConfigEntity, error) { return r.row, nil }

func (r *memBossConfigRepo) Save(c *model.BossConfigEntity) error {
	r.row = c
	return nil
}

type memJobDataRepo struct {
	rows []*model.BossJobDataEntity
}

func (r *memJobDataRepo) FindByEncryptIdAndUserId(id, uid string) (*model.BossJobDataEntity, error) {
	for _, j := range r.rows {
		if j.EncryptId == id && j.EncryptUserId == uid {
			return j, nil
		}
	}
	return nil, nil
}

func (r *memJobDataRepo) Save(j *model.BossJobDataEntity) error {
	r.rows = append(r.rows, j)
	return nil
}

func (r *memJobDataRepo) UpdateDeliveryStatus(id, uid, status, reason string) error {
	for _, j := range r.rows {
		if j.EncryptId == id && j.EncryptUserId == uid {
			j.DeliveryStatus = status
			j.FilterReason = reason
		}
	}
	return nil
}

func (r *memJobDataRepo) CountByStatus() (map[string]int64, error) {
	out := map[string]int64{}
	for _, j := range r.rows {
		out[j.DeliveryStatus]++
	}
	return out, nil
}

type memConfigRepo struct {
	rows map[string]*model.ConfigEntity
}

func newMemConfigRepo(kv map[string]string) *memConfigRepo {
	r := &memConfigRepo{rows: map[string]*model.ConfigEntity{}}
	for k, v := range kv {
		r.rows[k] = &model.ConfigEntity{ConfigKey: k, ConfigValue: v}
	}
	return r
}

func (r *memConfigRepo) FindAll() ([]*model.ConfigEntity, error) {
	out := make([]*model.ConfigEntity, 0, len(r.rows))
	for _, c := range r.rows {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConfigKey < out[j].ConfigKey })
	return out, nil
}

func (r *memConfigRepo) FindByKey(k string) (*model.ConfigEntity, error) { return r.rows[k], nil }

func (r *memConfigRepo) Upsert(c *model.ConfigEntity) error {
	r.rows[c.ConfigKey] = c
	return nil
}

type memCookieRepo struct {
	rows map[string]*model.CookieEntity
}

func (r *memCookieRepo) FindByPlatform(p string) (*model.CookieEntity, error) { return r.rows[p], nil }

func (r *memCookieRepo) FindAll() ([]*model.CookieEntity, error) { return nil, nil }

func (r *memCookieRepo) Save(c *model.CookieEntity) error {
	r.rows[c.Platform] = c
	return nil
}

func (r *memCookieRepo) ClearCookieValue(p, remark string) error {
	if c, ok := r.rows[p]; ok {
		c.CookieValue = ""
		c.Remark = remark
	}
	return nil
}

type memAiRepo struct {
	row *model.AiEntity
}

func (r *memAiRepo) FindLatest() (*model.AiEntity, error) { return r.row, nil }

func (r *memAiRepo) Save(a *model.AiEntity) error {
	r.row = a
	return nil
}

type memRecordRepo struct {
	rows []*model.ApplicationRecordEntity
}

func (r *memRecordRepo) List(q repository.RecordQuery) ([]*model.ApplicationRecordEntity, int64, error) {
	var filtered []*model.ApplicationRecordEntity
	for _, rec := range r.rows {
		if q.Status == "" || rec.Status == q.Status {
			filtered = append(filtered, rec)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].AppliedAt.After(filtered[j].AppliedAt) })
	total := int64(len(filtered))
	if q.Offset >= len(filtered) {
		return nil, total, nil
	}
	end := min(q.Offset+q.Limit, len(filtered))
	return filtered[q.Offset:end], total, nil
}

func (r *memRecordRepo) Save(rec *model.ApplicationRecordEntity) error {
	r.rows = append(r.rows, rec)
	return nil
}

func (r *memRecordRepo) Delete(id string) (bool, error) {
	for i, rec := range r.rows {
		if rec.ID == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *memRecordRepo) CountByStatus() (map[string]int64, error) {
	out := map[string]int64{}
	for _, rec := range r.rows {
		out[rec.Status]++
	}
	return out, nil
}
