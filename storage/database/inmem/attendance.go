package inmemdb

import (
	"context"
	"sort"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateRecord(_ context.Context, rec attendance.Record, _ ...core.DBExecutor) (attendance.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.recordsSeq++
	rec.ID = repo.db.recordsSeq
	repo.db.records = append(repo.db.records, rec)
	return rec, nil
}

func (repo *attendanceRepository) QueryCourseRecords(_ context.Context, courseID int, _ ...core.DBExecutor) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	records := make([]attendance.Record, 0)
	for _, rec := range repo.db.records {
		if rec.CourseID == courseID {
			records = append(records, rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Timestamp.Before(records[j].Timestamp) })
	return records, nil
}

func (repo *attendanceRepository) CountRecords(context.Context, ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.records), nil
}
