package inmemdb

import (
	"context"
	"sort"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

// withStudents sets the enrollment count. The caller holds the lock.
func (repo *courseRepository) withStudents(crs course.Course) course.Course {
	crs.Students = 0
	for _, enr := range repo.db.enrollments {
		if enr.CourseID == crs.ID {
			crs.Students++
		}
	}
	return crs
}

func (repo *courseRepository) codeExists(code string) bool {
	for _, crs := range repo.db.courses {
		if crs.Code == code {
			return true
		}
	}
	return false
}

func (repo *courseRepository) enrollmentIndex(studentID, courseID int) int {
	for i, enr := range repo.db.enrollments {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return i
		}
	}
	return -1
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.codeExists(crs.Code) {
		return course.Course{}, course.ErrCodeExists
	}
	repo.db.coursesSeq++
	crs.ID = repo.db.coursesSeq
	crs.Students = 0
	repo.db.courses[crs.ID] = crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, filter course.GetFilter, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != 0 {
		if crs, ok := repo.db.courses[filter.ID]; ok {
			return repo.withStudents(crs), nil
		}
	} else if filter.EnrollmentCode != "" {
		for _, crs := range repo.db.courses {
			if crs.EnrollmentCode == filter.EnrollmentCode {
				return repo.withStudents(crs), nil
			}
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.db.courses {
		if filter.InstructorID != 0 && crs.InstructorID != filter.InstructorID {
			continue
		}
		if filter.StudentID != 0 && repo.enrollmentIndex(filter.StudentID, crs.ID) < 0 {
			continue
		}
		courses = append(courses, repo.withStudents(crs))
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (repo *courseRepository) CodeExists(_ context.Context, code string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.codeExists(code), nil
}

func (repo *courseRepository) EnrollmentCodeExists(_ context.Context, code string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, crs := range repo.db.courses {
		if crs.EnrollmentCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) SetAttendanceOpen(_ context.Context, id int, open bool, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	crs, ok := repo.db.courses[id]
	if !ok {
		return course.ErrNotFound
	}
	crs.IsAttendanceOpen = open
	repo.db.courses[id] = crs
	return nil
}

// DeleteCourse also removes the course's attendance records.
func (repo *courseRepository) DeleteCourse(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.courses, id)

	records := repo.db.records[:0]
	for _, rec := range repo.db.records {
		if rec.CourseID != id {
			records = append(records, rec)
		}
	}
	repo.db.records = records
	return nil
}

func (repo *courseRepository) CountCourses(context.Context, ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.courses), nil
}

func (repo *courseRepository) CreateEnrollment(_ context.Context, enr course.Enrollment, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.enrollmentIndex(enr.StudentID, enr.CourseID) >= 0 {
		return course.ErrAlreadyEnrolled
	}
	repo.db.enrollments = append(repo.db.enrollments, enr)
	return nil
}

func (repo *courseRepository) DeleteEnrollment(_ context.Context, studentID, courseID int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	idx := repo.enrollmentIndex(studentID, courseID)
	if idx < 0 {
		return course.ErrNotEnrolled
	}
	repo.db.enrollments = append(repo.db.enrollments[:idx], repo.db.enrollments[idx+1:]...)
	return nil
}

func (repo *courseRepository) DeleteCourseEnrollments(_ context.Context, courseID int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	enrollments := repo.db.enrollments[:0]
	for _, enr := range repo.db.enrollments {
		if enr.CourseID != courseID {
			enrollments = append(enrollments, enr)
		}
	}
	repo.db.enrollments = enrollments
	return nil
}

func (repo *courseRepository) EnrollmentExists(_ context.Context, studentID, courseID int, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.enrollmentIndex(studentID, courseID) >= 0, nil
}

func (repo *courseRepository) QueryEnrolledStudentIDs(_ context.Context, courseID int, _ ...core.DBExecutor) ([]int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]int, 0)
	for _, enr := range repo.db.enrollments {
		if enr.CourseID == courseID {
			ids = append(ids, enr.StudentID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (repo *courseRepository) CountEnrollments(context.Context, ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.enrollments), nil
}
