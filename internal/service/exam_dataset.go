package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

// instance is a dataset normalised for the engine.
type instance struct {
	courses  []*scheduler.Course
	rooms    []scheduler.Classroom
	students []string
	slot     *int
}

// checkClassroomCodes rejects a dataset that lists one classroom twice.
func checkClassroomCodes(in dto.DatasetInput) error {
	codes := lo.Map(in.Classrooms, func(r dto.ClassroomInput, _ int) string { return strings.TrimSpace(r.Code) })
	dups := lo.FindDuplicates(codes)
	if len(dups) == 0 {
		return nil
	}
	sort.Strings(dups)
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate classroom code %s", strings.Join(dups, ", ")))
}

// buildInstance trims codes and merges repeated course entries the way the
// file readers do: rosters are unioned and the latest explicit duration wins.
func buildInstance(in dto.DatasetInput) instance {
	inst := instance{}
	byCode := make(map[string]*scheduler.Course, len(in.Courses))
	for _, c := range in.Courses {
		code := strings.TrimSpace(c.Code)
		if existing, ok := byCode[code]; ok {
			existing.AddStudents(c.Students)
			existing.MergeDuration(c.Duration)
			continue
		}
		course := scheduler.NewCourse(code, c.Students, c.Duration)
		byCode[code] = course
		inst.courses = append(inst.courses, course)
	}
	for _, r := range in.Classrooms {
		inst.rooms = append(inst.rooms, scheduler.Classroom{Code: strings.TrimSpace(r.Code), Capacity: r.Capacity})
	}
	students := lo.Uniq(lo.FilterMap(in.Students, func(id string, _ int) (string, bool) {
		id = strings.TrimSpace(id)
		return id, id != ""
	}))
	sort.Strings(students)
	inst.students = students
	return inst
}

// input renders the instance back into its wire form.
func (inst instance) input() dto.DatasetInput {
	out := dto.DatasetInput{Students: append([]string(nil), inst.students...)}
	for _, r := range inst.rooms {
		out.Classrooms = append(out.Classrooms, dto.ClassroomInput{Code: r.Code, Capacity: r.Capacity})
	}
	for _, c := range inst.courses {
		course := dto.CourseInput{Code: c.Code, Students: c.Students()}
		if c.HasDuration {
			course.Duration = c.Duration
		}
		out.Courses = append(out.Courses, course)
	}
	return out
}

type fingerprintCourse struct {
	Code     string   `json:"c"`
	Slots    int      `json:"n"`
	Students []string `json:"s"`
}

type fingerprintPayload struct {
	Days     int                   `json:"d"`
	Slots    int                   `json:"p"`
	Rooms    []scheduler.Classroom `json:"r"`
	Courses  []fingerprintCourse   `json:"k"`
	Students []string              `json:"a"`
}

// fingerprint hashes everything that decides whether a schedule exists.
// Budgets and seeds are excluded so equivalent requests share cache entries.
func fingerprint(inst instance, params scheduler.Params) string {
	payload := fingerprintPayload{
		Days:     params.NumDays,
		Slots:    params.SlotsPerDay,
		Rooms:    append([]scheduler.Classroom(nil), inst.rooms...),
		Students: inst.students,
	}
	sort.Slice(payload.Rooms, func(i, j int) bool { return payload.Rooms[i].Code < payload.Rooms[j].Code })
	for _, c := range inst.courses {
		payload.Courses = append(payload.Courses, fingerprintCourse{
			Code:     c.Code,
			Slots:    scheduler.SlotsNeeded(c, params.SlotDurationMinutes),
			Students: c.Students(),
		})
	}
	sort.Slice(payload.Courses, func(i, j int) bool { return payload.Courses[i].Code < payload.Courses[j].Code })

	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// snapshotFromInput flattens a dataset into snapshot rows for slot.
func snapshotFromInput(slot int, in dto.DatasetInput) *models.DatasetSnapshot {
	inst := buildInstance(in)
	snapshot := &models.DatasetSnapshot{Slot: slot}
	for _, r := range inst.rooms {
		snapshot.Classrooms = append(snapshot.Classrooms, models.DatasetClassroom{Slot: slot, Code: r.Code, Capacity: r.Capacity})
	}
	for _, c := range inst.courses {
		row := models.DatasetCourse{Slot: slot, Code: c.Code}
		if c.HasDuration {
			duration := c.Duration
			row.Duration = &duration
		}
		snapshot.Courses = append(snapshot.Courses, row)
		for _, id := range c.Students() {
			snapshot.Enrollments = append(snapshot.Enrollments, models.DatasetEnrollment{Slot: slot, CourseCode: c.Code, StudentID: id})
		}
	}
	for _, id := range inst.students {
		snapshot.Students = append(snapshot.Students, models.DatasetStudent{Slot: slot, StudentID: id})
	}
	return snapshot
}

// inputFromSnapshot rebuilds solve input from stored rows.
func inputFromSnapshot(snapshot *models.DatasetSnapshot) dto.DatasetInput {
	out := dto.DatasetInput{}
	for _, r := range snapshot.Classrooms {
		out.Classrooms = append(out.Classrooms, dto.ClassroomInput{Code: r.Code, Capacity: r.Capacity})
	}
	rosters := lo.GroupBy(snapshot.Enrollments, func(e models.DatasetEnrollment) string { return e.CourseCode })
	for _, c := range snapshot.Courses {
		course := dto.CourseInput{Code: c.Code}
		if c.Duration != nil {
			course.Duration = *c.Duration
		}
		course.Students = lo.Map(rosters[c.Code], func(e models.DatasetEnrollment, _ int) string { return e.StudentID })
		out.Courses = append(out.Courses, course)
	}
	out.Students = lo.Map(snapshot.Students, func(s models.DatasetStudent, _ int) string { return s.StudentID })
	return out
}
