package main

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/ingest"
	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
	"github.com/noah-isme/exam-scheduler-api/pkg/config"
)

// inputFlags are the file and calendar flags shared by solve and check.
type inputFlags struct {
	sources     ingest.Sources
	days        int
	slots       int
	slotMinutes int
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sources.Classrooms, "classrooms", "", "classrooms file (.txt or .csv)")
	cmd.Flags().StringVar(&f.sources.Attendance, "attendance", "", "attendance file listing each course and its students")
	cmd.Flags().StringVar(&f.sources.Courses, "courses", "", "optional course list with durations in minutes")
	cmd.Flags().StringVar(&f.sources.Students, "students", "", "optional list of all students")
	cmd.Flags().IntVar(&f.days, "days", 0, "number of exam days (default from SCHEDULER_NUM_DAYS)")
	cmd.Flags().IntVar(&f.slots, "slots", 0, "slots per day (default from SCHEDULER_SLOTS_PER_DAY)")
	cmd.Flags().IntVar(&f.slotMinutes, "slot-minutes", 0, "minutes per slot (default from SCHEDULER_SLOT_MINUTES)")
	_ = cmd.MarkFlagRequired("classrooms")
	_ = cmd.MarkFlagRequired("attendance")
}

func (f *inputFlags) params(cfg *config.Config) scheduler.Params {
	params := scheduler.Params{
		NumDays:             cfg.Scheduler.NumDays,
		SlotsPerDay:         cfg.Scheduler.SlotsPerDay,
		SlotDurationMinutes: cfg.Scheduler.SlotMinutes,
		MaxIterations:       cfg.Scheduler.MaxIterations,
		PollEvery:           cfg.Scheduler.PollEvery,
	}
	if f.days > 0 {
		params.NumDays = f.days
	}
	if f.slots > 0 {
		params.SlotsPerDay = f.slots
	}
	if f.slotMinutes > 0 {
		params.SlotDurationMinutes = f.slotMinutes
	}
	return params
}

// datasetInput converts loaded files into solve input.
func datasetInput(ds *ingest.Dataset) dto.DatasetInput {
	in := dto.DatasetInput{Students: ds.Students}
	for _, r := range ds.Classrooms {
		in.Classrooms = append(in.Classrooms, dto.ClassroomInput{Code: r.Code, Capacity: r.Capacity})
	}
	for _, c := range ds.Courses {
		course := dto.CourseInput{Code: c.Code, Students: c.Students()}
		if c.HasDuration {
			course.Duration = c.Duration
		}
		in.Courses = append(in.Courses, course)
	}
	return in
}
