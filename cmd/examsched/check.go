package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/exam-scheduler-api/internal/ingest"
	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
)

func newCheckCommand() *cobra.Command {
	flags := &inputFlags{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load input files and report counts and capacity without solving",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logr.Sync() }()

			ds, err := ingest.Load(flags.sources)
			if err != nil {
				return err
			}
			params := flags.params(cfg)
			if err := params.Validate(); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			st := ingest.Summarize(ds.Classrooms, ds.Courses, ds.Students)
			fmt.Fprintf(w, "classrooms: %d (%d seats)\n", st.Classrooms, st.TotalSeats)
			fmt.Fprintf(w, "courses: %d\n", st.Courses)
			fmt.Fprintf(w, "students: %d enrolled, %d listed, %d without exams, %d unlisted\n",
				st.EnrolledStudents, st.ListedStudents, st.StudentsWithoutExams, st.UnlistedStudents)

			graph := scheduler.BuildConflictGraph(ds.Courses)
			fmt.Fprintf(w, "conflict density: %.3f, max degree: %d\n", graph.Density(), graph.MaxDegree())

			capacity := scheduler.CheckCapacity(ds.Courses, ds.Classrooms, params)
			fmt.Fprintf(w, "capacity: %s\n", capacity)
			for _, reason := range scheduler.Diagnose(ds.Courses, ds.Classrooms, params, graph) {
				fmt.Fprintf(w, "  - %s\n", reason)
			}
			for _, code := range ds.UnknownCourses {
				fmt.Fprintf(w, "unknown course in course list: %s\n", code)
			}
			if !capacity.Feasible {
				return fmt.Errorf("room-slot capacity %d is below demand %d", capacity.Supply, capacity.Demand)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
