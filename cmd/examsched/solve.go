package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/ingest"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/service"
	"github.com/noah-isme/exam-scheduler-api/pkg/config"
	"github.com/noah-isme/exam-scheduler-api/pkg/storage"
)

type solveFlags struct {
	inputFlags
	timeLimit time.Duration
	seed      int64
	shuffle   bool
	retries   int
	out       string
	format    string
}

func newSolveCommand() *cobra.Command {
	flags := &solveFlags{}
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Build an exam timetable and seating plan from input files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logr.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSolve(ctx, cmd.OutOrStdout(), cfg, logr, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVarP(&flags.timeLimit, "time", "t", 0, "search time limit (default from SCHEDULER_TIME_LIMIT)")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "random seed for shuffling; 0 picks one")
	cmd.Flags().BoolVar(&flags.shuffle, "shuffle", false, "shuffle courses of equal priority")
	cmd.Flags().IntVar(&flags.retries, "retries", 0, "extra shuffled attempts after a timeout or exhausted search (max 5)")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "write timetable and seating files using this path prefix")
	cmd.Flags().StringVar(&flags.format, "format", service.ExportFormatCSV, "output file format: csv or pdf")
	return cmd
}

func runSolve(ctx context.Context, w io.Writer, cfg *config.Config, logr *zap.Logger, flags *solveFlags) error {
	if flags.format != service.ExportFormatCSV && flags.format != service.ExportFormatPDF {
		return fmt.Errorf("unsupported format %q", flags.format)
	}

	ds, err := ingest.Load(flags.sources)
	if err != nil {
		return err
	}
	for _, code := range ds.UnknownCourses {
		logr.Warn("course list entry has no attendance", zap.String("course", code))
	}

	params := flags.params(cfg)
	timeLimit := cfg.Scheduler.TimeLimit
	if flags.timeLimit > 0 {
		timeLimit = flags.timeLimit
	}

	svc := service.NewExamSchedulerService(validator.New(), nil, nil, nil, nil, nil, service.ExamSchedulerConfig{
		Defaults:  params,
		TimeLimit: timeLimit,
		Workers:   1,
	}, logr)

	input := datasetInput(ds)
	resp, err := svc.Solve(ctx, dto.SolveRequest{
		Dataset: &input,
		Options: dto.SolveOptions{
			Shuffle: flags.shuffle,
			Seed:    flags.seed,
			Retries: flags.retries,
		},
	})
	if err != nil {
		return err
	}

	printResult(w, resp)
	if !resp.Success {
		return service.OutcomeError(resp.Outcome, resp.Message)
	}
	if flags.out == "" {
		return nil
	}

	detail := &dto.ExamScheduleDetail{
		Schedule: models.ExamSchedule{
			ID:          filepath.Base(flags.out),
			NumDays:     params.NumDays,
			SlotsPerDay: params.SlotsPerDay,
			SlotMinutes: params.SlotDurationMinutes,
			Fingerprint: resp.Fingerprint,
		},
		Assignments: resp.Assignments,
		Seats:       resp.Seats,
	}
	paths, err := writeExports(detail, flags.out, flags.format, logr)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintf(w, "wrote %s\n", p)
	}
	return nil
}

// writeExports renders both views of detail next to the output prefix.
func writeExports(detail *dto.ExamScheduleDetail, prefix, format string, logr *zap.Logger) ([]string, error) {
	store, err := storage.NewLocalStorage(filepath.Dir(prefix))
	if err != nil {
		return nil, err
	}
	exporter := service.NewExportService(store, nil, service.ExportConfig{}, logr, nil, nil)

	base := filepath.Base(prefix)
	var paths []string
	for _, view := range []string{service.ExportViewTimetable, service.ExportViewSeats} {
		file, err := exporter.Render(detail, dto.ExportQuery{Format: format, View: view})
		if err != nil {
			return nil, err
		}
		rel, err := store.Save(fmt.Sprintf("%s_%s.%s", base, view, format), file.Body)
		if err != nil {
			return nil, err
		}
		paths = append(paths, filepath.Join(store.Dir(), rel))
	}
	return paths, nil
}

func printResult(w io.Writer, resp *dto.SolveResponse) {
	fmt.Fprintf(w, "outcome: %s\n", resp.Outcome)
	if resp.Message != "" {
		fmt.Fprintf(w, "%s\n", resp.Message)
	}
	for _, reason := range resp.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
	st := resp.Stats
	fmt.Fprintf(w, "courses=%d classrooms=%d students=%d seats=%d density=%.3f iterations=%d elapsed=%dms\n",
		st.Courses, st.Classrooms, st.EnrolledStudents, st.TotalSeats, st.ConflictDensity, st.Iterations, st.ElapsedMs)
	if len(resp.Assignments) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tSLOTS\tCOURSE\tSTUDENTS\tROOMS")
	for _, a := range resp.Assignments {
		fmt.Fprintf(tw, "%d\t%d-%d\t%s\t%d\t%s\n", a.Day+1, a.StartSlot+1, a.StartSlot+a.SlotsNeeded, a.CourseCode, a.Enrollment, strings.Join(a.Rooms, ", "))
	}
	_ = tw.Flush()
}
