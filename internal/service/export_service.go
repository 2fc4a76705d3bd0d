package service

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
	"github.com/noah-isme/exam-scheduler-api/pkg/export"
	"github.com/noah-isme/exam-scheduler-api/pkg/storage"
)

const (
	ExportFormatCSV     = "csv"
	ExportFormatPDF     = "pdf"
	ExportViewTimetable = "timetable"
	ExportViewSeats     = "seats"
)

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(rows interface{}) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	// ResultTTL is how long published files are kept on disk.
	ResultTTL time.Duration
}

// ExportFile is a rendered schedule ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportLink points at a published export.
type ExportLink struct {
	Path      string    `json:"path"`
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// timetableRow is one exam in the timetable view. Days and slots are 1-based.
type timetableRow struct {
	Day        int    `csv:"Day"`
	StartSlot  int    `csv:"Start Slot"`
	EndSlot    int    `csv:"End Slot"`
	Course     string `csv:"Course"`
	Enrollment int    `csv:"Students"`
	Rooms      string `csv:"Rooms"`
}

// seatRow places one student for one exam.
type seatRow struct {
	Student   string `csv:"Student"`
	Course    string `csv:"Course"`
	Room      string `csv:"Room"`
	Day       int    `csv:"Day"`
	StartSlot int    `csv:"Start Slot"`
}

// ExportService renders schedules as CSV or PDF and publishes them behind
// signed download links.
type ExportService struct {
	storage fileStorage
	signer  *storage.SignedURLSigner
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService. storage and signer may be nil
// when only direct rendering is needed.
func NewExportService(store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter(',')
	}
	if pdf == nil {
		pdf = export.NewPDFExporter(true)
	}
	return &ExportService{
		storage: store,
		signer:  signer,
		csv:     csv,
		pdf:     pdf,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Render produces the requested view of detail.
func (s *ExportService) Render(detail *dto.ExamScheduleDetail, query dto.ExportQuery) (*ExportFile, error) {
	if detail == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	format, view := normaliseExportQuery(query)

	var (
		rows  interface{}
		title string
	)
	switch view {
	case ExportViewTimetable:
		rows = timetableRows(detail.Assignments)
		title = "Exam Timetable"
	case ExportViewSeats:
		rows = seatRows(detail)
		title = "Exam Seating"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export view %s", view))
	}

	file := &ExportFile{Filename: exportFilename(detail.Schedule.ID, view, format)}
	var err error
	switch format {
	case ExportFormatCSV:
		file.ContentType = "text/csv"
		file.Body, err = s.csv.Render(rows)
	case ExportFormatPDF:
		var table export.Table
		table, err = export.TableOf(title, rows)
		if err == nil {
			table.Subtitle = exportSubtitle(detail)
			file.ContentType = "application/pdf"
			file.Body, err = s.pdf.Render(table)
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %s", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render export")
	}
	return file, nil
}

// Publish renders detail, stores the file and returns a signed download link.
func (s *ExportService) Publish(detail *dto.ExamScheduleDetail, query dto.ExportQuery) (*ExportLink, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "export storage is disabled")
	}
	file, err := s.Render(detail, query)
	if err != nil {
		return nil, err
	}
	owner := sanitizeFilename(detail.Schedule.ID)
	name := fmt.Sprintf("%s/%s_%s", owner, s.now().UTC().Format("20060102_150405"), file.Filename)
	relPath, err := s.storage.Save(name, file.Body)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(owner, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	format, _ := normaliseExportQuery(query)
	s.logger.Info("exam export published", zap.String("path", relPath), zap.Time("expires_at", expiresAt))
	return &ExportLink{
		Path:      relPath,
		Token:     token,
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:    format,
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a download token and returns the stored file with its name.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	if s.storage == nil || s.signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrPreconditionFailed, "export storage is disabled")
	}
	link, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Wrap(err, "EXPORT_EXPIRED", 410, "download link expired")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download link")
	}
	file, err := s.storage.Open(link.Path)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}
	name := link.Path
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return file, name, nil
}

// Cleanup removes published files older than ttl, or the configured TTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// ContentTypeFor maps a stored file name to its content type.
func ContentTypeFor(name string) string {
	if strings.HasSuffix(name, "."+ExportFormatPDF) {
		return "application/pdf"
	}
	return "text/csv"
}

func normaliseExportQuery(query dto.ExportQuery) (string, string) {
	format := strings.ToLower(query.Format)
	if format == "" {
		format = ExportFormatCSV
	}
	view := strings.ToLower(query.View)
	if view == "" {
		view = ExportViewTimetable
	}
	return format, view
}

func timetableRows(assignments []dto.ExamAssignmentView) []timetableRow {
	views := append([]dto.ExamAssignmentView(nil), assignments...)
	sortAssignmentViews(views)
	rows := make([]timetableRow, 0, len(views))
	for _, a := range views {
		rows = append(rows, timetableRow{
			Day:        a.Day + 1,
			StartSlot:  a.StartSlot + 1,
			EndSlot:    a.StartSlot + a.SlotsNeeded,
			Course:     a.CourseCode,
			Enrollment: a.Enrollment,
			Rooms:      strings.Join(a.Rooms, ", "),
		})
	}
	return rows
}

func seatRows(detail *dto.ExamScheduleDetail) []seatRow {
	placed := make(map[string]dto.ExamAssignmentView, len(detail.Assignments))
	for _, a := range detail.Assignments {
		placed[a.CourseCode] = a
	}
	rows := make([]seatRow, 0, len(detail.Seats))
	for _, seat := range detail.Seats {
		a := placed[seat.CourseCode]
		rows = append(rows, seatRow{
			Student:   seat.StudentID,
			Course:    seat.CourseCode,
			Room:      seat.RoomCode,
			Day:       a.Day + 1,
			StartSlot: a.StartSlot + 1,
		})
	}
	return rows
}

func exportSubtitle(detail *dto.ExamScheduleDetail) string {
	sc := detail.Schedule
	if sc.NumDays == 0 {
		return fmt.Sprintf("%d exams", len(detail.Assignments))
	}
	return fmt.Sprintf("%d exams over %d days, %d slots of %d minutes per day",
		len(detail.Assignments), sc.NumDays, sc.SlotsPerDay, sc.SlotMinutes)
}

func exportFilename(id, view, format string) string {
	return fmt.Sprintf("exam_%s_%s.%s", view, sanitizeFilename(id), format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "schedule"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", ".", "-")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
