package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
)

// ReadClassrooms parses "CODE;CAP", "CODE:CAP" or "CODE WORDS CAP" lines.
// Lines without a numeric capacity are ignored; a repeated code keeps the last capacity.
func ReadClassrooms(r io.Reader) ([]scheduler.Classroom, error) {
	text, err := readText(r)
	if err != nil {
		return nil, err
	}
	var rooms []scheduler.Classroom
	index := make(map[string]int)
	for _, line := range lines(text) {
		if isHeader(line) {
			continue
		}
		code, capacity, ok := classroomFields(line)
		if !ok {
			continue
		}
		n, ok := parsePositive(capacity)
		if !ok {
			continue
		}
		if i, seen := index[code]; seen {
			rooms[i].Capacity = n
			continue
		}
		index[code] = len(rooms)
		rooms = append(rooms, scheduler.Classroom{Code: code, Capacity: n})
	}
	return rooms, nil
}

func classroomFields(line string) (code, capacity string, ok bool) {
	if code, value, split := splitCodeValue(line); split {
		return code, value, code != ""
	}
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return "", "", false
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1], true
}

type classroomRecord struct {
	Code     string `csv:"code"`
	Capacity int    `csv:"capacity"`
}

// ReadClassroomsCSV reads a delimited file with "code" and "capacity" headers.
// Like ReadClassrooms, a repeated code keeps the last capacity.
func ReadClassroomsCSV(r io.Reader, delim rune) ([]scheduler.Classroom, error) {
	text, err := readText(r)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(bytes.NewBufferString(text))
	reader.Comma = delim
	reader.TrimLeadingSpace = true

	var records []classroomRecord
	if err := gocsv.UnmarshalCSV(reader, &records); err != nil {
		return nil, fmt.Errorf("parse classroom csv: %w", err)
	}
	rooms := make([]scheduler.Classroom, 0, len(records))
	index := make(map[string]int, len(records))
	for _, rec := range records {
		code := strings.TrimSpace(rec.Code)
		if code == "" || rec.Capacity <= 0 {
			continue
		}
		if i, seen := index[code]; seen {
			rooms[i].Capacity = rec.Capacity
			continue
		}
		index[code] = len(rooms)
		rooms = append(rooms, scheduler.Classroom{Code: code, Capacity: rec.Capacity})
	}
	return rooms, nil
}

// LoadClassrooms picks the reader from the file extension.
func LoadClassrooms(path string) ([]scheduler.Classroom, error) {
	var rooms []scheduler.Classroom
	err := openFile(path, func(r io.Reader) error {
		var err error
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			rooms, err = ReadClassroomsCSV(r, ';')
		} else {
			rooms, err = ReadClassrooms(r)
		}
		return err
	})
	return rooms, err
}
