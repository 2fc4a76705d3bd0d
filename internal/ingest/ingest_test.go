package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
)

func TestReadClassroomsFormats(t *testing.T) {
	input := `ALL OF THE CLASSROOMS;CAPACITIES
# comment
M201;40
C203 50
Lab B 12 30
Z10:25
NOCAP
X1;abc
M201;45
`
	rooms, err := ReadClassrooms(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []scheduler.Classroom{
		{Code: "M201", Capacity: 45},
		{Code: "C203", Capacity: 50},
		{Code: "Lab B 12", Capacity: 30},
		{Code: "Z10", Capacity: 25},
	}, rooms)
}

func TestReadClassroomsCSV(t *testing.T) {
	input := "code;capacity\nM201; 40\nEMPTY;0\nC203;50\n"
	rooms, err := ReadClassroomsCSV(strings.NewReader(input), ';')
	require.NoError(t, err)
	assert.Equal(t, []scheduler.Classroom{{Code: "M201", Capacity: 40}, {Code: "C203", Capacity: 50}}, rooms)
}

func TestClassroomReadersAgreeOnRepeatedCodes(t *testing.T) {
	text, err := ReadClassrooms(strings.NewReader("R1;10\nR2;5\nR1;20\n"))
	require.NoError(t, err)
	csvRooms, err := ReadClassroomsCSV(strings.NewReader("code;capacity\nR1;10\nR2;5\nR1;20\n"), ';')
	require.NoError(t, err)

	want := []scheduler.Classroom{{Code: "R1", Capacity: 20}, {Code: "R2", Capacity: 5}}
	assert.Equal(t, want, text)
	assert.Equal(t, want, csvRooms)
}

func TestReadCourseList(t *testing.T) {
	input := "ALL OF THE COURSES\nSE 302\nMATH 101;90\nCS 210;soon\n"
	entries, err := ReadCourseList(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []CourseEntry{
		{Code: "SE 302"},
		{Code: "MATH 101", Duration: 90},
		{Code: "CS 210"},
	}, entries)
}

func TestReadAttendanceMergesRepeatedBlocks(t *testing.T) {
	input := `ALL OF THE COURSES
['orphan']
SE 302;120
['Std_1', 'Std_2']
['Std_2', "Std_3"]
MATH 101
['Std_4']
SE 302
['Std_5']
EMPTY
[]
`
	courses, err := ReadAttendance(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, courses, 2)

	se := courses[0]
	assert.Equal(t, "SE 302", se.Code)
	assert.Equal(t, []string{"Std_1", "Std_2", "Std_3", "Std_5"}, se.Students())
	assert.True(t, se.HasDuration)
	assert.Equal(t, 120, se.Duration)

	math := courses[1]
	assert.Equal(t, "MATH 101", math.Code)
	assert.False(t, math.HasDuration)
}

func TestApplyDurations(t *testing.T) {
	courses := []*scheduler.Course{scheduler.NewCourse("A", []string{"s1"}, 0)}
	unknown := ApplyDurations(courses, []CourseEntry{{Code: "A", Duration: 90}, {Code: "B", Duration: 60}})
	assert.Equal(t, 90, courses[0].Duration)
	assert.Equal(t, []CourseEntry{{Code: "B", Duration: 60}}, unknown)
}

func TestReadStudentsBothFormats(t *testing.T) {
	list, err := ReadStudents(strings.NewReader("ALL OF THE STUDENTS\n['b', 'a']\n['a']"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)

	plain, err := ReadStudents(strings.NewReader("ALL OF THE STUDENTS\n20210702\n20210701\n\n20210702\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"20210701", "20210702"}, plain)
}

func TestDecodeFallsBackToWindows1254(t *testing.T) {
	// 0xDD is "İ" in Windows-1254 and invalid as a lone UTF-8 byte.
	rooms, err := ReadClassrooms(bytes.NewReader([]byte("\xddZM1;10\n")))
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "İZM1", rooms[0].Code)
}

func TestLoadAndSummarize(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}
	src := Sources{
		Classrooms: write("rooms.csv", "code;capacity\nR1;10\nR2;5\n"),
		Attendance: write("attendance.txt", "A\n['s1','s2']\nB\n['s2','s9']\n"),
		Courses:    write("courses.txt", "A;90\nZ;60\n"),
		Students:   write("students.txt", "s1\ns2\ns3\n"),
	}

	ds, err := Load(src)
	require.NoError(t, err)
	assert.Len(t, ds.Classrooms, 2)
	require.Len(t, ds.Courses, 2)
	assert.Equal(t, 90, ds.Courses[0].Duration)
	assert.Equal(t, []string{"Z"}, ds.UnknownCourses)

	stats := Summarize(ds.Classrooms, ds.Courses, ds.Students)
	assert.Equal(t, Stats{
		Classrooms:           2,
		Courses:              2,
		EnrolledStudents:     3,
		ListedStudents:       3,
		StudentsWithoutExams: 1,
		UnlistedStudents:     1,
		TotalSeats:           15,
	}, stats)

	_, err = Load(Sources{Classrooms: src.Classrooms})
	assert.Error(t, err)
}
