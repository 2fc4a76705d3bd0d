package ingest

import (
	"io"
	"sort"

	"github.com/samber/lo"
)

// ReadStudents returns the sorted, unique student ids. Quoted list syntax is
// preferred; otherwise each non-header line is one id.
func ReadStudents(r io.Reader) ([]string, error) {
	text, err := readText(r)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, m := range quotedID.FindAllStringSubmatch(text, -1) {
		ids = append(ids, m[1])
	}
	if len(ids) == 0 {
		for _, line := range lines(text) {
			if !isHeader(line) {
				ids = append(ids, line)
			}
		}
	}
	ids = lo.Uniq(ids)
	sort.Strings(ids)
	return ids, nil
}
