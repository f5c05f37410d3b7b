package recognition

import (
	"strings"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/facematch"
)

// FilterStudents keeps students whose name contains query, ignoring case and
// diacritics, or whose ID or class starts with it.
func FilterStudents(students []database.Student, query string) []database.Student {
	query = strings.TrimSpace(query)
	if query == "" {
		return students
	}
	lower := strings.ToLower(query)

	var out []database.Student
	for _, st := range students {
		if facematch.NameContains(st.Name, query) ||
			strings.HasPrefix(strings.ToLower(st.StudentID), lower) ||
			strings.HasPrefix(strings.ToLower(st.Class), lower) {
			out = append(out, st)
		}
	}
	return out
}
