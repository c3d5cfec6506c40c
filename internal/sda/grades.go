package sda

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var gradePattern = regexp.MustCompile(`^SCIDIM_NA18E_OLA_G0([A-Z,0-9]+)U.+`)

// ExtractGrade pulls the grade out of an activity reference such as
// SCIDIM_NA18E_OLA_G0KU04L00_0019. References of any other shape carry no
// grade.
func ExtractGrade(activityReference string) (string, bool) {
	m := gradePattern.FindStringSubmatch(strings.TrimSpace(activityReference))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// GradeError reports an operator-requested grade the export does not have.
type GradeError struct {
	Grade     string
	Available []string
}

func (e *GradeError) Error() string {
	return fmt.Sprintf("there is no grade %s. Grades available: [%s]", e.Grade, strings.Join(e.Available, ", "))
}

// Grades maps test ids to the grade in their activity reference. Tests
// without a recognizable reference are absent.
type Grades struct {
	byTest map[string]string
}

func (g Grades) Grade(testID string) (string, bool) {
	grade, ok := g.byTest[testID]
	return grade, ok
}

// Available lists the distinct grades, sorted.
func (g Grades) Available() []string {
	var out []string
	for _, grade := range g.byTest {
		if !slices.Contains(out, grade) {
			out = append(out, grade)
		}
	}
	slices.Sort(out)
	return out
}

func (g Grades) Valid(grade string) bool {
	return slices.Contains(g.Available(), grade)
}

func (g Grades) Validate(grade string) error {
	if g.Valid(grade) {
		return nil
	}
	return &GradeError{Grade: grade, Available: g.Available()}
}

// TestIDs returns the sorted test ids belonging to grade.
func (g Grades) TestIDs(grade string) []string {
	var out []string
	for id, gr := range g.byTest {
		if gr == grade {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}
