package ticket

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	parentIDPattern     = regexp.MustCompile(`^(.+)-(\d{4})$`)
	childIDPattern      = regexp.MustCompile(`^(.+-\d{4})-(\d{2})$`)
	grandchildIDPattern = regexp.MustCompile(`^(.+-\d{4}-\d{2})-(\d{2})$`)
	trailingSeqPattern  = regexp.MustCompile(`-\d+$`)
)

// Level identifies which tier of the hierarchy an id belongs to.
type Level int

// Hierarchy levels
const (
	LevelUnknown Level = iota
	LevelParent
	LevelChild
	LevelGrandchild
)

// GenerateParentID builds the id of the next parent ticket of a project.
// The format is {projectId}-NNNN, NNNN being currentMax+1 zero-padded.
func GenerateParentID(projectID string, currentMax int) string {
	return fmt.Sprintf("%s-%04d", projectID, currentMax+1)
}

// GenerateChildID builds the id of the next child under parentID.
func GenerateChildID(parentID string, existing int) string {
	return fmt.Sprintf("%s-%02d", parentID, existing+1)
}

// GenerateGrandchildID builds the id of the next grandchild under childID.
func GenerateGrandchildID(childID string, existing int) string {
	return fmt.Sprintf("%s-%02d", childID, existing+1)
}

// ParseParentSequence extracts the numeric suffix of a parent id belonging
// to projectID. Returns -1 if the id does not match.
func ParseParentSequence(projectID, id string) int {
	m := parentIDPattern.FindStringSubmatch(id)
	if m == nil || m[1] != projectID {
		return -1
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return -1
	}
	return n
}

// NextParentSequenceBase returns the highest sequence used by the given
// parent ids of projectID (0 when none), so that the next id is base+1.
func NextParentSequenceBase(projectID string, ids []string) int {
	max := 0
	for _, id := range ids {
		if n := ParseParentSequence(projectID, id); n > max {
			max = n
		}
	}
	return max
}

// ClassifyID works out which level an id belongs to and the project it
// lives in. Project ids that themselves end in -NNNN are ambiguous; the
// caller resolves those through its loaded index first.
func ClassifyID(id string) (Level, string) {
	if m := grandchildIDPattern.FindStringSubmatch(id); m != nil {
		if pm := childIDPattern.FindStringSubmatch(m[1]); pm != nil {
			if pp := parentIDPattern.FindStringSubmatch(pm[1]); pp != nil {
				return LevelGrandchild, pp[1]
			}
		}
	}
	if m := childIDPattern.FindStringSubmatch(id); m != nil {
		if pp := parentIDPattern.FindStringSubmatch(m[1]); pp != nil {
			return LevelChild, pp[1]
		}
	}
	if m := parentIDPattern.FindStringSubmatch(id); m != nil {
		return LevelParent, m[1]
	}
	return LevelUnknown, ""
}

// NormalizeProjectName strips a trailing -<digits> suffix, so that
// "shop-12" and "shop" resolve to the same ticket file.
func NormalizeProjectName(projectID string) string {
	return trailingSeqPattern.ReplaceAllString(projectID, "")
}
