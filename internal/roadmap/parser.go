// Package roadmap turns a free-text operational plan into task records.
package roadmap

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/existflow/secureplan/internal/model"
)

const (
	commentPrefix = "//"
	minLineLength = 3
)

var (
	highPriorityRe = regexp.MustCompile(`(?i)\((high|yüksek|acil)\)`)
	lowPriorityRe  = regexp.MustCompile(`(?i)\((low|düşük)\)`)
	hashtagRe      = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	bulletRe       = regexp.MustCompile(`^[-*•0-9.]+\s*`)
)

// Parse converts roadmap text into tasks, one per usable line, in input order.
// It never fails: malformed lines degrade or are dropped.
func Parse(text string, roster []model.TeamMember) []model.Task {
	return ParseAt(text, roster, time.Now())
}

// ParseAt is Parse with an explicit creation timestamp.
func ParseAt(text string, roster []model.TeamMember, now time.Time) []model.Task {
	var tasks []model.Task
	for _, raw := range strings.Split(text, "\n") {
		task, ok := parseLine(raw, roster, now)
		if ok {
			task.Position = len(tasks)
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func parseLine(raw string, roster []model.TeamMember, now time.Time) (model.Task, bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, commentPrefix) || utf8.RuneCountInString(line) < minLineLength {
		return model.Task{}, false
	}

	assignee, line := resolveAssignee(line, roster)
	priority, line := resolvePriority(line)
	tags, line := extractTags(line)

	title := strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
	if title == "" {
		return model.Task{}, false
	}

	task := model.NewTask(title, assignee, now)
	task.Priority = priority
	task.Tags = tags
	return task, true
}

// resolveAssignee binds the first roster member mentioned on the line.
// Without a mention the first roster member is the default assignee.
func resolveAssignee(line string, roster []model.TeamMember) (model.TeamMember, string) {
	lower := strings.ToLower(line)
	for _, m := range roster {
		if m.DisplayName == "" {
			continue
		}
		mention := "@" + m.DisplayName
		if !strings.Contains(lower, strings.ToLower(mention)) {
			continue
		}
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(mention))
		return m, re.ReplaceAllString(line, "")
	}
	if len(roster) > 0 {
		return roster[0], line
	}
	return model.TeamMember{}, line
}

// resolvePriority honors the first priority marker only, high before low.
func resolvePriority(line string) (model.Priority, string) {
	if loc := highPriorityRe.FindStringIndex(line); loc != nil {
		return model.PriorityHigh, line[:loc[0]] + line[loc[1]:]
	}
	if loc := lowPriorityRe.FindStringIndex(line); loc != nil {
		return model.PriorityLow, line[:loc[0]] + line[loc[1]:]
	}
	return model.PriorityMedium, line
}

// extractTags collects hashtags left to right. Duplicates are kept.
func extractTags(line string) ([]string, string) {
	tags := []string{}
	for _, m := range hashtagRe.FindAllString(line, -1) {
		tags = append(tags, strings.TrimPrefix(m, "#"))
	}
	return tags, hashtagRe.ReplaceAllString(line, "")
}
