package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/secureplan/internal/model"
)

// DetailsUpdate carries the editable task fields. Nil fields are left unchanged.
type DetailsUpdate struct {
	Notes        *string
	DueDate      *time.Time
	ClearDueDate bool
	Links        *[]model.Link
}

func (u DetailsUpdate) empty() bool {
	return u.Notes == nil && u.DueDate == nil && !u.ClearDueDate && u.Links == nil
}

// UpdateDetails saves notes, due date and links in one step.
func (e *Engine) UpdateDetails(ctx context.Context, projectID, taskID string, actor model.Actor, upd DetailsUpdate) (Outcome, error) {
	return e.mutateTask(ctx, projectID, taskID, actor, model.ActivityUpdated, func(t *model.Task) (Outcome, string) {
		if upd.empty() {
			return OutcomeNoop, ""
		}
		if upd.Notes != nil {
			t.Notes = *upd.Notes
		}
		switch {
		case upd.ClearDueDate:
			t.DueDate = nil
		case upd.DueDate != nil:
			due := *upd.DueDate
			t.DueDate = &due
		}
		if upd.Links != nil {
			t.Links = normalizeLinks(*upd.Links)
		}
		return OutcomeApplied, fmt.Sprintf("updated details of '%s'", t.Title)
	})
}

// AddTag appends a tag to the end of the task's tag list.
func (e *Engine) AddTag(ctx context.Context, projectID, taskID string, actor model.Actor, tag string) (Outcome, error) {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	return e.mutateTask(ctx, projectID, taskID, actor, model.ActivityUpdated, func(t *model.Task) (Outcome, string) {
		if tag == "" {
			return OutcomeNoop, ""
		}
		t.Tags = append(t.Tags, tag)
		return OutcomeApplied, fmt.Sprintf("tagged '%s' with #%s", truncateLabel(t.Title), tag)
	})
}

// AddLink appends a link. An empty name falls back to model.DefaultLinkName.
func (e *Engine) AddLink(ctx context.Context, projectID, taskID string, actor model.Actor, link model.Link) (Outcome, error) {
	link = normalizeLink(link)
	return e.mutateTask(ctx, projectID, taskID, actor, model.ActivityUpdated, func(t *model.Task) (Outcome, string) {
		if link.URL == "" {
			return OutcomeNoop, ""
		}
		t.Links = append(t.Links, link)
		return OutcomeApplied, fmt.Sprintf("added link '%s' to '%s'", link.Name, truncateLabel(t.Title))
	})
}

// RemoveLink deletes the link at index.
func (e *Engine) RemoveLink(ctx context.Context, projectID, taskID string, actor model.Actor, index int) (Outcome, error) {
	return e.mutateTask(ctx, projectID, taskID, actor, model.ActivityUpdated, func(t *model.Task) (Outcome, string) {
		if index < 0 || index >= len(t.Links) {
			return OutcomeOutOfRange, ""
		}
		removed := t.Links[index]
		links := make([]model.Link, 0, len(t.Links)-1)
		links = append(links, t.Links[:index]...)
		t.Links = append(links, t.Links[index+1:]...)
		return OutcomeApplied, fmt.Sprintf("removed link '%s' from '%s'", removed.Name, truncateLabel(t.Title))
	})
}

func normalizeLink(l model.Link) model.Link {
	l.URL = strings.TrimSpace(l.URL)
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		l.Name = model.DefaultLinkName
	}
	return l
}

// normalizeLinks drops links without a URL.
func normalizeLinks(in []model.Link) []model.Link {
	out := make([]model.Link, 0, len(in))
	for _, l := range in {
		l = normalizeLink(l)
		if l.URL != "" {
			out = append(out, l)
		}
	}
	return out
}
