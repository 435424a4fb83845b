// Package visibility decides which profile fields a viewer may see.
package visibility

import (
	"time"

	"github.com/existflow/secureplan/internal/model"
)

// OnlineWindow is how recent a heartbeat must be to count as online.
const OnlineWindow = 5 * time.Minute

// CanSeeEmail reports whether the subject's email is visible to the viewer.
func CanSeeEmail(isSelf, isFriend bool, p model.PrivacySettings) bool {
	return isSelf || (isFriend && p.ShowEmail)
}

// CanSeeHistory reports whether the subject's project history is visible to the viewer.
func CanSeeHistory(isSelf, isFriend bool, p model.PrivacySettings) bool {
	return isSelf || (isFriend && p.ShowHistory)
}

// MutualProjects filters the viewer's own projects to those the subject is a member of.
// The subject's project list is never consulted.
func MutualProjects(viewerProjects []model.Project, subjectID string) []model.Project {
	out := make([]model.Project, 0)
	if subjectID == "" {
		return out
	}
	for _, p := range viewerProjects {
		if p.HasMember(subjectID) {
			out = append(out, p)
		}
	}
	return out
}

// Online reports whether lastSeen is within OnlineWindow of now.
func Online(lastSeen *time.Time, now time.Time) bool {
	return lastSeen != nil && now.Sub(*lastSeen) < OnlineWindow
}

// ViewInput is everything Resolve needs about one profile view.
type ViewInput struct {
	ViewerID       string
	Subject        model.User
	Privacy        model.PrivacySettings
	IsFriend       bool
	ViewerProjects []model.Project
	Now            time.Time
}

// Profile is the part of a user a particular viewer is allowed to see.
type Profile struct {
	ID             string          `json:"id"`
	DisplayName    string          `json:"display_name"`
	Email          string          `json:"email,omitempty"`
	Online         bool            `json:"online"`
	IsSelf         bool            `json:"is_self"`
	IsFriend       bool            `json:"is_friend"`
	EmailVisible   bool            `json:"email_visible"`
	HistoryVisible bool            `json:"history_visible"`
	MutualProjects []model.Project `json:"mutual_projects"`
}

// Resolve builds the profile view. Hidden history yields no mutual projects.
func Resolve(in ViewInput) Profile {
	isSelf := in.ViewerID != "" && in.ViewerID == in.Subject.ID
	p := Profile{
		ID:             in.Subject.ID,
		DisplayName:    in.Subject.DisplayName,
		Online:         Online(in.Subject.LastSeen, in.Now),
		IsSelf:         isSelf,
		IsFriend:       in.IsFriend,
		EmailVisible:   CanSeeEmail(isSelf, in.IsFriend, in.Privacy),
		HistoryVisible: CanSeeHistory(isSelf, in.IsFriend, in.Privacy),
		MutualProjects: []model.Project{},
	}
	if p.EmailVisible {
		p.Email = in.Subject.Email
	}
	if p.HistoryVisible {
		p.MutualProjects = MutualProjects(in.ViewerProjects, in.Subject.ID)
	}
	return p
}
