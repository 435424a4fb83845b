package visibility

import (
	"context"
	"fmt"

	"github.com/existflow/secureplan/internal/model"
)

// Service resolves profiles against the stores and caches mutual projects.
type Service struct {
	projects model.ProjectStore
	friends  model.FriendStore
	privacy  model.PrivacyStore
	clock    model.Clock
	cache    *Cache
}

// NewService creates a Service. A nil clock uses the system clock.
func NewService(projects model.ProjectStore, friends model.FriendStore, privacy model.PrivacyStore, clock model.Clock) *Service {
	if clock == nil {
		clock = model.SystemClock{}
	}
	return &Service{
		projects: projects,
		friends:  friends,
		privacy:  privacy,
		clock:    clock,
		cache:    NewCache(DefaultCacheSize),
	}
}

// Profile resolves what viewer may see of subject.
func (s *Service) Profile(ctx context.Context, viewerID string, subject model.User) (Profile, error) {
	isFriend := false
	if viewerID != subject.ID {
		ok, err := s.friends.AreFriends(ctx, viewerID, subject.ID)
		if err != nil {
			return Profile{}, fmt.Errorf("check friendship: %w", err)
		}
		isFriend = ok
	}
	privacy, err := s.privacy.GetPrivacy(ctx, subject.ID)
	if err != nil {
		return Profile{}, fmt.Errorf("get privacy: %w", err)
	}

	in := ViewInput{
		ViewerID: viewerID,
		Subject:  subject,
		Privacy:  privacy,
		IsFriend: isFriend,
		Now:      s.clock.Now(),
	}
	p := Resolve(in)
	if !p.HistoryVisible {
		return p, nil
	}

	mutual, err := s.cache.Get(viewerID, subject.ID, func() ([]model.Project, error) {
		own, err := s.projects.ListProjectsFor(ctx, viewerID)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		return MutualProjects(own, subject.ID), nil
	})
	if err != nil {
		return Profile{}, err
	}
	p.MutualProjects = mutual
	return p, nil
}

// Unfriended drops cached views between the two users.
func (s *Service) Unfriended(a, b string) {
	s.cache.Invalidate(a, b)
}

// ProjectChanged drops cached views involving any member of p. Call it after a
// project is created, completed or deleted.
func (s *Service) ProjectChanged(p model.Project) {
	s.cache.InvalidateUsers(p.MemberIDs...)
}
