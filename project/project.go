// Package project implements project visibility filtering and management.
// The full project list is cached as an in-process snapshot that every
// mutation invalidates, since the table is hot for reads and rarely changes.
package project

import (
	"context"
	"sync"

	"github.com/AustinSDK/Authincation-service/errors"
	"github.com/AustinSDK/Authincation-service/logging"
	"github.com/AustinSDK/Authincation-service/perm"
	"github.com/AustinSDK/Authincation-service/store"
)

var (
	// ErrEditorRequired is returned when a caller without the editor or
	// admin tag tries to manage projects.
	ErrEditorRequired = errors.NewC("You do not have permission to manage projects", errors.PermissionDenied)

	// ErrNameTaken is returned when creating a project under an existing
	// name.
	ErrNameTaken = errors.NewC("A project with this name already exists", errors.AlreadyExists).
			WithHTTPStatusCode(400)

	// ErrNameConflict is returned when renaming a project onto another
	// project's name.
	ErrNameConflict = errors.NewC("Another project with this name already exists", errors.AlreadyExists).
			WithHTTPStatusCode(400)
)

// Service owns the project list.
type Service struct {
	store store.Store

	mu       sync.RWMutex
	snapshot []store.Project
	loaded   bool
}

// NewService returns a project service backed by the given store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Visible returns the projects a caller holding userTags may see, in stored
// order. Anonymous callers pass an empty tag set and still see public
// projects.
func (s *Service) Visible(ctx context.Context, userTags []string) ([]store.Project, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]store.Project, 0, len(all))
	for _, p := range all {
		if perm.Allowed(userTags, p.RequiredTags) {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// Create adds a project. Requires the editor or admin tag.
func (s *Service) Create(ctx context.Context, p *store.Project, requester *store.User) error {
	if !perm.CanEdit(requester.Permissions) {
		return errors.Mark(ErrEditorRequired, 0)
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return errors.Mark(ErrNameTaken, 0)
		}
		return err
	}
	s.invalidate()
	logging.Infow(ctx, "project created", "projectID", p.ID, "name", p.Name)
	return nil
}

// Update replaces a project's fields. Requires the editor or admin tag. Name
// uniqueness excludes the project itself, so saving without renaming always
// succeeds.
func (s *Service) Update(ctx context.Context, p *store.Project, requester *store.User) error {
	if !perm.CanEdit(requester.Permissions) {
		return errors.Mark(ErrEditorRequired, 0)
	}
	if err := s.store.UpdateProject(ctx, p); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return errors.Mark(ErrNameConflict, 0)
		}
		return err
	}
	s.invalidate()
	logging.Infow(ctx, "project updated", "projectID", p.ID, "name", p.Name)
	return nil
}

// Delete removes a project by id. Requires the editor or admin tag. Deleting
// a missing project reports NotFound.
func (s *Service) Delete(ctx context.Context, id int64, requester *store.User) error {
	if !perm.CanEdit(requester.Permissions) {
		return errors.Mark(ErrEditorRequired, 0)
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	logging.Infow(ctx, "project deleted", "projectID", id)
	return nil
}

// Get returns a single project by id, bypassing the snapshot.
func (s *Service) Get(ctx context.Context, id int64) (*store.Project, error) {
	return s.store.ProjectByID(ctx, id)
}

func (s *Service) all(ctx context.Context) ([]store.Project, error) {
	s.mu.RLock()
	if s.loaded {
		snapshot := s.snapshot
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.snapshot = projects
	s.loaded = true
	s.mu.Unlock()
	return projects, nil
}

func (s *Service) invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.snapshot = nil
	s.mu.Unlock()
}
