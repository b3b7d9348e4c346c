package server

import (
	"net/http"
	"time"

	"github.com/AustinSDK/Authincation-service/errors"
	"github.com/AustinSDK/Authincation-service/store"
)

type projectView struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Link         string    `json:"link,omitempty"`
	RequiredTags []string  `json:"required_tags"`
	CreatedAt    time.Time `json:"created_at"`
}

func viewProject(p *store.Project) projectView {
	tags := p.RequiredTags
	if tags == nil {
		tags = []string{}
	}
	return projectView{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Link:         p.Link,
		RequiredTags: tags,
		CreatedAt:    p.CreatedAt,
	}
}

type projectBody struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Link         string   `json:"link"`
	RequiredTags []string `json:"required_tags"`
}

func (s *Server) handleListProjects(r *http.Request) (any, error) {
	var tags []string
	if u := userFrom(r.Context()); u != nil {
		tags = u.Permissions
	}
	projects, err := s.projects.Visible(r.Context(), tags)
	if err != nil {
		return nil, err
	}
	views := make([]projectView, len(projects))
	for i := range projects {
		views[i] = viewProject(&projects[i])
	}
	return map[string]any{"projects": views}, nil
}

func (s *Server) handleCreateProject(r *http.Request) (any, error) {
	u, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	var body projectBody
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if body.Name == "" {
		return nil, errors.NewC("Project name is required", errors.InvalidArgument)
	}
	p := &store.Project{
		Name:         body.Name,
		Description:  body.Description,
		Link:         body.Link,
		RequiredTags: body.RequiredTags,
	}
	if err := s.projects.Create(r.Context(), p, u); err != nil {
		return nil, err
	}
	return created{viewProject(p)}, nil
}

func (s *Server) handleUpdateProject(r *http.Request) (any, error) {
	u, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	var body projectBody
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	p := &store.Project{
		ID:           id,
		Name:         body.Name,
		Description:  body.Description,
		Link:         body.Link,
		RequiredTags: body.RequiredTags,
	}
	if err := s.projects.Update(r.Context(), p, u); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NewC("Project not found", errors.NotFound)
		}
		return nil, err
	}
	return viewProject(p), nil
}

func (s *Server) handleDeleteProject(r *http.Request) (any, error) {
	u, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	if err := s.projects.Delete(r.Context(), id, u); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NewC("Project not found", errors.NotFound)
		}
		return nil, err
	}
	return messageResponse{Message: "Project deleted"}, nil
}
