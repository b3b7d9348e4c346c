package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AustinSDK/Authincation-service/errors"
	"github.com/AustinSDK/Authincation-service/store"
	"github.com/AustinSDK/Authincation-service/store/memstore"
)

var (
	editor = &store.User{ID: 1, Username: "editor", Permissions: []string{"editor"}}
	admin  = &store.User{ID: 2, Username: "admin", Permissions: []string{"admin"}}
	viewer = &store.User{ID: 3, Username: "viewer", Permissions: []string{"beta"}}
)

func seed(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := memstore.New()
	svc := NewService(st)
	ctx := t.Context()

	projects := []*store.Project{
		{Name: "Public Site", Description: "open to everyone"},
		{Name: "Beta Tools", RequiredTags: []string{"beta"}},
		{Name: "Internal Dash", RequiredTags: []string{"staff", "beta"}},
	}
	for _, p := range projects {
		require.NoError(t, svc.Create(ctx, p, editor))
	}
	return svc, st
}

func names(projects []store.Project) []string {
	out := make([]string, len(projects))
	for i, p := range projects {
		out[i] = p.Name
	}
	return out
}

func TestVisible(t *testing.T) {
	svc, _ := seed(t)
	ctx := t.Context()

	tests := []struct {
		name string
		tags []string
		want []string
	}{
		{"anonymous sees public only", nil, []string{"Public Site"}},
		{"single tag", []string{"beta"}, []string{"Public Site", "Beta Tools"}},
		{"all tags required", []string{"beta", "staff"}, []string{"Public Site", "Beta Tools", "Internal Dash"}},
		{"partial match excluded", []string{"staff"}, []string{"Public Site"}},
		{"admin sees everything", []string{"admin"}, []string{"Public Site", "Beta Tools", "Internal Dash"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Visible(ctx, tt.tags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestCreateRequiresEditor(t *testing.T) {
	svc, _ := seed(t)
	ctx := t.Context()

	err := svc.Create(ctx, &store.Project{Name: "Nope"}, viewer)
	assert.ErrorIs(t, err, ErrEditorRequired)

	require.NoError(t, svc.Create(ctx, &store.Project{Name: "By Admin"}, admin))
}

func TestCreateNameConflict(t *testing.T) {
	svc, _ := seed(t)

	err := svc.Create(t.Context(), &store.Project{Name: "Public Site"}, editor)
	assert.ErrorIs(t, err, ErrNameTaken)
	assert.Equal(t, 400, errors.HTTPStatusCode(err))
}

func TestUpdate(t *testing.T) {
	svc, _ := seed(t)
	ctx := t.Context()

	got, err := svc.Visible(ctx, []string{"admin"})
	require.NoError(t, err)
	p := got[1]

	// Saving without renaming must not trip the uniqueness check.
	p.Description = "updated"
	require.NoError(t, svc.Update(ctx, &p, editor))

	p.Name = "Public Site"
	err = svc.Update(ctx, &p, editor)
	assert.ErrorIs(t, err, ErrNameConflict)

	err = svc.Update(ctx, &p, viewer)
	assert.ErrorIs(t, err, ErrEditorRequired)

	missing := store.Project{ID: 9999, Name: "Ghost"}
	err = svc.Update(ctx, &missing, editor)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDelete(t *testing.T) {
	svc, _ := seed(t)
	ctx := t.Context()

	got, err := svc.Visible(ctx, []string{"admin"})
	require.NoError(t, err)

	err = svc.Delete(ctx, got[0].ID, viewer)
	assert.ErrorIs(t, err, ErrEditorRequired)

	require.NoError(t, svc.Delete(ctx, got[0].ID, admin))

	err = svc.Delete(ctx, got[0].ID, admin)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

// Mutations through the service must be reflected in subsequent reads, not
// served from a stale snapshot.
func TestSnapshotInvalidation(t *testing.T) {
	svc, _ := seed(t)
	ctx := t.Context()

	before, err := svc.Visible(ctx, nil)
	require.NoError(t, err)
	require.Len(t, before, 1)

	require.NoError(t, svc.Create(ctx, &store.Project{Name: "Another Public"}, editor))

	after, err := svc.Visible(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Public Site", "Another Public"}, names(after))
}
