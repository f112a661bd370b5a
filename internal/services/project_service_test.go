package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/wavtrack/internal/cache"
	"github.com/charlesng35/wavtrack/internal/database"
	"github.com/charlesng35/wavtrack/internal/localstore"
	"github.com/charlesng35/wavtrack/internal/models"
	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
)

func TestNewProjectServiceRequiresDependencies(t *testing.T) {
	_, err := NewProjectService(Deps{}, nil)
	require.Error(t, err)

	f := newFixture(t, true)
	deps := f.deps
	deps.Monitor = nil
	_, err = NewProjectService(deps, nil)
	require.Error(t, err)
}

func TestGetProjectsRequiresIdentity(t *testing.T) {
	projects, _ := newFixture(t, true).services(t)

	_, err := projects.GetProjects(context.Background())
	require.ErrorIs(t, err, appErrors.ErrUnauthenticated)

	_, _, err = projects.AddProject(context.Background(), CreateProjectInput{Title: "Nope"})
	require.ErrorIs(t, err, appErrors.ErrUnauthenticated)
}

func TestAddProjectOnlineWritesRemoteAndMirrors(t *testing.T) {
	f := newFixture(t, true)
	projects, _ := f.services(t)
	ctx := userCtx("u1")

	project, outcome, err := projects.AddProject(ctx, CreateProjectInput{Title: "  Night Drive ", Tags: []string{"synth", " synth", ""}})
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)
	require.Equal(t, "Night Drive", project.Title)
	require.Equal(t, models.StatusIdea, project.Status)
	require.Equal(t, models.DefaultBPM, project.BPM)
	require.Equal(t, models.DefaultKey, project.Key)
	require.Equal(t, []string{"synth"}, []string(project.Tags))
	require.Zero(t, project.CompletionPercentage)

	var remoteCount int64
	require.NoError(t, f.remote.Model(&models.Project{}).Count(&remoteCount).Error)
	require.EqualValues(t, 1, remoteCount)

	mirrored, err := localstore.ByID[models.Project](context.Background(), f.local, project.ID)
	require.NoError(t, err)
	require.Equal(t, "Night Drive", mirrored.Title)

	depth, err := f.local.Depth(context.Background())
	require.NoError(t, err)
	require.Zero(t, depth, "online writes do not queue")

	var profile models.Profile
	require.NoError(t, f.remote.First(&profile, "id = ?", "u1").Error)
	require.Equal(t, 1, profile.TotalProjects)
}

func TestAddProjectValidatesInput(t *testing.T) {
	projects, _ := newFixture(t, true).services(t)

	_, _, err := projects.AddProject(userCtx("u1"), CreateProjectInput{})
	require.ErrorIs(t, err, appErrors.ErrBadRequest)

	_, _, err = projects.AddProject(userCtx("u1"), CreateProjectInput{Title: "x", Status: "released"})
	require.ErrorIs(t, err, appErrors.ErrBadRequest)
}

func TestGetProjectsCachesAndInvalidates(t *testing.T) {
	f := newFixture(t, true)
	projects, _ := f.services(t)
	ctx := userCtx("u1")

	_, _, err := projects.AddProject(ctx, CreateProjectInput{Title: "First"})
	require.NoError(t, err)

	list, err := projects.GetProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, []string{cache.Key(PrefixProjects, "u1")}, f.cache.KeysByPrefix(PrefixProjects))

	require.NoError(t, f.remote.Create(&models.Project{
		OwnedModel: models.OwnedModel{BaseModel: models.BaseModel{ID: "sneaky"}, UserID: "u1"},
		Title:      "Written elsewhere",
		Status:     models.StatusIdea,
	}).Error)

	list, err = projects.GetProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "cached list is served until invalidated")

	_, _, err = projects.AddProject(ctx, CreateProjectInput{Title: "Second"})
	require.NoError(t, err)
	require.Empty(t, f.cache.KeysByPrefix(PrefixProjects))

	list, err = projects.GetProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
}

func TestGetProjectsOrdersByUpdatedAtAndScopesToUser(t *testing.T) {
	f := newFixture(t, true)
	projects, _ := f.services(t)

	for i, title := range []string{"old", "new"} {
		p := &models.Project{
			OwnedModel: models.OwnedModel{UserID: "u1"},
			Title:      title,
			Status:     models.StatusMixing,
		}
		p.Touch(wednesday.AddDate(0, 0, i))
		require.NoError(t, f.remote.Create(p).Error)
	}
	require.NoError(t, f.remote.Create(&models.Project{
		OwnedModel: models.OwnedModel{UserID: "u2"},
		Title:      "someone else",
	}).Error)

	list, err := projects.GetProjects(userCtx("u1"))
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "new", list[0].Title)
	require.Equal(t, 50, list[0].CompletionPercentage)
}

func TestGetProjectsOfflineServesLocalCopy(t *testing.T) {
	f := newFixture(t, true)
	projects, _ := f.services(t)
	ctx := userCtx("u1")

	_, _, err := projects.AddProject(ctx, CreateProjectInput{Title: "Mirrored"})
	require.NoError(t, err)

	f.monitor.SetOnline(false)
	f.cache.Clear()

	list, err := projects.GetProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Mirrored", list[0].Title)
	require.Empty(t, f.cache.KeysByPrefix(PrefixProjects), "local reads are not cached")
}

func TestGetProjectsFallsBackToLocalWhenRemoteFails(t *testing.T) {
	f := newFixture(t, true)
	projects, _ := f.services(t)
	ctx := userCtx("u1")

	_, _, err := projects.AddProject(ctx, CreateProjectInput{Title: "Kept"})
	require.NoError(t, err)

	require.NoError(t, database.Close(f.remote))

	list, err := projects.GetProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Kept", list[0].Title)
}

func TestOfflineMutationsQueueInOrder(t *testing.T) {
	f := newFixture(t, false)
	projects, _ := f.services(t)
	ctx := userCtx("u1")

	project, outcome, err := projects.AddProject(ctx, CreateProjectInput{Title: "Offline"})
	require.NoError(t, err)
	require.Equal(t, OutcomeQueued, outcome)

	updated, outcome, err := projects.UpdateProject(ctx, project.ID, UpdateProjectInput{Status: ptr("mastering")})
	require.NoError(t, err)
	require.Equal(t, OutcomeQueued, outcome)
	require.Equal(t, 75, updated.CompletionPercentage)

	outcome, err = projects.DeleteProject(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeQueued, outcome)

	pending, err := f.local.Pending(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.Equal(t, models.OpCreate, pending[0].Operation)
	require.Equal(t, models.OpUpdate, pending[1].Operation)
	require.Equal(t, models.OpDelete, pending[2].Operation)
	for _, entry := range pending {
		require.Equal(t, "u1", entry.UserID)
		require.Equal(t, project.ID, entry.RecordID)
	}

	var remoteCount int64
	require.NoError(t, f.remote.Model(&models.Project{}).Count(&remoteCount).Error)
	require.Zero(t, remoteCount)

	_, err = projects.GetProject(ctx, project.ID)
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUpdateProjectOnline(t *testing.T) {
	f := newFixture(t, true)
	projects, _ := f.services(t)
	ctx := userCtx("u1")

	project, _, err := projects.AddProject(ctx, CreateProjectInput{Title: "Draft", BPM: 90})
	require.NoError(t, err)

	_, err = projects.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, f.cache.KeysByPrefix(PrefixProject), 1)

	updated, outcome, err := projects.UpdateProject(ctx, project.ID, UpdateProjectInput{
		Title:  ptr("Final"),
		Status: ptr("completed"),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)
	require.Equal(t, 90, updated.BPM)
	require.Equal(t, 100, updated.CompletionPercentage)
	require.Empty(t, f.cache.KeysByPrefix(PrefixProject))

	fetched, err := projects.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, "Final", fetched.Title)

	_, _, err = projects.UpdateProject(userCtx("intruder"), project.ID, UpdateProjectInput{Title: ptr("Mine")})
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	var profile models.Profile
	require.NoError(t, f.remote.First(&profile, "id = ?", "u1").Error)
	require.Equal(t, 1, profile.CompletedProjects)
	require.Equal(t, 100, profile.CompletionRate)
}

func TestDeleteProjectOnlineCascades(t *testing.T) {
	f := newFixture(t, true)
	projects, _ := f.services(t)
	ctx := userCtx("u1")

	project, _, err := projects.AddProject(ctx, CreateProjectInput{Title: "Doomed"})
	require.NoError(t, err)
	require.NoError(t, f.remote.Create(&models.Note{
		OwnedModel: models.OwnedModel{UserID: "u1"},
		ProjectID:  project.ID,
		Content:    "hook idea",
	}).Error)

	outcome, err := projects.DeleteProject(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)

	var notes int64
	require.NoError(t, f.remote.Model(&models.Note{}).Where("project_id = ?", project.ID).Count(&notes).Error)
	require.Zero(t, notes)

	_, err = localstore.ByID[models.Project](context.Background(), f.local, project.ID)
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = projects.DeleteProject(ctx, project.ID)
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDeleteProjectDropsCachedProjectCollections(t *testing.T) {
	f := newFixture(t, true)
	projects, stats := f.services(t)
	sessions, err := NewSessionService(f.deps, stats)
	require.NoError(t, err)
	notes, err := NewNoteService(f.deps)
	require.NoError(t, err)
	samples, err := NewSampleService(f.deps)
	require.NoError(t, err)
	ctx := userCtx("u1")

	project, _, err := projects.AddProject(ctx, CreateProjectInput{Title: "Short lived"})
	require.NoError(t, err)
	_, _, err = sessions.Create(ctx, CreateSessionInput{ProjectID: project.ID, DurationMinutes: 30})
	require.NoError(t, err)
	_, _, err = notes.Create(ctx, CreateNoteInput{ProjectID: project.ID, Content: "double the hats"})
	require.NoError(t, err)
	_, _, err = samples.Create(ctx, CreateSampleInput{ProjectID: project.ID, Name: "kick.wav"})
	require.NoError(t, err)

	listedSessions, err := sessions.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, listedSessions, 1)
	listedNotes, err := notes.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, listedNotes, 1)
	listedSamples, err := samples.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, listedSamples, 1)

	_, err = projects.DeleteProject(ctx, project.ID)
	require.NoError(t, err)
	require.Empty(t, f.cache.KeysByPrefix(PrefixSessions))
	require.Empty(t, f.cache.KeysByPrefix(PrefixNotes))
	require.Empty(t, f.cache.KeysByPrefix(PrefixSamples))

	listedSessions, err = sessions.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Empty(t, listedSessions)
	listedNotes, err = notes.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Empty(t, listedNotes)
	listedSamples, err = samples.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Empty(t, listedSamples)
}
