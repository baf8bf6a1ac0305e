// ABOUTME: Tests for the integration registry
// ABOUTME: Covers full-replace refresh, delete-then-drop removal, and store write-through
package registry

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/textback/models"
)

type fakeSource struct {
	lists     [][]models.CalendarIntegration
	listCalls int
	listErr   error
	deleteErr error
	deleted   []string
}

func (f *fakeSource) ListIntegrations(_ context.Context) ([]models.CalendarIntegration, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	idx := f.listCalls - 1
	if idx >= len(f.lists) {
		idx = len(f.lists) - 1
	}
	return f.lists[idx], nil
}

func (f *fakeSource) DeleteIntegration(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeStore struct {
	replaced [][]models.CalendarIntegration
	deleted  []string
	err      error
}

func (f *fakeStore) ReplaceIntegrations(_ context.Context, list []models.CalendarIntegration) error {
	if f.err != nil {
		return f.err
	}
	f.replaced = append(f.replaced, list)
	return nil
}

func (f *fakeStore) DeleteIntegration(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func integration(id string, provider models.Provider) models.CalendarIntegration {
	return models.CalendarIntegration{ID: id, Provider: provider, SyncDirection: models.SyncDirectionTwoWay}
}

func TestRefreshReplacesList(t *testing.T) {
	source := &fakeSource{lists: [][]models.CalendarIntegration{
		{integration("a", models.ProviderGoogle), integration("b", models.ProviderOutlook)},
		{integration("c", models.ProviderCalendly)},
	}}
	store := &fakeStore{}
	reg := New(source, store, quietLogger())

	require.NoError(t, reg.Refresh(context.Background()))
	assert.Len(t, reg.Integrations(), 2)
	assert.False(t, reg.RefreshedAt().IsZero())

	require.NoError(t, reg.Refresh(context.Background()))
	list := reg.Integrations()
	require.Len(t, list, 1, "refresh should replace, not merge")
	assert.Equal(t, "c", list[0].ID)
	assert.Len(t, store.replaced, 2)
}

func TestRefreshErrorKeepsCache(t *testing.T) {
	source := &fakeSource{lists: [][]models.CalendarIntegration{{integration("a", models.ProviderGoogle)}}}
	reg := New(source, nil, quietLogger())
	require.NoError(t, reg.Refresh(context.Background()))

	source.listErr = errors.New("offline")
	assert.Error(t, reg.Refresh(context.Background()))
	assert.Len(t, reg.Integrations(), 1)
}

func TestRemoveDropsEntryAfterDelete(t *testing.T) {
	source := &fakeSource{lists: [][]models.CalendarIntegration{
		{integration("X", models.ProviderGoogle), integration("Y", models.ProviderOutlook)},
	}}
	store := &fakeStore{}
	reg := New(source, store, quietLogger())
	require.NoError(t, reg.Refresh(context.Background()))

	require.NoError(t, reg.Remove(context.Background(), "X"))

	assert.Equal(t, []string{"X"}, source.deleted)
	assert.Equal(t, []string{"X"}, store.deleted)
	_, found := reg.Find("X")
	assert.False(t, found, "X should be absent right after the delete resolves")
	_, found = reg.Find("Y")
	assert.True(t, found)
	assert.Equal(t, 1, source.listCalls, "remove should not refetch")
}

func TestRemoveFailureLeavesCache(t *testing.T) {
	source := &fakeSource{lists: [][]models.CalendarIntegration{{integration("X", models.ProviderGoogle)}}}
	reg := New(source, nil, quietLogger())
	require.NoError(t, reg.Refresh(context.Background()))

	source.deleteErr = errors.New("forbidden")
	assert.Error(t, reg.Remove(context.Background(), "X"))
	_, found := reg.Find("X")
	assert.True(t, found)
}

func TestRemoveRequiresID(t *testing.T) {
	reg := New(&fakeSource{}, nil, quietLogger())
	assert.Error(t, reg.Remove(context.Background(), ""))
}

func TestIntegrationsReturnsCopy(t *testing.T) {
	reg := New(&fakeSource{}, nil, quietLogger())
	reg.Seed([]models.CalendarIntegration{integration("a", models.ProviderGoogle)})

	list := reg.Integrations()
	list[0].ID = "mutated"

	got, found := reg.Find("a")
	assert.True(t, found)
	assert.Equal(t, "a", got.ID)
}

func TestCacheWriteFailureDoesNotFailRefresh(t *testing.T) {
	source := &fakeSource{lists: [][]models.CalendarIntegration{
		{integration("a", models.ProviderGoogle)},
	}}
	store := &fakeStore{err: errors.New("database is locked")}
	reg := New(source, store, quietLogger())

	require.NoError(t, reg.Refresh(context.Background()))
	require.Len(t, reg.Integrations(), 1)
	assert.Equal(t, "a", reg.Integrations()[0].ID)

	require.NoError(t, reg.Remove(context.Background(), "a"))
	assert.Empty(t, reg.Integrations())
	assert.Equal(t, []string{"a"}, source.deleted)
}
