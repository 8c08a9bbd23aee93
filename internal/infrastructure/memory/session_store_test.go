package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/outbound-service/internal/application"
	"github.com/wms-platform/outbound-service/internal/domain"
)

func testSession(id string) *domain.DispatchSession {
	return domain.NewDispatchSession(id, 7, domain.PickList{
		ShipmentID: 100,
		Tasks: []domain.Task{
			{ID: 1, ShipmentID: 100, Status: domain.TaskStatusPending},
			{ID: 2, ShipmentID: 100, Status: domain.TaskStatusPending},
		},
	})
}

func TestSessionStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(0)

	require.NoError(t, store.Create(ctx, testSession("sess-1")))
	assert.Equal(t, 1, store.Len())

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.ID)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, application.ErrSessionNotFound)

	require.NoError(t, store.Delete(ctx, "sess-1"))
	assert.Equal(t, 0, store.Len())

	// Deleting twice is fine
	require.NoError(t, store.Delete(ctx, "sess-1"))
}

func TestSessionStoreUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(0)
	require.NoError(t, store.Create(ctx, testSession("sess-1")))

	updated, err := store.Update(ctx, "sess-1", func(s *domain.DispatchSession) error {
		return s.Select(1)
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, updated.SelectedIDs())

	// A failed mutation returns the error and no session
	_, err = store.Update(ctx, "sess-1", func(s *domain.DispatchSession) error {
		return s.Select(99)
	})
	assert.ErrorIs(t, err, domain.ErrTaskNotInList)

	_, err = store.Update(ctx, "missing", func(s *domain.DispatchSession) error { return nil })
	assert.ErrorIs(t, err, application.ErrSessionNotFound)
}

func TestSessionStoreConcurrentDispatchSerializes(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(0)

	session := testSession("sess-1")
	require.NoError(t, session.Select(1))
	require.NoError(t, store.Create(ctx, session))

	const attempts = 8
	results := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "sess-1", func(s *domain.DispatchSession) error {
				_, beginErr := s.BeginDispatch()
				return beginErr
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	// Exactly one goroutine wins the in-flight transition
	won := 0
	for err := range results {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, domain.ErrDispatchInFlight)
		}
	}
	assert.Equal(t, 1, won)
}

func TestSessionStoreGetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(0)
	require.NoError(t, store.Create(ctx, testSession("sess-1")))

	before, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, before.SelectedIDs())

	_, err = store.Update(ctx, "sess-1", func(s *domain.DispatchSession) error {
		return s.Select(1)
	})
	require.NoError(t, err)

	// The earlier snapshot is isolated from the mutation
	assert.Empty(t, before.SelectedIDs())
	assert.Equal(t, domain.SessionStateIdle, before.State())

	after, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, after.SelectedIDs())
}

func TestSessionStoreConcurrentReadsAndUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(0)
	require.NoError(t, store.Create(ctx, testSession("sess-1")))

	// A worker polling the session view while another request mutates the
	// selection must never observe a torn session.
	done := make(chan struct{})
	writerDone := make(chan struct{})
	var readers sync.WaitGroup

	go func() {
		defer close(writerDone)
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			taskID := int64(1 + i%2)
			_, err := store.Update(ctx, "sess-1", func(s *domain.DispatchSession) error {
				if s.IsSelected(taskID) {
					return s.Deselect(taskID)
				}
				return s.Select(taskID)
			})
			assert.NoError(t, err)
		}
	}()

	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for i := 0; i < 200; i++ {
				s, err := store.Get(ctx, "sess-1")
				assert.NoError(t, err)
				state := s.State()
				ids := s.SelectedIDs()
				if state == domain.SessionStateIdle {
					assert.Empty(t, ids)
				}
				for _, id := range ids {
					assert.True(t, s.IsSelected(id))
				}
			}
		}()
	}

	readers.Wait()
	close(done)
	<-writerDone
}

func TestSessionStorePurgeExpired(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Hour)

	require.NoError(t, store.Create(ctx, testSession("sess-1")))
	require.NoError(t, store.Create(ctx, testSession("sess-2")))

	assert.Equal(t, 0, store.PurgeExpired(time.Now()))
	assert.Equal(t, 2, store.Len())

	purged := store.PurgeExpired(time.Now().Add(2 * time.Hour))
	assert.Equal(t, 2, purged)
	assert.Equal(t, 0, store.Len())
}
