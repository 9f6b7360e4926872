package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/pubenrich/internal/extract"
	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/resilience"
)

// --- Enricher Mock ---

type mockEnricher struct {
	mock.Mock
}

func (m *mockEnricher) Enrich(ctx context.Context, pub model.Publication) (*extract.Result, error) {
	args := m.Called(ctx, pub.URL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extract.Result), args.Error(1)
}

// --- Checkpoint Store Mock ---

type mockStore struct {
	mock.Mock
	snapshots map[int][]model.Publication
	runIDs    []string
}

func (m *mockStore) Save(ctx context.Context, runID string, processed int, pubs []model.Publication) (string, error) {
	if m.snapshots == nil {
		m.snapshots = map[int][]model.Publication{}
	}
	m.runIDs = append(m.runIDs, runID)
	m.snapshots[processed] = append([]model.Publication(nil), pubs...)
	args := m.Called(ctx, processed)
	return args.String(0), args.Error(1)
}

func (m *mockStore) SaveFailures(ctx context.Context, runID string, failures []resilience.Failure) (string, error) {
	args := m.Called(ctx, runID, len(failures))
	return args.String(0), args.Error(1)
}
