package minio

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	fails int
	calls int
	key   string
	data  []byte
}

func (f *fakeStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.calls++
	if f.calls <= f.fails {
		return "", errors.New("unavailable")
	}
	f.key = key
	f.data = data
	return key, nil
}

func newTestArchive(store ObjectStore, retries int) *ArchiveInfrastructure {
	a := NewArchiveInfrastructure(store, retries, time.UTC, logger.NewNop())
	a.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	a.newID = func() string { return "fixed" }
	return a
}

func TestArchiveSales_WritesDocument(t *testing.T) {
	store := &fakeStore{}
	a := newTestArchive(store, 3)

	key, err := a.ArchiveSales(context.Background(), usecase.NewArchiveSalesReq("dedupe", []*domain.Sale{
		{ID: "s1", RealizedPrice: 1500, Origin: domain.OriginBoutique},
		{ID: "s2", RealizedPrice: 1500, Origin: domain.OriginImportedSpreadsheet},
	}))
	require.NoError(t, err)
	assert.Equal(t, "sales/dedupe/2026-03-14/fixed.json", key)

	var doc ArchiveDocument
	require.NoError(t, json.Unmarshal(store.data, &doc))
	assert.Equal(t, "dedupe", doc.Reason)
	assert.Equal(t, 2, doc.Count)
	require.Len(t, doc.Sales, 2)
	assert.Equal(t, "s1", doc.Sales[0].ID)
}

func TestArchiveSales_RetriesThenSucceeds(t *testing.T) {
	store := &fakeStore{fails: 1}
	a := newTestArchive(store, 3)

	key, err := a.ArchiveSales(context.Background(), usecase.NewArchiveSalesReq("delete", nil))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "sales/delete/"))
	assert.Equal(t, 2, store.calls)
}

func TestArchiveSales_FailsClosed(t *testing.T) {
	store := &fakeStore{fails: 10}
	a := newTestArchive(store, 2)

	_, err := a.ArchiveSales(context.Background(), usecase.NewArchiveSalesReq("delete", nil))
	require.Error(t, err)
	assert.Equal(t, 2, store.calls)
}
