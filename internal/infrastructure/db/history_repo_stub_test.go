package db

import (
	"context"
	"testing"

	"github.com/mangaexporter/backend/internal/domain"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRepoStubNewestFirst(t *testing.T) {
	repo := NewHistoryRepoStub(logger.Nop())
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &domain.ExportHistory{SessionID: id, Status: domain.ExportStatusCompleted}))
	}

	all, err := repo.GetAll(ctx, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c", all[0].SessionID)
	assert.Equal(t, "b", all[1].SessionID)
	assert.Equal(t, uint(3), all[0].ID)

	got, err := repo.GetBySessionID(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint(1), got.ID)

	missing, err := repo.GetBySessionID(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
