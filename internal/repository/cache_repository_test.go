package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "lp", nil)
	ctx := context.Background()

	var dest map[string]string
	err := repo.Get(ctx, "biz:overview", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(ctx, "biz:overview", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "biz:*"))
	assert.NoError(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryNamespacesKeys(t *testing.T) {
	assert.Equal(t, "lp:biz:overview", NewCacheRepository(nil, "lp", nil).key("biz:overview"))
	assert.Equal(t, "biz:overview", NewCacheRepository(nil, "", nil).key("biz:overview"))
}
