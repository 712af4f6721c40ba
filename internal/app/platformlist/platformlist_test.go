package platformlist_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tilegrab/internal/app/platformlist"
	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/platform"
)

func TestService_Run(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	svc, err := platformlist.NewService(platformlist.ServiceConfig{
		Registry: platform.NewRegistry(),
		Logger:   log.Noop,
	})
	require.NoError(err)

	platforms, err := svc.Run(context.Background(), platformlist.Request{})

	require.NoError(err)
	require.Len(platforms, 8)

	ids := make([]string, 0, len(platforms))
	for _, p := range platforms {
		ids = append(ids, p.ID)
		assert.NotEmpty(p.Name)
		assert.NotEmpty(p.Layers)
		assert.LessOrEqual(p.MinZoom, p.MaxZoom)
	}
	assert.Contains(ids, platform.Google)
	assert.Contains(ids, platform.OSM)
	assert.Contains(ids, platform.Baidu)
}

func TestNewServiceRequiresRegistry(t *testing.T) {
	_, err := platformlist.NewService(platformlist.ServiceConfig{})
	require.Error(t, err)
}
