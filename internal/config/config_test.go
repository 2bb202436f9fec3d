package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_RejectsOutOfRangeThreshold(t *testing.T) {
	cfg := Default()
	cfg.Search.DefaultThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsZeroMaxResults(t *testing.T) {
	cfg := Default()
	cfg.Search.DefaultMaxResults = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNegativeContextWindow(t *testing.T) {
	cfg := Default()
	cfg.Search.DefaultContextWindow = -1
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "quantum"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsEmptyModel(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Model = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNegativeCacheLockTimeout(t *testing.T) {
	cfg := Default()
	cfg.Embedding.CacheLockTimeoutSeconds = -1
	assert.Error(t, cfg.Validate())
}

func TestValidate_AcceptsZeroCacheLockTimeout(t *testing.T) {
	cfg := Default()
	cfg.Embedding.CacheLockTimeoutSeconds = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsMissingMemoryBoundWhenLimitEnforced(t *testing.T) {
	cfg := Default()
	cfg.Memory.Fraction = 0
	cfg.Memory.LimitMB = 0
	cfg.Memory.NoLimit = false
	assert.Error(t, cfg.Validate())
}

func TestValidate_AcceptsExplicitLimitMBWithoutFraction(t *testing.T) {
	cfg := Default()
	cfg.Memory.Fraction = 0
	cfg.Memory.LimitMB = 512
	assert.NoError(t, cfg.Validate())
}

func TestValidate_AcceptsNoLimitWithoutFractionOrLimit(t *testing.T) {
	cfg := Default()
	cfg.Memory.Fraction = 0
	cfg.Memory.LimitMB = 0
	cfg.Memory.NoLimit = true
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvOverrides_SetsMemoryLimitAndClearsNoLimit(t *testing.T) {
	t.Setenv("KIRO_RECALL_MEMORY_LIMIT_MB", "256")
	cfg := Default()
	cfg.Memory.NoLimit = true
	require.NoError(t, applyEnvOverrides(cfg))
	assert.Equal(t, 256, cfg.Memory.LimitMB)
	assert.False(t, cfg.Memory.NoLimit)
}

func TestApplyEnvOverrides_SetsNoMemoryLimit(t *testing.T) {
	t.Setenv("KIRO_RECALL_NO_MEMORY_LIMIT", "true")
	cfg := Default()
	require.NoError(t, applyEnvOverrides(cfg))
	assert.True(t, cfg.Memory.NoLimit)
}

func TestApplyEnvOverrides_RejectsMalformedLimit(t *testing.T) {
	t.Setenv("KIRO_RECALL_MEMORY_LIMIT_MB", "not-a-number")
	assert.Error(t, applyEnvOverrides(Default()))
}
