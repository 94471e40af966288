package main_test

import (
	"testing"
	"time"

	"github.com/fwojciec/dumpit"
	main "github.com/fwojciec/dumpit/cmd/dumpit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeout_UnmarshalText(t *testing.T) {
	t.Parallel()

	t.Run("accepts bare seconds", func(t *testing.T) {
		t.Parallel()

		var timeout main.Timeout
		require.NoError(t, timeout.UnmarshalText([]byte("30")))
		assert.Equal(t, 30*time.Second, time.Duration(timeout))
	})

	t.Run("accepts fractional seconds", func(t *testing.T) {
		t.Parallel()

		var timeout main.Timeout
		require.NoError(t, timeout.UnmarshalText([]byte("0.5")))
		assert.Equal(t, 500*time.Millisecond, time.Duration(timeout))
	})

	t.Run("accepts a duration", func(t *testing.T) {
		t.Parallel()

		var timeout main.Timeout
		require.NoError(t, timeout.UnmarshalText([]byte("1m30s")))
		assert.Equal(t, 90*time.Second, time.Duration(timeout))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		t.Parallel()

		var timeout main.Timeout
		err := timeout.UnmarshalText([]byte("soon"))
		require.Error(t, err)
		assert.Equal(t, dumpit.EINVALID, dumpit.ErrorCode(err))
	})
}

func TestCLI_Config(t *testing.T) {
	t.Parallel()

	cli := &main.CLI{
		URL:         "https://example.com",
		Concurrency: 4,
		Timeout:     main.Timeout(5 * time.Second),
		Output:      "out/result.json",
		MaxDepth:    1,
		MaxPages:    20,
	}

	cfg := cli.Config()

	assert.Equal(t, "https://example.com", cfg.Seed)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "out/result.json", cfg.Output)
	assert.Equal(t, 1, cfg.MaxDepth)
	assert.Equal(t, 20, cfg.MaxPages)
	assert.Equal(t, dumpit.DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, int64(dumpit.DefaultMaxBodyBytes), cfg.MaxBodyBytes)
}
