package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim("", ","))
	assert.Equal(t, []string{"alice", "bob"}, splitAndTrim(" alice, ,bob ", ","))
}

func TestLoadConfig(t *testing.T) {
	t.Run("命令行域名与配置文件合并", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "node.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"domains":["alice"]}`), 0o600))

		*configFile = path
		*domains = "alice,bob"
		t.Cleanup(func() { *configFile, *domains = "", "" })

		cfg, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, cfg.Domains)
	})

	t.Run("配置文件不存在", func(t *testing.T) {
		*configFile = filepath.Join(t.TempDir(), "missing.json")
		t.Cleanup(func() { *configFile = "" })

		_, err := loadConfig()
		assert.Error(t, err)
	})
}
