// Copyright 2025 Veritrust Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func resetGlobalConfig() {
	globalConfig = &Config{
		DataDir:         ".veritrust",
		BindAddr:        "0.0.0.0",
		ApiPort:         8080,
		MetricsPort:     12798,
		VotingPeriod:    86400,
		MinVotes:        3,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	resetGlobalConfig()
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, uint(8080), cfg.ApiPort)
	require.Equal(t, uint64(86400), cfg.VotingPeriod)
	require.Equal(t, uint64(3), cfg.MinVotes)
	require.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
}

func TestLoadConfigFile(t *testing.T) {
	resetGlobalConfig()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "veritrust.yaml")
	configData := `
dataDir: /tmp/veritrust-test
owner: "0xowner"
apiPort: 9090
votingPeriod: 3600
minVotes: 5
`
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0o644))
	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.Equal(t, "/tmp/veritrust-test", cfg.DataDir)
	require.Equal(t, "0xowner", cfg.Owner)
	require.Equal(t, uint(9090), cfg.ApiPort)
	require.Equal(t, uint64(3600), cfg.VotingPeriod)
	require.Equal(t, uint64(5), cfg.MinVotes)
	// Values not present in the file keep their defaults
	require.Equal(t, uint(12798), cfg.MetricsPort)
}

func TestLoadConfigEnv(t *testing.T) {
	resetGlobalConfig()
	t.Setenv("VERITRUST_MIN_VOTES", "7")
	t.Setenv("VERITRUST_OWNER", "0xenvowner")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, uint64(7), cfg.MinVotes)
	require.Equal(t, "0xenvowner", cfg.Owner)
}
