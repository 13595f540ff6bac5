package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCampaignFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaign.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadCampaignFileParsesMultipleScripts(t *testing.T) {
	path := writeTempCampaignFile(t, `
team_id: team1
campaign_name: nightly
userinterface_name: ui1
host_name: host1
device_name: dev1
executed_by: ci
policy:
  continue_on_failure: true
scripts:
  - script_name: smoke
  - script_name: regression
    script_type: python
`)

	cf, err := loadCampaignFile(path)
	require.NoError(t, err)
	assert.Equal(t, "team1", cf.TeamID)
	assert.Equal(t, "nightly", cf.CampaignName)
	assert.True(t, cf.Policy.ContinueOnFailure)
	require.Len(t, cf.Scripts, 2)
	assert.Equal(t, "smoke", cf.Scripts[0].ScriptName)
	assert.Equal(t, "regression", cf.Scripts[1].ScriptName)
}

func TestLoadCampaignFileRejectsEmptyScriptList(t *testing.T) {
	path := writeTempCampaignFile(t, `
team_id: team1
campaign_name: nightly
scripts: []
`)

	_, err := loadCampaignFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares no scripts")
}

func TestLoadCampaignFileMissingFileErrors(t *testing.T) {
	_, err := loadCampaignFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoadCampaignFileMalformedYAMLErrors(t *testing.T) {
	path := writeTempCampaignFile(t, "team_id: [unterminated")
	_, err := loadCampaignFile(path)
	require.Error(t, err)
}
