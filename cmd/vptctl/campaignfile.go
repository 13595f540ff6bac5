package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/virtualpytest/core/internal/domain"
)

// campaignFile is the on-disk shape of a multi-script campaign
// definition, loaded with --file instead of one-script-per-flag.
type campaignFile struct {
	TeamID            string                       `yaml:"team_id"`
	CampaignName      string                       `yaml:"campaign_name"`
	UserinterfaceName string                       `yaml:"userinterface_name"`
	HostName          string                       `yaml:"host_name"`
	DeviceName        string                       `yaml:"device_name"`
	ExecutedBy        string                       `yaml:"executed_by"`
	Policy            domain.ExecutionPolicy       `yaml:"policy"`
	Scripts           []domain.ScriptConfiguration `yaml:"scripts"`
}

func loadCampaignFile(path string) (*campaignFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read campaign file: %w", err)
	}
	var cf campaignFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse campaign file %s: %w", path, err)
	}
	if len(cf.Scripts) == 0 {
		return nil, fmt.Errorf("campaign file %s declares no scripts", path)
	}
	return &cf, nil
}
