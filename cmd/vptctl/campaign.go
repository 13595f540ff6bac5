package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/virtualpytest/core/internal/domain"
)

func campaignCmd() *cobra.Command {
	var teamID, uiName, hostName, deviceName, executedBy, scriptName, file string
	var continueOnFailure bool

	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Trigger a campaign run on a server and print the task id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" && (teamID == "" || uiName == "" || hostName == "" || scriptName == "") {
				return fmt.Errorf("either --file or --team, --ui, --host, and --script are required")
			}

			cfg := loadConfig()

			payload := map[string]any{
				"team_id":            teamID,
				"campaign_name":      "vptctl-" + scriptName,
				"userinterface_name": uiName,
				"host_name":          hostName,
				"device_name":        deviceName,
				"executed_by":        executedBy,
				"policy":             domain.ExecutionPolicy{ContinueOnFailure: continueOnFailure},
				"script_configs":     []domain.ScriptConfiguration{{ScriptName: scriptName}},
			}
			if file != "" {
				cf, err := loadCampaignFile(file)
				if err != nil {
					return err
				}
				payload = map[string]any{
					"team_id": cf.TeamID, "campaign_name": cf.CampaignName,
					"userinterface_name": cf.UserinterfaceName, "host_name": cf.HostName,
					"device_name": cf.DeviceName, "executed_by": cf.ExecutedBy,
					"policy": cf.Policy, "script_configs": cf.Scripts,
				}
			}

			body, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("encode request: %w", err)
			}

			resp, err := http.Post("http://"+cfg.Server.HTTPAddr+"/server/campaign/execute", "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("call server: %w", err)
			}
			defer resp.Body.Close()

			var out map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&teamID, "team", "", "team id")
	cmd.Flags().StringVar(&uiName, "ui", "", "userinterface name")
	cmd.Flags().StringVar(&hostName, "host", "", "host name to run against")
	cmd.Flags().StringVar(&deviceName, "device", "", "device id on the host")
	cmd.Flags().StringVar(&executedBy, "by", "vptctl", "attribution for the campaign record")
	cmd.Flags().StringVar(&scriptName, "script", "", "script name to run")
	cmd.Flags().StringVar(&file, "file", "", "YAML campaign definition; overrides the other flags")
	cmd.Flags().BoolVar(&continueOnFailure, "continue-on-failure", false, "keep running remaining scripts after a failure")
	return cmd
}
