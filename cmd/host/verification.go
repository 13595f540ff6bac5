package main

import (
	"net/http"

	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/hostproxy"
)

// typedVerificationRequest is the body of the per-type convenience
// endpoints (/host/verification/{image,text,adb,appium,audio,video}/execute):
// a single verification of the implied type plus the identifying fields
// ExecuteVerifications needs.
type typedVerificationRequest struct {
	TeamID            string         `json:"team_id"`
	DeviceID          string         `json:"device_id"`
	UserinterfaceName string         `json:"userinterface_name"`
	ImageSourceURL    string         `json:"image_source_url"`
	TreeID            string         `json:"tree_id"`
	NodeID            string         `json:"node_id"`
	Command           string         `json:"command"`
	Params            map[string]any `json:"params"`
}

func (h *hostServer) handleTypedVerification(vtype domain.VerificationType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req typedVerificationRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		resp, _ := h.ExecuteVerifications(r.Context(), &hostproxy.VerificationBatchRequest{
			TeamID: req.TeamID, DeviceID: req.DeviceID, UserinterfaceName: req.UserinterfaceName,
			ImageSourceURL: req.ImageSourceURL, TreeID: req.TreeID, NodeID: req.NodeID,
			Verifications: []*domain.Verification{{
				ID: req.NodeID, VerificationType: vtype, Command: req.Command, Params: req.Params,
			}},
		})
		writeJSON(w, resp)
	}
}
