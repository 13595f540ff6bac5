// Package controller defines the narrow capability interface every
// device-specific controller implements (ADB, Appium, web drivers, AV
// capture, remote codes), the registry that resolves a device key to its
// Controller, and the closed sets of wire-level type strings
// (action_type, verification_type) the core recognizes.
package controller

import (
	"context"
	"fmt"

	"github.com/virtualpytest/core/internal/domain"
)

// Result is the opaque outcome of a single controller call. Executors
// flatten it into domain.ActionResult / domain.VerificationResult.
type Result struct {
	Success    bool
	Message    string
	Error      string
	Confidence float64
	Threshold  float64
	Extra      map[string]any
}

// Controller is implemented once per device kind. Its internals (image
// recognition, audio transcription, ADB plumbing, …) are opaque to the
// execution core; only this interface is a dependency.
type Controller interface {
	// ExecuteCommand dispatches a single action's command/params.
	ExecuteCommand(ctx context.Context, command string, params map[string]any) (*Result, error)
	// ExecuteVerification dispatches a single verification.
	ExecuteVerification(ctx context.Context, v *domain.Verification) (*Result, error)
}

// Registry maps a device key to the Controller that owns it. A host
// process registers its attached devices' controllers at startup.
type Registry struct {
	byDevice map[string]Controller
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byDevice: make(map[string]Controller)}
}

// Register binds deviceKey ("<host_name>:<device_id>") to a Controller.
func (r *Registry) Register(deviceKey string, c Controller) {
	r.byDevice[deviceKey] = c
}

// Resolve returns the Controller registered for deviceKey.
func (r *Registry) Resolve(deviceKey string) (Controller, error) {
	c, ok := r.byDevice[deviceKey]
	if !ok {
		return nil, fmt.Errorf("no controller registered for device %q", deviceKey)
	}
	return c, nil
}

// ActionTypes and VerificationTypes are the closed sets of wire-level
// type strings this core recognizes. ValidActionType and
// ValidVerificationType test membership; the executors and request
// handlers do not call them, so an unrecognized type is not rejected on
// the request path.
var (
	ActionTypes = map[domain.ActionType]bool{
		domain.ActionTypeRemote:       true,
		domain.ActionTypeWeb:          true,
		domain.ActionTypePower:        true,
		domain.ActionTypeVerification: true,
	}
	VerificationTypes = map[domain.VerificationType]bool{
		domain.VerificationTypeImage:  true,
		domain.VerificationTypeText:   true,
		domain.VerificationTypeADB:    true,
		domain.VerificationTypeAppium: true,
		domain.VerificationTypeAudio:  true,
		domain.VerificationTypeVideo:  true,
		domain.VerificationTypeWeb:    true,
	}
)

// ValidActionType reports whether t is a recognized action type.
func ValidActionType(t domain.ActionType) bool { return ActionTypes[t] }

// ValidVerificationType reports whether t is a recognized verification type.
func ValidVerificationType(t domain.VerificationType) bool { return VerificationTypes[t] }
