package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionWaitTimeMSReadsNumericTypes(t *testing.T) {
	a := &Action{Params: map[string]any{"wait_time": 250}}
	assert.Equal(t, 250, a.WaitTimeMS())

	a = &Action{Params: map[string]any{"wait_time": int64(300)}}
	assert.Equal(t, 300, a.WaitTimeMS())

	a = &Action{Params: map[string]any{"wait_time": float64(400)}}
	assert.Equal(t, 400, a.WaitTimeMS())
}

func TestActionWaitTimeMSDefaultsToZero(t *testing.T) {
	assert.Equal(t, 0, (&Action{}).WaitTimeMS())
	assert.Equal(t, 0, (*Action)(nil).WaitTimeMS())
}

func TestActionSetWaitTimeMSCreatesParamsIfNeeded(t *testing.T) {
	a := &Action{}
	a.SetWaitTimeMS(500)
	assert.Equal(t, 500, a.WaitTimeMS())
}

func TestVerificationHasMinimalParamsImageRequiresPath(t *testing.T) {
	v := &Verification{VerificationType: VerificationTypeImage, Params: map[string]any{}}
	assert.False(t, v.HasMinimalParams())

	v.Params["image_path"] = "/tmp/a.png"
	assert.True(t, v.HasMinimalParams())
}

func TestVerificationHasMinimalParamsTextRequiresText(t *testing.T) {
	v := &Verification{VerificationType: VerificationTypeText, Params: map[string]any{"text": ""}}
	assert.False(t, v.HasMinimalParams())

	v.Params["text"] = "expected"
	assert.True(t, v.HasMinimalParams())
}

func TestVerificationHasMinimalParamsADBRequiresSearchTerm(t *testing.T) {
	v := &Verification{VerificationType: VerificationTypeADB, Params: map[string]any{}}
	assert.False(t, v.HasMinimalParams())
}

func TestVerificationHasMinimalParamsDefaultsTrueForOtherTypes(t *testing.T) {
	v := &Verification{VerificationType: VerificationTypeAudio, Params: map[string]any{}}
	assert.True(t, v.HasMinimalParams())
}

func TestVerificationHasMinimalParamsNilReceiverIsFalse(t *testing.T) {
	var v *Verification
	assert.False(t, v.HasMinimalParams())
}
