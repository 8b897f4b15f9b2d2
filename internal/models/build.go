package models

import "time"

// InputKind labels how the user described the source web app.
type InputKind string

const (
	InputKindURL         InputKind = "url"
	InputKindDescription InputKind = "description"
)

// WrapperStrategy is the packaging technique used to host the web app
// inside the native shell.
type WrapperStrategy string

const (
	// WrapperTWA hosts the app in a trusted-web-activity style shell.
	WrapperTWA WrapperStrategy = "twa"
	// WrapperWebView bundles the app into a native WebView runtime.
	WrapperWebView WrapperStrategy = "webview"
)

// Valid reports whether the strategy is a known wrapper.
func (w WrapperStrategy) Valid() bool {
	return w == WrapperTWA || w == WrapperWebView
}

// DisplayName returns the human-readable name used in console output.
func (w WrapperStrategy) DisplayName() string {
	switch w {
	case WrapperTWA:
		return "Trusted Web Activity"
	case WrapperWebView:
		return "Native WebView Runtime"
	default:
		return string(w)
	}
}

// BuildConfiguration is the wizard's editable build settings. It is mutable
// during the configuration stage and snapshotted read-only once a run starts;
// the sequencer never observes mid-run edits. Structural validation happens
// at the API boundary, not here.
type BuildConfiguration struct {
	InputType    InputKind       `json:"input_type"`
	InputValue   string          `json:"input_value"`
	Wrapper      WrapperStrategy `json:"wrapper" validate:"required,oneof=twa webview"`
	PackageName  string          `json:"package_name" validate:"required,max=255"`
	AppName      string          `json:"app_name" validate:"required,max=100"`
	VersionName  string          `json:"version_name" validate:"required,max=50"`
	VersionCode  int             `json:"version_code" validate:"gte=1"`
	PrimaryColor string          `json:"primary_color" validate:"omitempty,hexcolor"`
	TargetSDK    int             `json:"target_sdk" validate:"gte=1"`

	SigningEnabled bool   `json:"signing_enabled"`
	KeystorePath   string `json:"keystore_path,omitempty"`
	// KeystorePassphrase is never serialized to clients; it is encrypted
	// at rest before a run is persisted.
	KeystorePassphrase string `json:"-"`
}

// RunStatus is the terminal disposition of a persisted build run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusAborted   RunStatus = "aborted"
)

// BuildRun is the persisted record of a finished (or aborted) simulated run.
// Its report is tied 1:1 to the log snapshot persisted alongside it.
type BuildRun struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	AppName     string          `json:"app_name"`
	PackageName string          `json:"package_name"`
	Wrapper     WrapperStrategy `json:"wrapper"`
	Status      RunStatus       `json:"status"`
	Report      string          `json:"report"`
	OutputPath  string          `json:"output_path,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`

	// EncryptedPassphrase holds the age ciphertext of the keystore
	// passphrase when signing was enabled and encryption is configured.
	EncryptedPassphrase []byte `json:"-"`
}
