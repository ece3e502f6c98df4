package credential

// MFAState is the enrollment state of a user's second factor.
type MFAState uint8

const (
	// MFADisabled is the initial state: no secret is active or pending.
	MFADisabled MFAState = iota
	// MFAPending holds a generated secret awaiting a confirming code.
	MFAPending
	// MFAEnabled holds the active secret used at login.
	MFAEnabled
)

func (s MFAState) String() string {
	switch s {
	case MFADisabled:
		return "disabled"
	case MFAPending:
		return "pending_verification"
	case MFAEnabled:
		return "enabled"
	default:
		return "unknown"
	}
}

// MFAEnrollment is the tagged MFA state carried by a [User].
//
// Secret is non-empty only in MFAEnabled and PendingSecret only in
// MFAPending. The transition methods below are the only way the engine
// changes it, so the invalid combinations cannot be produced.
type MFAEnrollment struct {
	State         MFAState
	Secret        string
	PendingSecret string
	// LastUsedStep is the most recent TOTP step accepted at login; zero
	// when replay tracking is off or nothing was accepted yet.
	LastUsedStep int64
}

// BeginSetup moves Disabled or Pending to Pending with the given secret.
// A pending secret is overwritten.
func (m *MFAEnrollment) BeginSetup(secret string) error {
	if m.State == MFAEnabled {
		return ErrMFAAlreadyEnabled
	}
	*m = MFAEnrollment{
		State:         MFAPending,
		PendingSecret: secret,
	}
	return nil
}

// Confirm promotes the pending secret to the active one.
func (m *MFAEnrollment) Confirm() error {
	if m.State != MFAPending || m.PendingSecret == "" {
		return ErrMFANotPending
	}
	*m = MFAEnrollment{
		State:  MFAEnabled,
		Secret: m.PendingSecret,
	}
	return nil
}

// Disable clears every secret. It is idempotent.
func (m *MFAEnrollment) Disable() {
	*m = MFAEnrollment{State: MFADisabled}
}

// Valid reports whether the state and secrets agree.
func (m MFAEnrollment) Valid() bool {
	switch m.State {
	case MFADisabled:
		return m.Secret == "" && m.PendingSecret == ""
	case MFAPending:
		return m.Secret == "" && m.PendingSecret != ""
	case MFAEnabled:
		return m.Secret != "" && m.PendingSecret == ""
	default:
		return false
	}
}
