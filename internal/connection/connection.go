package connection

// Connection is a stored SSH connection profile.
type Connection struct {
	// ID is a ULID that uniquely identifies this connection
	ID string `json:"id"`

	// Name is the human-chosen label; unique case-insensitively
	Name string `json:"name"`

	// Host is the target hostname or address
	Host string `json:"host"`

	// User is the remote login
	User string `json:"user"`

	// Port is the target port, used only for direct (non-bastion) connections
	Port int `json:"port"`

	// Bastion is an optional jump host
	Bastion *string `json:"bastion,omitempty"`

	// BastionUser is the bastion login; falls back to User when nil
	BastionUser *string `json:"bastion_user,omitempty"`

	// UseKerberos enables GSSAPI forwarding and a ticket check before launch
	UseKerberos bool `json:"use_kerberos"`

	// KeyPath is an optional identity file path (never the key itself)
	KeyPath *string `json:"key_path,omitempty"`

	// Tags is a deduplicated list of labels (stored as JSON in DB)
	Tags []string `json:"tags"`

	// CreatedAt is the Unix timestamp when the connection was created
	CreatedAt int64 `json:"created_at"`

	// LastUsedAt is the Unix timestamp of the last launch (nil = never used)
	LastUsedAt *int64 `json:"last_used_at,omitempty"`
}

// EffectiveBastionUser returns the login used on the bastion hop.
func (c *Connection) EffectiveBastionUser() string {
	if c.BastionUser != nil && *c.BastionUser != "" {
		return *c.BastionUser
	}
	return c.User
}

// HasTag reports whether the connection carries tag (case-insensitive).
func (c *Connection) HasTag(tag string) bool {
	want := Normalize(tag)
	for _, t := range c.Tags {
		if Normalize(t) == want {
			return true
		}
	}
	return false
}

// SessionStatus is the lifecycle state of a launched ssh process.
type SessionStatus string

const (
	SessionStarting   SessionStatus = "starting"
	SessionActive     SessionStatus = "active"
	SessionTerminated SessionStatus = "terminated"
	SessionError      SessionStatus = "error"
)

// Session records one launch of a connection.
type Session struct {
	ID             string        `json:"id"`
	ConnectionID   string        `json:"connection_id"`
	ConnectionName string        `json:"connection_name"`
	StartedAt      int64         `json:"started_at"`
	EndedAt        *int64        `json:"ended_at,omitempty"`
	Status         SessionStatus `json:"status"`
	PID            *int          `json:"pid,omitempty"`
	ExitCode       *int          `json:"exit_code,omitempty"`
	Error          *string       `json:"error,omitempty"`
}

// MarkActive records the spawned process id.
func (s *Session) MarkActive(pid int) {
	s.Status = SessionActive
	s.PID = &pid
}

// MarkTerminated records a normal process exit.
func (s *Session) MarkTerminated(exitCode int, now int64) {
	s.Status = SessionTerminated
	s.ExitCode = &exitCode
	s.EndedAt = &now
}

// MarkError records a spawn or wait failure.
func (s *Session) MarkError(msg string, now int64) {
	s.Status = SessionError
	s.Error = &msg
	s.EndedAt = &now
}

// Failed reports whether the session ended in error or with a non-zero exit.
func (s *Session) Failed() bool {
	if s.Status == SessionError {
		return true
	}
	return s.ExitCode != nil && *s.ExitCode != 0
}
