package invite

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is the structured logger used across the package.
// Args are key/value pairs: logger.Error("lookup failed", "error", err)
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the registration workflow options
type Config interface {
	GetPublicURL() string
	GetAdminURL() string
	GetCredentialBytes() int
	GetValidity() time.Duration
	GetAdminPreferredRole() string
	GetAdminFallbackRole() string
}

// CredentialIssuer produces opaque single use credentials
type CredentialIssuer interface {
	Issue(byteLength int) (string, error)
}

// SessionIssuer mints the session token handed out on activation
type SessionIssuer interface {
	Issue(account *Account) (string, error)
}

// PasswordHasher turns a cleartext password into a stored hash
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// NotificationSink delivers a message to a recipient, best effort
type NotificationSink interface {
	Send(ctx context.Context, msg Message) error
}

// Clock returns the current time. Tests swap it for a fixed clock.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] INVITE " + line(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] INVITE " + line(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] INVITE " + line(msg, args...))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] INVITE " + line(msg, args...))
}

func line(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, " %v", args[i])
	}
	b.WriteString("\n")
	return b.String()
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NoopLogger discards everything
func NoopLogger() Logger { return noopLogger{} }

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
