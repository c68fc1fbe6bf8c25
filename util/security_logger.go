package util

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ariebrainware/cml-tracker/model"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SecurityEventType represents different types of security events
type SecurityEventType string

const (
	EventLoginSuccess       SecurityEventType = "LOGIN_SUCCESS"
	EventLoginFailure       SecurityEventType = "LOGIN_FAILURE"
	EventLogout             SecurityEventType = "LOGOUT"
	EventPasswordSet        SecurityEventType = "PASSWORD_SET"
	EventPasswordReset      SecurityEventType = "PASSWORD_RESET"
	EventAccountDisabled    SecurityEventType = "ACCOUNT_DISABLED"
	EventUnauthorizedAccess SecurityEventType = "UNAUTHORIZED_ACCESS"
	EventRateLimitExceeded  SecurityEventType = "RATE_LIMIT_EXCEEDED"
	EventSuspiciousActivity SecurityEventType = "SUSPICIOUS_ACTIVITY"
	EventEndpointCall       SecurityEventType = "ENDPOINT_CALL"
)

// SecurityEvent represents a security event to be logged
type SecurityEvent struct {
	EventType SecurityEventType
	// Kind is the principal kind (admin, doctor, patient) when known.
	Kind      string
	Identity  string
	IP        string
	UserAgent string
	Message   string
	Details   map[string]interface{}
}

var securityLogger = logger.With().Str("component", "security").Logger()
var securityDB *gorm.DB

// SetSecurityLoggerDB sets a gorm DB instance used by the security logger.
// Call this during application startup after DB initialization.
func SetSecurityLoggerDB(db *gorm.DB) {
	securityDB = db
}

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	if runes := []rune(value); len(runes) > 200 {
		value = string(runes[:200]) + "..."
	}
	return value
}

// LogSecurityEvent logs a security event
func LogSecurityEvent(event SecurityEvent) {
	securityLogger.Info().
		Str("event", sanitizeLogValue(string(event.EventType))).
		Str("kind", sanitizeLogValue(event.Kind)).
		Str("identity", sanitizeLogValue(event.Identity)).
		Str("ip", sanitizeLogValue(event.IP)).
		Str("user_agent", sanitizeLogValue(event.UserAgent)).
		Int("details_count", len(event.Details)).
		Msg(sanitizeLogValue(event.Message))

	if securityDB == nil {
		return
	}

	var details datatypes.JSON
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			details = datatypes.JSON(b)
		}
	}

	entry := model.SecurityLog{
		EventType: string(event.EventType),
		Kind:      event.Kind,
		Identity:  sanitizeLogValue(event.Identity),
		IP:        sanitizeLogValue(event.IP),
		Location:  sanitizeLogValue(FormatLocation(GetIPLocation(event.IP))),
		UserAgent: sanitizeLogValue(event.UserAgent),
		Message:   sanitizeLogValue(event.Message),
		Details:   details,
	}

	// best-effort write
	if err := securityDB.Create(&entry).Error; err != nil {
		securityLogger.Error().Err(err).Msg("failed to persist security event")
	}
}

// LogLoginSuccess logs a successful login event
func LogLoginSuccess(kind, identity, ip, userAgent string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginSuccess,
		Kind:      kind,
		Identity:  identity,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "Logged in successfully",
	})
}

// LogLoginFailure logs a failed login attempt. The reason is only recorded
// server side; clients always receive the same message.
func LogLoginFailure(kind, identity, ip, userAgent, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginFailure,
		Kind:      kind,
		Identity:  identity,
		IP:        ip,
		UserAgent: userAgent,
		Message:   fmt.Sprintf("Login failed: %s", reason),
	})
}

// LogLogout logs a logout event
func LogLogout(kind, identity, ip, userAgent string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLogout,
		Kind:      kind,
		Identity:  identity,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "Logged out",
	})
}

// LogUnauthorizedAccess logs unauthorized access attempts
func LogUnauthorizedAccess(ip, resource, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventUnauthorizedAccess,
		IP:        ip,
		Message:   fmt.Sprintf("Unauthorized access to %s: %s", resource, reason),
	})
}

// LogRateLimitExceeded logs when rate limit is exceeded
func LogRateLimitExceeded(ip, endpoint string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventRateLimitExceeded,
		IP:        ip,
		Message:   fmt.Sprintf("Rate limit exceeded for endpoint: %s", endpoint),
	})
}

// SetSecurityLoggerForTest sets a custom logger for testing purposes
func SetSecurityLoggerForTest(l zerolog.Logger) {
	securityLogger = l
}
