// utils/safelog.go
// ============================================================================
// SAFE LOGGING - masks personal and financial data in production
// ============================================================================

package utils

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
)

// ============================================================================
// CONFIGURATION
// ============================================================================

var (
	// IsProduction masks sensitive values in every Safe* helper
	IsProduction = os.Getenv("GIN_MODE") == "release" ||
		os.Getenv("ENVIRONMENT") == "production" ||
		os.Getenv("ENV") == "production"

	// LogLevel filters the Safe* helpers (DEBUG, INFO, WARN, ERROR)
	LogLevel = getLogLevel()
)

const (
	LogLevelDebug = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func getLogLevel() int {
	return parseLogLevel(os.Getenv("LOG_LEVEL"))
}

func parseLogLevel(level string) int {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LogLevelDebug
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// ============================================================================
// MASKING PATTERNS
// ============================================================================

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// amounts with a currency marker (₹ 1,200.50 / INR 300 / 40 USD)
	amountWithCurrencyRegex = regexp.MustCompile(`(₹|INR|USD|\$)\s*\d[\d,]*(\.\d{1,2})?|\b\d[\d,]*(\.\d{1,2})?\s*(INR|USD)\b`)

	bearerRegex = regexp.MustCompile(`(?i)bearer\s+[a-z0-9._~+/=-]+`)

	uuidRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// ============================================================================
// MASKING
// ============================================================================

// MaskString masks sensitive data inside a free-form message
func MaskString(input string) string {
	if !IsProduction {
		return input
	}

	result := emailRegex.ReplaceAllString(input, "***@***.***")
	result = bearerRegex.ReplaceAllString(result, "Bearer ***")
	result = amountWithCurrencyRegex.ReplaceAllString(result, "***")
	result = uuidRegex.ReplaceAllStringFunc(result, func(id string) string {
		return id[:8] + "..."
	})
	return result
}

// MaskAmount hides a money value in production
func MaskAmount(amount fmt.Stringer) string {
	if IsProduction {
		return "***"
	}
	return amount.String()
}

// MaskID keeps the first 8 characters of an identifier
func MaskID(id string) string {
	if !IsProduction {
		return id
	}
	if len(id) <= 8 {
		return "***"
	}
	return id[:8] + "..."
}

// MaskEmail hides an e-mail address in production
func MaskEmail(email string) string {
	if !IsProduction {
		return email
	}
	return "***@***.***"
}

// ============================================================================
// SAFE LOGGING
// ============================================================================

func SafeLog(format string, args ...interface{}) {
	log.Print(MaskString(fmt.Sprintf(format, args...)))
}

func SafeDebug(format string, args ...interface{}) {
	if LogLevel > LogLevelDebug {
		return
	}
	log.Printf("[DEBUG] %s", MaskString(fmt.Sprintf(format, args...)))
}

func SafeInfo(format string, args ...interface{}) {
	if LogLevel > LogLevelInfo {
		return
	}
	log.Printf("[INFO] %s", MaskString(fmt.Sprintf(format, args...)))
}

func SafeWarn(format string, args ...interface{}) {
	if LogLevel > LogLevelWarn {
		return
	}
	log.Printf("[WARN] %s", MaskString(fmt.Sprintf(format, args...)))
}

func SafeError(format string, args ...interface{}) {
	log.Printf("[ERROR] %s", MaskString(fmt.Sprintf(format, args...)))
}

// ============================================================================
// DOMAIN LOGGING
// ============================================================================

// LogLedgerAction logs a write against the spreadsheet without exposing amounts
func LogLedgerAction(action, entityID, actor string) {
	log.Printf("[Ledger] %s - Entity: %s By: %s", action, MaskID(entityID), MaskEmail(actor))
}

// LogBalanceChange logs a partner balance adjustment
func LogBalanceChange(partnerID string, delta fmt.Stringer) {
	log.Printf("[Ledger] balance %s - Partner: %s", MaskAmount(delta), partnerID)
}

func LogAuthAction(action, email string, success bool) {
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	log.Printf("[Auth] %s - Email: %s Status: %s", action, MaskEmail(email), status)
}

func LogAPIRequest(method, path, user string, statusCode int, duration string) {
	log.Printf("[API] %s %s - User: %s Status: %d Duration: %s",
		method, path, MaskEmail(user), statusCode, duration)
}

func LogSync(collections int, duration string) {
	log.Printf("[Sync] refreshed %d collections in %s", collections, duration)
}

func GetEnvMode() string {
	if IsProduction {
		return "production"
	}
	return "development"
}

// LogStartup prints the startup banner
func LogStartup(appName, version, port string) {
	log.Printf("🚀 %s v%s starting...", appName, version)
	log.Printf("   Mode: %s", GetEnvMode())
	log.Printf("   Port: %s", port)
	log.Printf("   Log Level: %d", LogLevel)
	if IsProduction {
		log.Printf("   ⚠️  Production mode: Sensitive data will be masked in logs")
	}
}
