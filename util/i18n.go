package util

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// LocaleKey is the gin context key holding the negotiated locale.
const LocaleKey = "locale"

// SupportedLocales lists the locales with a translation catalog. The first
// entry is the fallback.
var SupportedLocales = []language.Tag{language.Thai, language.English}

// Message keys used in API responses.
const (
	MsgInvalidRequest      = "invalid_request"
	MsgInvalidCredentials  = "invalid_credentials"
	MsgLoginSuccessful     = "login_successful"
	MsgLogoutSuccessful    = "logout_successful"
	MsgUnauthorized        = "unauthorized"
	MsgForbidden           = "forbidden"
	MsgDatabaseUnavailable = "database_unavailable"
	MsgNotFound            = "not_found"
	MsgPatientNotFound     = "patient_not_found"
	MsgPasswordTooShort    = "password_too_short"
	MsgPasswordAlreadySet  = "password_already_set"
	MsgPasswordSet         = "password_set"
	MsgPasswordReset       = "password_reset"
	MsgRetrieved           = "retrieved"
	MsgCreated             = "created"
	MsgUpdated             = "updated"
	MsgDeleted             = "deleted"
	MsgActiveRegimenExists = "active_regimen_exists"
	MsgEmptyFilter         = "empty_filter"
	MsgQueryFailed         = "query_failed"
	MsgTooManyRequests     = "too_many_requests"
	MsgSessionFailed       = "session_failed"
)

var translations = map[string][2]string{
	// key: {thai, english}
	MsgInvalidRequest:      {"ข้อมูลที่ส่งมาไม่ถูกต้อง", "Invalid request"},
	MsgInvalidCredentials:  {"ชื่อผู้ใช้หรือรหัสผ่านไม่ถูกต้อง", "Invalid credentials"},
	MsgLoginSuccessful:     {"เข้าสู่ระบบสำเร็จ", "Login successful"},
	MsgLogoutSuccessful:    {"ออกจากระบบสำเร็จ", "Logout successful"},
	MsgUnauthorized:        {"กรุณาเข้าสู่ระบบ", "Please log in"},
	MsgForbidden:           {"ไม่มีสิทธิ์เข้าถึงข้อมูลนี้", "You do not have access to this resource"},
	MsgDatabaseUnavailable: {"ไม่สามารถเชื่อมต่อฐานข้อมูลได้", "Database connection not available"},
	MsgNotFound:            {"ไม่พบข้อมูล", "Record not found"},
	MsgPatientNotFound:     {"ไม่พบข้อมูลผู้ป่วย", "Patient not found"},
	MsgPasswordTooShort:    {"รหัสผ่านต้องมีอย่างน้อย 6 ตัวอักษร", "Password must be at least 6 characters"},
	MsgPasswordAlreadySet:  {"ตั้งรหัสผ่านไว้แล้ว", "Password has already been set"},
	MsgPasswordSet:         {"ตั้งรหัสผ่านสำเร็จ", "Password set"},
	MsgPasswordReset:       {"รีเซ็ตรหัสผ่านสำเร็จ", "Password reset"},
	MsgRetrieved:           {"ดึงข้อมูลสำเร็จ", "Data retrieved"},
	MsgCreated:             {"บันทึกข้อมูลสำเร็จ", "Created"},
	MsgUpdated:             {"แก้ไขข้อมูลสำเร็จ", "Updated"},
	MsgDeleted:             {"ลบข้อมูลสำเร็จ", "Deleted"},
	MsgActiveRegimenExists: {"ผู้ป่วยมียา TKI ที่ใช้อยู่แล้ว", "Patient already has an active TKI regimen"},
	MsgEmptyFilter:         {"ต้องระบุเงื่อนไขอย่างน้อยหนึ่งข้อ", "At least one filter is required"},
	MsgQueryFailed:         {"เกิดข้อผิดพลาดในการดึงข้อมูล", "Failed to query data"},
	MsgTooManyRequests:     {"มีการเรียกใช้งานมากเกินไป กรุณาลองใหม่ภายหลัง", "Too many requests. Please try again later."},
	MsgSessionFailed:       {"ไม่สามารถสร้างเซสชันได้", "Failed to create session"},
}

func init() {
	for key, tr := range translations {
		_ = message.SetString(language.Thai, key, tr[0])
		_ = message.SetString(language.English, key, tr[1])
	}
}

// T translates a message key for a locale such as "th" or "en". Unknown
// locales fall back to Thai and unknown keys are returned as is.
func T(locale, key string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = SupportedLocales[0]
	}
	return message.NewPrinter(tag).Sprintf(key)
}

// Localize translates a message key using the locale negotiated for the request.
func Localize(c *gin.Context, key string) string {
	return T(c.GetString(LocaleKey), key)
}
