// Package i18n holds the user-visible strings of the site and renders them in
// the configured display language.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The key doubles as the English text.
const (
	MsgNotLoggedIn       = "Please log in to continue"
	MsgAdminOnly         = "This page is for administrators only"
	MsgNoAccess          = "You do not have access to this resource"
	MsgRetryAfter        = "Too many attempts. Try again in %d seconds"
	MsgFieldRequired     = "%s is required"
	MsgFieldEmail        = "%s must be a valid email address"
	MsgFieldMin          = "%s must be at least %s characters"
	MsgFieldMax          = "%s must be at most %s characters"
	MsgFieldNumeric      = "%s may only contain digits"
	MsgFieldOneOf        = "%s has an invalid value"
	MsgFieldPhone        = "%s must be a valid phone number"
	MsgFieldSlug         = "%s may only contain lowercase letters, digits and dashes"
	MsgFieldInvalid      = "%s is invalid"
	MsgAlreadyExists     = "%s already exists"
	MsgNotFound          = "Data not found"
	MsgGenericFailure    = "Something went wrong. Please try again later"
	MsgInvalidLogin      = "Invalid email or password"
	MsgWelcomeBack       = "Welcome back"
	MsgLoggedOut         = "You have been logged out"
	MsgContactSent       = "Thank you, your message has been sent"
	MsgAdmissionSent     = "Your application has been received"
	MsgRegistered        = "Registration successful, please log in"
	MsgResetRequested    = "If the email is registered, a reset link has been sent"
	MsgSaved             = "Changes saved"
	MsgDeleted           = "Data deleted"
	MsgRoleEscalation    = "Only a super admin can grant administrator roles"
	MsgEntityCourse      = "A course with this slug"
	MsgEntityNotice      = "A notice with this slug"
	MsgEntityEmail       = "An account with this email"
	MsgInquirySubject    = "New contact message from %s"
	MsgAdmissionSubject  = "Admission application received"
	MsgPasswordResetMail = "Password reset request"
	MsgAuditPruned       = "%d audit records removed"
	MsgResetInvalid      = "The reset link is invalid or has expired"
	MsgPasswordChanged   = "Password changed, please log in"
	MsgOwnRole           = "You cannot change your own role"
	MsgFieldMismatch     = "%s does not match"
)

var translations = map[language.Tag]map[string]string{
	language.Indonesian: {
		MsgNotLoggedIn:       "Silakan masuk terlebih dahulu",
		MsgAdminOnly:         "Halaman ini khusus administrator",
		MsgNoAccess:          "Anda tidak memiliki akses ke data ini",
		MsgRetryAfter:        "Terlalu banyak percobaan. Coba lagi dalam %d detik",
		MsgFieldRequired:     "%s wajib diisi",
		MsgFieldEmail:        "%s harus berupa alamat email yang valid",
		MsgFieldMin:          "%s minimal %s karakter",
		MsgFieldMax:          "%s maksimal %s karakter",
		MsgFieldNumeric:      "%s hanya boleh berisi angka",
		MsgFieldOneOf:        "Nilai %s tidak valid",
		MsgFieldPhone:        "%s harus berupa nomor telepon yang valid",
		MsgFieldSlug:         "%s hanya boleh berisi huruf kecil, angka, dan tanda hubung",
		MsgFieldInvalid:      "%s tidak valid",
		MsgAlreadyExists:     "%s sudah ada",
		MsgNotFound:          "Data tidak ditemukan",
		MsgGenericFailure:    "Terjadi kesalahan. Silakan coba lagi nanti",
		MsgInvalidLogin:      "Email atau password tidak valid",
		MsgWelcomeBack:       "Selamat datang kembali",
		MsgLoggedOut:         "Anda telah keluar",
		MsgContactSent:       "Terima kasih, pesan Anda telah terkirim",
		MsgAdmissionSent:     "Pendaftaran Anda telah kami terima",
		MsgRegistered:        "Registrasi berhasil, silakan masuk",
		MsgResetRequested:    "Jika email terdaftar, tautan reset telah dikirim",
		MsgSaved:             "Perubahan disimpan",
		MsgDeleted:           "Data dihapus",
		MsgRoleEscalation:    "Hanya super admin yang dapat memberikan peran administrator",
		MsgEntityCourse:      "Kursus dengan slug ini",
		MsgEntityNotice:      "Pengumuman dengan slug ini",
		MsgEntityEmail:       "Akun dengan email ini",
		MsgInquirySubject:    "Pesan kontak baru dari %s",
		MsgAdmissionSubject:  "Pendaftaran diterima",
		MsgPasswordResetMail: "Permintaan reset password",
		MsgAuditPruned:       "%d catatan audit dihapus",
		MsgResetInvalid:      "Tautan reset tidak valid atau sudah kedaluwarsa",
		MsgPasswordChanged:   "Password diubah, silakan masuk",
		MsgOwnRole:           "Anda tidak dapat mengubah peran sendiri",
		MsgFieldMismatch:     "%s tidak cocok",
	},
}

var supported = []language.Tag{language.Indonesian, language.English}

var (
	matcher = language.NewMatcher(supported)
	builder = newCatalog()
)

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, entries := range translations {
		for key, text := range entries {
			// Only fails on malformed messages, which the table above does not contain.
			_ = b.SetString(tag, key, text)
		}
	}
	return b
}

// Localizer renders message keys in one language.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Localizer for the closest supported match of lang.
// Unknown or empty languages fall back to Indonesian.
func New(lang string) *Localizer {
	tag := language.Indonesian
	if lang != "" {
		if parsed, err := language.Parse(lang); err == nil {
			_, idx, conf := matcher.Match(parsed)
			if conf != language.No {
				tag = supported[idx]
			}
		}
	}
	return &Localizer{tag: tag, printer: message.NewPrinter(tag, message.Catalog(builder))}
}

// T renders key with args. A nil Localizer renders in Indonesian.
func (l *Localizer) T(key string, args ...any) string {
	if l == nil {
		l = New("")
	}
	return l.printer.Sprintf(key, args...)
}

// Tag returns the resolved language.
func (l *Localizer) Tag() language.Tag {
	if l == nil {
		return language.Indonesian
	}
	return l.tag
}
