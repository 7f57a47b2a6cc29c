package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLen    = 100
	MaxMessageLen = 2000
	MaxPhotos     = 5
)

const imagePrefix = "data:image/"

// Rejection carries the user-facing triple returned on a failed check.
// Detail and Suggestion are shown to the visitor as-is.
type Rejection struct {
	Code       string
	Detail     string
	Suggestion string
}

func reject(detail, suggestion string) *Rejection {
	return &Rejection{Code: "VALIDATION_ERROR", Detail: detail, Suggestion: suggestion}
}

// Check validates a candidate submission. It returns nil when the submission
// is acceptable, otherwise the first failing rule's rejection. Lengths are
// counted in runes after trimming. Check has no side effects.
func Check(senderName, messageText string, photos []string) *Rejection {
	name := strings.TrimSpace(senderName)
	msg := strings.TrimSpace(messageText)

	if name == "" {
		return reject("Nama pengirim wajib diisi", "Silakan isi nama Anda sebelum mengirim pesan")
	}
	if msg == "" {
		return reject("Pesan wajib diisi", "Silakan tulis pesan Anda sebelum mengirim")
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return reject("Nama terlalu panjang (maksimal 100 karakter)", "Persingkat nama Anda")
	}
	if utf8.RuneCountInString(msg) > MaxMessageLen {
		return reject("Pesan terlalu panjang (maksimal 2000 karakter)", "Persingkat pesan Anda")
	}
	if len(photos) > MaxPhotos {
		return reject("Maksimal 5 foto yang dapat dikirim", "Kurangi jumlah foto yang diunggah")
	}
	for i, p := range photos {
		if p == "" || !strings.Contains(p, imagePrefix) {
			return reject(
				fmt.Sprintf("Foto %d format tidak valid", i+1),
				"Unggah foto dengan format JPG, PNG, atau GIF yang valid",
			)
		}
	}
	return nil
}
