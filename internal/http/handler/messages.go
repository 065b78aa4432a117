package handler

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"
)

type messageKey int

const (
	msgNoFile messageKey = iota
	msgEmptyFilename
	msgInvalidType
	msgUploaded
	msgUploadedMany
	msgUploadFailed
	msgUploadManyFailed
	msgListFailed
	msgDeleted
	msgNotFound
	msgDeleteFailed
	msgTooLarge
	msgRateLimited
	msgRouteNotFound
	msgMethodNotAllowed
	msgBadRequest
	msgUnavailable
	msgInternal
)

// Turkish first: it is the fallback when Accept-Language matches nothing.
var supported = []language.Tag{language.Turkish, language.English}

var matcher = language.NewMatcher(supported)

var catalogs = map[language.Tag]map[messageKey]string{
	language.Turkish: {
		msgNoFile:           "Dosya yüklenmedi",
		msgEmptyFilename:    "Dosya seçilmedi",
		msgInvalidType:      "Geçersiz dosya türü. Sadece JPG, PNG, GIF ve WebP desteklenir.",
		msgUploaded:         "Dosya başarıyla yüklendi",
		msgUploadedMany:     "%d dosya başarıyla yüklendi",
		msgUploadFailed:     "Dosya yüklenirken hata oluştu",
		msgUploadManyFailed: "Dosyalar yüklenirken hata oluştu",
		msgListFailed:       "Resimler listelenirken hata oluştu",
		msgDeleted:          "Dosya başarıyla silindi",
		msgNotFound:         "Dosya bulunamadı",
		msgDeleteFailed:     "Dosya silinirken hata oluştu",
		msgTooLarge:         "Dosya boyutu çok büyük. Maksimum %s olmalıdır.",
		msgRateLimited:      "Çok fazla istek. Lütfen biraz sonra tekrar deneyin.",
		msgRouteNotFound:    "Kaynak bulunamadı",
		msgMethodNotAllowed: "İzin verilmeyen yöntem",
		msgBadRequest:       "Geçersiz istek",
		msgUnavailable:      "Depolama erişilemiyor",
		msgInternal:         "Sunucu hatası",
	},
	language.English: {
		msgNoFile:           "No file uploaded",
		msgEmptyFilename:    "No file selected",
		msgInvalidType:      "Invalid file type. Only JPG, PNG, GIF and WebP are supported.",
		msgUploaded:         "File uploaded successfully",
		msgUploadedMany:     "%d files uploaded successfully",
		msgUploadFailed:     "An error occurred while uploading the file",
		msgUploadManyFailed: "An error occurred while uploading the files",
		msgListFailed:       "An error occurred while listing images",
		msgDeleted:          "File deleted successfully",
		msgNotFound:         "File not found",
		msgDeleteFailed:     "An error occurred while deleting the file",
		msgTooLarge:         "File is too large. The maximum size is %s.",
		msgRateLimited:      "Too many requests. Please try again later.",
		msgRouteNotFound:    "resource not found",
		msgMethodNotAllowed: "method not allowed",
		msgBadRequest:       "bad request",
		msgUnavailable:      "storage unavailable",
		msgInternal:         "internal server error",
	},
}

// localeFor picks the response language from Accept-Language.
func localeFor(c *fiber.Ctx) language.Tag {
	tags, _, _ := language.ParseAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage))
	_, idx, _ := matcher.Match(tags...)
	return supported[idx]
}

func message(c *fiber.Ctx, key messageKey, args ...any) string {
	text := catalogs[localeFor(c)][key]
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

const mib = 1 << 20

// sizeLabel renders the request body limit for the 413 message: whole mebibytes as "5MB",
// anything else in IEC units.
func sizeLabel(limit int) string {
	if limit > 0 && limit%mib == 0 {
		return fmt.Sprintf("%dMB", limit/mib)
	}
	return humanize.IBytes(uint64(limit))
}
