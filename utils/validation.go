package utils

import (
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	ErrImageTooLarge    = errors.New("image exceeds the 5MB limit")
	ErrUnsupportedImage = errors.New("image must be jpg, jpeg, png or webp")
)

// AllowedImageContentTypes lists the product image types shoppers' browsers can
// render. Lookups are case-insensitive.
var AllowedImageContentTypes = map[string]bool{
	"image/jpg":  true,
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

const MaxUploadSize = 5 << 20

// ValidateFileUpload checks a product image before it is sent to storage.
func ValidateFileUpload(fh *multipart.FileHeader) error {
	if fh.Size > MaxUploadSize {
		return fmt.Errorf("%w: %s is %d bytes", ErrImageTooLarge, fh.Filename, fh.Size)
	}
	contentType := fh.Header.Get("Content-Type")
	if !IsAllowedImageType(contentType) {
		return fmt.Errorf("%w: got %q", ErrUnsupportedImage, contentType)
	}
	return nil
}

// IsAllowedImageType ignores MIME parameters ("image/png; charset=binary").
func IsAllowedImageType(contentType string) bool {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return AllowedImageContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
}

// SanitizeValidationError turns binding errors into a message safe to show a
// shopper. Fields are named the way the JSON body names them.
func SanitizeValidationError(err error) string {
	if err == nil {
		return ""
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Invalid request body"
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessage(fe))
	}
	return strings.Join(messages, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	}
	return field + " is invalid"
}

// lowerFirst maps Go field names to their JSON spelling: FullName -> fullName.
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
