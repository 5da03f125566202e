package gateway

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/caremesh/medgate/pkg/chat"
)

var safeImageExtensions = []string{".jpg", ".jpeg", ".png"}

var (
	privateIPPattern = regexp.MustCompile(
		`(^127\.0\.0\.1)|(^0\.)|(^10\.)|(^169\.254\.)|(^172\.(1[6-9]|2\d|3[0-1])\.)|(^192\.168\.)`)
	unsafeHostPattern = regexp.MustCompile(
		`(?i)(localhost|file:|metadata\.googleinternal|169\.254\.169\.254)`)
)

// validateTurn performs payload-shape validation before the safety
// pipeline runs. Image content validation stays with the vision backend;
// only the URL itself is checked here.
func validateTurn(turn *chat.Turn) error {
	if turn.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	switch turn.Kind {
	case chat.KindText:
		if turn.Message == "" {
			return fmt.Errorf("message is required for kind=text")
		}
	case chat.KindImage:
		if err := validateImageURL(turn.ImageRef); err != nil {
			return err
		}
	default:
		return fmt.Errorf("kind must be text or image")
	}
	if !turn.Specialty.Known() {
		return fmt.Errorf("specialty must be skin or oral")
	}
	return nil
}

// validateImageURL rejects unsafe or malformed image references: wrong
// scheme, wrong extension, private or internal hosts.
func validateImageURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("image_ref is required for kind=image")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid image URL: %w", err)
	}

	switch parsed.Scheme {
	case "http", "https", "gs":
	default:
		return fmt.Errorf("invalid URL scheme: must be http, https, or gs")
	}

	pathLower := strings.ToLower(parsed.Path)
	extOK := false
	for _, ext := range safeImageExtensions {
		if strings.HasSuffix(pathLower, ext) {
			extOK = true
			break
		}
	}
	if !extOK {
		return fmt.Errorf("only .jpg, .jpeg, and .png images are allowed")
	}

	if parsed.Scheme == "gs" {
		if parsed.Path == "" {
			return fmt.Errorf("invalid gs:// URL: path is required")
		}
		return nil
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("missing hostname in image URL")
	}
	if privateIPPattern.MatchString(host) {
		return fmt.Errorf("image URL points to a private or local network address")
	}
	if unsafeHostPattern.MatchString(raw) {
		return fmt.Errorf("unsafe or internal host in image URL")
	}

	return nil
}
