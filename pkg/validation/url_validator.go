package validation

import (
	"net"
	"net/url"
	"slices"
	"strings"

	apperrors "go-tamper-inspector/internal/errors"
)

// URLValidator checks that an image reference is fetchable by this service
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
	denyLoopback   bool
}

// NewURLValidator creates a new URL validator accepting any http(s) host
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// WithBlobScheme additionally accepts az://container/blob references
func (v *URLValidator) WithBlobScheme() *URLValidator {
	if !slices.Contains(v.allowedSchemes, "az") {
		v.allowedSchemes = append(v.allowedSchemes, "az")
	}
	return v
}

// WithLoopbackDenied rejects localhost and literal loopback, link-local
// and unspecified addresses
func (v *URLValidator) WithLoopbackDenied() *URLValidator {
	v.denyLoopback = true
	return v
}

// ValidateImageURL validates if the provided URL is acceptable for comparison
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}

	// The host of a blob reference is its container
	if parsedURL.Scheme == "az" {
		if strings.Trim(parsedURL.Path, "/") == "" {
			return apperrors.NewValidationError("Blob URL must name a blob", nil)
		}
		return nil
	}

	if !v.isHostAllowed(parsedURL.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	if v.denyLoopback {
		if ip := net.ParseIP(parsedURL.Hostname()); ip != nil && isLocalAddress(ip) {
			return apperrors.NewValidationError("URL host not allowed", nil)
		}
		if strings.EqualFold(parsedURL.Hostname(), "localhost") {
			return apperrors.NewValidationError("URL host not allowed", nil)
		}
	}

	return nil
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	return slices.Contains(v.allowedSchemes, strings.ToLower(scheme))
}

// isHostAllowed checks if the URL host is in the allowed list.
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	return slices.ContainsFunc(v.allowedHosts, func(allowed string) bool {
		return strings.EqualFold(host, allowed)
	})
}

func isLocalAddress(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}
