package entitlement

import (
	"errors"
	"net/http"
)

var (
	ErrMissingLicenseKey     = errors.New("license_key required")
	ErrConfiguration         = errors.New("server misconfiguration")
	ErrInvalidLicense        = errors.New("invalid license key")
	ErrUpstreamUnavailable   = errors.New("licensing service unavailable")
	ErrMalformedUpstreamData = errors.New("malformed data from licensing service")
)

// HTTPStatus maps an error from Sync to the status code the transport returns.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMissingLicenseKey), errors.Is(err, ErrInvalidLicense):
		return http.StatusBadRequest
	case errors.Is(err, ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, ErrUpstreamUnavailable), errors.Is(err, ErrMalformedUpstreamData):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the client-facing text for err. Wrapped upstream detail stays in the logs.
func PublicMessage(err error) string {
	for _, sentinel := range []error{
		ErrMissingLicenseKey,
		ErrInvalidLicense,
		ErrConfiguration,
		ErrUpstreamUnavailable,
		ErrMalformedUpstreamData,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal server error"
}
