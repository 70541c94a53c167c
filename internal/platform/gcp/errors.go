package gcp

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// IsQuotaExceeded reports whether err, possibly wrapped, is a RESOURCE_EXHAUSTED status from a GCP API.
func IsQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.ResourceExhausted
}
