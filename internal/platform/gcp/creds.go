package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/yungbote/edutools-backend/internal/platform/envutil"
)

// ClientOptionsFromEnv reads service account credentials as inline JSON or a file path.
// With neither set the client falls back to application default credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := envutil.First("GOOGLE_APPLICATION_CREDENTIALS_JSON", "GOOGLE_APPLICATION_CREDENTIALS")
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}
