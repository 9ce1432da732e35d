// Package setups reads the deployment environment shared by the API server and the CLI.
package setups

import (
	"os"
	"strings"
)

const (
	DevCredentialsPathEnv = "FIREBASE_CONFIG"
	DevProjectEnv         = "GCLOUD_PROJECT"
)

// FirebaseCredentialsPath returns the service account file named by FIREBASE_CONFIG, or nil
// to fall back to application default credentials.
func FirebaseCredentialsPath() *string {
	return lookup(DevCredentialsPathEnv)
}

// ProjectID returns GCLOUD_PROJECT, or "" to let the SDK infer the project.
func ProjectID() string {
	if v := lookup(DevProjectEnv); v != nil {
		return *v
	}
	return ""
}

func lookup(key string) *string {
	v, found := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	if !found || v == "" {
		return nil
	}
	return &v
}
