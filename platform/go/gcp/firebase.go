package gcp

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	platformauth "github.com/zenGate-Global/palmyra-tenancy/platform/go/auth"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/setups"
)

// principalTypeClaim is the custom claim read by auth.DefaultCredentialExtractor.
const principalTypeClaim = "userType"

// GetApp creates a Firebase app from an optional service account file and project id.
func GetApp(ctx context.Context, pathToJson *string, projectID string) (*firebase.App, error) {
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}

	var opts []option.ClientOption
	if pathToJson != nil {
		opts = append(opts, option.WithCredentialsFile(*pathToJson))
	}
	return firebase.NewApp(ctx, cfg, opts...)
}

// InitFirebaseAuth initializes the Firebase app from FIREBASE_CONFIG / GCLOUD_PROJECT and
// returns its Auth client.
func InitFirebaseAuth(ctx context.Context) (*firebase.App, *firebaseauth.Client, error) {
	app, err := GetApp(ctx, setups.FirebaseCredentialsPath(), setups.ProjectID())
	if err != nil {
		return nil, nil, fmt.Errorf("init firebase app: %w", err)
	}

	fbAuth, err := app.Auth(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init firebase auth: %w", err)
	}

	return app, fbAuth, nil
}

// SetPrincipalType stores the principal type as a custom claim so newly issued tokens
// carry it. Other custom claims are preserved.
func SetPrincipalType(ctx context.Context, client *firebaseauth.Client, uid, principalType string) error {
	user, err := client.GetUser(ctx, uid)
	if err != nil {
		return fmt.Errorf("get firebase user: %w", err)
	}
	claims, err := withPrincipalType(user.CustomClaims, principalType)
	if err != nil {
		return err
	}
	if err := client.SetCustomUserClaims(ctx, uid, claims); err != nil {
		return fmt.Errorf("set custom claims: %w", err)
	}
	return nil
}

// withPrincipalType copies existing and sets the type claim. The user type is the default
// and is stored by removing the claim.
func withPrincipalType(existing map[string]interface{}, principalType string) (map[string]interface{}, error) {
	claims := make(map[string]interface{}, len(existing)+1)
	for k, v := range existing {
		claims[k] = v
	}

	switch principalType {
	case platformauth.PrincipalTypeUser:
		delete(claims, principalTypeClaim)
	case platformauth.PrincipalTypeSuperadmin:
		claims[principalTypeClaim] = principalType
	default:
		return nil, fmt.Errorf("unsupported principal type %q", principalType)
	}
	return claims, nil
}
