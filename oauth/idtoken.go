package oauth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ai-pulse/pulsekit/core"
)

// ProfileFromIDToken extracts display attributes from an id_token without
// verifying its signature. The backend's verify endpoint is the only
// authority on the identity; these claims are decoration until it answers.
func ProfileFromIDToken(idToken string) (*core.UserProfile, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse id_token: %w", err)
	}

	profile := &core.UserProfile{}
	if sub, err := claims.GetSubject(); err == nil {
		profile.ID = sub
	}
	if name, ok := claims["name"].(string); ok {
		profile.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		profile.Email = email
	}
	return profile, nil
}
