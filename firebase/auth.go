package firebase

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// AuthClient creates and verifies Firebase Authentication accounts.
type AuthClient struct {
	client *auth.Client
}

func (c *AuthClient) CreateUser(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)

	user, err := c.client.CreateUser(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create user %s: %w", email, err)
	}
	return user.UID, nil
}

// VerifyIDToken returns the uid of a client-held Firebase session.
func (c *AuthClient) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	token, err := c.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}
	return token.UID, nil
}

func (c *AuthClient) DeleteUser(ctx context.Context, uid string) error {
	if err := c.client.DeleteUser(ctx, uid); err != nil {
		return fmt.Errorf("delete user %s: %w", uid, err)
	}
	return nil
}
