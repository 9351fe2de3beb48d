package drive

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Account is the Drive user a freshly issued token belongs to
type Account struct {
	DisplayName string
	Email       string
}

// AccountChecker asks the Drive API who owns an access token. The
// drive.file scope is enough for about.get.
type AccountChecker struct {
	endpoint string
}

// NewAccountChecker creates a checker. An empty endpoint uses the
// production Drive API.
func NewAccountChecker(endpoint string) *AccountChecker {
	return &AccountChecker{endpoint: endpoint}
}

// Lookup returns the account that authorized accessToken.
func (c *AccountChecker) Lookup(ctx context.Context, accessToken string) (Account, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := []option.ClientOption{
		option.WithHTTPClient(oauth2.NewClient(ctx, ts)),
	}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	svc, err := drivev3.NewService(ctx, opts...)
	if err != nil {
		return Account{}, fmt.Errorf("failed to create drive client: %w", err)
	}

	about, err := svc.About.Get().Fields("user").Context(ctx).Do()
	if err != nil {
		return Account{}, fmt.Errorf("failed to get drive account: %w", err)
	}
	if about.User == nil {
		return Account{}, fmt.Errorf("drive response has no user")
	}

	return Account{
		DisplayName: about.User.DisplayName,
		Email:       about.User.EmailAddress,
	}, nil
}
