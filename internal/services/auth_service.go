package services

import (
	"fmt"
	"log"
	"sync"

	authorizer "github.com/localnerve/authorizer-go"
	"github.com/localnerve/traits/internal/config"
	"github.com/localnerve/traits/internal/utils"
)

var (
	authClient  *authorizer.AuthorizerClient
	authOnce    sync.Once
	authInitErr error
)

// SessionUser is the identity attached to a validated request
type SessionUser struct {
	ID    string
	Email string
	Roles []string
}

// IsAuthorizerInitialized returns true if the Authorizer client is initialized
func IsAuthorizerInitialized() bool {
	return authClient != nil
}

// InitAuthorizer creates the Authorizer client once. redirectURL is the public
// origin of this service.
func InitAuthorizer(cfg *config.Config, redirectURL string) error {
	authOnce.Do(func() {
		if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
			authInitErr = fmt.Errorf("authorizer ping failed: %w", err)
			return
		}

		log.Printf("Initializing Authorizer: authorizerURL=%s, clientID=%s, redirectURL=%s",
			cfg.AuthzURL, cfg.AuthzClientID, redirectURL)

		client, err := authorizer.NewAuthorizerClient(cfg.AuthzClientID, cfg.AuthzURL, redirectURL, nil)
		if err != nil {
			authInitErr = fmt.Errorf("failed to create authorizer client: %w", err)
			return
		}
		authClient = client
	})

	return authInitErr
}

// ValidateSession validates a session cookie for the given roles
func ValidateSession(cookie string, roles []string) (*SessionUser, error) {
	if authClient == nil {
		return nil, fmt.Errorf("authorizer client not initialized")
	}

	rolesPtrs := make([]*string, len(roles))
	for i := range roles {
		rolesPtrs[i] = &roles[i]
	}

	res, err := authClient.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  rolesPtrs,
	})
	if err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if res == nil || !res.IsValid {
		return nil, fmt.Errorf("session is not valid")
	}

	user := &SessionUser{}
	if res.User != nil {
		user.ID = res.User.ID
		user.Email = res.User.Email
		for _, role := range res.User.Roles {
			if role != nil {
				user.Roles = append(user.Roles, *role)
			}
		}
	}
	return user, nil
}
