package github

import (
	"regexp"

	"github.com/matzehuels/activitygraph/pkg/errors"
)

// GitHub logins: 1-39 alphanumeric or hyphen, not starting with a hyphen.
var validLogin = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,38}$`)

// ValidateUser validates a GitHub login.
func ValidateUser(user string) error {
	if user == "" {
		return errors.New(errors.ErrCodeInvalidIdentity, "github user is required")
	}
	if !validLogin.MatchString(user) {
		return errors.New(errors.ErrCodeInvalidIdentity,
			"invalid github user %q: must be 1-39 alphanumeric characters or hyphens, cannot start with hyphen", user)
	}
	return nil
}
