package npm

import (
	"github.com/matzehuels/activitygraph/pkg/errors"
)

// ValidateMaintainer validates an npm maintainer name.
func ValidateMaintainer(name string) error {
	return errors.ValidateIdentity("npm maintainer", name)
}
