package registry

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/theapemachine/metamcp/pkg/errors"
)

// Executables a provider config is allowed to launch. Everything else is
// rejected before a process is ever spawned.
var allowedExecutables = map[string]bool{
	"node":    true,
	"python":  true,
	"python3": true,
	"npx":     true,
	"uv":      true,
	"pipx":    true,
	"deno":    true,
	"bun":     true,
}

var (
	shellMetachars   = regexp.MustCompile("[;&|`$(){}\\[\\]]")
	parentTraversal  = regexp.MustCompile(`\.\.`)
	removeRecursive  = regexp.MustCompile(`rm\s+-`)
	sudoInvocation   = regexp.MustCompile(`sudo`)
	devicePathPrefix = "/dev/"
)

// ValidateCommand rejects commands that are empty, launch a non-whitelisted
// executable, or carry anything that smells like shell injection.
func ValidateCommand(command []string) error {
	if len(command) == 0 {
		return errors.New(errors.KindConfig, "command must not be empty")
	}

	executable := filepath.Base(command[0])
	if !allowedExecutables[executable] {
		return errors.New(errors.KindConfig,
			fmt.Errorf("executable %q is not whitelisted", executable))
	}

	for _, element := range command {
		if err := checkElement(element); err != nil {
			return err
		}
	}

	return nil
}

func checkElement(element string) error {
	switch {
	case shellMetachars.MatchString(element):
		return errors.New(errors.KindConfig,
			fmt.Errorf("command element %q contains shell metacharacters", element))
	case parentTraversal.MatchString(element):
		return errors.New(errors.KindConfig,
			fmt.Errorf("command element %q contains parent traversal", element))
	case strings.HasPrefix(element, devicePathPrefix):
		return errors.New(errors.KindConfig,
			fmt.Errorf("command element %q targets a device path", element))
	case removeRecursive.MatchString(element):
		return errors.New(errors.KindConfig,
			fmt.Errorf("command element %q looks like a destructive removal", element))
	case sudoInvocation.MatchString(element):
		return errors.New(errors.KindConfig,
			fmt.Errorf("command element %q attempts privilege escalation", element))
	}

	return nil
}

// SanitizeCommand strips shell metacharacters and parent traversal from
// every element before the command reaches the spawner.
func SanitizeCommand(command []string) []string {
	sanitized := make([]string, len(command))
	for i, element := range command {
		element = shellMetachars.ReplaceAllString(element, "")
		element = parentTraversal.ReplaceAllString(element, "")
		sanitized[i] = element
	}
	return sanitized
}
