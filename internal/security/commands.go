package security

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// allowedCommands is the closed allow-list of external programs tools may
// spawn. The allow-list is authoritative: anything absent is blocked, whether
// or not it appears on the deny-list.
var allowedCommands = map[string]bool{
	"node":  true,
	"npm":   true,
	"npx":   true,
	"git":   true,
	"ls":    true,
	"cat":   true,
	"grep":  true,
	"find":  true,
	"echo":  true,
	"pwd":   true,
	"which": true,
	"head":  true,
	"tail":  true,
	"wc":    true,
}

// deniedCommands exists only to produce a clearer rejection reason for
// well-known dangerous commands; blocking is still done by the allow-list.
var deniedCommands = map[string]string{
	"rm":       "destructive file removal",
	"rmdir":    "destructive directory removal",
	"dd":       "raw device writes",
	"mkfs":     "filesystem formatting",
	"shutdown": "system power control",
	"reboot":   "system power control",
	"sudo":     "privilege escalation",
	"su":       "privilege escalation",
	"chmod":    "permission changes",
	"chown":    "ownership changes",
	"curl":     "arbitrary network access",
	"wget":     "arbitrary network access",
	"nc":       "arbitrary network access",
	"ssh":      "remote shell access",
	"eval":     "shell evaluation",
	"kill":     "process control",
	"pkill":    "process control",
}

// CommandError is the typed rejection returned by CheckCommand.
type CommandError struct {
	Command string
	Reason  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q blocked: %s", e.Command, e.Reason)
}

// CheckCommand validates a program name against the gate. Only the base name
// is considered; argument lists are passed verbatim to exec without shell
// interpretation, so argument content cannot inject commands.
func CheckCommand(name string) error {
	base := strings.ToLower(strings.TrimSpace(filepath.Base(name)))
	if base == "" || base == "." {
		return &CommandError{Command: name, Reason: "empty command"}
	}
	if reason, ok := deniedCommands[base]; ok {
		return &CommandError{Command: base, Reason: reason}
	}
	if !allowedCommands[base] {
		return &CommandError{Command: base, Reason: "not on the allow-list"}
	}
	return nil
}

// AllowedCommands returns the allow-list for display in the tool catalog.
func AllowedCommands() []string {
	out := make([]string, 0, len(allowedCommands))
	for name := range allowedCommands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
