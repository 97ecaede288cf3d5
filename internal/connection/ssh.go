package connection

import (
	"fmt"
	"strconv"
	"strings"
)

// bastionPort is the port used for the jump-host hop. The target port is not
// forwarded through the bastion.
const bastionPort = 22

// SSHArgs builds the ssh argument vector (without the binary) for c.
func SSHArgs(c *Connection) []string {
	args := make([]string, 0, 8)

	if c.UseKerberos {
		args = append(args, "-t", "-A", "-K")
	}

	if c.KeyPath != nil && *c.KeyPath != "" {
		args = append(args, "-i", *c.KeyPath)
	}

	if c.Bastion != nil && *c.Bastion != "" {
		args = append(args,
			"-p", strconv.Itoa(bastionPort),
			fmt.Sprintf("%s@%s", c.EffectiveBastionUser(), *c.Bastion),
			fmt.Sprintf("%s@%s", c.User, c.Host),
		)
		return args
	}

	return append(args, "-p", strconv.Itoa(c.Port), fmt.Sprintf("%s@%s", c.User, c.Host))
}

// Command renders the full ssh command line for display.
func Command(c *Connection, binary string) string {
	if binary == "" {
		binary = "ssh"
	}
	return strings.Join(append([]string{binary}, SSHArgs(c)...), " ")
}
