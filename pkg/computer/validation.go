package computer

import "strings"

// isDangerousCommand checks if the command contains any destructive
// operations. It returns true if a dangerous command is detected.
func isDangerousCommand(command string) bool {
	dangerousCommands := []string{
		"rm -rf /",
		"shutdown",
		"reboot",
		"mkfs",
		"dd if=",
		":(){",
		"> /dev/sda",
		"chmod -R 777 /",
	}

	lowerCommand := strings.ToLower(command)
	for _, cmd := range dangerousCommands {
		if strings.Contains(lowerCommand, strings.ToLower(cmd)) {
			return true
		}
	}
	return false
}
