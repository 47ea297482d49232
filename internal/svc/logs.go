package svc

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// LogOptions configures log viewing behavior.
type LogOptions struct {
	ServiceName string
	Follow      bool
	Lines       int
}

// ViewLogs displays service logs using platform-appropriate tools.
func ViewLogs(opts LogOptions) error {
	if opts.Lines <= 0 {
		opts.Lines = 50
	}

	switch runtime.GOOS {
	case "linux":
		return viewLogsLinux(opts)
	case "darwin":
		return viewLogsDarwin(opts)
	default:
		return fmt.Errorf("log viewing not supported on %s", runtime.GOOS)
	}
}

// viewLogsLinux uses journalctl. The daemon installs as a user service, so
// logs live in the user journal.
func viewLogsLinux(opts LogOptions) error {
	args := []string{"--user", "-u", opts.ServiceName, "-n", strconv.Itoa(opts.Lines), "--no-pager"}
	if opts.Follow {
		args = append(args, "-f")
	}

	cmd := exec.Command("journalctl", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	return cmd.Run()
}

// viewLogsDarwin tails the log files launchd writes for the user agent.
func viewLogsDarwin(opts LogOptions) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	outLog := fmt.Sprintf("%s/Library/Logs/%s.out.log", home, opts.ServiceName)
	errLog := fmt.Sprintf("%s/Library/Logs/%s.err.log", home, opts.ServiceName)

	if !fileExists(outLog) && !fileExists(errLog) {
		fmt.Printf("No log files found for service %q\n", opts.ServiceName)
		fmt.Printf("Expected log files:\n  - %s\n  - %s\n", outLog, errLog)
		return nil
	}

	args := []string{"-n", strconv.Itoa(opts.Lines)}
	if opts.Follow {
		args = []string{"-f"}
	}
	if fileExists(errLog) {
		args = append(args, errLog)
	}
	if fileExists(outLog) {
		args = append(args, outLog)
	}

	cmd := exec.Command("tail", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
