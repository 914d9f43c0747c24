package notifier

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

// Local shows an OS desktop notification. Helpers are fired without waiting
// for them; a missing helper binary is the only reported failure.
type Local struct {
	log zerolog.Logger
}

func NewLocal(log zerolog.Logger) *Local {
	return &Local{log: log}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Send(_ context.Context, intent Intent) error {
	body := intent.Short
	if body == "" {
		body = intent.Body
	}

	switch runtime.GOOS {
	case "darwin":
		if path, err := exec.LookPath("terminal-notifier"); err == nil {
			return startDetached(exec.Command(path, "-title", intent.Subject, "-message", body, "-group", "toyoko-tracker"))
		}
		script := fmt.Sprintf("display notification %q with title %q", body, intent.Subject)
		return startDetached(exec.Command("osascript", "-e", script))
	case "windows":
		script := fmt.Sprintf(
			"Add-Type -AssemblyName System.Windows.Forms; "+
				"Add-Type -AssemblyName System.Drawing; "+
				"$ni = New-Object System.Windows.Forms.NotifyIcon; "+
				"$ni.Icon = [System.Drawing.SystemIcons]::Information; "+
				"$ni.Visible = $true; "+
				"$ni.BalloonTipTitle = %q; "+
				"$ni.BalloonTipText = %q; "+
				"$ni.ShowBalloonTip(4000); "+
				"Start-Sleep -Milliseconds 1200; "+
				"$ni.Dispose();",
			sanitizeWindows(intent.Subject), sanitizeWindows(body))
		return startDetached(exec.Command("powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-Command", script))
	default:
		return startDetached(exec.Command("notify-send", intent.Subject, body))
	}
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch notifier helper: %w", err)
	}
	go cmd.Wait()
	return nil
}

// Windows toasters render emoji unreliably; fall back to ASCII markers.
func sanitizeWindows(s string) string {
	r := strings.NewReplacer(
		"🟢", "[START]",
		"✅", "[OK]",
		"❌", "[NO]",
		"→", "->",
	)
	return r.Replace(s)
}
