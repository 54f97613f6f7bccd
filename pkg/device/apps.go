package device

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	focusWithActivity = regexp.MustCompile(`mCurrentFocus=Window\{[^}]*\s+(\S+)/\S+\}`)
	focusPackageOnly  = regexp.MustCompile(`mCurrentFocus=Window\{[^}]*\s+(\S+)\}`)
	resumedActivity   = regexp.MustCompile(`mResumedActivity:.*\s(\S+)/\S+`)
)

// CurrentPackage returns the package owning the focused window. Right after
// a launch the window manager often reports nothing; callers poll.
func (d *AndroidDevice) CurrentPackage(ctx context.Context) (string, error) {
	out, err := d.Shell(ctx, "dumpsys", "window", "displays", "|", "grep", "mCurrentFocus")
	if err == nil {
		if pkg := parseForegroundPackage(out); pkg != "" {
			return pkg, nil
		}
	}

	out, err = d.Shell(ctx, "dumpsys", "activity", "activities", "|", "grep", "mResumedActivity")
	if err != nil {
		return "", err
	}
	if m := resumedActivity.FindStringSubmatch(out); len(m) >= 2 {
		return m[1], nil
	}
	return "", nil
}

// parseForegroundPackage extracts the package from an mCurrentFocus line,
// e.g. "mCurrentFocus=Window{ab3a179 u0 com.example/com.example.Main}".
func parseForegroundPackage(output string) string {
	if m := focusWithActivity.FindStringSubmatch(output); len(m) >= 2 {
		return m[1]
	}
	if m := focusPackageOnly.FindStringSubmatch(output); len(m) >= 2 {
		if strings.Contains(m[1], ".") {
			return m[1]
		}
	}
	return ""
}

// LaunchPackage starts the launcher activity of pkg with monkey.
func (d *AndroidDevice) LaunchPackage(ctx context.Context, pkg string) error {
	out, err := d.Shell(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	if err != nil {
		return err
	}
	if strings.Contains(out, "No activities found") || strings.Contains(out, "monkey aborted") {
		return fmt.Errorf("launch %s: %s", pkg, out)
	}
	return nil
}

// StartActivity starts pkg/activity with an explicit intent. An empty
// activity is resolved from the package's launcher entry.
func (d *AndroidDevice) StartActivity(ctx context.Context, pkg, activity string) error {
	component := pkg + "/" + activity
	if activity == "" {
		resolved, err := d.ResolveLauncher(ctx, pkg)
		if err != nil {
			return err
		}
		component = resolved
	}

	out, err := d.Shell(ctx, "am", "start", "-n", component)
	if err != nil {
		return err
	}
	if strings.Contains(out, "Error:") {
		return fmt.Errorf("start %s: %s", component, out)
	}
	return nil
}

// ResolveLauncher returns the "pkg/activity" component of pkg's launcher.
func (d *AndroidDevice) ResolveLauncher(ctx context.Context, pkg string) (string, error) {
	out, err := d.Shell(ctx, "cmd", "package", "resolve-activity", "--brief", "-c", "android.intent.category.LAUNCHER", pkg)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, pkg+"/") {
			return line, nil
		}
	}
	return "", fmt.Errorf("no launcher activity for %s", pkg)
}

// ForceStop kills pkg.
func (d *AndroidDevice) ForceStop(ctx context.Context, pkg string) error {
	_, err := d.Shell(ctx, "am", "force-stop", pkg)
	return err
}

// IsInstalled reports whether pkg is installed.
func (d *AndroidDevice) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	out, err := d.Shell(ctx, "pm", "list", "packages", pkg)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "package:"+pkg {
			return true, nil
		}
	}
	return false, nil
}
