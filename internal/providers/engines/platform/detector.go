package platform

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/crmarques/prismafmt/debugctx"
	"github.com/crmarques/prismafmt/engines"
	"github.com/crmarques/prismafmt/faults"
)

const osReleasePath = "/etc/os-release"

var openSSLVersionPattern = regexp.MustCompile(`(?i)openssl\s+(\d+)\.(\d+)`)

var _ engines.PlatformDetector = (*Detector)(nil)

// Probe isolates the host facts target detection depends on.
type Probe struct {
	GOOS           string
	GOARCH         string
	ReadFile       func(path string) ([]byte, error)
	OpenSSLVersion func(ctx context.Context) (string, error)
}

type Detector struct {
	probe Probe
}

func NewDetector() *Detector {
	return NewDetectorWithProbe(Probe{
		GOOS:           runtime.GOOS,
		GOARCH:         runtime.GOARCH,
		ReadFile:       os.ReadFile,
		OpenSSLVersion: opensslVersion,
	})
}

func NewDetectorWithProbe(probe Probe) *Detector {
	return &Detector{probe: probe}
}

func (d *Detector) Detect(ctx context.Context) (engines.Target, error) {
	switch d.probe.GOOS {
	case "darwin":
		if d.probe.GOARCH == "arm64" {
			return engines.TargetDarwinARM64, nil
		}
		return engines.TargetDarwin, nil
	case "windows":
		return engines.TargetWindows, nil
	case "linux":
		return d.detectLinux(ctx)
	default:
		return "", faults.NewTypedError(
			faults.UnsupportedError,
			fmt.Sprintf("no prisma engines are published for %s/%s", d.probe.GOOS, d.probe.GOARCH),
			nil,
		)
	}
}

// Resolve maps the native alias to the detected host target.
func (d *Detector) Resolve(ctx context.Context, target engines.Target) (engines.Target, error) {
	if target != engines.TargetNative {
		return target, nil
	}
	return d.Detect(ctx)
}

func (d *Detector) detectLinux(ctx context.Context) (engines.Target, error) {
	release := d.readOSRelease()
	distro := linuxDistro(release)
	if distro == "musl" {
		return engines.TargetLinuxMusl, nil
	}

	ssl := d.openSSLSeries(ctx)
	debugctx.Printf(ctx, "platform linux distro=%q arch=%q openssl=%q", distro, d.probe.GOARCH, ssl)

	if d.probe.GOARCH == "arm64" {
		return engines.Target("linux-arm64-openssl-" + ssl), nil
	}
	if distro == "rhel" {
		return engines.Target("rhel-openssl-" + ssl), nil
	}
	return engines.Target("debian-openssl-" + ssl), nil
}

func (d *Detector) readOSRelease() map[string]string {
	if d.probe.ReadFile == nil {
		return nil
	}
	data, err := d.probe.ReadFile(osReleasePath)
	if err != nil {
		return nil
	}
	return parseOSRelease(data)
}

func (d *Detector) openSSLSeries(ctx context.Context) string {
	if d.probe.OpenSSLVersion == nil {
		return "1.1.x"
	}
	output, err := d.probe.OpenSSLVersion(ctx)
	if err != nil {
		debugctx.Printf(ctx, "openssl version probe failed: %v", err)
		return "1.1.x"
	}
	return parseOpenSSLSeries(output)
}

func parseOSRelease(data []byte) map[string]string {
	values := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		values[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return values
}

func linuxDistro(release map[string]string) string {
	ids := strings.ToLower(release["ID"] + " " + release["ID_LIKE"])
	switch {
	case strings.Contains(ids, "alpine"):
		return "musl"
	case containsAny(ids, "rhel", "centos", "fedora", "amzn"):
		return "rhel"
	case containsAny(ids, "debian", "ubuntu"):
		return "debian"
	default:
		return "debian"
	}
}

func containsAny(value string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(value, needle) {
			return true
		}
	}
	return false
}

// Only 1.0.x and 1.1.x builds are published; newer libraries fall back to 1.1.x.
func parseOpenSSLSeries(output string) string {
	matches := openSSLVersionPattern.FindStringSubmatch(output)
	if len(matches) != 3 {
		return "1.1.x"
	}
	if matches[1] == "1" && matches[2] == "0" {
		return "1.0.x"
	}
	return "1.1.x"
}

func opensslVersion(ctx context.Context) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(probeCtx, "openssl", "version", "-v").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}
