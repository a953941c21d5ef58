package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/crmarques/prismafmt/engines"
	"github.com/crmarques/prismafmt/faults"
)

func staticFile(content string) func(string) ([]byte, error) {
	return func(string) ([]byte, error) {
		return []byte(content), nil
	}
}

func staticOpenSSL(output string, err error) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		return output, err
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		probe Probe
		want  engines.Target
	}{
		{name: "darwin intel", probe: Probe{GOOS: "darwin", GOARCH: "amd64"}, want: engines.TargetDarwin},
		{name: "darwin arm", probe: Probe{GOOS: "darwin", GOARCH: "arm64"}, want: engines.TargetDarwinARM64},
		{name: "windows", probe: Probe{GOOS: "windows", GOARCH: "amd64"}, want: engines.TargetWindows},
		{
			name: "alpine",
			probe: Probe{
				GOOS:     "linux",
				GOARCH:   "amd64",
				ReadFile: staticFile("ID=alpine\nVERSION_ID=3.15.0\n"),
			},
			want: engines.TargetLinuxMusl,
		},
		{
			name: "ubuntu openssl 1.1",
			probe: Probe{
				GOOS:           "linux",
				GOARCH:         "amd64",
				ReadFile:       staticFile("ID=ubuntu\nID_LIKE=debian\n"),
				OpenSSLVersion: staticOpenSSL("OpenSSL 1.1.1f  31 Mar 2020", nil),
			},
			want: engines.TargetDebianOpenSSL11,
		},
		{
			name: "centos openssl 1.0",
			probe: Probe{
				GOOS:           "linux",
				GOARCH:         "amd64",
				ReadFile:       staticFile("ID=\"centos\"\nID_LIKE=\"rhel fedora\"\n"),
				OpenSSLVersion: staticOpenSSL("OpenSSL 1.0.2k-fips  26 Jan 2017", nil),
			},
			want: engines.TargetRHELOpenSSL10,
		},
		{
			name: "arm64 linux",
			probe: Probe{
				GOOS:           "linux",
				GOARCH:         "arm64",
				ReadFile:       staticFile("ID=debian\n"),
				OpenSSLVersion: staticOpenSSL("OpenSSL 1.0.2u", nil),
			},
			want: engines.TargetLinuxARM64OpenSSL10,
		},
		{
			name: "missing os-release and openssl",
			probe: Probe{
				GOOS:           "linux",
				GOARCH:         "amd64",
				ReadFile:       func(string) ([]byte, error) { return nil, errors.New("missing") },
				OpenSSLVersion: staticOpenSSL("", errors.New("not found")),
			},
			want: engines.TargetDebianOpenSSL11,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewDetectorWithProbe(testCase.probe).Detect(context.Background())
			if err != nil {
				t.Fatalf("Detect returned error: %v", err)
			}
			if got != testCase.want {
				t.Fatalf("Detect() = %q, want %q", got, testCase.want)
			}
		})
	}
}

func TestDetectUnsupportedPlatform(t *testing.T) {
	t.Parallel()

	_, err := NewDetectorWithProbe(Probe{GOOS: "plan9", GOARCH: "386"}).Detect(context.Background())
	if !faults.IsCategory(err, faults.UnsupportedError) {
		t.Fatalf("expected unsupported error, got %v", err)
	}
}

func TestResolveKeepsExplicitTarget(t *testing.T) {
	t.Parallel()

	detector := NewDetectorWithProbe(Probe{GOOS: "darwin", GOARCH: "arm64"})
	got, err := detector.Resolve(context.Background(), engines.TargetLinuxMusl)
	if err != nil || got != engines.TargetLinuxMusl {
		t.Fatalf("Resolve() = %q, %v", got, err)
	}
	got, err = detector.Resolve(context.Background(), engines.TargetNative)
	if err != nil || got != engines.TargetDarwinARM64 {
		t.Fatalf("Resolve(native) = %q, %v", got, err)
	}
}

func TestParseOpenSSLSeries(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"OpenSSL 1.0.2k-fips  26 Jan 2017": "1.0.x",
		"OpenSSL 1.1.1n  15 Mar 2022":      "1.1.x",
		"OpenSSL 3.0.2 15 Mar 2022":        "1.1.x",
		"LibreSSL 2.8.3":                   "1.1.x",
	}
	for output, want := range testCases {
		if got := parseOpenSSLSeries(output); got != want {
			t.Fatalf("parseOpenSSLSeries(%q) = %q, want %q", output, got, want)
		}
	}
}
