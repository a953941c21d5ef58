package engines

import "fmt"

// BinaryName is the file name an engine is installed under for a target.
func BinaryName(engine EngineType, target Target) string {
	if engine.IsLibrary() {
		switch {
		case target.IsWindows():
			return "query_engine-windows.dll.node"
		case target.IsDarwin():
			return fmt.Sprintf("libquery_engine-%s.dylib.node", target)
		default:
			return fmt.Sprintf("libquery_engine-%s.so.node", target)
		}
	}

	name := fmt.Sprintf("%s-%s", engine, target)
	if target.IsWindows() {
		name += ".exe"
	}
	return name
}

// RemoteName is the file name published under all_commits/<hash>/<target>/.
func RemoteName(engine EngineType, target Target) string {
	if engine.IsLibrary() {
		switch {
		case target.IsWindows():
			return "query_engine.dll.node"
		case target.IsDarwin():
			return "libquery_engine.dylib.node"
		default:
			return "libquery_engine.so.node"
		}
	}

	if target.IsWindows() {
		return string(engine) + ".exe"
	}
	return string(engine)
}

// DownloadURL is the gzip artifact location on an engines mirror.
func DownloadURL(mirror string, version string, engine EngineType, target Target) string {
	return fmt.Sprintf("%s/all_commits/%s/%s/%s.gz", mirror, version, target, RemoteName(engine, target))
}

// ChecksumURL is the location of the digest of the decompressed artifact.
func ChecksumURL(mirror string, version string, engine EngineType, target Target) string {
	return fmt.Sprintf("%s/all_commits/%s/%s/%s.sha256", mirror, version, target, RemoteName(engine, target))
}
