package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

func main() {
	customPath := flag.String("path", "", "Custom install directory")
	flag.Parse()

	repoRoot, err := os.Getwd()
	if err != nil {
		exitWithError("unable to determine working directory", err)
	}

	binaryName := "vmlua"
	if runtime.GOOS == "windows" {
		binaryName += ".exe"
	}

	buildOutput := filepath.Join(repoRoot, binaryName)

	fmt.Println("🚧 Building vmlua CLI...")
	buildCmd := exec.Command("go", "build", "-o", buildOutput, "./cmd/vmlua")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	buildCmd.Dir = repoRoot
	if err := buildCmd.Run(); err != nil {
		exitWithError("Go build failed", err)
	}

	targetDir := *customPath
	if targetDir == "" {
		targetDir = defaultInstallDir()
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		os.Remove(buildOutput)
		exitWithError("unable to create install directory", err)
	}

	destPath := filepath.Join(targetDir, binaryName)
	fmt.Printf("📦 Installing to %s\n", destPath)

	if err := copyFile(buildOutput, destPath); err != nil {
		os.Remove(buildOutput)
		exitWithError("failed to copy binary (try running with elevated permissions)", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(destPath, 0o755); err != nil {
			os.Remove(buildOutput)
			exitWithError("failed to set executable bit", err)
		}
	}

	os.Remove(buildOutput)

	fmt.Println("🔍 Verifying installed binary...")
	if err := smokeTest(destPath); err != nil {
		exitWithError("installed binary failed its smoke test", err)
	}

	fmt.Println("✅ vmlua installed successfully!")
	fmt.Println("Run 'vmlua --help' to verify the CLI is available in your PATH.")
}

// smokeTest runs the installed binary with --version and checks it
// exits cleanly — catching a bad copy (wrong architecture, missing
// exec bit, truncated file) before the installer claims success.
func smokeTest(binaryPath string) error {
	cmd := exec.Command(binaryPath, "--version")
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return err
	}
	return nil
}

func defaultInstallDir() string {
	switch runtime.GOOS {
	case "windows":
		if base := os.Getenv("LOCALAPPDATA"); base != "" {
			return filepath.Join(base, "Programs", "vmlua")
		}
		return filepath.Join(os.TempDir(), "vmlua")
	default:
		return "/usr/local/bin"
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	return out.Sync()
}

func exitWithError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "❌ %s: %v\n", msg, err)
	os.Exit(1)
}
