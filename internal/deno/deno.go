package deno

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/esm-dev/dnt/internal/fetch"
	logx "github.com/ije/gox/log"
	"github.com/ije/gox/utils"
)

// ReleaseVersion is the deno release installed when no usable binary is found.
const ReleaseVersion = "2.5.6"

// `deno check` of mixed roots and `npm:` bin specifiers
var versionConstraint, _ = semver.NewConstraint(">= 2.1.0")

// ResolveDenoPath returns the path of the managed deno binary under appDir.
func ResolveDenoPath(appDir string) string {
	denoPath := filepath.Join(appDir, "bin", "deno")
	if runtime.GOOS == "windows" {
		denoPath += ".exe"
	}
	return denoPath
}

// CheckDenoPath makes sure a usable deno binary is at denoPath. An outdated
// binary is replaced, a system deno is linked when it is recent enough, and
// the release archive is downloaded otherwise.
func CheckDenoPath(ctx context.Context, denoPath string, log *logx.Logger) error {
	if log == nil {
		log = &logx.Logger{}
		log.SetQuite(true)
	}
	if fi, err := os.Lstat(denoPath); err == nil {
		if !fi.IsDir() {
			if _, err := DenoVersion(ctx, denoPath); err == nil {
				return nil
			}
		}
		log.Infof("deno: replacing outdated %s", denoPath)
		if err := os.RemoveAll(denoPath); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(denoPath), 0755); err != nil {
		return err
	}

	if systemDeno, err := exec.LookPath("deno"); err == nil {
		if v, err := DenoVersion(ctx, systemDeno); err == nil {
			log.Infof("deno: using system deno %s (%s)", v, systemDeno)
			if runtime.GOOS == "windows" {
				_, err = utils.CopyFile(systemDeno, denoPath)
				return err
			}
			return os.Symlink(systemDeno, denoPath)
		}
	}

	downloadURL, err := releaseURL(ReleaseVersion, runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return err
	}
	log.Infof("deno: downloading deno %s", ReleaseVersion)
	return download(ctx, downloadURL, denoPath)
}

// DenoVersion returns the version of the deno binary, failing when it is not
// supported.
func DenoVersion(ctx context.Context, denoPath string) (*semver.Version, error) {
	output, err := exec.CommandContext(ctx, denoPath, "eval", "console.log(Deno.version.deno)").Output()
	if err != nil {
		return nil, err
	}
	v, err := semver.NewVersion(strings.TrimSpace(string(output)))
	if err != nil {
		return nil, fmt.Errorf("unexpected deno version output %q", output)
	}
	if !versionConstraint.Check(v) {
		return nil, fmt.Errorf("deno %s is too old, %s is required", v, versionConstraint)
	}
	return v, nil
}

func download(ctx context.Context, downloadURL string, denoPath string) error {
	u, err := url.Parse(downloadURL)
	if err != nil {
		return err
	}
	client, recycle := fetch.NewClient("dnt", 600, 5)
	defer recycle()
	res, err := client.Fetch(ctx, u, nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		return fmt.Errorf("could not download %s: %s", downloadURL, res.Status)
	}

	tmp, err := os.CreateTemp("", "deno-*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	size, err := io.Copy(tmp, res.Body)
	if err != nil {
		return err
	}
	return unzipBinary(tmp, size, denoPath)
}

// unzipBinary extracts the deno executable of a release archive.
func unzipBinary(r io.ReaderAt, size int64, denoPath string) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return err
	}
	for _, zf := range zr.File {
		if zf.Name != "deno" && zf.Name != "deno.exe" {
			continue
		}
		src, err := zf.Open()
		if err != nil {
			return err
		}
		defer src.Close()
		dst, err := os.OpenFile(denoPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0755)
		if err != nil {
			return err
		}
		if _, err := io.Copy(dst, src); err != nil {
			dst.Close()
			return err
		}
		return dst.Close()
	}
	return errors.New("no deno executable in the release archive")
}

// releaseURL returns the download URL of a deno release for the platform.
func releaseURL(version string, goos string, goarch string) (string, error) {
	arch, ok := map[string]string{
		"arm64": "aarch64",
		"amd64": "x86_64",
	}[goarch]
	if !ok {
		return "", errors.New("unsupported architecture: " + goarch)
	}
	platform, ok := map[string]string{
		"darwin":  "apple-darwin",
		"linux":   "unknown-linux-gnu",
		"windows": "pc-windows-msvc",
	}[goos]
	if !ok {
		return "", errors.New("unsupported os: " + goos)
	}
	return fmt.Sprintf("https://github.com/denoland/deno/releases/download/v%s/deno-%s-%s.zip", version, arch, platform), nil
}
