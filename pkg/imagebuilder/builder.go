// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package imagebuilder packages training code into a container image by
// appending it as a single layer on top of a base image.
package imagebuilder

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/compression"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/google"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/google/uuid"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"
)

const DefaultWorkingDir = "/app"

// DefaultIgnorePatterns are excluded from every build context.
var DefaultIgnorePatterns = []string{".git", "**/__pycache__", "**/*.pyc", ".venv", ".mltkignore"}

// Options describe one image build.
type Options struct {
	// BaseImage is the image the code layer is appended to.
	BaseImage string
	// ContextDir is the local directory packaged into the layer.
	ContextDir string
	// Repository receives the result, e.g.
	// "europe-west2-docker.pkg.dev/my-project/mltk".
	Repository string
	// Name is the image name inside Repository.
	Name string
	// Platform in "os/arch" form; defaults to linux/amd64.
	Platform string
	// WorkingDir is where the code lands; defaults to DefaultWorkingDir.
	WorkingDir string
	Labels     map[string]string
	Ignore     *patternmatcher.PatternMatcher
}

// Build creates the image described by opts, pushes it and returns its
// reference pinned by digest.
func Build(ctx context.Context, opts Options) (string, error) {
	if opts.Platform == "" {
		opts.Platform = "linux/amd64"
	}
	if opts.WorkingDir == "" {
		opts.WorkingDir = DefaultWorkingDir
	}
	if opts.Ignore == nil {
		m, err := patternmatcher.New(DefaultIgnorePatterns)
		if err != nil {
			return "", fmt.Errorf("failed to create pattern matcher: %w", err)
		}
		opts.Ignore = m
	}
	platform, err := parsePlatform(opts.Platform)
	if err != nil {
		return "", err
	}

	imageName := fmt.Sprintf("%s/%s:%s", strings.TrimSuffix(opts.Repository, "/"), opts.Name, imageTag(time.Now()))
	imageRef, err := name.ParseReference(imageName)
	if err != nil {
		return "", fmt.Errorf("failed to parse image reference %q: %w", imageName, err)
	}
	logrus.Infof("Building %s from %s (%s/%s)", imageName, opts.BaseImage, platform.OS, platform.Architecture)

	tarPath, err := createFilteredTar(opts.ContextDir, opts.WorkingDir, opts.Ignore)
	if err != nil {
		return "", fmt.Errorf("failed to create filtered tarball: %w", err)
	}
	defer os.Remove(tarPath)

	layer, err := tarball.LayerFromOpener(func() (io.ReadCloser, error) {
		return os.Open(tarPath)
	}, tarball.WithCompression(compression.GZip))
	if err != nil {
		return "", fmt.Errorf("failed to create layer from tarball: %w", err)
	}

	craneOpts := []crane.Option{
		crane.WithContext(ctx),
		crane.WithPlatform(&platform),
		crane.WithAuthFromKeychain(authn.NewMultiKeychain(authn.DefaultKeychain, google.Keychain)),
	}
	base, err := crane.Pull(opts.BaseImage, craneOpts...)
	if err != nil {
		return "", fmt.Errorf("failed to pull base image %q: %w", opts.BaseImage, err)
	}
	img, err := mutate.AppendLayers(base, layer)
	if err != nil {
		return "", fmt.Errorf("failed to append layer: %w", err)
	}
	img, err = withConfig(img, opts.WorkingDir, opts.Labels)
	if err != nil {
		return "", err
	}

	if err := crane.Push(img, imageRef.String(), craneOpts...); err != nil {
		return "", fmt.Errorf("failed to push image %q: %w", imageName, err)
	}
	digest, err := img.Digest()
	if err != nil {
		return "", fmt.Errorf("failed to compute digest of %q: %w", imageName, err)
	}
	pinned := imageRef.Context().Digest(digest.String()).String()
	logrus.Infof("Image %s pushed", pinned)
	return pinned, nil
}

func withConfig(img v1.Image, workingDir string, labels map[string]string) (v1.Image, error) {
	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to read image config: %w", err)
	}
	c := *cfg.Config.DeepCopy()
	c.WorkingDir = workingDir
	if len(labels) > 0 {
		merged := make(map[string]string, len(c.Labels)+len(labels))
		for k, v := range c.Labels {
			merged[k] = v
		}
		for k, v := range labels {
			merged[k] = v
		}
		c.Labels = merged
	}
	img, err = mutate.Config(img, c)
	if err != nil {
		return nil, fmt.Errorf("failed to set image config: %w", err)
	}
	return img, nil
}

// imageTag is unique per build and sorts by time, e.g. "20250601-120000-1a2b".
func imageTag(now time.Time) string {
	return now.UTC().Format("20060102-150405") + "-" + uuid.NewString()[:4]
}

// parsePlatform converts "linux/amd64" into a v1.Platform.
func parsePlatform(platformStr string) (v1.Platform, error) {
	parts := strings.Split(platformStr, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return v1.Platform{}, fmt.Errorf("invalid platform format: %q, expected \"os/arch\"", platformStr)
	}
	return v1.Platform{OS: parts[0], Architecture: parts[1]}, nil
}

func processTarEntry(tw *tar.Writer, sourceDir, prefix string, ignore *patternmatcher.PatternMatcher, p string, info fs.FileInfo, errFromWalk error) error {
	if errFromWalk != nil {
		return errFromWalk
	}
	relPath, err := filepath.Rel(sourceDir, p)
	if err != nil {
		return fmt.Errorf("failed to get relative path for %q: %w", p, err)
	}
	if relPath == "." {
		return nil
	}

	// Directory patterns such as "foo/" only match with a trailing slash.
	relSlash := filepath.ToSlash(relPath)
	if info.IsDir() {
		relSlash += "/"
	}
	ignored, err := ignore.MatchesOrParentMatches(relSlash)
	if err != nil {
		return fmt.Errorf("failed to check ignore patterns for %q: %w", p, err)
	}
	if ignored {
		logrus.Debugf("Ignoring %q", relPath)
		if info.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}

	link := ""
	if info.Mode()&os.ModeSymlink != 0 {
		if link, err = os.Readlink(p); err != nil {
			return fmt.Errorf("failed to read symlink %q: %w", p, err)
		}
	}
	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("failed to create tar header for %q: %w", p, err)
	}
	header.Name = path.Join(prefix, filepath.ToSlash(relPath))
	if info.IsDir() {
		header.Name += "/"
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %q: %w", p, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("failed to open file %q: %w", p, err)
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to write file content for %q: %w", p, err)
	}
	return nil
}

// createFilteredTar writes sourceDir, minus ignored paths, to a temporary
// .tar.gz with every entry placed under workingDir. The caller removes the
// returned file.
func createFilteredTar(sourceDir, workingDir string, ignore *patternmatcher.PatternMatcher) (_ string, err error) {
	tmp, err := os.CreateTemp("", "mltk-build-context-*.tar.gz")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file for tarball: %w", err)
	}
	defer func() {
		if cerr := tmp.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	gz := gzip.NewWriter(tmp)
	tw := tar.NewWriter(gz)
	prefix := strings.TrimPrefix(path.Clean(workingDir), "/")

	logrus.Debugf("Creating filtered tar from %s in %s", sourceDir, tmp.Name())
	if err := filepath.Walk(sourceDir, func(p string, info fs.FileInfo, err error) error {
		return processTarEntry(tw, sourceDir, prefix, ignore, p, info, err)
	}); err != nil {
		return "", err
	}
	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("failed to close tar writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return tmp.Name(), nil
}
