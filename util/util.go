package util

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blang/semver"
	"github.com/google/go-github/github"
	"github.com/spf13/afero"
)

var (
	ErrInvalidPath = errors.New("path cannot be empty string")

	ErrFileDoesNotExist = errors.New("file does not exist")
	ErrFileIsEmpty      = errors.New("file is empty")
	ErrPathIsDir        = errors.New("given path is a directory, not a file")

	ErrDirDoesNotExist = errors.New("directory does not exist")
	ErrPathIsNotDir    = errors.New("given path is not a directory")
)

// GetFileContents reads and returns the contents of a file after validating
// that it exists, is not a directory and is not empty.
func GetFileContents(afs afero.Fs, path string) ([]byte, error) {
	if err := ValidateFile(afs, path); err != nil {
		return nil, err
	}

	contents, err := afero.ReadFile(afs, path)
	if err != nil {
		return nil, fmt.Errorf("unable to read file %s: %w", path, err)
	}
	return contents, nil
}

func ParseRelativePath(dir string) (string, error) {
	// validate parameters
	if dir == "" {
		return "", ErrInvalidPath
	}

	switch {
	// if path is home, parse and set home dir
	case strings.HasPrefix(dir, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, dir[2:]), nil
	// if the path starts with a dot, get the path relative to the current working directory
	case strings.HasPrefix(dir, "."):
		currentDir, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(currentDir, dir), nil
	default:
		// otherwise, return the directory as is
		return dir, nil
	}
}

// ValidateDirectory returns whether a path exists and is a directory
func ValidateDirectory(afs afero.Fs, dir string) error {
	exists, isDir, _, err := validatePath(afs, dir)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("%w: %s", ErrDirDoesNotExist, dir)
	}

	if !isDir {
		return fmt.Errorf("%w: %s", ErrPathIsNotDir, dir)
	}

	return nil
}

// ValidateFile returns whether a path exists and is a non-empty file
func ValidateFile(afs afero.Fs, file string) error {
	exists, isDir, isEmpty, err := validatePath(afs, file)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("%w: %s", ErrFileDoesNotExist, file)
	}

	if isDir {
		return fmt.Errorf("%w: %s", ErrPathIsDir, file)
	}

	if isEmpty {
		return fmt.Errorf("%w: %s", ErrFileIsEmpty, file)
	}

	return nil
}

func validatePath(afs afero.Fs, path string) (bool, bool, bool, error) {
	var exists, isDir, isEmpty bool

	// validate parameters
	if afs == nil {
		return exists, isDir, isEmpty, fmt.Errorf("filesystem is nil")
	}
	if path == "" {
		return exists, isDir, isEmpty, ErrInvalidPath
	}

	// check if path exists
	exists, err := afero.Exists(afs, path)
	if err != nil {
		return exists, isDir, isEmpty, err
	}

	if exists {
		// check if path is a directory
		isDir, err = afero.IsDir(afs, path)
		if err != nil {
			return exists, isDir, isEmpty, err
		}

		// check if directory or file is empty
		isEmpty, err = afero.IsEmpty(afs, path)
		if err != nil {
			return exists, isDir, isEmpty, err
		}
	}

	return exists, isDir, isEmpty, nil
}

// CheckForNewerVersion checks if a newer version of the tool is available on the GitHub repository
func CheckForNewerVersion(client *github.Client, currentVersion string) (bool, string, error) {

	// Get the latest release
	latestRelease, _, err := client.Repositories.GetLatestRelease(context.Background(), "cloudkiwi", "vnetaudit")
	if err != nil {
		return false, "", fmt.Errorf("error fetching latest release: %w", err)
	}

	// Get the latest version from release tag name
	latestVersion := latestRelease.GetTagName()

	// Parse the current and latest versions
	currentSemver, err := semver.ParseTolerant(currentVersion)
	if err != nil {
		return false, "", fmt.Errorf("error parsing current version: %w", err)
	}

	latestSemver, err := semver.ParseTolerant(latestVersion)
	if err != nil {
		return false, "", fmt.Errorf("error parsing latest version: %w", err)
	}

	// Compare the versions
	if latestSemver.GT(currentSemver) {
		return true, latestVersion, nil
	}

	return false, latestVersion, nil
}
