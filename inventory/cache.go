package inventory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"

	zlog "github.com/cloudkiwi/vnetaudit/logger"
	"github.com/cloudkiwi/vnetaudit/util"
)

var ErrCacheFileMissing = errors.New("cache file does not exist")

const cacheFilePrefix = "subnet_cache_"

// Store reads and writes the subnet inventory cache, one JSON file per day.
// Fetching the full inventory takes minutes against a large tenant, so runs
// within the same day reuse the cached copy.
type Store struct {
	Fs  afero.Fs
	Dir string
}

func NewStore(afs afero.Fs, dir string) *Store {
	return &Store{Fs: afs, Dir: dir}
}

// DefaultPath returns the cache file path for the given day.
func (s *Store) DefaultPath(now time.Time) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s%s.json", cacheFilePrefix, now.Format("2006-01-02")))
}

// Read loads subnet data from a cache file.
func (s *Store) Read(path string) (*Data, error) {
	contents, err := util.GetFileContents(s.Fs, path)
	if err != nil {
		if errors.Is(err, util.ErrFileDoesNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCacheFileMissing, path)
		}
		return nil, err
	}

	var data Data
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(contents, &data); err != nil {
		return nil, fmt.Errorf("parsing cache file %s: %w", path, err)
	}
	return &data, nil
}

// Write stores subnet data in a cache file.
func (s *Store) Write(path string, data *Data) error {
	contents, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(data)
	if err != nil {
		return fmt.Errorf("serializing cache data: %w", err)
	}
	if err := afero.WriteFile(s.Fs, path, contents, 0o644); err != nil {
		return fmt.Errorf("writing cache file %s: %w", path, err)
	}
	return nil
}

// Load returns subnet data for the audit run. An explicit cache path must
// exist and is never refreshed. With no explicit path, today's cache file is
// used when present, otherwise the inventory is fetched and cached.
func (s *Store) Load(ctx context.Context, fetcher *Fetcher, explicitPath string) (*Data, error) {
	logger := zlog.GetLogger()

	if explicitPath != "" {
		logger.Info().Str("cache", explicitPath).Msg("using provided cache file")
		return s.Read(explicitPath)
	}

	path := s.DefaultPath(time.Now())
	data, err := s.Read(path)
	if err == nil {
		logger.Info().Str("cache", path).Msg("reading subnet inventory from cache")
		return data, nil
	}
	if !errors.Is(err, ErrCacheFileMissing) && !errors.Is(err, util.ErrFileIsEmpty) {
		return nil, err
	}

	logger.Info().Str("cache", path).Msg("cache file not found, fetching inventory from Azure")
	data, err = fetcher.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.Write(path, data); err != nil {
		return nil, err
	}
	logger.Info().Str("cache", path).Msg("wrote subnet inventory cache")
	return data, nil
}

// Clear removes all cache files in the store directory and returns how many
// were deleted.
func (s *Store) Clear() (int, error) {
	matches, err := afero.Glob(s.Fs, filepath.Join(s.Dir, cacheFilePrefix+"*.json"))
	if err != nil {
		return 0, err
	}
	for _, path := range matches {
		if err := s.Fs.Remove(path); err != nil {
			return 0, fmt.Errorf("removing cache file %s: %w", path, err)
		}
	}
	return len(matches), nil
}
