package sessions

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps the record as a JSON file named after the storage key
type FileStore struct {
	fs     afero.Fs
	dir    string
	path   string
	logger zerolog.Logger
	lock   sync.Mutex
}

// StoreOption defines a function type to modify a store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	logger zerolog.Logger
}

func WithLogger(l zerolog.Logger) StoreOption {
	return func(o *storeOptions) {
		o.logger = l
	}
}

func applyStoreOptions(options []StoreOption) storeOptions {
	o := storeOptions{logger: zerolog.Nop()}
	for _, opt := range options {
		opt(&o)
	}
	return o
}

func NewFileStore(fs afero.Fs, dir, key string, options ...StoreOption) *FileStore {
	o := applyStoreOptions(options)
	return &FileStore{
		fs:     fs,
		dir:    dir,
		path:   filepath.Join(dir, key+".json"),
		logger: o.logger,
	}
}

// Path is the location of the record
func (s *FileStore) Path() string {
	return s.path
}

// Save writes to a temporary file in the same directory and renames it over
// the record.
func (s *FileStore) Save(_ context.Context, session Session) error {
	data, err := Marshal(session)
	if err != nil {
		return errors.Wrapf(errors.ErrCredentialStoreWrite, "marshal session: %s", err.Error())
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		return errors.Wrapf(errors.ErrCredentialStoreWrite, "create %s: %s", s.dir, err.Error())
	}

	tmp, err := afero.TempFile(s.fs, s.dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(errors.ErrCredentialStoreWrite, "temp file: %s", err.Error())
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return errors.Wrapf(errors.ErrCredentialStoreWrite, "write: %s", err.Error())
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return errors.Wrapf(errors.ErrCredentialStoreWrite, "close: %s", err.Error())
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return errors.Wrapf(errors.ErrCredentialStoreWrite, "rename: %s", err.Error())
	}
	return nil
}

func (s *FileStore) Load(_ context.Context) (Session, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("Unable to read session record")
		}
		return Session{}, false
	}

	session, ok := Unmarshal(data)
	if !ok {
		s.logger.Warn().Str("path", s.path).Msg("Ignoring corrupt session record")
	}
	return session, ok
}

func (s *FileStore) Clear(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(errors.ErrCredentialStoreWrite, "remove %s: %s", s.path, err.Error())
	}
	return nil
}
