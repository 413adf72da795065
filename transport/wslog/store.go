package wslog

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/jupyterlab-contrib/jupyterlab-js-logs/adapter"
	C "github.com/jupyterlab-contrib/jupyterlab-js-logs/constant"
	"github.com/sagernet/sing/common"
	E "github.com/sagernet/sing/common/exceptions"

	"github.com/cespare/xxhash/v2"
)

var _ adapter.LineStore = (*FileStore)(nil)

var safeClientID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// FileStore keeps each client's log in <directory>/logger/<id>.txt.
type FileStore struct {
	directory string
	access    sync.Mutex
	files     map[string]*storeFile
}

type storeFile struct {
	file  *os.File
	lines int
}

func NewFileStore(directory string) *FileStore {
	return &FileStore{
		directory: directory,
		files:     make(map[string]*storeFile),
	}
}

// FileName maps a client id to its log file name. Ids that are unsafe as
// file names are replaced by their xxhash.
func FileName(id string) string {
	if safeClientID.MatchString(id) {
		return id + ".txt"
	}
	return "client-" + strconv.FormatUint(xxhash.Sum64String(id), 16) + ".txt"
}

func (s *FileStore) Path(id string) string {
	return filepath.Join(s.directory, C.LoggerPath, FileName(id))
}

func (s *FileStore) Open(id string) (int, error) {
	s.access.Lock()
	defer s.access.Unlock()
	stored, err := s.open(id)
	if err != nil {
		return 0, err
	}
	return stored.lines, nil
}

func (s *FileStore) open(id string) (*storeFile, error) {
	if stored, loaded := s.files[id]; loaded {
		return stored, nil
	}
	path := s.Path(id)
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, E.Cause(err, "create log directory")
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, E.Cause(err, "open log for ", id)
	}
	lines, err := countLines(file)
	if err != nil {
		file.Close()
		return nil, E.Cause(err, "read log for ", id)
	}
	stored := &storeFile{file: file, lines: lines}
	s.files[id] = stored
	return stored, nil
}

func (s *FileStore) Append(id string, line string) error {
	s.access.Lock()
	defer s.access.Unlock()
	stored, err := s.open(id)
	if err != nil {
		return err
	}
	_, err = stored.file.WriteString(line + "\n")
	if err != nil {
		return E.Cause(err, "append to log for ", id)
	}
	stored.lines += strings.Count(line, "\n") + 1
	return nil
}

func (s *FileStore) Lines(id string) ([]string, error) {
	s.access.Lock()
	defer s.access.Unlock()
	content, err := os.ReadFile(s.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, E.Cause(err, "read log for ", id)
	}
	text := strings.TrimSuffix(string(content), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

func (s *FileStore) Release(id string) error {
	s.access.Lock()
	defer s.access.Unlock()
	stored, loaded := s.files[id]
	if !loaded {
		return nil
	}
	delete(s.files, id)
	return stored.file.Close()
}

func (s *FileStore) Close() error {
	s.access.Lock()
	defer s.access.Unlock()
	var errors []error
	for id, stored := range s.files {
		errors = append(errors, common.Close(stored.file))
		delete(s.files, id)
	}
	return E.Errors(errors...)
}

func countLines(file *os.File) (int, error) {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var lines int
	for scanner.Scan() {
		lines++
	}
	return lines, scanner.Err()
}
