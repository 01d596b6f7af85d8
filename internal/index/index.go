package index

// FileIndex defines the interface for content file indexing.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type FileIndex interface {
	UpsertFile(f FileRow, body string) error
	DeleteFile(path string) error
	GetChecksum(path string) (string, error)
	GetFile(path string) (*FileRow, error)
	ListFiles(kind string, limit, offset int) ([]FileRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	TouchProject(p Project) error
	RecentProjects() ([]Project, error)
	Ping() error
	Close() error
}

// Verify *DB satisfies FileIndex at compile time.
var _ FileIndex = (*DB)(nil)
