package port

// FileInfo describes one candidate document file.
type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// FileWalker enumerates candidate document files under a root.
type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}
